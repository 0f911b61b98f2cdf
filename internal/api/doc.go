// Package api implements the HTTP endpoints for the VidTube backend:
// registration and session lifecycle (login, refresh with rotation, logout,
// password change) plus the content surface for videos, comments, tweets,
// likes, and playlists. Handlers are plain http.HandlerFunc methods on
// Handler and are wired onto a mux by the server package.
package api
