package api

import (
	"errors"
	"net/http"

	"github.com/KevanshGopani/youtube-backend/internal/models"
	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

// PlaylistsCollection serves /api/playlists: listing (optionally by
// ?owner={id}) and creation.
func (h *Handler) PlaylistsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Store.ListPlaylists(r.URL.Query().Get("owner")))
	case http.MethodPost:
		caller, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var payload struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.CreatePlaylist(caller.ID, payload.Name, payload.Description)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.recorder().ObserveContentEvent("playlist_created")
		writeJSON(w, http.StatusCreated, playlist)
	default:
		methodNotAllowed(w, "GET, POST", r.Method)
	}
}

// Playlists serves /api/playlists/{id} and
// /api/playlists/{id}/videos/{videoId}.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/playlists")
	switch {
	case len(segments) == 1:
		h.playlistByID(w, r, segments[0])
	case len(segments) == 3 && segments[1] == "videos":
		h.playlistVideo(w, r, segments[0], segments[2])
	default:
		writeError(w, http.StatusNotFound, errors.New("playlist route not found"))
	}
}

func (h *Handler) playlistByID(w http.ResponseWriter, r *http.Request, playlistID string) {
	switch r.Method {
	case http.MethodGet:
		playlist, ok := h.Store.GetPlaylist(playlistID)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("playlist not found"))
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodPatch:
		if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
			return
		}
		var payload struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.UpdatePlaylist(playlistID, storage.PlaylistUpdate{
			Name:        payload.Name,
			Description: payload.Description,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodDelete:
		if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
			return
		}
		if err := h.Store.DeletePlaylist(playlistID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE", r.Method)
	}
}

// playlistVideo adds or removes a single video from the playlist.
func (h *Handler) playlistVideo(w http.ResponseWriter, r *http.Request, playlistID, videoID string) {
	if _, ok := h.requirePlaylistOwner(w, r, playlistID); !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		playlist, err := h.Store.AddPlaylistVideo(playlistID, videoID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodDelete:
		playlist, err := h.Store.RemovePlaylistVideo(playlistID, videoID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	default:
		methodNotAllowed(w, "PUT, DELETE", r.Method)
	}
}

func (h *Handler) requirePlaylistOwner(w http.ResponseWriter, r *http.Request, playlistID string) (models.Playlist, bool) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return models.Playlist{}, false
	}
	playlist, found := h.Store.GetPlaylist(playlistID)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("playlist not found"))
		return models.Playlist{}, false
	}
	if playlist.OwnerID != caller.ID {
		writeError(w, http.StatusForbidden, errors.New("not the playlist owner"))
		return models.Playlist{}, false
	}
	return playlist, true
}
