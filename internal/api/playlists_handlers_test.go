package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KevanshGopani/youtube-backend/internal/models"
)

func createTestPlaylist(t *testing.T, h *Handler, token, name string) models.Playlist {
	t.Helper()
	rr := httptest.NewRecorder()
	h.PlaylistsCollection(rr, authedRequest(http.MethodPost, "/api/playlists", token, jsonBody(t, map[string]string{
		"name": name,
	})))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create playlist: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var playlist models.Playlist
	decodeBody(t, rr, &playlist)
	return playlist
}

func TestPlaylistMembership(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")
	playlist := createTestPlaylist(t, h, session.AccessToken, "favorites")
	video := createTestVideo(t, h, session.AccessToken, "clip", true)

	rr := httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/videos/"+video.ID, session.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("add video: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated models.Playlist
	decodeBody(t, rr, &updated)
	if len(updated.VideoIDs) != 1 || updated.VideoIDs[0] != video.ID {
		t.Fatalf("video not added: %+v", updated.VideoIDs)
	}

	// Adding the same video twice is a no-op.
	rr = httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/videos/"+video.ID, session.AccessToken, nil))
	decodeBody(t, rr, &updated)
	if len(updated.VideoIDs) != 1 {
		t.Fatalf("duplicate add should be idempotent: %+v", updated.VideoIDs)
	}

	rr = httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodDelete, "/api/playlists/"+playlist.ID+"/videos/"+video.ID, session.AccessToken, nil))
	decodeBody(t, rr, &updated)
	if len(updated.VideoIDs) != 0 {
		t.Fatalf("video not removed: %+v", updated.VideoIDs)
	}

	rr = httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodPut, "/api/playlists/"+playlist.ID+"/videos/missing", session.AccessToken, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing video: expected 404, got %d", rr.Code)
	}
}

func TestPlaylistUpdateAndDeleteAreOwnerOnly(t *testing.T) {
	h := newTestHandler(t)
	registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	playlist := createTestPlaylist(t, h, aliceSession.AccessToken, "favorites")

	rr := httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodPatch, "/api/playlists/"+playlist.ID, bobSession.AccessToken, jsonBody(t, map[string]string{
		"name": "hijacked",
	})))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign patch: expected 403, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodPatch, "/api/playlists/"+playlist.ID, aliceSession.AccessToken, jsonBody(t, map[string]string{
		"name":        "watch later",
		"description": "rainy day queue",
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner patch: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated models.Playlist
	decodeBody(t, rr, &updated)
	if updated.Name != "watch later" || updated.Description != "rainy day queue" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	rr = httptest.NewRecorder()
	h.Playlists(rr, authedRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, aliceSession.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Playlists(rr, httptest.NewRequest(http.MethodGet, "/api/playlists/"+playlist.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("deleted playlist: expected 404, got %d", rr.Code)
	}
}

func TestListPlaylistsByOwner(t *testing.T) {
	h := newTestHandler(t)
	alice := registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")
	createTestPlaylist(t, h, aliceSession.AccessToken, "alice mix")
	createTestPlaylist(t, h, bobSession.AccessToken, "bob mix")

	rr := httptest.NewRecorder()
	h.PlaylistsCollection(rr, httptest.NewRequest(http.MethodGet, "/api/playlists?owner="+alice.ID, nil))
	var playlists []models.Playlist
	decodeBody(t, rr, &playlists)
	if len(playlists) != 1 || playlists[0].Name != "alice mix" {
		t.Fatalf("unexpected owner filter result: %+v", playlists)
	}
}
