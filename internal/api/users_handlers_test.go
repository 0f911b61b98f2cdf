package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetUserProfileIsPublic(t *testing.T) {
	h := newTestHandler(t)
	user := registerTestUser(t, h, "alice")

	rr := httptest.NewRecorder()
	h.Users(rr, httptest.NewRequest(http.MethodGet, "/api/users/"+user.ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); strings.Contains(body, "pbkdf2") || strings.Contains(body, "refreshToken") {
		t.Fatalf("profile response leaks credentials: %s", body)
	}

	rr = httptest.NewRecorder()
	h.Users(rr, httptest.NewRequest(http.MethodGet, "/api/users/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing user: expected 404, got %d", rr.Code)
	}
}

func TestUpdateUserIsSelfOnly(t *testing.T) {
	h := newTestHandler(t)
	alice := registerTestUser(t, h, "alice")
	registerTestUser(t, h, "bob")
	aliceSession := loginTestUser(t, h, "alice", "correct horse")
	bobSession := loginTestUser(t, h, "bob", "correct horse")

	rr := httptest.NewRecorder()
	h.Users(rr, authedRequest(http.MethodPatch, "/api/users/"+alice.ID, bobSession.AccessToken, jsonBody(t, map[string]string{
		"fullName": "Mallory",
	})))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-user update: expected 403, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Users(rr, authedRequest(http.MethodPatch, "/api/users/"+alice.ID, aliceSession.AccessToken, jsonBody(t, map[string]string{
		"fullName":  "Alice Cooper",
		"avatarUrl": "https://cdn.example.com/alice.png",
	})))
	if rr.Code != http.StatusOK {
		t.Fatalf("self update: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated userResponse
	decodeBody(t, rr, &updated)
	if updated.FullName != "Alice Cooper" || updated.AvatarURL != "https://cdn.example.com/alice.png" {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestDeleteUserRemovesAccount(t *testing.T) {
	h := newTestHandler(t)
	alice := registerTestUser(t, h, "alice")
	session := loginTestUser(t, h, "alice", "correct horse")

	rr := httptest.NewRecorder()
	h.Users(rr, authedRequest(http.MethodDelete, "/api/users/"+alice.ID, session.AccessToken, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// The access token dies with the account.
	rr = httptest.NewRecorder()
	h.Session(rr, authedRequest(http.MethodGet, "/api/auth/session", session.AccessToken, nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user token: expected 401, got %d", rr.Code)
	}
}
