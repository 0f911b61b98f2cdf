package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

// pathSegments strips the prefix from the request path and returns the
// remaining non-empty segments.
func pathSegments(path, prefix string) []string {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// Users serves /api/users/{id} for profile reads, self-service profile
// updates, and account deletion.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/users")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, errors.New("user route not found"))
		return
	}
	userID := segments[0]

	switch r.Method {
	case http.MethodGet:
		h.getUser(w, userID)
	case http.MethodPatch:
		h.updateUser(w, r, userID)
	case http.MethodDelete:
		h.deleteUser(w, r, userID)
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE", r.Method)
	}
}

func (h *Handler) getUser(w http.ResponseWriter, userID string) {
	user, ok := h.Store.GetUser(userID)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("user not found"))
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, userID string) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if caller.ID != userID {
		writeError(w, http.StatusForbidden, errors.New("cannot modify another user"))
		return
	}
	var payload struct {
		Email         *string `json:"email"`
		FullName      *string `json:"fullName"`
		AvatarURL     *string `json:"avatarUrl"`
		CoverImageURL *string `json:"coverImageUrl"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.UpdateUser(userID, storage.UserUpdate{
		Email:         payload.Email,
		FullName:      payload.FullName,
		AvatarURL:     payload.AvatarURL,
		CoverImageURL: payload.CoverImageURL,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	caller, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if caller.ID != userID {
		writeError(w, http.StatusForbidden, errors.New("cannot delete another user"))
		return
	}
	if err := h.Store.DeleteUser(userID); err != nil {
		writeStorageError(w, err)
		return
	}
	h.ClearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
