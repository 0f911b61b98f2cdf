package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/observability/metrics"
	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

// Handler hosts the REST endpoints. Persistence and session management are
// injected at construction time; the package does not reach for globals.
type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Metrics             *metrics.Recorder
	SessionCookiePolicy SessionCookiePolicy
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	return &Handler{Store: store, Sessions: sessions, Metrics: metrics.Default()}
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics == nil {
		return metrics.Default()
	}
	return h.Metrics
}

// Health reports whether the backing datastore is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	h.recorder().SetStorageHealth("repository", status)
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func methodNotAllowed(w http.ResponseWriter, allow string, method string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", method))
}

// writeStorageError maps repository failures onto HTTP statuses: conflicts to
// 409, missing entities to 404, validation problems to 400.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

// writeSessionError maps session-manager failures onto HTTP statuses. Token
// problems always collapse to 401 so callers cannot distinguish a forged
// token from an expired one.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
