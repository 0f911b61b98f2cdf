package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/KevanshGopani/youtube-backend/internal/auth"
	"github.com/KevanshGopani/youtube-backend/internal/models"
	"github.com/KevanshGopani/youtube-backend/internal/storage"
)

// userResponse is the public view of a user record. Credentials never leave
// the server.
type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FullName:      user.FullName,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

type authResponse struct {
	User             userResponse `json:"user"`
	AccessToken      string       `json:"accessToken"`
	AccessExpiresAt  time.Time    `json:"accessExpiresAt"`
	RefreshToken     string       `json:"refreshToken"`
	RefreshExpiresAt time.Time    `json:"refreshExpiresAt"`
}

func newAuthResponse(user models.User, pair auth.TokenPair) authResponse {
	return authResponse{
		User:             newUserResponse(user),
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

// Register creates a new account. Duplicate usernames or emails come back as
// 409; validation problems as 400.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	var payload struct {
		Username      string `json:"username"`
		Email         string `json:"email"`
		Password      string `json:"password"`
		FullName      string `json:"fullName"`
		AvatarURL     string `json:"avatarUrl"`
		CoverImageURL string `json:"coverImageUrl"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username:      payload.Username,
		Email:         payload.Email,
		Password:      payload.Password,
		FullName:      payload.FullName,
		AvatarURL:     payload.AvatarURL,
		CoverImageURL: payload.CoverImageURL,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("register")
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// Login starts a session for the identifier/password pair, displacing any
// session the user already had, and sets the token cookies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	var payload struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	identifier := payload.Identifier
	if identifier == "" {
		identifier = payload.Username
	}
	if identifier == "" {
		identifier = payload.Email
	}
	user, pair, err := h.Sessions.Login(identifier, payload.Password)
	if err != nil {
		h.recorder().ObserveAuthEvent("login_failure")
		writeSessionError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("login_success")
	h.recorder().SessionOpened()
	h.setAuthCookies(w, r, pair)
	writeJSON(w, http.StatusOK, newAuthResponse(user, pair))
}

// Refresh rotates the session tied to the presented refresh token. A token
// that verifies but no longer matches the stored slot is treated as reuse and
// rejected like any other invalid token.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	presented := extractRefreshToken(r)
	user, pair, err := h.Sessions.Refresh(presented)
	if err != nil {
		if errors.Is(err, auth.ErrTokenReused) {
			h.recorder().ObserveAuthEvent("refresh_reuse_detected")
		}
		writeSessionError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("refresh_rotated")
	h.setAuthCookies(w, r, pair)
	writeJSON(w, http.StatusOK, newAuthResponse(user, pair))
}

// Logout ends the caller's session and clears the token cookies. Logging out
// twice is not an error.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := h.Sessions.Logout(user.ID); err != nil {
		writeSessionError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("logout")
	h.recorder().SessionClosed()
	h.ClearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// ChangePassword swaps the caller's password and revokes the active session,
// forcing a fresh login everywhere.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost, r.Method)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Sessions.ChangePassword(user.ID, payload.OldPassword, payload.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNotFound):
			writeSessionError(w, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	h.recorder().ObserveAuthEvent("password_change")
	h.recorder().SessionClosed()
	h.ClearAuthCookies(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// Session returns the profile behind the presented access token.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet, r.Method)
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
