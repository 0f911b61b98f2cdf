package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KevanshGopani/youtube-backend/internal/models"
)

// UserStore is the persistence contract the session manager works against.
// FindUserByIdentifier matches a username (case-insensitively) or an email.
// SetUserRefreshToken overwrites the user's single refresh-token slot; nil
// clears it. The last writer always wins.
type UserStore interface {
	FindUserByIdentifier(identifier string) (models.User, bool)
	GetUser(id string) (models.User, bool)
	SetUserRefreshToken(id string, token *string) error
	SetUserPasswordHash(id, hash string) error
}

// TokenPair bundles a freshly issued access/refresh credential pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SessionManager coordinates the session lifecycle: login, refresh with
// mandatory rotation, logout, password changes, and per-request
// authentication. Each user has at most one active session, tracked by the
// refresh-token slot on the user record.
type SessionManager struct {
	codec *Codec
	store UserStore
}

// NewSessionManager wires a codec and a user store into a manager.
func NewSessionManager(codec *Codec, store UserStore) (*SessionManager, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if store == nil {
		return nil, errors.New("user store is required")
	}
	return &SessionManager{codec: codec, store: store}, nil
}

// Codec exposes the underlying credential codec for TTL reporting.
func (m *SessionManager) Codec() *Codec { return m.codec }

// Login authenticates the identifier/password pair and starts a new session,
// displacing any session the user already had. An unknown identifier yields
// ErrNotFound; a wrong password yields ErrInvalidCredentials.
func (m *SessionManager) Login(identifier, password string) (models.User, TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return models.User{}, TokenPair{}, ErrNotFound
	}
	user, ok := m.store.FindUserByIdentifier(identifier)
	if !ok {
		return models.User{}, TokenPair{}, ErrNotFound
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := m.issuePair(user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	if err := m.store.SetUserRefreshToken(user.ID, &pair.RefreshToken); err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = &pair.RefreshToken
	return user, pair, nil
}

// Refresh validates the presented refresh token, requires it to match the
// stored slot byte for byte, and rotates the session. A valid token that no
// longer matches the slot means it was already rotated away or revoked and
// yields ErrTokenReused. Every other failure yields ErrUnauthorized.
func (m *SessionManager) Refresh(presented string) (models.User, TokenPair, error) {
	if presented == "" {
		return models.User{}, TokenPair{}, ErrUnauthorized
	}
	subject, err := m.codec.Verify(TokenKindRefresh, presented)
	if err != nil {
		return models.User{}, TokenPair{}, ErrUnauthorized
	}
	user, ok := m.store.GetUser(subject)
	if !ok {
		return models.User{}, TokenPair{}, ErrUnauthorized
	}
	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		return models.User{}, TokenPair{}, ErrTokenReused
	}
	pair, err := m.issuePair(user.ID)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	if err := m.store.SetUserRefreshToken(user.ID, &pair.RefreshToken); err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	user.RefreshToken = &pair.RefreshToken
	return user, pair, nil
}

// Logout clears the user's refresh-token slot. It is idempotent: logging out
// an already logged-out user succeeds.
func (m *SessionManager) Logout(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if _, ok := m.store.GetUser(userID); !ok {
		return nil
	}
	return m.store.SetUserRefreshToken(userID, nil)
}

// ChangePassword verifies the old password, stores a hash of the new one, and
// revokes the current session so stolen refresh tokens stop working after a
// password change.
func (m *SessionManager) ChangePassword(userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	user, ok := m.store.GetUser(userID)
	if !ok {
		return ErrNotFound
	}
	if !VerifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.store.SetUserPasswordHash(userID, hashed); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}
	return m.store.SetUserRefreshToken(userID, nil)
}

// Authenticate verifies an access token and returns the freshly fetched user
// so deletions and permission changes take effect immediately. All failures
// collapse to ErrUnauthorized.
func (m *SessionManager) Authenticate(accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, ErrUnauthorized
	}
	subject, err := m.codec.Verify(TokenKindAccess, accessToken)
	if err != nil {
		return models.User{}, ErrUnauthorized
	}
	user, ok := m.store.GetUser(subject)
	if !ok {
		return models.User{}, ErrUnauthorized
	}
	return user, nil
}

func (m *SessionManager) issuePair(userID string) (TokenPair, error) {
	access, accessExpiry, err := m.codec.Issue(TokenKindAccess, userID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExpiry, err := m.codec.Issue(TokenKindRefresh, userID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}
