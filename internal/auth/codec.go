package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes the two credential kinds the codec issues.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

var (
	// ErrTokenInvalid covers malformed tokens and bad signatures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once now >= the token's expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongKind is returned when a well-formed token of the other
	// kind is presented, e.g. a refresh token used as an access token.
	ErrTokenWrongKind = errors.New("token kind mismatch")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims is the JWT payload for both token kinds. TokenUse carries the kind
// so a token presented for the wrong purpose is rejected even before its
// signature is considered trustworthy for that purpose.
type Claims struct {
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// CodecConfig configures a Codec. Access and refresh secrets must be
// non-empty and distinct so the two kinds never verify interchangeably.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Codec issues and verifies HS256-signed access and refresh tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewCodec validates the configuration and returns a ready codec.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	codec := &Codec{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
	if codec.accessTTL <= 0 {
		codec.accessTTL = defaultAccessTTL
	}
	if codec.refreshTTL <= 0 {
		codec.refreshTTL = defaultRefreshTTL
	}
	return codec, nil
}

// AccessTTL reports the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue signs a new token of the requested kind for the user and returns it
// alongside its expiry. Expiry is truncated to whole seconds to match the
// precision encoded in the token itself.
func (c *Codec) Issue(kind TokenKind, userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("userID is required")
	}
	secret, ttl, err := c.kindParams(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	issuedAt := c.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := Claims{
		TokenUse: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			// The random ID keeps two tokens minted for the same user within
			// the same second from serializing identically, which rotation
			// depends on.
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Verify checks the token against the secret for the requested kind and
// returns the subject user ID. A token of the other kind yields
// ErrTokenWrongKind; an expired token of the right kind yields
// ErrTokenExpired; everything else yields ErrTokenInvalid.
func (c *Codec) Verify(kind TokenKind, token string) (string, error) {
	if token == "" {
		return "", ErrTokenInvalid
	}
	secret, _, err := c.kindParams(kind)
	if err != nil {
		return "", err
	}
	claims := &Claims{}
	_, parseErr := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now))
	switch {
	case parseErr == nil:
		if claims.TokenUse != string(kind) {
			return "", ErrTokenWrongKind
		}
		if claims.Subject == "" {
			return "", ErrTokenInvalid
		}
		return claims.Subject, nil
	case errors.Is(parseErr, jwt.ErrTokenExpired):
		// Claims survive an expiry failure, so the kind check still applies.
		if claims.TokenUse != string(kind) {
			return "", ErrTokenWrongKind
		}
		return "", ErrTokenExpired
	case errors.Is(parseErr, jwt.ErrTokenSignatureInvalid):
		if c.matchesOtherKind(kind, token) {
			return "", ErrTokenWrongKind
		}
		return "", ErrTokenInvalid
	default:
		return "", ErrTokenInvalid
	}
}

// matchesOtherKind reports whether the token verifies under the opposite
// kind's secret, which distinguishes a cross-kind token from a forgery.
func (c *Codec) matchesOtherKind(kind TokenKind, token string) bool {
	other := TokenKindRefresh
	if kind == TokenKindRefresh {
		other = TokenKindAccess
	}
	secret, _, err := c.kindParams(other)
	if err != nil {
		return false
	}
	claims := &Claims{}
	_, parseErr := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithTimeFunc(c.now))
	return parseErr == nil || errors.Is(parseErr, jwt.ErrTokenExpired)
}

func (c *Codec) kindParams(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case TokenKindAccess:
		return c.accessSecret, c.accessTTL, nil
	case TokenKindRefresh:
		return c.refreshSecret, c.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}
