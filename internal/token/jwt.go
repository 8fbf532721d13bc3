// Package token signs and verifies the bearer tokens handed out at login.
// A token only names a server-side session; revocation and expiry are still
// decided by the session row.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/meeting-room-reservation/internal/application"
)

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

const issuer = "meeting-room-reservation"

var (
	// ErrSecretTooShort is returned by NewJWTCodec for weak secrets.
	ErrSecretTooShort = fmt.Errorf("token: secret must be at least %d bytes", MinSecretLength)
	// ErrMissingSessionID is returned when a verified token carries no session id.
	ErrMissingSessionID = errors.New("token: missing session id")
)

// Claims are the JWT claims carried by a session token.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// JWTCodec implements application.TokenCodec with HS256 tokens.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

// Option configures a JWTCodec.
type Option func(*JWTCodec)

// WithClock sets the clock used to validate exp and iat.
func WithClock(now func() time.Time) Option {
	return func(c *JWTCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewJWTCodec builds a codec signing with secret.
func NewJWTCodec(secret []byte, opts ...Option) (*JWTCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	c := &JWTCodec{secret: append([]byte(nil), secret...), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ application.TokenCodec = (*JWTCodec)(nil)

// Issue signs a token for session.
func (c *JWTCodec) Issue(session application.Session) (string, error) {
	if session.ID == "" {
		return "", ErrMissingSessionID
	}
	claims := Claims{
		UserID: session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       session.ID,
			Subject:  strconv.FormatInt(session.UserID, 10),
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(session.CreatedAt),
		},
	}
	if !session.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the session id it names.
func (c *JWTCodec) Parse(raw string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("token: parse: %w", err)
	}
	if claims.ID == "" {
		return "", ErrMissingSessionID
	}
	return claims.ID, nil
}
