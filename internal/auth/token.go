// Package auth issues and verifies the access tokens the gateway checks on
// every authenticated route.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/social-platform/pkg/errs"
)

// Identity is what a verified token proves: the principal and how long the
// proof lasts. It lives only for the duration of one request.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token for the user.
func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errs.Wrap(errs.KindUnknown, "auth.Issue", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the identity it carries.
// Expired, malformed or wrongly-signed tokens all map to KindAuth.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.secret, nil
		})
	if err != nil {
		return nil, errs.Wrap(errs.KindAuth, "auth.Verify", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errs.New(errs.KindAuth, "auth.Verify", "token missing subject")
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return &Identity{UserID: claims.Subject, ExpiresAt: expires}, nil
}
