// Package auth carries the signed-in user's identity. Tokens are issued and
// verified by the identity provider; kael only reads the claims it needs to
// address the remote key store.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSubject is returned when a token carries neither user_id nor sub.
	ErrNoSubject = errors.New("token has no user id")
	// ErrExpired is returned for tokens past their exp claim.
	ErrExpired = errors.New("token expired")
)

// User is a signed-in user.
type User struct {
	ID        string
	Email     string
	IDToken   string
	ExpiresAt time.Time
}

type idClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// FromIDToken builds a User from an ID token without verifying its
// signature. The remote key store verifies the token on every request.
func FromIDToken(token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty id token")
	}

	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, ErrNoSubject
	}

	u := &User{ID: uid, Email: claims.Email, IDToken: token}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u, nil
}

// Expired reports whether the token is past its expiry at now. Tokens
// without exp never expire.
func (u *User) Expired(now time.Time) bool {
	if u == nil {
		return true
	}
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}

// Valid returns ErrExpired when the user's token is no longer usable.
func (u *User) Valid(now time.Time) error {
	if u.Expired(now) {
		return ErrExpired
	}
	return nil
}
