package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStore is the slice of the session store the credential layer
// needs. *store.Store satisfies it.
type TokenStore interface {
	AuthToken(ctx context.Context) (string, error)
}

// Credentials adapts the session store into a TokenSource and answers
// the one question the sync coordinators ask before a push: is a
// usable credential currently available.
//
// Expiry is read from the JWT exp claim without verifying the
// signature; the server owns validation, this is only a local check to
// avoid pushing with a token the server will reject anyway.
type Credentials struct {
	store TokenStore
	now   func() time.Time
}

// NewCredentials wraps the session store. A nil now defaults to
// time.Now (tests inject a fixed clock).
func NewCredentials(store TokenStore, now func() time.Time) *Credentials {
	if now == nil {
		now = time.Now
	}
	return &Credentials{store: store, now: now}
}

// Token implements TokenSource.
func (c *Credentials) Token(ctx context.Context) (string, error) {
	return c.store.AuthToken(ctx)
}

// Available reports whether a non-expired credential is stored.
// Any failure to load or parse counts as unavailable, never as an
// error: logged-out is an expected state, not a fault.
func (c *Credentials) Available(ctx context.Context) bool {
	raw, err := c.store.AuthToken(ctx)
	if err != nil || raw == "" {
		return false
	}

	exp, err := tokenExpiry(raw)
	if err != nil {
		// Opaque (non-JWT) tokens are accepted as-is.
		return true
	}
	return exp.After(c.now())
}

// TokenSubject extracts the user id (sub claim) from a JWT credential.
// Used at login to derive the account the token belongs to.
func TokenSubject(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token carries no subject")
	}
	return sub, nil
}

func tokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("no exp claim")
	}
	return exp.Time, nil
}
