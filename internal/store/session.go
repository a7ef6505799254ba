package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Session keys in the key-value table.
const (
	sessionKeyActiveUser = "active_user"
	sessionKeyAuthToken  = "auth_token"
)

// SetActiveUser persists userID as the active account and updates the
// in-memory cache. Everything the repositories read or write is scoped
// to this value.
func (s *Store) SetActiveUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}
	if err := s.setSessionValue(ctx, sessionKeyActiveUser, userID); err != nil {
		return err
	}

	s.mu.Lock()
	s.activeUser = userID
	s.activeLoaded = true
	s.mu.Unlock()
	return nil
}

// ClearActiveUser removes the persisted active user and the stored
// credential. Used on logout and account switch.
func (s *Store) ClearActiveUser(ctx context.Context) error {
	for _, key := range []string{sessionKeyActiveUser, sessionKeyAuthToken} {
		if _, err := s.conn.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to clear session key %s: %w", key, err)
		}
	}

	s.mu.Lock()
	s.activeUser = ""
	s.activeLoaded = true
	s.mu.Unlock()
	return nil
}

// ActiveUser returns the current account's user id.
//
// Reads the in-memory cache when populated, otherwise loads from the
// session table and populates the cache. Safe to call before any other
// component initializes. Returns ErrNoSession when no user is resolved.
func (s *Store) ActiveUser(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.activeLoaded {
		user := s.activeUser
		s.mu.Unlock()
		if user == "" {
			return "", ErrNoSession
		}
		return user, nil
	}
	s.mu.Unlock()

	user, err := s.sessionValue(ctx, sessionKeyActiveUser)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	s.mu.Lock()
	s.activeUser = user
	s.activeLoaded = true
	s.mu.Unlock()

	if user == "" {
		return "", ErrNoSession
	}
	return user, nil
}

// SetAuthToken stores the bearer credential for the remote service.
func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}
	return s.setSessionValue(ctx, sessionKeyAuthToken, token)
}

// AuthToken returns the stored bearer credential.
// Returns ErrNoSession when no credential is stored.
func (s *Store) AuthToken(ctx context.Context) (string, error) {
	token, err := s.sessionValue(ctx, sessionKeyAuthToken)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && token == "") {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) setSessionValue(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO session (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set session key %s: %w", key, err)
	}
	return nil
}

func (s *Store) sessionValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return value, nil
}
