package session

import (
	"context"
	"errors"
	"sync"
)

// Credentials is a point-in-time copy of the token pair.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Session owns the token pair of one client. It is safe for concurrent use. Writers are
// serialized across the in-memory update and the store write, so the store always ends up
// holding what memory holds; among concurrent writers the last one wins.
type Session struct {
	store Store

	// writeMu is held for a whole write, store call included. mu only guards the pair.
	writeMu sync.Mutex
	mu      sync.RWMutex
	access  string
	refresh string
}

// New returns a Session persisted in store. A nil store keeps tokens in memory only.
func New(store Store) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{store: store}
}

// Load reads both entries from the store, replacing the in-memory pair.
func (s *Session) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	access, _, err := s.store.Get(ctx, AccessTokenKey)
	if err != nil {
		return err
	}
	refresh, _, err := s.store.Get(ctx, RefreshTokenKey)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()
	return nil
}

// AccessToken returns the current access token or "".
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh token or "".
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Credentials returns a copy of the token pair.
func (s *Session) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Credentials{AccessToken: s.access, RefreshToken: s.refresh}
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// Set stores a fresh token pair, as issued by login or registration.
func (s *Session) Set(ctx context.Context, access, refresh string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.mu.Unlock()

	if err := s.store.Set(ctx, AccessTokenKey, access); err != nil {
		return err
	}
	return s.store.Set(ctx, RefreshTokenKey, refresh)
}

// ReplaceAccess swaps the access token and keeps the refresh token.
func (s *Session) ReplaceAccess(ctx context.Context, access string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.access = access
	s.mu.Unlock()

	return s.store.Set(ctx, AccessTokenKey, access)
}

// Clear drops both tokens. The in-memory pair is cleared even when the store fails.
func (s *Session) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()

	if err := s.store.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		return errors.Join(errors.New("session clear"), err)
	}
	return nil
}

// Rotate installs a refreshed access token, and a rotated refresh token when newRefresh is
// not empty, but only while the held refresh token is still oldRefresh. It reports false
// when the session was cleared or replaced in the meantime.
func (s *Session) Rotate(ctx context.Context, oldRefresh, access, newRefresh string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.refresh == "" || s.refresh != oldRefresh {
		s.mu.Unlock()
		return false, nil
	}
	s.access = access
	if newRefresh != "" {
		s.refresh = newRefresh
	}
	s.mu.Unlock()

	if err := s.store.Set(ctx, AccessTokenKey, access); err != nil {
		return true, err
	}
	if newRefresh != "" {
		return true, s.store.Set(ctx, RefreshTokenKey, newRefresh)
	}
	return true, nil
}
