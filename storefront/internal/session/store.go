// Package session holds the signed-in user for the storefront and persists
// the session token between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/affiliateplus/storefront/pkg/protocol"
	"github.com/affiliateplus/storefront/storefront/internal/eventbus"
)

// Store is the user-session store. The user record is only ever replaced as a
// whole, with what the backend returned.
type Store struct {
	bus    *eventbus.Bus
	logger *slog.Logger

	mu   sync.RWMutex
	user protocol.User
}

// NewStore creates a store seeded with user. bus may be nil.
func NewStore(user protocol.User, bus *eventbus.Bus, logger *slog.Logger) *Store {
	return &Store{
		bus:    bus,
		logger: logger.With("component", "session"),
		user:   user,
	}
}

// Current returns a copy of the session user.
func (s *Store) Current() protocol.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.user
	if u.Subscription != nil {
		sub := *u.Subscription
		u.Subscription = &sub
	}
	return u
}

// Role returns the session user's role, "" when signed out.
func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Role
}

// Replace swaps in user and announces it on the bus.
func (s *Store) Replace(user protocol.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.logger.Info("session user replaced", "user_id", user.ID, "credits", user.Credits, "subscribed", user.Subscription != nil)
	if s.bus != nil {
		s.bus.PublishType(eventbus.UserUpdated, user)
	}
}

// Token is the persisted login.
type Token struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ServerURL string    `json:"server_url"`
	SavedAt   time.Time `json:"saved_at"`
}

// ErrNoToken is returned by LoadToken when nobody has logged in yet.
var ErrNoToken = errors.New("no saved session, run `storefront login`")

// SaveToken writes t to path with owner-only permissions.
func SaveToken(path string, t Token) error {
	if t.SavedAt.IsZero() {
		t.SavedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadToken reads the token saved at path.
func LoadToken(path string) (Token, error) {
	var t Token
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, ErrNoToken
	}
	if err != nil {
		return t, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse session: %w", err)
	}
	if t.Token == "" {
		return t, ErrNoToken
	}
	return t, nil
}

// ClearToken removes the saved token. A missing file is not an error.
func ClearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
