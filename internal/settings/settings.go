package settings

import (
	"errors"
	"sync"

	"github.com/droidsweep/backend/internal/logging"
	"github.com/droidsweep/backend/internal/shared/types"
	"github.com/droidsweep/backend/internal/store"
)

// ErrUnknownMode rejects a theme mode outside the supported set
var ErrUnknownMode = errors.New("unknown theme mode")

// DefaultTheme is used until the user picks one
var DefaultTheme = types.ThemePreference{Mode: "system"}

var validModes = map[string]bool{
	"light":  true,
	"dark":   true,
	"system": true,
}

// Service owns the theme and app-settings keys in the durable store.
// Reads are served from memory; the store is only touched on writes
// and at startup.
type Service struct {
	store *store.Store
	log   *logging.Logger

	mu     sync.RWMutex
	theme  types.ThemePreference
	values map[string]string
}

// NewService loads persisted settings, falling back to defaults
func NewService(st *store.Store, log *logging.Logger) *Service {
	s := &Service{
		store: st,
		log:   log.Named("settings"),
		theme: store.Get(st, store.KeyTheme, DefaultTheme),
	}
	s.values = store.Get(st, store.KeySettings, map[string]string{})
	if s.values == nil {
		s.values = map[string]string{}
	}
	if !validModes[s.theme.Mode] {
		s.theme = DefaultTheme
	}
	return s
}

// Theme returns the current theme preference
func (s *Service) Theme() types.ThemePreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme validates and persists a new theme preference
func (s *Service) SetTheme(pref types.ThemePreference) error {
	if !validModes[pref.Mode] {
		return ErrUnknownMode
	}

	s.mu.Lock()
	s.theme = pref
	store.Set(s.store, store.KeyTheme, pref)
	s.mu.Unlock()

	s.log.Info("theme updated")
	return nil
}

// Get returns a settings value, or the given default when absent
func (s *Service) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set persists a settings value
func (s *Service) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	store.Set(s.store, store.KeySettings, s.values)
	s.mu.Unlock()
}

// All returns a copy of every stored settings value
func (s *Service) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
