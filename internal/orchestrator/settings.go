package orchestrator

import (
	"sync"

	"statarb-engine/internal/model"
)

// SettingsStore holds the live control settings. Updates replace the whole
// snapshot; readers take a copy at iteration start, so an in-flight
// analytics pass never sees a half-applied update.
type SettingsStore struct {
	mu      sync.RWMutex
	current model.ControlSettings
}

// NewSettingsStore creates a store seeded with the defaults.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{current: model.DefaultControlSettings()}
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() model.ControlSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.current
	out.SelectedSymbols = append([]string(nil), s.current.SelectedSymbols...)
	return out
}

// Replace swaps in a new snapshot and returns the previous one.
func (s *SettingsStore) Replace(next model.ControlSettings) model.ControlSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next
	return prev
}
