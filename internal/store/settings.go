package store

import "sync"

// SettingsStore is the key/value settings surface the plugin reads its
// provider selection and credentials from. Implementations must be safe
// for concurrent use.
type SettingsStore interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
}

// MemorySettings is a concurrency-safe in-memory settings store. It backs
// tests and hosts that have no settings file of their own.
type MemorySettings struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{data: make(map[string]string)}
}

func (s *MemorySettings) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	return value, ok
}

func (s *MemorySettings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}
