package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lander/pkg/domain"
)

// Loader implements ports.ScriptLoader using an in-memory map.
// Scripts are validated on registration and treated as immutable afterwards.
type Loader struct {
	mu      sync.RWMutex
	scripts map[string]*domain.Script
}

// NewLoader creates a loader holding the given scripts.
func NewLoader(scripts ...*domain.Script) (*Loader, error) {
	l := &Loader{scripts: make(map[string]*domain.Script)}
	for _, s := range scripts {
		if err := l.Register(s); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// NewFromJSON creates a loader from raw JSON documents keyed by any label.
// This improves DX for tests that keep fixtures as strings.
func NewFromJSON(data map[string]string) (*Loader, error) {
	l := &Loader{scripts: make(map[string]*domain.Script)}
	for label, raw := range data {
		var s domain.Script
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to decode script %s: %w", label, err)
		}
		if err := l.Register(&s); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Register validates s and adds it, replacing any script with the same ID.
func (l *Loader) Register(s *domain.Script) error {
	if s == nil {
		return fmt.Errorf("nil script")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid script %q: %w", s.ID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripts[s.ID] = s
	return nil
}

// Load retrieves a script by ID.
func (l *Loader) Load(id string) (*domain.Script, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scripts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFunnelNotFound, id)
	}
	return s, nil
}

// List returns all script IDs.
func (l *Loader) List() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.scripts))
	for id := range l.scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}
