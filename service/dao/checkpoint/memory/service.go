// Package memory provides an in-memory checkpoint store, primarily for
// tests and short-lived engines that do not need durable resume.
package memory

import (
	"context"
	"sync"

	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/service/dao"
)

// Service implements an in-memory, thread-safe checkpoint store. Snapshots
// are cloned on the way in and out so callers can keep mutating their copy.
type Service struct {
	checkpoints map[string]*state.Snapshot
	mux         sync.RWMutex
}

var _ dao.Service[string, state.Snapshot] = (*Service)(nil)

// Save stores a clone of snapshot under id.
func (s *Service) Save(_ context.Context, id string, snapshot *state.Snapshot) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()
	s.checkpoints[id] = snapshot.Clone()
	return nil
}

// Load returns a clone of the snapshot stored under id.
func (s *Service) Load(_ context.Context, id string) (*state.Snapshot, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mux.RLock()
	snapshot, ok := s.checkpoints[id]
	s.mux.RUnlock()

	if !ok {
		return nil, dao.ErrNotFound
	}
	return snapshot.Clone(), nil
}

// Delete removes the snapshot stored under id.
func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.checkpoints[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.checkpoints, id)
	return nil
}

// List returns all stored checkpoint ids.
func (s *Service) List(_ context.Context) ([]string, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	out := make([]string, 0, len(s.checkpoints))
	for id := range s.checkpoints {
		out = append(out, id)
	}
	return out, nil
}

// New creates an empty in-memory checkpoint store.
func New() *Service {
	return &Service{checkpoints: map[string]*state.Snapshot{}}
}
