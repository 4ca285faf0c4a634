// Package filestore holds temporarily shared files in memory, keyed by a
// generated id with a fixed time-to-live. The signaling core has no
// dependency on it; it backs the shareable-link endpoints only.
package filestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrExpired  = errors.New("file has expired")
)

// File is one stored upload.
type File struct {
	Data      []byte
	Metadata  map[string]any
	ExpiresAt time.Time
}

type Store struct {
	ttl time.Duration
	log *zap.Logger

	mu    sync.Mutex
	files map[string]File

	now func() time.Time // overridable for tests
}

func New(ttl time.Duration, log *zap.Logger) *Store {
	return &Store{
		ttl:   ttl,
		log:   log,
		files: make(map[string]File),
		now:   time.Now,
	}
}

// Put stores data under a fresh id and returns the id.
func (s *Store) Put(data []byte, metadata map[string]any) string {
	id := uuid.New().String()

	s.mu.Lock()
	s.files[id] = File{
		Data:      data,
		Metadata:  metadata,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()

	return id
}

// Get returns the file for id. An entry found past its expiry is removed
// on the spot and reported as ErrExpired.
func (s *Store) Get(id string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return File{}, ErrNotFound
	}
	if f.ExpiresAt.Before(s.now()) {
		delete(s.files, id)
		return File{}, ErrExpired
	}
	return f, nil
}

// Delete removes id if present.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.files, id)
	s.mu.Unlock()
}

// Len returns the number of stored files, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, f := range s.files {
		if f.ExpiresAt.Before(now) {
			delete(s.files, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Info("swept expired files", zap.Int("removed", n))
			}
		}
	}
}
