package filestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(ttl time.Duration) *Store {
	return New(ttl, zap.NewNop())
}

func TestStorePutGet(t *testing.T) {
	s := newTestStore(time.Hour)

	id := s.Put([]byte("hello"), map[string]any{"filename": "hello.txt"})
	require.NotEmpty(t, id)

	f, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), f.Data)
	assert.Equal(t, "hello.txt", f.Metadata["filename"])
}

func TestStoreGetUnknown(t *testing.T) {
	s := newTestStore(time.Hour)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpiresOnRead(t *testing.T) {
	s := newTestStore(time.Hour)
	id := s.Put([]byte("stale"), nil)

	// Jump the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrExpired)

	// The expired entry was deleted, not just hidden.
	assert.Equal(t, 0, s.Len())
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSweep(t *testing.T) {
	s := newTestStore(time.Hour)
	s.Put([]byte("a"), nil)
	s.Put([]byte("b"), nil)
	fresh := s.Put([]byte("c"), nil)

	base := time.Now()
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	s.files[fresh] = File{Data: []byte("c"), ExpiresAt: base.Add(3 * time.Hour)}

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(fresh)
	assert.NoError(t, err)
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(time.Hour)
	id := s.Put([]byte("bye"), nil)

	s.Delete(id)
	_, err := s.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is harmless.
	s.Delete(id)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	s := newTestStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
