package signaling

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrDuplicateID is returned when a client id is already registered.
	ErrDuplicateID = errors.New("client id already registered")
	// ErrNotFound is returned when the destination id is not registered.
	ErrNotFound = errors.New("client id not registered")
	// ErrSendFailed is returned when a registered sink rejects a frame.
	ErrSendFailed = errors.New("send to client failed")
)

// Sink is the outbound half of a client connection. Send must not block
// indefinitely; a sink that cannot accept the frame reports an error and
// is presumed broken.
type Sink interface {
	Send(frame []byte) error
}

// Registry is the shared table of connected clients. Every connection
// goroutine reads and mutates it concurrently, so all operations are
// atomic with respect to each other.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Sink
	log     *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Sink),
		log:     log,
	}
}

// Register inserts the id → sink mapping if the id is free. A duplicate
// id fails with ErrDuplicateID and leaves the existing entry untouched.
func (r *Registry) Register(id string, sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; ok {
		return ErrDuplicateID
	}
	r.clients[id] = sink
	r.log.Info("client registered", zap.String("clientId", id), zap.Int("total", len(r.clients)))
	return nil
}

// Deregister removes and returns the entry for id. Calling it again for
// the same id is a no-op, which lets racing cleanup paths both call it
// and have exactly one win.
func (r *Registry) Deregister(id string) (Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sink, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	delete(r.clients, id)
	r.log.Info("client deregistered", zap.String("clientId", id), zap.Int("total", len(r.clients)))
	return sink, true
}

// Lookup is a point read; it never performs I/O.
func (r *Registry) Lookup(id string) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.clients[id]
	return sink, ok
}

// Count returns the number of currently registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// IDs returns a snapshot of the registered client ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// SendTo delivers one frame to id. ErrSendFailed means the sink is
// presumed broken; the caller is expected to Drop the target.
func (r *Registry) SendTo(id string, frame []byte) error {
	sink, ok := r.Lookup(id)
	if !ok {
		return ErrNotFound
	}
	if err := sink.Send(frame); err != nil {
		r.log.Warn("send failed", zap.String("clientId", id), zap.Error(err))
		return ErrSendFailed
	}
	return nil
}

// Broadcast delivers one frame to every registered client except exclude
// (pass "" to include all) and returns the number of successful
// deliveries. Recipients are snapshotted first so no lock is held during
// outbound I/O; entries registered mid-broadcast are not visited and
// entries removed mid-broadcast are skipped. A recipient whose send fails
// is dropped, with the usual disconnect broadcast.
func (r *Registry) Broadcast(frame []byte, exclude string) int {
	r.mu.RLock()
	recipients := make(map[string]Sink, len(r.clients))
	for id, sink := range r.clients {
		if id != exclude {
			recipients[id] = sink
		}
	}
	r.mu.RUnlock()

	delivered := 0
	var failed []string
	for id, sink := range recipients {
		if err := sink.Send(frame); err != nil {
			r.log.Warn("broadcast delivery failed", zap.String("clientId", id), zap.Error(err))
			failed = append(failed, id)
			continue
		}
		delivered++
	}
	for _, id := range failed {
		r.Drop(id)
	}
	return delivered
}

// Drop deregisters id and, only if the entry was actually removed,
// notifies everyone remaining that the peer is gone. Routing removal and
// notification through this single path is what keeps the
// one-broadcast-per-connection guarantee when cleanup paths race.
func (r *Registry) Drop(id string) (Sink, bool) {
	sink, ok := r.Deregister(id)
	if !ok {
		return nil, false
	}
	r.Broadcast(peerDisconnectedFrame(id), "")
	return sink, true
}
