package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

var (
	ErrRegistryFull   = errors.New("registry: subscriber limit reached")
	ErrRegistryClosed = errors.New("registry: closed")
	ErrNilSender      = errors.New("registry: nil sender")
)

type entry struct {
	id     ports.SubscriberID
	sender ports.Sender
}

// Registry tracks live subscribers in insertion order. Broadcast works on a
// snapshot so Deregister may run while a broadcast is in flight.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	index   map[ports.SubscriberID]int
	nextID  atomic.Uint64
	max     int
	closed  bool
}

// New returns a registry capped at max subscribers; max <= 0 means unbounded.
func New(max int) *Registry {
	return &Registry{
		index: make(map[ports.SubscriberID]int),
		max:   max,
	}
}

func (r *Registry) Register(s ports.Sender) (ports.SubscriberID, error) {
	if s == nil {
		return 0, ErrNilSender
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrRegistryClosed
	}
	if r.max > 0 && len(r.entries) >= r.max {
		return 0, ErrRegistryFull
	}
	id := ports.SubscriberID(r.nextID.Add(1))
	r.index[id] = len(r.entries)
	r.entries = append(r.entries, entry{id: id, sender: s})
	return id, nil
}

func (r *Registry) Deregister(id ports.SubscriberID) {
	r.mu.Lock()
	pos, ok := r.index[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	s := r.entries[pos].sender
	r.entries = append(r.entries[:pos], r.entries[pos+1:]...)
	delete(r.index, id)
	for i := pos; i < len(r.entries); i++ {
		r.index[r.entries[i].id] = i
	}
	r.mu.Unlock()

	s.Close()
}

// Broadcast serializes rec once and sends it to every subscriber. Senders that
// fail are deregistered; the remaining ones still receive the frame.
func (r *Registry) Broadcast(rec domain.DetectionRecord) (ports.BroadcastResult, error) {
	frame, err := rec.Frame()
	if err != nil {
		return ports.BroadcastResult{}, fmt.Errorf("encode frame: %w", err)
	}

	r.mu.RLock()
	snapshot := make([]entry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	var res ports.BroadcastResult
	for _, e := range snapshot {
		if err := e.sender.Send(frame); err != nil {
			r.Deregister(e.id)
			res.Evicted = append(res.Evicted, e.id)
			continue
		}
		res.Delivered++
	}
	return res, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close closes every sender, which ends the streams attached to them.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = nil
	r.index = make(map[ports.SubscriberID]int)
	r.mu.Unlock()

	for _, e := range entries {
		e.sender.Close()
	}
}

var _ ports.SubscriberRegistry = (*Registry)(nil)
