package state

import (
	"sync"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// MemStore keeps the latest detection in memory. Last write wins.
type MemStore struct {
	mu  sync.RWMutex
	rec domain.DetectionRecord
	set bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Set(rec domain.DetectionRecord) {
	labels := make([]string, len(rec.Labels))
	copy(labels, rec.Labels)
	rec.Labels = labels

	s.mu.Lock()
	s.rec = rec
	s.set = true
	s.mu.Unlock()
}

func (s *MemStore) Get() (domain.DetectionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return domain.DetectionRecord{}, false
	}
	out := s.rec
	out.Labels = append([]string(nil), s.rec.Labels...)
	if out.Labels == nil {
		out.Labels = []string{}
	}
	return out, true
}

var _ ports.StateStore = (*MemStore)(nil)
