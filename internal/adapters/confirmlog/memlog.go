package confirmlog

import (
	"sync"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// MemLog is an append-only in-memory log that preserves submission order.
type MemLog struct {
	mu   sync.Mutex
	data []domain.ConfirmationRecord
}

func NewMemLog(capacityHint int) *MemLog {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &MemLog{
		data: make([]domain.ConfirmationRecord, 0, capacityHint),
	}
}

func (l *MemLog) Append(rec domain.ConfirmationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, rec)
	return nil
}

// List returns a copy of the log, oldest first.
func (l *MemLog) List() []domain.ConfirmationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.ConfirmationRecord, len(l.data))
	copy(out, l.data)
	return out
}

func (l *MemLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}

var _ ports.ConfirmationLog = (*MemLog)(nil)
