package registry

import (
	"sync"

	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// ChanSender buffers frames for one subscriber connection. The transport drains
// Frames() and stops when Done() is closed.
type ChanSender struct {
	mu     sync.Mutex
	ch     chan []byte
	done   chan struct{}
	closed bool
}

func NewChanSender(buffer int) *ChanSender {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanSender{
		ch:   make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (s *ChanSender) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ports.ErrSenderClosed
	}
	select {
	case s.ch <- frame:
		return nil
	default:
		return ports.ErrSenderBackedUp
	}
}

func (s *ChanSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

func (s *ChanSender) Frames() <-chan []byte { return s.ch }

func (s *ChanSender) Done() <-chan struct{} { return s.done }

var _ ports.Sender = (*ChanSender)(nil)
