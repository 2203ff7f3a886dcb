package ports

import (
	"errors"

	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
)

var (
	// ErrSenderClosed is returned by Send once the subscriber went away.
	ErrSenderClosed = errors.New("sender closed")
	// ErrSenderBackedUp is returned by Send when the subscriber buffer is full.
	ErrSenderBackedUp = errors.New("sender buffer full")
)

type SubscriberID uint64

// Sender is the write side of one subscriber connection. Send must not block.
type Sender interface {
	Send(frame []byte) error
	Close()
}

type BroadcastResult struct {
	Delivered int
	Evicted   []SubscriberID
}

type SubscriberRegistry interface {
	Register(s Sender) (SubscriberID, error)
	Deregister(id SubscriberID)
	Broadcast(rec domain.DetectionRecord) (BroadcastResult, error)
	Len() int
	Close()
}
