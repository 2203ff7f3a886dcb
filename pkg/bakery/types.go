package bakery

import (
	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// DetectionRecord is the latest observation reported by the camera producer.
type DetectionRecord = domain.DetectionRecord

// Timestamp is the producer's opaque timestamp, kept byte-for-byte.
type Timestamp = domain.Timestamp

// ConfirmationRecord is an operator's acknowledgement of a detection.
type ConfirmationRecord = domain.ConfirmationRecord

// ValidationError explains why an ingest or confirm payload was rejected.
type ValidationError = domain.ValidationError

// StateStore holds the single latest detection.
type StateStore = ports.StateStore

// SubscriberRegistry tracks live subscribers and fans detections out to them.
type SubscriberRegistry = ports.SubscriberRegistry

// Sender is the non-blocking write side of one subscriber.
type Sender = ports.Sender

// SubscriberID identifies a registered subscriber.
type SubscriberID = ports.SubscriberID

// ConfirmationLog is the append-only log of confirmations.
type ConfirmationLog = ports.ConfirmationLog

// Archiver mirrors accepted confirmations to an external system.
type Archiver = ports.Archiver

// Observability emits logs and metrics about the relay.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

var (
	ErrValidation = domain.ErrValidation
	ErrNotFound   = domain.ErrNotFound
)

// StringTimestamp builds a Timestamp from a plain string.
func StringTimestamp(s string) Timestamp { return domain.StringTimestamp(s) }
