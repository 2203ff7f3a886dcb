package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/observability"
	"github.com/AdamHev/Object-Detection-Bakery/internal/domain"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// Service ties the latest-state slot, the subscriber registry and the
// confirmation log together. publishMu orders store writes with broadcasts
// and makes register+replay atomic with respect to ingest.
type Service struct {
	store    ports.StateStore
	reg      ports.SubscriberRegistry
	confirms ports.ConfirmationLog
	archiver ports.Archiver
	obs      ports.Observability
	pol      ports.Policy
	now      func() time.Time

	publishMu sync.Mutex
}

type Option func(*Service)

// WithArchiver mirrors accepted confirmations to a.
func WithArchiver(a ports.Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock overrides the source of submittedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store ports.StateStore, reg ports.SubscriberRegistry, confirms ports.ConfirmationLog, pol ports.Policy, obs ports.Observability, opts ...Option) *Service {
	if pol.MaxInitials <= 0 {
		pol.MaxInitials = 5
	}
	s := &Service{
		store:    store,
		reg:      reg,
		confirms: confirms,
		obs:      obs,
		pol:      pol,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() ports.Policy { return s.pol }

// Ingest validates raw, replaces the latest detection and broadcasts it.
// A rejected payload leaves the store untouched and sends nothing.
func (s *Service) Ingest(raw []byte) (domain.DetectionRecord, error) {
	rec, err := parseDetection(raw)
	if err != nil {
		s.obs.IncCounter(observability.IngestRejected, 1)
		return domain.DetectionRecord{}, err
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.store.Set(rec)
	s.obs.IncCounter(observability.DetectionsIngested, 1)

	start := time.Now()
	res, err := s.reg.Broadcast(rec)
	s.obs.ObserveLatency(observability.BroadcastLatency, time.Since(start).Seconds())
	if err != nil {
		s.obs.LogError("broadcast_failed", err)
		return rec, fmt.Errorf("broadcast: %w", err)
	}

	s.obs.IncCounter(observability.BroadcastFrames, float64(res.Delivered))
	if n := len(res.Evicted); n > 0 {
		s.obs.IncCounter(observability.SubscribersEvicted, float64(n))
		s.obs.LogInfo("subscribers_evicted", ports.Field{Key: "count", Value: n})
	}
	s.obs.SetGauge(observability.Subscribers, float64(s.reg.Len()))
	return rec, nil
}

// Current returns the latest detection or domain.ErrNotFound.
func (s *Service) Current() (domain.DetectionRecord, error) {
	rec, ok := s.store.Get()
	if !ok {
		return domain.DetectionRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// Subscribe registers sender and, when a detection exists, queues it as the
// first frame. Every ingest is seen by sender exactly once: either through
// the replay or through a later broadcast.
func (s *Service) Subscribe(sender ports.Sender) (ports.SubscriberID, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	id, err := s.reg.Register(sender)
	if err != nil {
		return 0, err
	}

	if rec, ok := s.store.Get(); ok {
		frame, err := rec.Frame()
		if err == nil {
			err = sender.Send(frame)
		}
		if err != nil {
			s.reg.Deregister(id)
			s.obs.SetGauge(observability.Subscribers, float64(s.reg.Len()))
			return 0, fmt.Errorf("replay latest detection: %w", err)
		}
	}

	s.obs.SetGauge(observability.Subscribers, float64(s.reg.Len()))
	s.obs.LogInfo("subscriber_joined", ports.Field{Key: "id", Value: uint64(id)})
	return id, nil
}

// Unsubscribe removes id. Calling it more than once is harmless.
func (s *Service) Unsubscribe(id ports.SubscriberID) {
	s.reg.Deregister(id)
	s.obs.SetGauge(observability.Subscribers, float64(s.reg.Len()))
	s.obs.LogInfo("subscriber_left", ports.Field{Key: "id", Value: uint64(id)})
}

// Subscribers reports the number of open subscriptions.
func (s *Service) Subscribers() int { return s.reg.Len() }

// Confirm validates raw and appends it to the confirmation log. The archive,
// when configured, is best effort: its failure is logged and counted only.
func (s *Service) Confirm(ctx context.Context, raw []byte) (domain.ConfirmationRecord, error) {
	rec, err := parseConfirmation(raw, s.pol.MaxInitials)
	if err != nil {
		s.obs.IncCounter(observability.ConfirmRejected, 1)
		return domain.ConfirmationRecord{}, err
	}
	rec.SubmittedAt = s.now().UTC()

	if err := s.confirms.Append(rec); err != nil {
		return domain.ConfirmationRecord{}, fmt.Errorf("append confirmation: %w", err)
	}
	s.obs.IncCounter(observability.Confirmations, 1)

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, rec); err != nil {
			s.obs.IncCounter(observability.ArchiveFailures, 1)
			s.obs.LogError("archive_failed", err, ports.Field{Key: "archiver", Value: s.archiver.Name()})
		}
	}
	return rec, nil
}

// Confirmations returns the log oldest first.
func (s *Service) Confirmations() []domain.ConfirmationRecord {
	return s.confirms.List()
}

// Close ends every subscription.
func (s *Service) Close() {
	s.reg.Close()
	s.obs.SetGauge(observability.Subscribers, 0)
}
