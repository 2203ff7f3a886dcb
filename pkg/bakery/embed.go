package bakery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/registry"
)

// Publish ingests an in-process detection exactly as POST /detection would.
func (r *Runtime) Publish(rec DetectionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode detection: %w", err)
	}
	_, err = r.svc.Ingest(raw)
	return err
}

// PublishRaw ingests an untyped JSON payload.
func (r *Runtime) PublishRaw(raw []byte) (DetectionRecord, error) {
	return r.svc.Ingest(raw)
}

// Current returns the latest detection or ErrNotFound.
func (r *Runtime) Current() (DetectionRecord, error) {
	return r.svc.Current()
}

// Confirm appends a confirmation from an untyped JSON payload.
func (r *Runtime) Confirm(ctx context.Context, raw []byte) (ConfirmationRecord, error) {
	return r.svc.Confirm(ctx, raw)
}

// Confirmations returns the confirmation log, oldest first.
func (r *Runtime) Confirmations() []ConfirmationRecord {
	return r.svc.Confirmations()
}

// Subscribers reports the number of open subscriptions.
func (r *Runtime) Subscribers() int { return r.svc.Subscribers() }

// Subscribe attaches an in-process subscriber. The channel yields the current
// detection first, if any, then every later one. It is closed when cancel is
// called, the subscriber falls more than buffer frames behind, or the runtime
// shuts down.
// A buffer below 1 is treated as 1.
func (r *Runtime) Subscribe(buffer int) (<-chan DetectionRecord, func(), error) {
	if buffer < 1 {
		buffer = 1
	}
	sender := registry.NewChanSender(buffer)
	id, err := r.svc.Subscribe(sender)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan DetectionRecord, buffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-sender.Done():
				return
			case frame := <-sender.Frames():
				var rec DetectionRecord
				if err := json.Unmarshal(frame, &rec); err != nil {
					r.obs.LogError("subscriber_decode_failed", err)
					continue
				}
				select {
				case out <- rec:
				case <-sender.Done():
					return
				}
			}
		}
	}()
	return out, func() { r.svc.Unsubscribe(id) }, nil
}
