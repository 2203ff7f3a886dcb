package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdamHev/Object-Detection-Bakery/internal/adapters/registry"
	"github.com/AdamHev/Object-Detection-Bakery/internal/app/relay"
)

// SetSSEHeaders configures the response for Server-Sent Events. It must run
// before the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) WriteFrame(frame []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) WriteKeepAlive() error {
	if _, err := io.WriteString(s.w, ": ping\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// subscribe registers a fresh sender and answers 503/500 itself on failure.
func subscribe(c *gin.Context, svc *relay.Service) (*registry.ChanSender, func(), bool) {
	sender := registry.NewChanSender(svc.Policy().SubscriberBuffer)
	id, err := svc.Subscribe(sender)
	switch {
	case errors.Is(err, registry.ErrRegistryFull):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Too many subscribers.", Detail: err.Error()})
		return nil, nil, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Subscription failed.", Detail: err.Error()})
		return nil, nil, false
	}
	return sender, func() { svc.Unsubscribe(id) }, true
}

func keepAliveTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// HandleEvents streams detections as SSE until the client goes away or the
// subscription is closed by the relay.
func HandleEvents(svc *relay.Service, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := newSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "Streaming unsupported.", Detail: err.Error()})
			return
		}

		sender, unsubscribe, ok := subscribe(c, svc)
		if !ok {
			return
		}
		defer unsubscribe()

		SetSSEHeaders(c.Writer)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
		out.flusher.Flush()

		tick, stop := keepAliveTicker(svc.Policy().KeepAliveInterval)
		defer stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sender.Done():
				return
			case frame := <-sender.Frames():
				if err := out.WriteFrame(frame); err != nil {
					logger.Debug("sse_write_failed", slog.Any("error", err))
					return
				}
			case <-tick:
				if err := out.WriteKeepAlive(); err != nil {
					return
				}
			}
		}
	}
}
