package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdamHev/Object-Detection-Bakery/internal/app/relay"
)

type Options struct {
	// MaxBodyBytes caps POST bodies; 0 disables the cap.
	MaxBodyBytes int64
	// Gatherer, when set, is exposed on GET /metrics.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewRouter wires the relay endpoints onto a gin engine.
func NewRouter(svc *relay.Service, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(logger), CORS())

	r.POST("/detection", HandleIngest(svc, opts.MaxBodyBytes))
	r.GET("/detection", HandleCurrent(svc))
	r.GET("/events", HandleEvents(svc, logger))
	r.GET("/events/ws", HandleEventsWS(svc, logger))
	r.POST("/confirm", HandleConfirm(svc, opts.MaxBodyBytes))
	r.GET("/confirmations", HandleConfirmations(svc))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}
