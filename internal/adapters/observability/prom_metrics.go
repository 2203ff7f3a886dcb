package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// Metric names exported by the relay.
const (
	DetectionsIngested = "bakery_detections_ingested_total"
	IngestRejected     = "bakery_ingest_rejected_total"
	BroadcastFrames    = "bakery_broadcast_frames_total"
	SubscribersEvicted = "bakery_subscribers_evicted_total"
	Confirmations      = "bakery_confirmations_total"
	ConfirmRejected    = "bakery_confirm_rejected_total"
	ArchiveFailures    = "bakery_archive_failures_total"
	Subscribers        = "bakery_subscribers"
	BroadcastLatency   = "bakery_broadcast_latency_seconds"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the relay collectors on reg and logs through logger.
// A nil reg falls back to the default registerer.
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: DetectionsIngested,
		Help: "Detections accepted and stored as the latest state.",
	})
	ingestRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: IngestRejected,
		Help: "Detection payloads rejected by validation.",
	})
	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: BroadcastFrames,
		Help: "Frames delivered to subscriber buffers by broadcasts.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SubscribersEvicted,
		Help: "Subscribers removed because delivery to them failed.",
	})
	confirmations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: Confirmations,
		Help: "Confirmation records appended to the log.",
	})
	confirmRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ConfirmRejected,
		Help: "Confirmation payloads rejected by validation.",
	})
	archiveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ArchiveFailures,
		Help: "Confirmations that could not be mirrored to the archive.",
	})
	subs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: Subscribers,
		Help: "Currently connected subscribers.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    BroadcastLatency,
		Help:    "Time spent fanning one detection out to every subscriber.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	reg.MustRegister(ingested, ingestRejected, frames, evicted, confirmations, confirmRejected, archiveFailures, subs, latency)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			DetectionsIngested: ingested,
			IngestRejected:     ingestRejected,
			BroadcastFrames:    frames,
			SubscribersEvicted: evicted,
			Confirmations:      confirmations,
			ConfirmRejected:    confirmRejected,
			ArchiveFailures:    archiveFailures,
		},
		gauges: map[string]prometheus.Gauge{
			Subscribers: subs,
		},
		histos: map[string]prometheus.Observer{
			BroadcastLatency: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), "error", err)...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(attrs(fields), "error", err, "critical", true)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
