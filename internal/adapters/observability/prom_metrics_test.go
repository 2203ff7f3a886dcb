package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	obs.IncCounter(DetectionsIngested, 5)
	if got := testutil.ToFloat64(obs.counters[DetectionsIngested]); got != 5 {
		t.Fatalf("expected ingested counter 5, got %f", got)
	}

	obs.IncCounter(SubscribersEvicted, 2)
	if got := testutil.ToFloat64(obs.counters[SubscribersEvicted]); got != 2 {
		t.Fatalf("expected eviction counter 2, got %f", got)
	}

	obs.SetGauge(Subscribers, 42)
	if got := testutil.ToFloat64(obs.gauges[Subscribers]); got != 42 {
		t.Fatalf("expected subscriber gauge 42, got %f", got)
	}

	obs.ObserveLatency(BroadcastLatency, 0.5)
	hCollector := obs.histos[BroadcastLatency].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("unknown_metric", 1)
	obs.SetGauge("unknown_gauge", 1)

	if n, err := testutil.GatherAndCount(reg); err != nil || n != 9 {
		t.Fatalf("expected 9 registered series, got %d (%v)", n, err)
	}
}

func TestPromObsLogsThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	obs := NewPromObs(prometheus.NewRegistry(), slog.New(slog.NewTextHandler(&buf, nil)))

	obs.LogInfo("subscriber_connected", ports.Field{Key: "subscriber_id", Value: 7})
	obs.LogError("archive_failed", errors.New("db down"), ports.Field{Key: "archive", Value: "postgres"})

	out := buf.String()
	for _, want := range []string{"subscriber_connected", "subscriber_id=7", "archive_failed", "db down", "archive=postgres"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got %s", want, out)
		}
	}
}
