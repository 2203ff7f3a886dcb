package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var statsTargets = []string{
	"bakery_detections_ingested_total",
	"bakery_ingest_rejected_total",
	"bakery_subscribers",
	"bakery_subscribers_evicted_total",
	"bakery_confirmations_total",
}

type snapshot map[string]float64

func fetchSnapshot(ctx context.Context, url string) (snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return parseSnapshot(resp.Body)
}

// parseSnapshot picks the relay series out of a text exposition body.
func parseSnapshot(r io.Reader) (snapshot, error) {
	snap := make(snapshot, len(statsTargets))
	for _, key := range statsTargets {
		snap[key] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range statsTargets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					snap[key] = value
				}
			}
		}
	}
	return snap, scanner.Err()
}

func (s snapshot) String(now time.Time) string {
	return fmt.Sprintf("[%s] ingested=%.0f rejected=%.0f subscribers=%.0f evicted=%.0f confirmations=%.0f",
		now.Format(time.RFC3339),
		s["bakery_detections_ingested_total"],
		s["bakery_ingest_rejected_total"],
		s["bakery_subscribers"],
		s["bakery_subscribers_evicted_total"],
		s["bakery_confirmations_total"],
	)
}
