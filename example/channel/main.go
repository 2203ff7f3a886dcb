package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamHev/Object-Detection-Bakery/pkg/bakery"
)

func main() {
	cfg, err := bakery.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bakery.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	detections, cancel, err := rt.Subscribe(32)
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	go printer("counter", detections)

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}

func printer(name string, detections <-chan bakery.DetectionRecord) {
	for rec := range detections {
		fmt.Printf("[%s] %s count=%d labels=%v at %s\n",
			name, rec.Timestamp, rec.ObjectCount, rec.Labels, time.Now().Format(time.RFC3339))
	}
}
