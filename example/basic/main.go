package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	bakery "github.com/AdamHev/Object-Detection-Bakery"
)

func main() {
	cfg, err := bakery.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bakery.Run(ctx, cfg); err != nil && err != context.Canceled {
		log.Fatalf("relay exited: %v", err)
	}
}
