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

	printer := func(_ context.Context, rec bakery.ConfirmationRecord) error {
		fmt.Printf("%s product=%s quantity=%g time=%s initials=%s\n",
			rec.SubmittedAt.Format(time.RFC3339Nano),
			rec.Product,
			rec.Quantity,
			rec.Time,
			rec.Initials,
		)
		return nil
	}

	rt, err := bakery.NewRuntime(cfg, bakery.WithArchiver(bakery.NewCallbackArchiver("stdout", printer)))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	if err := rt.Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
