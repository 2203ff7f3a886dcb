package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	bakery "github.com/AdamHev/Object-Detection-Bakery"
)

var (
	configPath    string
	statsURL      string
	statsInterval time.Duration

	rootCmd = &cobra.Command{
		Use:           "bakery-relay",
		Short:         "Relay counter-camera detections to live observers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the relay using the provided config",
		RunE:  runServe,
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the relay",
		RunE:  runValidate,
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus metrics endpoint and print live counters",
		RunE:  runStats,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (defaults are used when empty)")

	statsCmd.Flags().StringVar(&statsURL, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	statsCmd.Flags().DurationVar(&statsInterval, "interval", 2*time.Second, "Refresh interval")

	rootCmd.AddCommand(serveCmd, validateCmd, statsCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := bakery.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := bakery.NewRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if _, err := bakery.LoadConfig(configPath); err != nil {
		return err
	}
	name := configPath
	if name == "" {
		name = "defaults"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\n", name)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return streamStats(ctx, cmd, statsURL, statsInterval)
}

func streamStats(ctx context.Context, cmd *cobra.Command, url string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := fetchSnapshot(ctx, url)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "stats error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, snap.String(time.Now()))
		}
	}
}
