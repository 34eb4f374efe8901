// Package main provides a one-shot pipeline entry point.
// Executes: detection → deduplication → correlation → scoring → emission
// over synthetic windows and prints a summary of the emitted signals.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-lab/internal/correlation"
	"signal-lab/internal/detection"
	"signal-lab/internal/engine"
	"signal-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	windows := flag.Int("windows", 3, "Number of synthetic windows to process")
	points := flag.Int("points", 200, "Data points per window")
	seed := flag.Int64("seed", 1, "Base seed for synthetic windows")
	budget := flag.Duration("detector-budget", 30*time.Second, "Per-detector execution budget (0 disables)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	// Assemble the engine over in-memory stores
	signalStore := memory.NewSignalStore()
	coordinator := detection.NewCoordinator(
		detection.NewStatisticalDetector(detection.StatisticalConfig{}),
		detection.NewPatternDetector(detection.PatternConfig{}, nil),
	).WithBudget(*budget).WithVerbose(*verbose)

	eng := engine.New(engine.Options{
		Coordinator: coordinator,
		Correlation: correlation.DefaultConfig(),
		SignalStore: signalStore,
		Verbose:     *verbose,
	})

	fmt.Println("=== Signal Pipeline ===")

	totalEmitted := 0
	for w := 0; w < *windows; w++ {
		select {
		case <-ctx.Done():
			fmt.Println("Cancelled")
			os.Exit(1)
		default:
		}

		cfg := engine.DefaultFixtureConfig()
		cfg.Points = *points
		cfg.Seed = *seed + int64(w)
		cfg.StartMs += int64(w) * int64(cfg.Points) * cfg.StepMs
		window := engine.SyntheticWindow(cfg)

		result, err := eng.ProcessWindow(ctx, window)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Window %d error: %v\n", w+1, err)
			os.Exit(1)
		}

		fmt.Printf("Window %d: %d points, %d candidates, %d after dedup, %d after correlation, %d emitted\n",
			w+1, result.Points, result.Candidates, result.Deduped, result.Correlated, len(result.Emitted))
		for _, sig := range result.Emitted {
			fmt.Printf("  %-22s strength=%.2f confidence=%.2f trajectory=%-12s id=%s\n",
				sig.Type, sig.Strength, sig.Confidence, sig.Trajectory, sig.SignalID)
		}
		totalEmitted += len(result.Emitted)
	}

	// Strongest stored signals across all windows
	top, err := signalStore.GetTopByStrength(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stored signals: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nProcessed %d windows, emitted %d signals\n", *windows, totalEmitted)
	if len(top) > 0 {
		fmt.Println("Strongest stored signals:")
		for _, sig := range top {
			fmt.Printf("  %-22s strength=%.2f sources=%d keywords=%v\n",
				sig.Type, sig.Strength, len(sig.Sources), sig.Metadata.Keywords)
		}
	}
}
