// Package engine wires the full signal pipeline:
// detection → deduplication → correlation → scoring → validation → emission.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"signal-lab/internal/correlation"
	"signal-lab/internal/detection"
	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
	"signal-lab/internal/scoring"
	"signal-lab/internal/storage"
	"signal-lab/internal/validation"
)

// Broadcaster receives the emitted batch of each processed window.
type Broadcaster interface {
	Broadcast(signals []domain.Signal)
}

// Options for creating an Engine.
type Options struct {
	// Coordinator runs the detector pool. Required.
	Coordinator *detection.Coordinator

	// Correlator configuration. Zero value uses defaults.
	Correlation correlation.Config

	// Expert is an optional expert-validation input for the scorer.
	Expert scoring.ExpertInput

	// Validator is an optional classifier for the final gate. Nil makes the
	// gate a pass-through.
	Validator validation.Validator

	// SignalStore persists emitted signals when set.
	SignalStore storage.SignalStore

	// DataPointStore archives processed windows when set.
	DataPointStore storage.DataPointStore

	// Broadcaster receives emitted batches when set.
	Broadcaster Broadcaster

	Verbose bool
}

// Engine processes windows of data points into validated signals.
type Engine struct {
	coordinator *detection.Coordinator
	correlator  *correlation.Correlator
	scorer      *scoring.Scorer
	gate        *validation.Gate

	signalStore    storage.SignalStore
	dataPointStore storage.DataPointStore
	broadcaster    Broadcaster

	verbose bool
}

// New creates an Engine.
func New(opts Options) *Engine {
	return &Engine{
		coordinator:    opts.Coordinator,
		correlator:     correlation.NewCorrelator(opts.Correlation),
		scorer:         scoring.NewScorer(opts.Expert),
		gate:           validation.NewGate(opts.Validator),
		signalStore:    opts.SignalStore,
		dataPointStore: opts.DataPointStore,
		broadcaster:    opts.Broadcaster,
		verbose:        opts.Verbose,
	}
}

// WindowResult summarizes one processed window.
type WindowResult struct {
	Points     int
	Candidates int
	Deduped    int
	Correlated int
	Emitted    []domain.Signal
	Errors     []string
}

// ProcessWindow runs one window through the full pipeline. Detector failures
// and persistence failures degrade the result but never abort the window;
// the returned error is reserved for invariant violations.
func (e *Engine) ProcessWindow(ctx context.Context, window []domain.DataPoint) (*WindowResult, error) {
	if e.coordinator == nil {
		return nil, fmt.Errorf("engine has no coordinator")
	}

	result := &WindowResult{Points: len(window)}
	observability.RecordWindowProcessed(len(window))

	// Stage 1: parallel detection
	start := time.Now()
	candidates := e.coordinator.Detect(window)
	observability.RecordStageDuration("detection", time.Since(start).Seconds())
	result.Candidates = len(candidates)
	e.log("detection: %d candidates from %d points", len(candidates), len(window))

	// Stage 2: deduplication
	start = time.Now()
	deduped := correlation.Deduplicate(candidates)
	observability.RecordStageDuration("dedup", time.Since(start).Seconds())
	observability.RecordDedup(len(candidates) - len(deduped))
	result.Deduped = len(deduped)

	// Stage 3: correlation
	start = time.Now()
	correlated := e.correlator.Correlate(deduped)
	observability.RecordStageDuration("correlation", time.Since(start).Seconds())
	observability.RecordMerges(len(deduped) - len(correlated))
	result.Correlated = len(correlated)

	// Stage 4: scoring
	start = time.Now()
	for i := range correlated {
		e.scorer.Score(&correlated[i])
	}
	observability.RecordStageDuration("scoring", time.Since(start).Seconds())

	// Stage 5: validation gate
	start = time.Now()
	emitted := e.gate.Apply(correlated)
	observability.RecordStageDuration("validation", time.Since(start).Seconds())
	observability.RecordRejected(len(correlated) - len(emitted))
	result.Emitted = emitted

	for i := range emitted {
		observability.RecordEmitted(string(emitted[i].Type), emitted[i].Strength)
	}
	e.log("emitted %d signals (%d candidates, %d after dedup, %d after correlation)",
		len(emitted), result.Candidates, result.Deduped, result.Correlated)

	// Persist and broadcast. Failures are recorded, not fatal: the next
	// window must still be processed.
	e.persist(ctx, window, emitted, result)
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(emitted)
	}

	return result, nil
}

// persist archives the window and upserts emitted signals.
func (e *Engine) persist(ctx context.Context, window []domain.DataPoint, emitted []domain.Signal, result *WindowResult) {
	if e.dataPointStore != nil && len(window) > 0 {
		points := make([]*domain.DataPoint, len(window))
		for i := range window {
			points[i] = &window[i]
		}
		start := time.Now()
		err := e.dataPointStore.InsertBulk(ctx, points)
		observability.RecordDBQuery("clickhouse", "insert_data_points", time.Since(start).Seconds(), err)
		if err != nil {
			msg := fmt.Sprintf("archive window: %v", err)
			log.Printf("[engine] %s", msg)
			result.Errors = append(result.Errors, msg)
		}
	}

	if e.signalStore != nil {
		for i := range emitted {
			start := time.Now()
			err := e.signalStore.Upsert(ctx, &emitted[i])
			observability.RecordDBQuery("postgres", "upsert_signal", time.Since(start).Seconds(), err)
			if err != nil {
				msg := fmt.Sprintf("upsert signal %s: %v", emitted[i].SignalID, err)
				log.Printf("[engine] %s", msg)
				result.Errors = append(result.Errors, msg)
			}
		}
	}
}

// Detect runs one window through the pipeline and returns only the emitted
// signals. Convenience wrapper over ProcessWindow.
func (e *Engine) Detect(ctx context.Context, window []domain.DataPoint) ([]domain.Signal, error) {
	result, err := e.ProcessWindow(ctx, window)
	if err != nil {
		return nil, err
	}
	return result.Emitted, nil
}

func (e *Engine) log(format string, args ...interface{}) {
	if e.verbose {
		log.Printf("[engine] "+format, args...)
	}
}
