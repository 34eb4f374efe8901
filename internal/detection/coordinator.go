package detection

import (
	"fmt"
	"log"
	"sync"
	"time"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
)

// Coordinator fans a window out to every registered detector concurrently
// and collects their candidates. A detector failure (error or panic) is
// isolated: it is logged, counted, and contributes zero signals without
// cancelling sibling detectors.
type Coordinator struct {
	detectors []Detector

	// budget bounds a single detector invocation. Zero means no bound;
	// a detector that never returns then stalls the window's fan-in.
	budget  time.Duration
	verbose bool
}

// NewCoordinator creates a coordinator over the given detectors.
func NewCoordinator(detectors ...Detector) *Coordinator {
	return &Coordinator{detectors: detectors}
}

// WithBudget sets a per-detector execution budget. Results from a detector
// that exceeds the budget are dropped for that window.
func (c *Coordinator) WithBudget(budget time.Duration) *Coordinator {
	c.budget = budget
	return c
}

// WithVerbose enables per-detector logging.
func (c *Coordinator) WithVerbose(verbose bool) *Coordinator {
	c.verbose = verbose
	return c
}

// Register adds a detector. Not safe to call concurrently with Detect.
func (c *Coordinator) Register(d Detector) {
	c.detectors = append(c.detectors, d)
}

// Detectors returns the registered detectors.
func (c *Coordinator) Detectors() []Detector {
	return c.detectors
}

// Detect runs all registered detectors over the same window and returns the
// concatenated candidates. Fan-in blocks until every detector has returned,
// failed, or exceeded the budget; candidate order follows registration order
// so the result is deterministic for deterministic detectors.
func (c *Coordinator) Detect(window []domain.DataPoint) []domain.Signal {
	if len(c.detectors) == 0 {
		return nil
	}

	results := make([][]domain.Signal, len(c.detectors))

	var wg sync.WaitGroup
	for i, d := range c.detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			signals, err := c.runDetector(d, window)
			if err != nil {
				log.Printf("[coordinator] detector %s failed: %v", d.ID(), err)
				observability.RecordDetectorFailure(d.ID())
				return
			}
			results[i] = signals
		}(i, d)
	}
	wg.Wait()

	var candidates []domain.Signal
	for i, signals := range results {
		observability.RecordCandidates(c.detectors[i].ID(), len(signals))
		if c.verbose {
			log.Printf("[coordinator] detector %s: %d candidates", c.detectors[i].ID(), len(signals))
		}
		candidates = append(candidates, signals...)
	}
	return candidates
}

// runDetector invokes one detector with panic recovery and the optional
// execution budget.
func (c *Coordinator) runDetector(d Detector, window []domain.DataPoint) (signals []domain.Signal, err error) {
	if c.budget <= 0 {
		return c.invoke(d, window)
	}

	type outcome struct {
		signals []domain.Signal
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		s, e := c.invoke(d, window)
		done <- outcome{signals: s, err: e}
	}()

	select {
	case o := <-done:
		return o.signals, o.err
	case <-time.After(c.budget):
		return nil, fmt.Errorf("detector %s exceeded budget %s", d.ID(), c.budget)
	}
}

// invoke calls Detect, converting a panic into an error.
func (c *Coordinator) invoke(d Detector, window []domain.DataPoint) (signals []domain.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", d.ID(), r)
		}
	}()
	return d.Detect(window)
}
