package detection

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
)

// stubDetector returns canned results.
type stubDetector struct {
	id      string
	signals []domain.Signal
	err     error
	delay   time.Duration
}

func (d *stubDetector) ID() string   { return d.id }
func (d *stubDetector) Type() string { return "statistical" }
func (d *stubDetector) Detect([]domain.DataPoint) ([]domain.Signal, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.signals, d.err
}

// panicDetector panics on every invocation.
type panicDetector struct{}

func (panicDetector) ID() string   { return "panics" }
func (panicDetector) Type() string { return "pattern" }
func (panicDetector) Detect([]domain.DataPoint) ([]domain.Signal, error) {
	panic("index out of range")
}

func namedSignal(id string) domain.Signal {
	return domain.Signal{SignalID: id, Type: domain.SignalMarketShift}
}

func TestCoordinator_CollectsInRegistrationOrder(t *testing.T) {
	c := NewCoordinator(
		&stubDetector{id: "first", signals: []domain.Signal{namedSignal("a"), namedSignal("b")}},
		&stubDetector{id: "second", signals: []domain.Signal{namedSignal("c")}},
	)

	candidates := c.Detect(nil)

	want := []string{"a", "b", "c"}
	if len(candidates) != len(want) {
		t.Fatalf("got %d candidates, want %d", len(candidates), len(want))
	}
	for i, id := range want {
		if candidates[i].SignalID != id {
			t.Errorf("candidates[%d] = %s, want %s", i, candidates[i].SignalID, id)
		}
	}
}

func TestCoordinator_IsolatesDetectorError(t *testing.T) {
	c := NewCoordinator(
		&stubDetector{id: "broken", err: errors.New("upstream unavailable")},
		&stubDetector{id: "healthy", signals: []domain.Signal{namedSignal("ok")}},
	)

	candidates := c.Detect(nil)
	if len(candidates) != 1 || candidates[0].SignalID != "ok" {
		t.Errorf("expected only the healthy detector's candidate, got %+v", candidates)
	}
}

func TestCoordinator_IsolatesDetectorPanic(t *testing.T) {
	c := NewCoordinator(
		panicDetector{},
		&stubDetector{id: "healthy", signals: []domain.Signal{namedSignal("ok")}},
	)

	candidates := c.Detect(nil)
	if len(candidates) != 1 || candidates[0].SignalID != "ok" {
		t.Errorf("expected only the healthy detector's candidate, got %+v", candidates)
	}
}

func TestCoordinator_BudgetDropsSlowDetector(t *testing.T) {
	c := NewCoordinator(
		&stubDetector{id: "slow", signals: []domain.Signal{namedSignal("late")}, delay: 500 * time.Millisecond},
		&stubDetector{id: "fast", signals: []domain.Signal{namedSignal("ok")}},
	).WithBudget(50 * time.Millisecond)

	candidates := c.Detect(nil)
	if len(candidates) != 1 || candidates[0].SignalID != "ok" {
		t.Errorf("expected the slow detector to be dropped, got %+v", candidates)
	}
}

func TestCoordinator_NoBudgetWaitsForSlowDetector(t *testing.T) {
	c := NewCoordinator(
		&stubDetector{id: "slow", signals: []domain.Signal{namedSignal("late")}, delay: 20 * time.Millisecond},
	)

	candidates := c.Detect(nil)
	if len(candidates) != 1 || candidates[0].SignalID != "late" {
		t.Errorf("expected the slow detector's candidate, got %+v", candidates)
	}
}

func TestCoordinator_RecordsCandidateCounts(t *testing.T) {
	counter := observability.DefaultMetrics.CandidatesProduced.WithLabelValues("counted")
	before := testutil.ToFloat64(counter)

	c := NewCoordinator(&stubDetector{
		id:      "counted",
		signals: []domain.Signal{namedSignal("a"), namedSignal("b")},
	})
	c.Detect(nil)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("candidate counter delta = %f, want 2", got)
	}
}

func TestCoordinator_Register(t *testing.T) {
	c := NewCoordinator()
	if candidates := c.Detect(nil); candidates != nil {
		t.Errorf("empty coordinator returned %+v", candidates)
	}

	c.Register(&stubDetector{id: "added", signals: []domain.Signal{namedSignal("x")}})
	if len(c.Detectors()) != 1 {
		t.Fatalf("detector count = %d, want 1", len(c.Detectors()))
	}
	if candidates := c.Detect(nil); len(candidates) != 1 {
		t.Errorf("got %d candidates after Register, want 1", len(candidates))
	}
}
