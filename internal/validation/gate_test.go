package validation

import (
	"math"
	"testing"

	"signal-lab/internal/domain"
)

// fixedValidator scores every signal the same.
type fixedValidator struct{ score float64 }

func (v fixedValidator) Score(*domain.Signal) float64 { return v.score }

// strengthValidator scores each signal by its own strength.
type strengthValidator struct{}

func (strengthValidator) Score(s *domain.Signal) float64 { return s.Strength }

func gateSignal(id string, strength float64) domain.Signal {
	return domain.Signal{
		SignalID:   id,
		Type:       domain.SignalMarketShift,
		Strength:   strength,
		Confidence: 0.8,
	}
}

func TestGate_NilValidatorPassesThrough(t *testing.T) {
	input := []domain.Signal{gateSignal("a", 0.1), gateSignal("b", 0.9)}

	result := NewGate(nil).Apply(input)
	if len(result) != 2 {
		t.Fatalf("got %d signals, want all %d", len(result), len(input))
	}
	for i := range input {
		if result[i].Confidence != input[i].Confidence {
			t.Errorf("pass-through gate changed confidence of %s", input[i].SignalID)
		}
	}
}

func TestGate_DropsAtOrBelowThreshold(t *testing.T) {
	gate := NewGate(strengthValidator{})
	input := []domain.Signal{
		gateSignal("low", 0.2),
		gateSignal("edge", 0.5), // exactly at the threshold is still dropped
		gateSignal("high", 0.9),
	}

	result := gate.Apply(input)
	if len(result) != 1 {
		t.Fatalf("got %d signals, want 1", len(result))
	}
	if result[0].SignalID != "high" {
		t.Errorf("survivor = %s, want high", result[0].SignalID)
	}
}

func TestGate_ScalesConfidenceByValidity(t *testing.T) {
	gate := NewGate(fixedValidator{score: 0.6})
	result := gate.Apply([]domain.Signal{gateSignal("a", 0.9)})

	if len(result) != 1 {
		t.Fatalf("got %d signals, want 1", len(result))
	}
	if math.Abs(result[0].Confidence-0.8*0.6) > 1e-9 {
		t.Errorf("confidence = %f, want %f", result[0].Confidence, 0.8*0.6)
	}
}

func TestGate_ClampsValidatorScore(t *testing.T) {
	gate := NewGate(fixedValidator{score: 4})
	result := gate.Apply([]domain.Signal{gateSignal("a", 0.9)})

	if len(result) != 1 {
		t.Fatalf("got %d signals, want 1", len(result))
	}
	if result[0].Confidence != 0.8 {
		t.Errorf("confidence = %f, want unchanged 0.8 at clamped score 1", result[0].Confidence)
	}
}

func TestGate_EmptyBatch(t *testing.T) {
	gate := NewGate(fixedValidator{score: 0.9})
	if result := gate.Apply(nil); len(result) != 0 {
		t.Errorf("empty batch returned %d signals", len(result))
	}
}

func TestFeatureVector(t *testing.T) {
	sig := domain.Signal{
		Strength:   0.6,
		Confidence: 0.7,
		Sources:    []domain.SignalSource{{DetectorType: "statistical"}, {DetectorType: "pattern"}},
		Metadata: domain.SignalMetadata{
			Sentiment:  0.2,
			Volume:     999,
			Velocity:   12,
			Keywords:   []string{"a", "b", "c"},
			Entities:   []domain.Entity{{Name: "x"}},
			Geography:  []string{"EU"},
			Industries: []string{"manufacturing", "logistics"},
		},
	}

	features := FeatureVector(&sig)
	if len(features) != 10 {
		t.Fatalf("feature vector length = %d, want 10", len(features))
	}
	if features[0] != 0.6 || features[1] != 0.7 {
		t.Errorf("strength/confidence features = %f, %f", features[0], features[1])
	}
	if features[2] != 2 {
		t.Errorf("source count feature = %f, want 2", features[2])
	}
	if math.Abs(features[4]-math.Log(1000)) > 1e-9 {
		t.Errorf("volume feature = %f, want log(1000)", features[4])
	}
	if features[6] != 3 || features[7] != 1 || features[8] != 1 || features[9] != 2 {
		t.Errorf("count features = %v", features[6:])
	}
}
