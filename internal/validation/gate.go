// Package validation implements the final quality gate in front of signal
// emission.
package validation

import (
	"math"

	"signal-lab/internal/domain"
)

// Validator scores a signal's validity. Implementations are typically
// trained classifiers; any model satisfying the contract can be plugged in.
type Validator interface {
	// Score returns a validity score in [0,1] for the signal.
	Score(signal *domain.Signal) float64
}

// acceptThreshold is the minimum validity score for a signal to survive
// the gate.
const acceptThreshold = 0.5

// Gate filters signals through a pluggable classifier. With no classifier
// configured the gate is a pass-through: the pipeline degrades gracefully
// without a trained model rather than dropping every signal.
type Gate struct {
	validator Validator
}

// NewGate creates a gate. A nil validator makes the gate a no-op.
func NewGate(validator Validator) *Gate {
	return &Gate{validator: validator}
}

// Apply filters the batch. Each signal's confidence is multiplied by its
// validity score; signals scoring at or below the accept threshold are
// dropped. Without a classifier the input is returned unchanged.
func (g *Gate) Apply(signals []domain.Signal) []domain.Signal {
	if g.validator == nil {
		return signals
	}

	accepted := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		score := domain.Clamp01(g.validator.Score(&s))
		if score <= acceptThreshold {
			continue
		}
		s.Confidence = domain.Clamp01(s.Confidence * score)
		accepted = append(accepted, s)
	}
	return accepted
}

// FeatureVector extracts the fixed classifier input features from a signal:
// strength, confidence, source count, sentiment, log(volume+1), velocity,
// keyword count, entity count, geography count, industry count.
func FeatureVector(signal *domain.Signal) []float64 {
	return []float64{
		signal.Strength,
		signal.Confidence,
		float64(len(signal.Sources)),
		signal.Metadata.Sentiment,
		math.Log(signal.Metadata.Volume + 1),
		signal.Metadata.Velocity,
		float64(len(signal.Metadata.Keywords)),
		float64(len(signal.Metadata.Entities)),
		float64(len(signal.Metadata.Geography)),
		float64(len(signal.Metadata.Industries)),
	}
}
