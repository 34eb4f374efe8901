// Package scoring computes the final strength of a signal from weighted
// evidence factors.
package scoring

import "signal-lab/internal/domain"

// Factor weights. They sum to 1 so a signal scoring perfectly on every
// factor lands exactly at strength 1.
const (
	weightSourceCredibility  = 0.25
	weightVolumeVelocity     = 0.20
	weightCrossValidation    = 0.25
	weightHistoricalAccuracy = 0.20
	weightExpertValidation   = 0.10
)

// Normalization scales for the volume/velocity factor.
const (
	volumeScale   = 1000.0
	velocityScale = 100.0
)

// ExpertInput supplies an external expert-validation score for a signal.
// Plugged in when a human-review or model-assisted loop exists.
type ExpertInput interface {
	// Validate returns an expert score in [0,1] for the signal.
	Validate(signal *domain.Signal) float64
}

// Scorer computes final signal strength from five weighted factors.
type Scorer struct {
	expert ExpertInput
}

// NewScorer creates a scorer. A nil expert input falls back to the 0.7
// default expert score.
func NewScorer(expert ExpertInput) *Scorer {
	return &Scorer{expert: expert}
}

// Score recomputes the signal's strength in place and returns the signal.
// Strength is the weighted sum of source credibility, volume/velocity,
// cross-validation breadth, historical pattern accuracy, and expert
// validation, each factor clamped to [0,1].
func (s *Scorer) Score(signal *domain.Signal) {
	strength := weightSourceCredibility*sourceCredibility(signal) +
		weightVolumeVelocity*volumeVelocity(signal) +
		weightCrossValidation*crossValidation(signal) +
		weightHistoricalAccuracy*historicalAccuracy(signal) +
		weightExpertValidation*s.expertValidation(signal)

	signal.Strength = domain.Clamp01(strength)
	signal.Confidence = domain.Clamp01(signal.Confidence)
}

// sourceCredibility is the mean credibility across all sources.
func sourceCredibility(signal *domain.Signal) float64 {
	if len(signal.Sources) == 0 {
		return 0
	}
	sum := 0.0
	for _, src := range signal.Sources {
		sum += src.Credibility
	}
	return domain.Clamp01(sum / float64(len(signal.Sources)))
}

// volumeVelocity is the mean of normalized volume and normalized velocity.
func volumeVelocity(signal *domain.Signal) float64 {
	vol := domain.Clamp01(signal.Metadata.Volume / volumeScale)
	vel := domain.Clamp01(signal.Metadata.Velocity / velocityScale)
	return (vol + vel) / 2
}

// crossValidation counts distinct detector types among sources, out of the
// five strategy families, capped at 1.
func crossValidation(signal *domain.Signal) float64 {
	distinct := make(map[string]bool, len(signal.Sources))
	for _, src := range signal.Sources {
		distinct[src.DetectorType] = true
	}
	return domain.Clamp01(float64(len(distinct)) / 5)
}

// historicalAccuracy is the fraction of pattern matches whose recorded
// outcome is "accurate"; a signal with no pattern history scores a neutral
// 0.5.
func historicalAccuracy(signal *domain.Signal) float64 {
	matches := signal.Context.PatternMatches
	if len(matches) == 0 {
		return 0.5
	}
	accurate := 0
	for _, m := range matches {
		if m.Outcome == "accurate" {
			accurate++
		}
	}
	return float64(accurate) / float64(len(matches))
}

// expertValidation asks the pluggable expert input, defaulting to 0.7.
func (s *Scorer) expertValidation(signal *domain.Signal) float64 {
	if s.expert == nil {
		return 0.7
	}
	return domain.Clamp01(s.expert.Validate(signal))
}
