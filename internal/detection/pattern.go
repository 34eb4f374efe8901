package detection

import (
	"fmt"
	"math"
	"sort"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
)

// PatternConfig holds template matching parameters.
type PatternConfig struct {
	PointsPerPhase int     // window points allotted to each template phase (default 30)
	MatchThreshold float64 // minimum similarity for a match candidate (default 0.7)
	Stride         int     // window slide step in points (default one phase width)
}

// DefaultPatternConfig returns the default configuration.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		PointsPerPhase: 30,
		MatchThreshold: 0.7,
		Stride:         30,
	}
}

// windowFeatures holds the aggregate features extracted from one window
// position, in the same units as template indicators.
type windowFeatures struct {
	growthRate float64 // (last-quartile volume mean - first-quartile) / first-quartile
	sentiment  float64 // mean sentiment
	volatility float64 // standard deviation of scalar values
}

// PatternDetector scores sliding windows against the template catalog.
type PatternDetector struct {
	config    PatternConfig
	templates []domain.PatternTemplate
}

// NewPatternDetector creates a pattern recognition detector over the given
// template catalog. Passing nil templates uses the built-in catalog.
func NewPatternDetector(config PatternConfig, templates []domain.PatternTemplate) *PatternDetector {
	def := DefaultPatternConfig()
	if config.PointsPerPhase <= 0 {
		config.PointsPerPhase = def.PointsPerPhase
	}
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = def.MatchThreshold
	}
	if config.Stride <= 0 {
		config.Stride = config.PointsPerPhase
	}
	if templates == nil {
		templates = BuiltinTemplates()
	}
	return &PatternDetector{config: config, templates: templates}
}

// ID returns the detector identifier.
func (d *PatternDetector) ID() string { return "pattern-recognition" }

// Type returns the detection strategy family.
func (d *PatternDetector) Type() string { return "pattern" }

// Compile-time interface check.
var _ Detector = (*PatternDetector)(nil)

// Detect slides a phases*PointsPerPhase window over the stream for each
// template and emits one candidate per position whose aggregate features
// score above the match threshold against the template's phase-averaged
// expectations.
func (d *PatternDetector) Detect(window []domain.DataPoint) ([]domain.Signal, error) {
	var signals []domain.Signal
	for i := range d.templates {
		t := &d.templates[i]
		size := len(t.Phases) * d.config.PointsPerPhase
		if size == 0 || len(window) < size {
			continue
		}

		for pos := 0; pos+size <= len(window); pos += d.config.Stride {
			segment := window[pos : pos+size]
			feats := extractFeatures(segment)
			sim := d.templateSimilarity(feats, t)
			if sim <= d.config.MatchThreshold {
				continue
			}
			signals = append(signals, d.buildSignal(segment, t, sim))
		}
	}
	return signals, nil
}

// templateSimilarity compares window features against the template's
// phase-averaged expected indicator values, averaged across features.
func (d *PatternDetector) templateSimilarity(feats windowFeatures, t *domain.PatternTemplate) float64 {
	return (featureSimilarity(feats.growthRate, t.PhaseAverage(IndicatorGrowthRate)) +
		featureSimilarity(feats.sentiment, t.PhaseAverage(IndicatorSentiment)) +
		featureSimilarity(feats.volatility, t.PhaseAverage(IndicatorVolatility))) / 3
}

// featureSimilarity is the normalized-difference similarity
// 1 - min(|actual-expected|/|expected|, 1). A zero expectation compares
// against unit scale so an exact zero match still scores 1.
func featureSimilarity(actual, expected float64) float64 {
	denom := math.Abs(expected)
	if denom < 1e-9 {
		if math.Abs(actual) < 1e-9 {
			return 1
		}
		denom = 1
	}
	diff := math.Abs(actual-expected) / denom
	if diff > 1 {
		diff = 1
	}
	return 1 - diff
}

// identifyPhase finds the template phase whose specific indicators best
// match the window's trailing sub-segment. The same phase drives both the
// reported current phase and the trajectory, keeping the two consistent.
func (d *PatternDetector) identifyPhase(segment []domain.DataPoint, t *domain.PatternTemplate) int {
	trailing := segment
	if len(trailing) > d.config.PointsPerPhase {
		trailing = trailing[len(trailing)-d.config.PointsPerPhase:]
	}
	feats := extractFeatures(trailing)

	bestIdx := 0
	bestScore := -1.0
	for i, phase := range t.Phases {
		score := (featureSimilarity(feats.growthRate, phase.Indicators[IndicatorGrowthRate]) +
			featureSimilarity(feats.sentiment, phase.Indicators[IndicatorSentiment]) +
			featureSimilarity(feats.volatility, phase.Indicators[IndicatorVolatility])) / 3
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

// phaseTrajectory maps the current phase's position within the template's
// phase sequence to a trajectory: first 30% emerging, next 30% accelerating,
// next 20% plateauing, remainder declining. The position is the phase
// midpoint (phaseIdx+0.5)/totalPhases; a phase-start fraction would cap at
// (n-1)/n and leave the declining band unreachable for short templates.
func phaseTrajectory(phaseIdx, totalPhases int) domain.Trajectory {
	if totalPhases <= 0 {
		return domain.TrajectoryEmerging
	}
	frac := (float64(phaseIdx) + 0.5) / float64(totalPhases)
	switch {
	case frac < 0.3:
		return domain.TrajectoryEmerging
	case frac < 0.6:
		return domain.TrajectoryAccelerating
	case frac < 0.8:
		return domain.TrajectoryPlateauing
	default:
		return domain.TrajectoryDeclining
	}
}

func (d *PatternDetector) buildSignal(segment []domain.DataPoint, t *domain.PatternTemplate, sim float64) domain.Signal {
	phaseIdx := d.identifyPhase(segment, t)
	phase := t.Phases[phaseIdx]

	var (
		keywords     []string
		entities     []domain.Entity
		geography    []string
		industries   []string
		sentimentSum float64
		volumeSum    float64
		velocityMax  float64
	)
	for _, p := range segment {
		keywords = unionKeywords(keywords, p.Keywords)
		entities = mergeEntities(entities, p.Entities)
		geography = unionStrings(geography, p.Geography)
		industries = unionStrings(industries, p.Industries)
		sentimentSum += p.Sentiment
		volumeSum += p.Volume
		if p.Velocity > velocityMax {
			velocityMax = p.Velocity
		}
	}
	if len(keywords) == 0 {
		keywords = []string{t.Name}
	}
	sort.Strings(keywords)

	firstMs := segment[0].TimestampMs
	lastMs := segment[len(segment)-1].TimestampMs
	if lastMs < firstMs {
		lastMs = firstMs
	}

	return domain.Signal{
		SignalID:   idhash.ComputeSignalID(t.Type, keywords, firstMs),
		Type:       t.Type,
		Strength:   domain.Clamp01(sim),
		Confidence: domain.Clamp01(sim * 0.9),
		Sources: []domain.SignalSource{{
			DetectorID:   d.ID(),
			DetectorType: d.Type(),
			Credibility:  0.75,
			TimestampMs:  lastMs,
			Evidence:     fmt.Sprintf("template=%s phase=%s similarity=%.3f", t.Name, phase.Name, sim),
		}},
		FirstDetectedMs: firstMs,
		LastUpdatedMs:   lastMs,
		Metadata: domain.SignalMetadata{
			Keywords:   keywords,
			Entities:   entities,
			Sentiment:  sentimentSum / float64(len(segment)),
			Volume:     volumeSum,
			Velocity:   velocityMax,
			Geography:  geography,
			Industries: industries,
		},
		Trajectory: phaseTrajectory(phaseIdx, len(t.Phases)),
		Context: domain.SignalContext{
			PatternMatches: []domain.PatternMatch{{
				PatternName: t.Name,
				Similarity:  sim,
				Outcome:     HistoricalOutcome(t.Name),
			}},
		},
	}
}

// extractFeatures computes the aggregate features of a window segment.
// Growth rate uses volume quartile means; a zero first-quartile baseline
// yields zero growth. Volatility prefers explicit scalar values and falls
// back to volume when fewer than two points carry one.
func extractFeatures(segment []domain.DataPoint) windowFeatures {
	n := len(segment)
	if n == 0 {
		return windowFeatures{}
	}

	quartile := n / 4
	if quartile == 0 {
		quartile = 1
	}

	firstSum, lastSum := 0.0, 0.0
	for i := 0; i < quartile; i++ {
		firstSum += segment[i].Volume
		lastSum += segment[n-1-i].Volume
	}
	firstMean := firstSum / float64(quartile)
	lastMean := lastSum / float64(quartile)

	growth := 0.0
	if firstMean != 0 {
		growth = (lastMean - firstMean) / firstMean
	}

	sentimentSum := 0.0
	var values []float64
	for _, p := range segment {
		sentimentSum += p.Sentiment
		if p.Value != nil {
			values = append(values, *p.Value)
		}
	}

	var volatility float64
	if len(values) >= 2 {
		volatility = stddev(values, mean(values))
	} else {
		volumes := make([]float64, n)
		for i, p := range segment {
			volumes[i] = p.Volume
		}
		volatility = stddev(volumes, mean(volumes))
	}

	return windowFeatures{
		growthRate: growth,
		sentiment:  sentimentSum / float64(n),
		volatility: volatility,
	}
}
