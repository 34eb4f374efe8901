package detection

import (
	"fmt"
	"sort"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
)

// StatisticalConfig holds outlier detection parameters.
type StatisticalConfig struct {
	ZThreshold        float64 // absolute z-score flag threshold (default 3.0)
	MinWindow         int     // minimum window size, below which nothing is emitted (default 100)
	DiversityLookback int     // trailing points for the source-diversity series (default 10)
}

// DefaultStatisticalConfig returns the default configuration.
func DefaultStatisticalConfig() StatisticalConfig {
	return StatisticalConfig{
		ZThreshold:        3.0,
		MinWindow:         100,
		DiversityLookback: 10,
	}
}

// statMetric names one of the per-point series the detector inspects,
// together with the signal type an anomaly in it suggests.
type statMetric struct {
	name       string
	signalType domain.SignalType
	extract    func(window []domain.DataPoint, cfg StatisticalConfig) []float64
}

var statMetrics = []statMetric{
	{
		name:       "volume",
		signalType: domain.SignalMarketShift,
		extract: func(window []domain.DataPoint, _ StatisticalConfig) []float64 {
			series := make([]float64, len(window))
			for i, p := range window {
				series[i] = p.Volume
			}
			return series
		},
	},
	{
		name:       "sentiment",
		signalType: domain.SignalConsumerBehavior,
		extract: func(window []domain.DataPoint, _ StatisticalConfig) []float64 {
			series := make([]float64, len(window))
			for i, p := range window {
				series[i] = p.Sentiment
			}
			return series
		},
	},
	{
		name:       "velocity",
		signalType: domain.SignalEmergingTechnology,
		extract: func(window []domain.DataPoint, _ StatisticalConfig) []float64 {
			series := make([]float64, len(window))
			for i, p := range window {
				series[i] = p.Velocity
			}
			return series
		},
	},
	{
		name:       "source_diversity",
		signalType: domain.SignalCompetitiveMove,
		extract:    sourceDiversitySeries,
	},
}

// sourceDiversitySeries counts distinct originating sources in the trailing
// lookback sub-window ending at each index. The sub-window is kept at full
// lookback length even at the start of the window, otherwise the shorter
// warmup sub-windows read as a diversity drop and flag every window.
func sourceDiversitySeries(window []domain.DataPoint, cfg StatisticalConfig) []float64 {
	lookback := cfg.DiversityLookback
	if lookback <= 0 {
		lookback = DefaultStatisticalConfig().DiversityLookback
	}

	series := make([]float64, len(window))
	for i := range window {
		start := i - lookback + 1
		if start < 0 {
			start = 0
		}
		end := start + lookback
		if end > len(window) {
			end = len(window)
		}
		distinct := make(map[string]bool, lookback)
		for j := start; j < end; j++ {
			distinct[window[j].Source] = true
		}
		series[i] = float64(len(distinct))
	}
	return series
}

// StatisticalDetector flags z-score outliers in per-metric time series.
type StatisticalDetector struct {
	config StatisticalConfig
}

// NewStatisticalDetector creates a statistical anomaly detector.
func NewStatisticalDetector(config StatisticalConfig) *StatisticalDetector {
	if config.ZThreshold <= 0 {
		config.ZThreshold = DefaultStatisticalConfig().ZThreshold
	}
	if config.MinWindow <= 0 {
		config.MinWindow = DefaultStatisticalConfig().MinWindow
	}
	return &StatisticalDetector{config: config}
}

// ID returns the detector identifier.
func (d *StatisticalDetector) ID() string { return "statistical-anomaly" }

// Type returns the detection strategy family.
func (d *StatisticalDetector) Type() string { return "statistical" }

// Compile-time interface check.
var _ Detector = (*StatisticalDetector)(nil)

// Detect flags indices whose absolute z-score exceeds the threshold,
// independently per metric, and emits one candidate signal per metric with
// at least one flagged index. A window below the minimum size yields an
// empty result, never an error.
func (d *StatisticalDetector) Detect(window []domain.DataPoint) ([]domain.Signal, error) {
	if len(window) < d.config.MinWindow {
		return nil, nil
	}

	var signals []domain.Signal
	for _, metric := range statMetrics {
		series := metric.extract(window, d.config)
		flagged := d.flagOutliers(series)
		if len(flagged) == 0 {
			continue
		}
		signals = append(signals, d.buildSignal(window, metric, series, flagged))
	}
	return signals, nil
}

// flagOutliers returns the sorted indices whose |z| exceeds the threshold.
// A constant series (stddev zero) has no outliers.
func (d *StatisticalDetector) flagOutliers(series []float64) []int {
	m := mean(series)
	sd := stddev(series, m)
	if sd == 0 {
		return nil
	}

	var flagged []int
	for i, v := range series {
		z := (v - m) / sd
		if z < 0 {
			z = -z
		}
		if z > d.config.ZThreshold {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

func (d *StatisticalDetector) buildSignal(window []domain.DataPoint, metric statMetric, series []float64, flagged []int) domain.Signal {
	clustering := anomalyClustering(flagged)
	strength := 2*float64(len(flagged))/float64(len(window)) + 0.5*clustering
	strength = domain.Clamp01(strength)

	// Aggregate content attributes over the flagged points only.
	var (
		keywords     []string
		entities     []domain.Entity
		geography    []string
		industries   []string
		sentimentSum float64
		volumeSum    float64
		velocityMax  float64
	)
	for _, idx := range flagged {
		p := window[idx]
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
		keywords = []string{metric.name}
	}
	sort.Strings(keywords)

	firstMs := window[flagged[0]].TimestampMs
	lastMs := window[flagged[len(flagged)-1]].TimestampMs
	if lastMs < firstMs {
		lastMs = firstMs
	}

	return domain.Signal{
		SignalID:   idhash.ComputeSignalID(metric.signalType, keywords, firstMs),
		Type:       metric.signalType,
		Strength:   strength,
		Confidence: 0.7, // detector-level prior
		Sources: []domain.SignalSource{{
			DetectorID:   d.ID(),
			DetectorType: d.Type(),
			Credibility:  0.8,
			TimestampMs:  lastMs,
			Evidence:     fmt.Sprintf("metric=%s flagged=%d/%d z>%.1f", metric.name, len(flagged), len(window), d.config.ZThreshold),
		}},
		FirstDetectedMs: firstMs,
		LastUpdatedMs:   lastMs,
		Metadata: domain.SignalMetadata{
			Keywords:   keywords,
			Entities:   entities,
			Sentiment:  sentimentSum / float64(len(flagged)),
			Volume:     volumeSum,
			Velocity:   velocityMax,
			Geography:  geography,
			Industries: industries,
		},
		Trajectory: flagTrajectory(flagged),
	}
}

// anomalyClustering measures how bunched the flagged indices are:
// 1 - (mean inter-anomaly gap / max inter-anomaly gap). Fewer than two
// flags, or evenly spaced flags, score zero.
func anomalyClustering(flagged []int) float64 {
	if len(flagged) < 2 {
		return 0
	}

	gaps := make([]float64, 0, len(flagged)-1)
	maxGap := 0.0
	for i := 1; i < len(flagged); i++ {
		gap := float64(flagged[i] - flagged[i-1])
		gaps = append(gaps, gap)
		if gap > maxGap {
			maxGap = gap
		}
	}
	if maxGap == 0 {
		return 0
	}
	return domain.Clamp01(1 - mean(gaps)/maxGap)
}

// flagTrajectory compares the flag density of the most recent 5 flagged
// indices against the earlier ones. Fewer than 6 flags default to EMERGING.
func flagTrajectory(flagged []int) domain.Trajectory {
	const recentCount = 5
	n := len(flagged)
	if n <= recentCount {
		return domain.TrajectoryEmerging
	}

	recentSpan := flagged[n-1] - flagged[n-recentCount] + 1
	earlierSpan := flagged[n-recentCount-1] - flagged[0] + 1
	if recentSpan <= 0 || earlierSpan <= 0 {
		return domain.TrajectoryEmerging
	}

	recentDensity := float64(recentCount) / float64(recentSpan)
	earlierDensity := float64(n-recentCount) / float64(earlierSpan)
	if earlierDensity == 0 {
		return domain.TrajectoryEmerging
	}

	ratio := recentDensity / earlierDensity
	switch {
	case ratio > 1.5:
		return domain.TrajectoryAccelerating
	case ratio < 0.5:
		return domain.TrajectoryDeclining
	case ratio >= 0.9 && ratio <= 1.1:
		return domain.TrajectoryPlateauing
	default:
		return domain.TrajectoryEmerging
	}
}
