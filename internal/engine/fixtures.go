package engine

import (
	"math/rand"

	"signal-lab/internal/domain"
)

// FixtureConfig controls synthetic window generation.
type FixtureConfig struct {
	Points  int
	StartMs int64
	StepMs  int64
	Seed    int64

	// SpikeAt injects a single isolated volume anomaly at this index.
	// Negative disables the spike.
	SpikeAt int

	// BurstAt injects a clustered volume anomaly starting at this index.
	// Negative disables the burst.
	BurstAt  int
	BurstLen int
}

// DefaultFixtureConfig returns a window shape that exercises the statistical
// detector: quiet baseline volume with one isolated spike and one clustered
// burst.
func DefaultFixtureConfig() FixtureConfig {
	return FixtureConfig{
		Points:   200,
		StartMs:  1704067200000, // 2024-01-01 00:00:00 UTC
		StepMs:   60000,
		Seed:     1,
		SpikeAt:  10,
		BurstAt:  150,
		BurstLen: 9,
	}
}

// fixtureSources rotate across generated points so source diversity varies.
var fixtureSources = []string{"news-feed", "patent-db", "social-pulse", "trade-wire"}

// SyntheticWindow generates a deterministic window of data points. Baseline
// metrics carry bounded jitter so a quiet window never crosses the z-score
// flag threshold; spike and burst points carry volume 1000 with heightened
// sentiment and velocity.
func SyntheticWindow(cfg FixtureConfig) []domain.DataPoint {
	rng := rand.New(rand.NewSource(cfg.Seed))

	window := make([]domain.DataPoint, cfg.Points)
	for i := range window {
		p := domain.DataPoint{
			TimestampMs: cfg.StartMs + int64(i)*cfg.StepMs,
			Source:      fixtureSources[i%len(fixtureSources)],
			Volume:      95 + rng.Float64()*10,
			Sentiment:   rng.Float64()*0.4 - 0.2,
			Velocity:    2 + rng.Float64(),
			Keywords:    []string{"automation", "robotics"},
			Geography:   []string{"EU"},
			Industries:  []string{"manufacturing"},
			Entities: []domain.Entity{
				{Type: domain.EntityTechnology, Name: "cobots", Relevance: 0.8},
			},
		}
		if i == cfg.SpikeAt && cfg.SpikeAt >= 0 {
			p.Volume = 1000
		}
		if cfg.BurstAt >= 0 && i >= cfg.BurstAt && i < cfg.BurstAt+cfg.BurstLen {
			p.Volume = 1000
			p.Sentiment = 0.6
			p.Velocity = 40
		}
		window[i] = p
	}
	return window
}
