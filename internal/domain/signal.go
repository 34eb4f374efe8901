package domain

// SignalType classifies the phenomenon a signal describes.
type SignalType string

// Signal types.
const (
	SignalEmergingTechnology SignalType = "EMERGING_TECHNOLOGY"
	SignalMarketShift        SignalType = "MARKET_SHIFT"
	SignalRegulatoryChange   SignalType = "REGULATORY_CHANGE"
	SignalConsumerBehavior   SignalType = "CONSUMER_BEHAVIOR"
	SignalCompetitiveMove    SignalType = "COMPETITIVE_MOVE"
	SignalEconomicIndicator  SignalType = "ECONOMIC_INDICATOR"
	SignalSocialTrend        SignalType = "SOCIAL_TREND"
	SignalSupplyChain        SignalType = "SUPPLY_CHAIN"
	SignalGeopolitical       SignalType = "GEOPOLITICAL"
)

// Trajectory is the inferred momentum phase of a signal.
type Trajectory string

// Trajectories.
const (
	TrajectoryEmerging     Trajectory = "EMERGING"
	TrajectoryAccelerating Trajectory = "ACCELERATING"
	TrajectoryPlateauing   Trajectory = "PLATEAUING"
	TrajectoryDeclining    Trajectory = "DECLINING"
	TrajectoryCyclical     Trajectory = "CYCLICAL"
)

// SignalSource records one detector's contribution to a signal.
// A signal's source list grows only by append/merge, never shrinks.
type SignalSource struct {
	DetectorID   string  `json:"detector_id"`
	DetectorType string  `json:"detector_type"`
	Credibility  float64 `json:"credibility"` // 0..1
	TimestampMs  int64   `json:"timestamp_ms"`
	Evidence     string  `json:"evidence,omitempty"` // opaque evidence reference
}

// SignalMetadata holds the aggregated content attributes of a signal.
type SignalMetadata struct {
	Keywords   []string `json:"keywords,omitempty"`
	Entities   []Entity `json:"entities,omitempty"` // deduplicated by (type, name), highest relevance kept
	Sentiment  float64  `json:"sentiment"`          // mean across merged signals
	Volume     float64  `json:"volume"`             // sum across merged signals
	Velocity   float64  `json:"velocity"`           // max across merged signals
	Geography  []string `json:"geography,omitempty"`
	Industries []string `json:"industries,omitempty"`
}

// PatternMatch records one historical-pattern match contributing context.
type PatternMatch struct {
	PatternName string  `json:"pattern_name"`
	Similarity  float64 `json:"similarity"`
	Outcome     string  `json:"outcome"` // historical outcome label, e.g. "accurate"
}

// ImpactAssessment describes the expected impact of a signal.
type ImpactAssessment struct {
	Scope       string  `json:"scope"`
	Magnitude   float64 `json:"magnitude"`
	TimeframeMs int64   `json:"timeframe_ms"`
	Probability float64 `json:"probability"`
}

// SignalContext links a signal to related phenomena.
type SignalContext struct {
	RelatedSignalIDs  []string           `json:"related_signal_ids,omitempty"`
	PatternMatches    []PatternMatch     `json:"pattern_matches,omitempty"`
	IndustryRelevance map[string]float64 `json:"industry_relevance,omitempty"`
	Impact            *ImpactAssessment  `json:"impact,omitempty"`
}

// Signal is a cross-validated indicator of an emerging trend.
//
// SignalID is deterministic: identical phenomena detected twice collapse to
// one id (see internal/idhash). Strength and Confidence are always within
// [0,1]. LastUpdatedMs >= FirstDetectedMs at all times.
type Signal struct {
	SignalID   string     `json:"signal_id"`
	Type       SignalType `json:"type"`
	Strength   float64    `json:"strength"`   // 0..1
	Confidence float64    `json:"confidence"` // 0..1

	Sources []SignalSource `json:"sources"`

	FirstDetectedMs int64 `json:"first_detected_ms"`
	LastUpdatedMs   int64 `json:"last_updated_ms"`

	Metadata   SignalMetadata `json:"metadata"`
	Trajectory Trajectory     `json:"trajectory"`
	Context    SignalContext  `json:"context"`
}

// Clamp01 bounds v to [0,1]. NaN collapses to 0.
func Clamp01(v float64) float64 {
	if !(v > 0) { // catches NaN as well
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
