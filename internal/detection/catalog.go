package detection

import "signal-lab/internal/domain"

// Indicator names shared by the template catalog and the pattern detector's
// window feature extraction.
const (
	IndicatorGrowthRate = "growth_rate"
	IndicatorSentiment  = "sentiment"
	IndicatorVolatility = "volatility"
)

// BuiltinTemplates returns the static pattern template catalog.
// The catalog is loaded once at startup and read-only thereafter; it may be
// shared across all concurrent detector invocations without locking.
func BuiltinTemplates() []domain.PatternTemplate {
	return []domain.PatternTemplate{
		{
			Name: "technology-adoption",
			Type: domain.SignalEmergingTechnology,
			Phases: []domain.TemplatePhase{
				{Name: "innovation-trigger", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.2, IndicatorSentiment: 0.1, IndicatorVolatility: 0.3,
				}},
				{Name: "early-adoption", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.8, IndicatorSentiment: 0.3, IndicatorVolatility: 0.5,
				}},
				{Name: "rapid-growth", Indicators: map[string]float64{
					IndicatorGrowthRate: 1.5, IndicatorSentiment: 0.5, IndicatorVolatility: 0.8,
				}},
				{Name: "mainstream", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.4, IndicatorSentiment: 0.4, IndicatorVolatility: 0.4,
				}},
			},
		},
		{
			Name: "market-disruption",
			Type: domain.SignalMarketShift,
			Phases: []domain.TemplatePhase{
				{Name: "incumbent-stability", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.05, IndicatorSentiment: 0.1, IndicatorVolatility: 0.2,
				}},
				{Name: "challenger-entry", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.5, IndicatorSentiment: 0.0, IndicatorVolatility: 0.6,
				}},
				{Name: "share-erosion", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.9, IndicatorSentiment: -0.2, IndicatorVolatility: 1.0,
				}},
				{Name: "realignment", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.3, IndicatorSentiment: -0.1, IndicatorVolatility: 0.7,
				}},
			},
		},
		{
			Name: "regulatory-cascade",
			Type: domain.SignalRegulatoryChange,
			Phases: []domain.TemplatePhase{
				{Name: "initial-ruling", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.6, IndicatorSentiment: -0.3, IndicatorVolatility: 0.5,
				}},
				{Name: "industry-response", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.4, IndicatorSentiment: -0.1, IndicatorVolatility: 0.8,
				}},
				{Name: "cross-border-adoption", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.7, IndicatorSentiment: 0.0, IndicatorVolatility: 0.6,
				}},
			},
		},
		{
			Name: "supply-crunch",
			Type: domain.SignalSupplyChain,
			Phases: []domain.TemplatePhase{
				{Name: "early-warnings", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.3, IndicatorSentiment: -0.2, IndicatorVolatility: 0.4,
				}},
				{Name: "constraint-spread", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.8, IndicatorSentiment: -0.4, IndicatorVolatility: 0.9,
				}},
				{Name: "price-passthrough", Indicators: map[string]float64{
					IndicatorGrowthRate: 0.5, IndicatorSentiment: -0.5, IndicatorVolatility: 0.7,
				}},
			},
		},
	}
}

// historicalOutcomes records how past matches of each template played out.
// Looked up by template name when recording pattern-match context; the
// scorer treats "accurate" matches as evidence of historical accuracy.
var historicalOutcomes = map[string]string{
	"technology-adoption": "accurate",
	"market-disruption":   "accurate",
	"regulatory-cascade":  "mixed",
	"supply-crunch":       "inaccurate",
}

// HistoricalOutcome returns the recorded outcome label for a template,
// or "unknown" when the template has no history.
func HistoricalOutcome(templateName string) string {
	if outcome, ok := historicalOutcomes[templateName]; ok {
		return outcome
	}
	return "unknown"
}
