package domain

// TemplatePhase is one phase of a multi-phase trend template.
// Indicators map feature names (growth_rate, sentiment, volatility) to the
// value expected while the trend is in this phase.
type TemplatePhase struct {
	Name       string
	Indicators map[string]float64
}

// PatternTemplate describes the expected shape of a known trend.
// Templates are loaded at startup and read-only thereafter; they may be
// shared across concurrent detector invocations without locking.
type PatternTemplate struct {
	Name   string
	Type   SignalType
	Phases []TemplatePhase
}

// PhaseAverage returns the mean expected value of an indicator across all
// phases of the template. Phases missing the indicator contribute zero.
func (t *PatternTemplate) PhaseAverage(indicator string) float64 {
	if len(t.Phases) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range t.Phases {
		sum += p.Indicators[indicator]
	}
	return sum / float64(len(t.Phases))
}
