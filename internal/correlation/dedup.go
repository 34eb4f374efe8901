// Package correlation merges duplicate candidate signals and cross-links
// related phenomena detected independently.
package correlation

import "signal-lab/internal/domain"

// Deduplicate collapses candidates that share a signal id (the deterministic
// key derived from type, keywords and hour bucket, not detector identity).
// Within a group the highest-confidence candidate is kept as base; the
// others' sources are appended to it and confidence becomes the group max.
// Runs before correlation so correlation sees one candidate per phenomenon.
// Idempotent: deduplicating its own output changes nothing.
func Deduplicate(candidates []domain.Signal) []domain.Signal {
	if len(candidates) < 2 {
		return candidates
	}

	// Group by id, preserving first-occurrence order.
	var order []string
	groups := make(map[string][]domain.Signal, len(candidates))
	for _, c := range candidates {
		if _, seen := groups[c.SignalID]; !seen {
			order = append(order, c.SignalID)
		}
		groups[c.SignalID] = append(groups[c.SignalID], c)
	}

	result := make([]domain.Signal, 0, len(order))
	for _, id := range order {
		group := groups[id]
		if len(group) == 1 {
			result = append(result, group[0])
			continue
		}
		result = append(result, collapseGroup(group))
	}
	return result
}

// collapseGroup folds duplicates of one id onto the highest-confidence base.
func collapseGroup(group []domain.Signal) domain.Signal {
	baseIdx := 0
	for i := 1; i < len(group); i++ {
		if group[i].Confidence > group[baseIdx].Confidence {
			baseIdx = i
		}
	}

	base := group[baseIdx]
	for i, c := range group {
		if i == baseIdx {
			continue
		}
		base.Sources = append(base.Sources, c.Sources...)
		if c.Confidence > base.Confidence {
			base.Confidence = c.Confidence
		}
		if c.FirstDetectedMs < base.FirstDetectedMs {
			base.FirstDetectedMs = c.FirstDetectedMs
		}
		if c.LastUpdatedMs > base.LastUpdatedMs {
			base.LastUpdatedMs = c.LastUpdatedMs
		}
		base.Context.PatternMatches = append(base.Context.PatternMatches, c.Context.PatternMatches...)
	}
	if base.LastUpdatedMs < base.FirstDetectedMs {
		base.LastUpdatedMs = base.FirstDetectedMs
	}
	return base
}
