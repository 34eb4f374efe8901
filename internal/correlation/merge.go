package correlation

import (
	"sort"

	"signal-lab/internal/domain"
)

// mergeGroup folds a set of highly correlated signals into one. The fold is
// computed over the whole group at once, so the result does not depend on
// the order in which pair merges were discovered:
//   - survivor id: member with earliest firstDetected (ties: smallest id)
//   - sources: concatenation in canonical member order
//   - keywords/entities/geography/industries: union, entities deduplicated
//     by type+name keeping highest relevance
//   - sentiment: mean; volume: sum; velocity: max
//   - confidence: group max boosted by 1.2, capped at 1; strength: mean
//   - firstDetected: min; lastUpdated: max
func mergeGroup(members []domain.Signal) domain.Signal {
	if len(members) == 1 {
		return members[0]
	}

	// Canonical member order makes source concatenation deterministic.
	ordered := make([]domain.Signal, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].FirstDetectedMs != ordered[j].FirstDetectedMs {
			return ordered[i].FirstDetectedMs < ordered[j].FirstDetectedMs
		}
		return ordered[i].SignalID < ordered[j].SignalID
	})

	merged := ordered[0]
	merged.Sources = append([]domain.SignalSource(nil), ordered[0].Sources...)
	merged.Metadata.Keywords = append([]string(nil), ordered[0].Metadata.Keywords...)
	merged.Metadata.Entities = append([]domain.Entity(nil), ordered[0].Metadata.Entities...)
	merged.Metadata.Geography = append([]string(nil), ordered[0].Metadata.Geography...)
	merged.Metadata.Industries = append([]string(nil), ordered[0].Metadata.Industries...)
	merged.Context.PatternMatches = append([]domain.PatternMatch(nil), ordered[0].Context.PatternMatches...)

	sentimentSum := ordered[0].Metadata.Sentiment
	strengthSum := ordered[0].Strength
	maxConfidence := ordered[0].Confidence

	for _, m := range ordered[1:] {
		merged.Sources = append(merged.Sources, m.Sources...)
		merged.Metadata.Keywords = unionStrings(merged.Metadata.Keywords, m.Metadata.Keywords)
		merged.Metadata.Entities = mergeEntities(merged.Metadata.Entities, m.Metadata.Entities)
		merged.Metadata.Geography = unionStrings(merged.Metadata.Geography, m.Metadata.Geography)
		merged.Metadata.Industries = unionStrings(merged.Metadata.Industries, m.Metadata.Industries)
		merged.Context.PatternMatches = append(merged.Context.PatternMatches, m.Context.PatternMatches...)

		sentimentSum += m.Metadata.Sentiment
		strengthSum += m.Strength
		merged.Metadata.Volume += m.Metadata.Volume
		if m.Metadata.Velocity > merged.Metadata.Velocity {
			merged.Metadata.Velocity = m.Metadata.Velocity
		}
		if m.Confidence > maxConfidence {
			maxConfidence = m.Confidence
		}
		if m.FirstDetectedMs < merged.FirstDetectedMs {
			merged.FirstDetectedMs = m.FirstDetectedMs
		}
		if m.LastUpdatedMs > merged.LastUpdatedMs {
			merged.LastUpdatedMs = m.LastUpdatedMs
		}
		if len(m.Context.IndustryRelevance) > 0 {
			if merged.Context.IndustryRelevance == nil {
				merged.Context.IndustryRelevance = make(map[string]float64)
			}
			for industry, score := range m.Context.IndustryRelevance {
				if score > merged.Context.IndustryRelevance[industry] {
					merged.Context.IndustryRelevance[industry] = score
				}
			}
		}
	}

	n := float64(len(ordered))
	merged.Metadata.Sentiment = sentimentSum / n
	merged.Strength = domain.Clamp01(strengthSum / n)
	merged.Confidence = domain.Clamp01(maxConfidence * 1.2)
	sort.Strings(merged.Metadata.Keywords)
	if merged.LastUpdatedMs < merged.FirstDetectedMs {
		merged.LastUpdatedMs = merged.FirstDetectedMs
	}
	return merged
}

// unionStrings merges string slices preserving set semantics.
func unionStrings(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

// mergeEntities unions entities deduplicated by (type, name), keeping the
// highest relevance per key.
func mergeEntities(dst []domain.Entity, src []domain.Entity) []domain.Entity {
	type key struct {
		t domain.EntityType
		n string
	}
	idx := make(map[key]int, len(dst))
	for i, e := range dst {
		idx[key{e.Type, e.Name}] = i
	}
	for _, e := range src {
		k := key{e.Type, e.Name}
		if i, ok := idx[k]; ok {
			if e.Relevance > dst[i].Relevance {
				dst[i].Relevance = e.Relevance
			}
			continue
		}
		idx[k] = len(dst)
		dst = append(dst, e)
	}
	return dst
}
