package correlation

import "signal-lab/internal/domain"

// DayMs is the correlation grouping bucket width in milliseconds.
const DayMs int64 = 86400000

// weekMs is the time-proximity horizon: signals 7 days apart score zero.
const weekMs = 7 * DayMs

// Similarity computes the pairwise similarity of two signals:
// 0.3*Jaccard(keywords) + 0.3*Jaccard(entities) + 0.2*timeSimilarity +
// 0.2*Jaccard(geography), where entities compare as type+name pairs and
// timeSimilarity decays linearly to zero over seven days.
func Similarity(a, b *domain.Signal) float64 {
	return 0.3*jaccard(a.Metadata.Keywords, b.Metadata.Keywords) +
		0.3*jaccard(entityKeys(a.Metadata.Entities), entityKeys(b.Metadata.Entities)) +
		0.2*timeSimilarity(a.FirstDetectedMs, b.FirstDetectedMs) +
		0.2*jaccard(a.Metadata.Geography, b.Metadata.Geography)
}

// jaccard computes |A∩B| / |A∪B| over string sets. Two empty sets score 0.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}

	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// entityKeys projects entities to their type+name identity.
func entityKeys(entities []domain.Entity) []string {
	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = string(e.Type) + ":" + e.Name
	}
	return keys
}

// timeSimilarity is max(0, 1 - |Δt| / 7 days).
func timeSimilarity(a, b int64) float64 {
	delta := a - b
	if delta < 0 {
		delta = -delta
	}
	if delta >= weekMs {
		return 0
	}
	return 1 - float64(delta)/float64(weekMs)
}
