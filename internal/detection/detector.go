// Package detection contains the detector contract, the concurrent
// coordinator, and the built-in detection strategies.
package detection

import (
	"math"

	"signal-lab/internal/domain"
)

// Detector proposes candidate signals from a window of data points.
// Implementations must treat the window as read-only and must not share
// mutable state across concurrent invocations. New strategies are added by
// implementing this interface, not by modifying the coordinator.
type Detector interface {
	// Detect scans the window and returns candidate signals.
	// An empty window or one below the detector's minimum size yields an
	// empty result, not an error.
	Detect(window []domain.DataPoint) ([]domain.Signal, error)

	// ID returns the detector identifier recorded in signal sources.
	ID() string

	// Type returns the detection strategy family (statistical, pattern,
	// conceptual, ...) used for cross-validation scoring.
	Type() string
}

// mean calculates the arithmetic mean of values.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev calculates the population standard deviation of values.
func stddev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// unionKeywords merges keyword slices preserving set semantics.
func unionKeywords(dst []string, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, kw := range dst {
		seen[kw] = true
	}
	for _, kw := range src {
		if !seen[kw] {
			seen[kw] = true
			dst = append(dst, kw)
		}
	}
	return dst
}

// unionStrings merges string slices preserving set semantics.
func unionStrings(dst []string, src []string) []string {
	return unionKeywords(dst, src)
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
