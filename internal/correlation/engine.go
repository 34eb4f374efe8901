package correlation

import (
	"sort"

	"signal-lab/internal/domain"
)

// Config holds correlation thresholds.
type Config struct {
	MergeThreshold  float64 // pairwise similarity above which signals merge (default 0.8)
	RelateThreshold float64 // similarity above which signals link as related (default 0.5)
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MergeThreshold:  0.8,
		RelateThreshold: 0.5,
	}
}

// Correlator groups deduplicated signals by type and day bucket, merges
// highly correlated members, and records weaker relationships as context
// links on the survivors.
type Correlator struct {
	config Config
}

// NewCorrelator creates a correlator.
func NewCorrelator(config Config) *Correlator {
	def := DefaultConfig()
	if config.MergeThreshold <= 0 {
		config.MergeThreshold = def.MergeThreshold
	}
	if config.RelateThreshold <= 0 {
		config.RelateThreshold = def.RelateThreshold
	}
	return &Correlator{config: config}
}

// groupKey buckets signals for correlation.
type groupKey struct {
	signalType domain.SignalType
	dayBucket  int64
}

// Correlate processes one batch of deduplicated signals. Within each
// (type, day-bucket) group of two or more members it computes the pairwise
// similarity matrix, merges every connected component of pairs above the
// merge threshold (a signal may merge transitively with more than one
// partner in one pass), then links surviving signals whose similarity
// exceeds the relate threshold. Output order is canonical:
// (firstDetected, id) ascending.
func (c *Correlator) Correlate(signals []domain.Signal) []domain.Signal {
	groups := make(map[groupKey][]domain.Signal)
	var keys []groupKey
	for _, s := range signals {
		k := groupKey{signalType: s.Type, dayBucket: s.FirstDetectedMs / DayMs}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], s)
	}

	var result []domain.Signal
	for _, k := range keys {
		result = append(result, c.correlateGroup(groups[k])...)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].FirstDetectedMs != result[j].FirstDetectedMs {
			return result[i].FirstDetectedMs < result[j].FirstDetectedMs
		}
		return result[i].SignalID < result[j].SignalID
	})
	return result
}

// correlateGroup merges and links the members of one (type, day) group.
func (c *Correlator) correlateGroup(group []domain.Signal) []domain.Signal {
	n := len(group)
	if n < 2 {
		return group
	}

	// Pairwise similarity matrix.
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := Similarity(&group[i], &group[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}

	// Union-find over pairs above the merge threshold.
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if matrix[i][j] > c.config.MergeThreshold {
				uf.union(i, j)
			}
		}
	}

	// Fold each connected component into one survivor.
	components := make(map[int][]domain.Signal)
	var roots []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, seen := components[root]; !seen {
			roots = append(roots, root)
		}
		components[root] = append(components[root], group[i])
	}

	survivors := make([]domain.Signal, 0, len(roots))
	for _, root := range roots {
		survivors = append(survivors, mergeGroup(components[root]))
	}

	// Weak relations between survivors: recomputed post-merge so links
	// reflect the aggregates actually emitted.
	for i := range survivors {
		var related []string
		for j := range survivors {
			if i == j {
				continue
			}
			if Similarity(&survivors[i], &survivors[j]) > c.config.RelateThreshold {
				related = append(related, survivors[j].SignalID)
			}
		}
		sort.Strings(related)
		survivors[i].Context.RelatedSignalIDs = related
	}
	return survivors
}

// unionFind is a path-compressing disjoint set over [0, n).
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		if rb < ra {
			ra, rb = rb, ra
		}
		u.parent[rb] = ra
	}
}
