package recommend

import (
	"sort"

	"github.com/Skufu/SymptomDesk/internal/catalog"
)

// Recommendation is one medicine picked for one detected cluster.
type Recommendation struct {
	ClusterKey   string           `json:"clusterKey"`
	ClusterLabel string           `json:"clusterLabel"`
	Medicine     catalog.Medicine `json:"medicine"`
	Why          []string         `json:"why"`
	Score        float64          `json:"score"`
}

// Dedupe keeps the best scoring candidate per medicine key and returns them
// sorted by score, highest first. Equal scores keep first-seen order.
func Dedupe(candidates []Candidate) []Candidate {
	best := make(map[string]int, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Medicine.Key()
		if key == "" {
			continue
		}
		if i, ok := best[key]; ok {
			if c.Score > out[i].Score {
				out[i] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Assign walks clusters in rank order and gives each one the best candidate
// whose medicine has not been picked yet. At most maxClusters picks are made;
// values below one are treated as one. candidates is keyed by cluster key and
// each list must already be sorted by Dedupe.
func Assign(clusters []DetectedCluster, candidates map[string][]Candidate, maxClusters int) []Recommendation {
	if maxClusters < 1 {
		maxClusters = 1
	}
	used := make(map[string]bool)
	var picks []Recommendation
	for _, c := range clusters {
		if len(picks) >= maxClusters {
			break
		}
		for _, cand := range candidates[c.Key] {
			key := cand.Medicine.Key()
			if key == "" || used[key] {
				continue
			}
			used[key] = true
			picks = append(picks, Recommendation{
				ClusterKey:   c.Key,
				ClusterLabel: c.Label,
				Medicine:     cand.Medicine,
				Why:          cand.Why,
				Score:        cand.Score,
			})
			break
		}
	}
	return picks
}
