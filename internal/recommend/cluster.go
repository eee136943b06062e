package recommend

import (
	"sort"

	"github.com/Skufu/SymptomDesk/internal/textnorm"
)

// DetectedCluster is a cluster that shares at least one token with the
// user's text, together with those shared tokens.
type DetectedCluster struct {
	Cluster
	Overlap textnorm.Set
}

// Detect ranks the clusters overlapping tokens by overlap size. Equal
// overlaps keep the declaration order of the rule table.
func (r *Rules) Detect(tokens textnorm.Set) []DetectedCluster {
	var out []DetectedCluster
	for _, c := range r.Clusters {
		overlap := tokens.Intersect(c.Tokens)
		if overlap.Len() == 0 {
			continue
		}
		out = append(out, DetectedCluster{Cluster: c, Overlap: overlap})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Overlap.Len() > out[j].Overlap.Len()
	})
	return out
}
