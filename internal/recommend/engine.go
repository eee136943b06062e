package recommend

import (
	"github.com/Skufu/SymptomDesk/internal/catalog"
	"github.com/Skufu/SymptomDesk/internal/textnorm"
)

// DefaultMaxClusters caps how many recommendations one analysis returns.
const DefaultMaxClusters = 3

// CatalogProvider is satisfied by *catalog.Catalog and *catalog.Source.
type CatalogProvider interface {
	Catalog() *catalog.Catalog
}

// Outcome tells the renderer which reply to build. Insufficient means the
// text had too few symptoms to try; no_match means scoring ran and nothing
// survived.
type Outcome string

const (
	OutcomeInsufficient Outcome = "insufficient_detail"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeRecommended  Outcome = "recommended"
)

// Analysis is the full result of one pass over the user's text.
type Analysis struct {
	Outcome         Outcome          `json:"outcome"`
	AgeGroup        AgeGroup         `json:"ageGroup"`
	RelevantTokens  []string         `json:"relevantTokens"`
	HighSignal      bool             `json:"highSignal"`
	OTCSuggestion   string           `json:"otcSuggestion,omitempty"`
	Clusters        []string         `json:"clusters"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Engine runs the cluster, score and assign pipeline over an injected
// catalog. It holds no per-request state.
type Engine struct {
	catalogs CatalogProvider
	rules    *Rules
}

// New builds an engine. A nil rules value selects DefaultRules.
func New(catalogs CatalogProvider, rules *Rules) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if catalogs == nil {
		catalogs = catalog.Empty()
	}
	return &Engine{catalogs: catalogs, rules: rules}
}

func (e *Engine) Rules() *Rules { return e.rules }

// RelevantTokens returns the distinct tokens of text that are known
// symptoms, in first-seen order.
func (e *Engine) RelevantTokens(text string) []string {
	cat := e.catalogs.Catalog()
	seen := make(map[string]bool)
	var out []string
	for _, t := range textnorm.Tokens(text) {
		if seen[t] {
			continue
		}
		if cat.HasSymptom(t) || e.rules.FallbackSymptoms.Has(t) {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ShouldClarify reports whether the text is too thin to recommend from, and
// how many relevant symptom tokens it has.
func (e *Engine) ShouldClarify(text string) (bool, int) {
	relevant := len(e.RelevantTokens(text))
	return relevant < 2 && !e.hasHighSignal(textnorm.FromText(text)), relevant
}

func (e *Engine) hasHighSignal(tokens textnorm.Set) bool {
	return tokens.Overlaps(e.rules.HighSignal)
}

// Candidates scores every catalog item for one cluster and returns the
// deduplicated list, best first.
func (e *Engine) Candidates(q Query, c DetectedCluster) []Candidate {
	var scored []Candidate
	for _, m := range e.catalogs.Catalog().Items() {
		if cand, ok := e.rules.Score(q, c, m); ok {
			scored = append(scored, cand)
		}
	}
	return Dedupe(scored)
}

// DetectAndRecommend returns at most maxClusters recommendations, one per
// detected cluster and never the same medicine twice.
func (e *Engine) DetectAndRecommend(text string, maxClusters int) []Recommendation {
	if e.catalogs.Catalog().Len() == 0 {
		return nil
	}
	q := e.rules.NewQuery(text)
	if q.Tokens.Len() == 0 {
		return nil
	}
	clusters := e.rules.Detect(q.Tokens)
	if len(clusters) == 0 {
		return nil
	}
	byCluster := make(map[string][]Candidate, len(clusters))
	for _, c := range clusters {
		byCluster[c.Key] = e.Candidates(q, c)
	}
	return Assign(clusters, byCluster, maxClusters)
}

// Analyze decides between asking for more detail and recommending.
func (e *Engine) Analyze(text string, maxClusters int) Analysis {
	q := e.rules.NewQuery(text)
	relevant := e.RelevantTokens(text)
	a := Analysis{
		AgeGroup:        q.AgeGroup,
		RelevantTokens:  relevant,
		HighSignal:      e.hasHighSignal(q.Tokens),
		Clusters:        []string{},
		Recommendations: []Recommendation{},
	}
	if a.RelevantTokens == nil {
		a.RelevantTokens = []string{}
	}

	if len(relevant) < 2 && !a.HighSignal {
		a.Outcome = OutcomeInsufficient
		if q.Tokens.Overlaps(e.rules.OTC.Tokens) {
			a.OTCSuggestion = e.rules.OTC.Suggestion
		}
		return a
	}

	for _, c := range e.rules.Detect(q.Tokens) {
		a.Clusters = append(a.Clusters, c.Key)
	}
	if recs := e.DetectAndRecommend(text, maxClusters); len(recs) > 0 {
		a.Outcome = OutcomeRecommended
		a.Recommendations = recs
		return a
	}
	a.Outcome = OutcomeNoMatch
	return a
}
