package recommend

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Skufu/SymptomDesk/internal/catalog"
	"github.com/Skufu/SymptomDesk/internal/textnorm"
)

const (
	weightClusterMatch = 4.0
	weightSymptomMatch = 1.0
	weightDiseaseMatch = 0.5
	weightBlobMatch    = 0.25

	formPreferred          = 1.2
	adultLiquidPenalty     = -0.2
	childSolidPenalty      = -1.0
	topicalOffCluster      = -1.5
	topicalWithoutSkin     = -0.5
	coughProductBoost      = 0.9
	antihistamineNoAllergy = -0.7
	antihistamineAllergy   = 0.7
	antibioticPenalty      = -1.0

	maxWhyTokens   = 4
	maxCategoryWhy = 2
)

type AgeGroup string

const (
	AgeAdult AgeGroup = "adult"
	AgeChild AgeGroup = "child"
)

type dosageTier struct {
	pattern *regexp.Regexp
	bonus   float64
	label   string
}

// Checked in order; the first hit wins.
var dosageTiers = []dosageTier{
	{
		pattern: regexp.MustCompile(`\b(once\s*(a\s*)?day|once\s*daily|od|1\s*(tablet|tab)\s*daily|1\s*(tablet|tab)\s*once\s*daily)\b`),
		bonus:   1.5,
		label:   "once daily",
	},
	{
		pattern: regexp.MustCompile(`\b(twice\s*(a\s*)?day|twice\s*daily|bid|2\s*times\s*(a\s*)?day)\b`),
		bonus:   0.6,
		label:   "twice daily",
	},
	{
		pattern: regexp.MustCompile(`\b(three\s*times|3\s*times|every\s*\d+\s*(hours?|hrs?)|q\d+h)\b`),
		bonus:   -0.4,
		label:   "multiple times daily",
	},
}

var agePattern = regexp.MustCompile(`\b(\d{1,2})\s*(?:yo|y/o|years?\s*old)\b`)

// DosageSimplicity scores how easy a dosage instruction is to follow.
// Unrecognized text scores zero with no label.
func DosageSimplicity(dosage string) (float64, string) {
	d := strings.ToLower(strings.TrimSpace(dosage))
	if d == "" {
		return 0, ""
	}
	for _, tier := range dosageTiers {
		if tier.pattern.MatchString(d) {
			return tier.bonus, tier.label
		}
	}
	return 0, ""
}

// InferAgeGroup reports child when the text names a child or states an age
// at or below ChildMaxAge.
func (r *Rules) InferAgeGroup(text string) AgeGroup {
	t := strings.ToLower(text)
	if r.childWords != nil && r.childWords.MatchString(t) {
		return AgeChild
	}
	if m := agePattern.FindStringSubmatch(t); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age <= r.ChildMaxAge {
			return AgeChild
		}
	}
	return AgeAdult
}

func (r *Rules) IsAntibiotic(m catalog.Medicine) bool {
	return containsAny(m.MatchText(), r.AntibioticMarkers)
}

func (r *Rules) IsAntihistamine(m catalog.Medicine) bool {
	return containsAny(m.MatchText(), r.AntihistamineMarkers)
}

func (r *Rules) IsCoughProduct(m catalog.Medicine) bool {
	return containsAny(m.MatchText(), r.CoughMarkers)
}

// Query is the per-request view of the user's text.
type Query struct {
	Text     string
	Tokens   textnorm.Set
	AgeGroup AgeGroup

	hasCough   bool
	hasAllergy bool
	hasSkin    bool
}

func (r *Rules) NewQuery(text string) Query {
	tokens := textnorm.FromText(text)
	q := Query{
		Text:       text,
		Tokens:     tokens,
		AgeGroup:   r.InferAgeGroup(text),
		hasCough:   tokens.Overlaps(r.CoughIndicators),
		hasAllergy: tokens.Overlaps(r.AllergyIndicators),
	}
	if skin, ok := r.Cluster(r.SkinCluster); ok {
		q.hasSkin = tokens.Overlaps(skin.Tokens)
	}
	return q
}

// Candidate is one medicine scored for one cluster.
type Candidate struct {
	Medicine catalog.Medicine
	Score    float64
	Why      []string
}

// Score gates and scores a single catalog item for a cluster. The second
// return is false when the item is ineligible or scores at or below zero.
func (r *Rules) Score(q Query, c DetectedCluster, m catalog.Medicine) (Candidate, bool) {
	if m.Image == "" {
		return Candidate{}, false
	}
	if r.IsAntibiotic(m) {
		return Candidate{}, false
	}
	symptomMatch := q.Tokens.Intersect(m.SymptomTokens)
	if symptomMatch.Len() == 0 {
		return Candidate{}, false
	}
	clusterMatch := symptomMatch.Intersect(c.Tokens)
	if clusterMatch.Len() == 0 {
		return Candidate{}, false
	}

	base := weightClusterMatch*float64(clusterMatch.Len()) +
		weightSymptomMatch*float64(symptomMatch.Len()) +
		weightDiseaseMatch*float64(q.Tokens.Intersect(m.DiseaseTokens).Len()) +
		weightBlobMatch*float64(q.Tokens.Intersect(m.BlobTokens).Len())

	form, class := r.InferForm(m.Type, m.Name)
	formBonus := r.formBonus(q, c, class)
	dosageBonus, dosageLabel := DosageSimplicity(m.Dosage)
	categoryBonus, categoryWhy := r.categoryBoost(q, m)

	total, ok := totalScore(base, formBonus, dosageBonus, categoryBonus)
	if !ok {
		return Candidate{}, false
	}

	matched := clusterMatch.Sorted()
	if len(matched) > maxWhyTokens {
		matched = matched[:maxWhyTokens]
	}
	why := []string{"Matches your symptoms: " + strings.Join(matched, ", ")}
	switch {
	case q.AgeGroup == AgeChild && class == FormLiquid:
		why = append(why, fmt.Sprintf("Preferred form for a child: %s", form))
	case q.AgeGroup == AgeAdult && class == FormSolid:
		why = append(why, fmt.Sprintf("Preferred adult form: %s", form))
	case form != FormUnknown:
		why = append(why, fmt.Sprintf("Form suitability: %s", form))
	}
	if dosageLabel != "" {
		why = append(why, "Simple dosing: "+dosageLabel)
	}
	if len(categoryWhy) > maxCategoryWhy {
		categoryWhy = categoryWhy[:maxCategoryWhy]
	}
	why = append(why, categoryWhy...)

	return Candidate{Medicine: m, Score: total, Why: why}, true
}

// totalScore sums the score parts. Totals at or below zero are not eligible.
func totalScore(parts ...float64) (float64, bool) {
	total := 0.0
	for _, p := range parts {
		total += p
	}
	return total, total > 0
}

func (r *Rules) formBonus(q Query, c DetectedCluster, class FormClass) float64 {
	bonus := 0.0
	switch q.AgeGroup {
	case AgeChild:
		switch class {
		case FormLiquid:
			bonus += formPreferred
		case FormSolid:
			bonus += childSolidPenalty
		}
	default:
		switch class {
		case FormSolid:
			bonus += formPreferred
		case FormLiquid:
			bonus += adultLiquidPenalty
		}
	}
	if class == FormTopical {
		if c.Key != r.SkinCluster {
			bonus += topicalOffCluster
		} else if !q.hasSkin {
			bonus += topicalWithoutSkin
		}
	}
	return bonus
}

// categoryBoost nudges products toward the kind of complaint the user
// describes. The antibiotic penalty only matters if the hard antibiotic gate
// in Score is ever relaxed.
func (r *Rules) categoryBoost(q Query, m catalog.Medicine) (float64, []string) {
	isAntihistamine := r.IsAntihistamine(m)
	score := 0.0
	var why []string

	if q.hasCough {
		if r.IsCoughProduct(m) {
			score += coughProductBoost
			why = append(why, "Cough-focused product")
		}
		if isAntihistamine && !q.hasAllergy {
			score += antihistamineNoAllergy
			why = append(why, "Less suitable without allergy symptoms")
		}
	}
	if q.hasAllergy && isAntihistamine {
		score += antihistamineAllergy
		why = append(why, "Fits allergy indicators (runny nose/sneezing/itching)")
	}
	if r.IsAntibiotic(m) {
		score += antibioticPenalty
		why = append(why, "Prescription antibiotic (not OTC by default)")
	}
	return score, why
}
