package recommend

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Skufu/SymptomDesk/internal/textnorm"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type FormClass string

const (
	FormSolid   FormClass = "solid"
	FormLiquid  FormClass = "liquid"
	FormTopical FormClass = "topical"
	FormNone    FormClass = ""
)

// FormUnknown is reported when no form rule matches and the type is empty.
const FormUnknown = "unknown"

type Cluster struct {
	Key    string
	Label  string
	Tokens textnorm.Set
}

// FormRule matches a dosage form by substring on the lowercase type field
// (TypeMarkers) or name field (NameMarkers).
type FormRule struct {
	Name        string
	Class       FormClass
	TypeMarkers []string
	NameMarkers []string
}

type OTCHint struct {
	Tokens     textnorm.Set
	Suggestion string
}

// Rules holds every fixed lookup table the engine consults.
type Rules struct {
	Clusters    []Cluster
	SkinCluster string
	Forms       []FormRule

	AntibioticMarkers    []string
	AntihistamineMarkers []string
	CoughMarkers         []string

	CoughIndicators   textnorm.Set
	AllergyIndicators textnorm.Set
	ChildMaxAge       int

	HighSignal       textnorm.Set
	FallbackSymptoms textnorm.Set
	OTC              OTCHint

	childWords *regexp.Regexp
}

type rulesFile struct {
	Clusters []struct {
		Key    string   `yaml:"key"`
		Label  string   `yaml:"label"`
		Tokens []string `yaml:"tokens"`
	} `yaml:"clusters"`
	SkinCluster string `yaml:"skin_cluster"`
	Forms       []struct {
		Name        string   `yaml:"name"`
		Class       string   `yaml:"class"`
		Type        []string `yaml:"type"`
		NameMarkers []string `yaml:"name_markers"`
	} `yaml:"forms"`
	Markers struct {
		Antibiotic    []string `yaml:"antibiotic"`
		Antihistamine []string `yaml:"antihistamine"`
		Cough         []string `yaml:"cough"`
	} `yaml:"markers"`
	Indicators struct {
		Cough   []string `yaml:"cough"`
		Allergy []string `yaml:"allergy"`
		Child   []string `yaml:"child"`
	} `yaml:"indicators"`
	ChildMaxAge      int      `yaml:"child_max_age"`
	HighSignal       []string `yaml:"high_signal"`
	FallbackSymptoms []string `yaml:"fallback_symptoms"`
	OTCHint          struct {
		Tokens     []string `yaml:"tokens"`
		Suggestion string   `yaml:"suggestion"`
	} `yaml:"otc_hint"`
}

var defaultRules = sync.OnceValues(func() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
})

// DefaultRules returns the rule tables compiled into the binary.
func DefaultRules() *Rules {
	r, err := defaultRules()
	if err != nil {
		panic(fmt.Sprintf("recommend: embedded rules invalid: %v", err))
	}
	return r
}

// LoadRules reads a YAML rules file with the same layout as the embedded one.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Clusters) == 0 {
		return nil, fmt.Errorf("rules: no clusters defined")
	}

	r := &Rules{
		SkinCluster:          strings.TrimSpace(f.SkinCluster),
		AntibioticMarkers:    lowerAll(f.Markers.Antibiotic),
		AntihistamineMarkers: lowerAll(f.Markers.Antihistamine),
		CoughMarkers:         lowerAll(f.Markers.Cough),
		CoughIndicators:      textnorm.NewSet(lowerAll(f.Indicators.Cough)...),
		AllergyIndicators:    textnorm.NewSet(lowerAll(f.Indicators.Allergy)...),
		ChildMaxAge:          f.ChildMaxAge,
		HighSignal:           textnorm.NewSet(lowerAll(f.HighSignal)...),
		FallbackSymptoms:     textnorm.NewSet(lowerAll(f.FallbackSymptoms)...),
		OTC: OTCHint{
			Tokens:     textnorm.NewSet(lowerAll(f.OTCHint.Tokens)...),
			Suggestion: strings.TrimSpace(f.OTCHint.Suggestion),
		},
	}

	seen := make(map[string]bool, len(f.Clusters))
	for _, c := range f.Clusters {
		key := strings.TrimSpace(c.Key)
		if key == "" {
			return nil, fmt.Errorf("rules: cluster with empty key")
		}
		if seen[key] {
			return nil, fmt.Errorf("rules: duplicate cluster %q", key)
		}
		seen[key] = true
		tokens := textnorm.NewSet(lowerAll(c.Tokens)...)
		if tokens.Len() == 0 {
			return nil, fmt.Errorf("rules: cluster %q has no tokens", key)
		}
		label := strings.TrimSpace(c.Label)
		if label == "" {
			label = key
		}
		r.Clusters = append(r.Clusters, Cluster{Key: key, Label: label, Tokens: tokens})
	}

	for _, fr := range f.Forms {
		class := FormClass(strings.TrimSpace(fr.Class))
		switch class {
		case FormSolid, FormLiquid, FormTopical:
		default:
			return nil, fmt.Errorf("rules: form %q has unknown class %q", fr.Name, fr.Class)
		}
		name := strings.ToLower(strings.TrimSpace(fr.Name))
		if name == "" {
			return nil, fmt.Errorf("rules: form with empty name")
		}
		r.Forms = append(r.Forms, FormRule{
			Name:        name,
			Class:       class,
			TypeMarkers: lowerAll(fr.Type),
			NameMarkers: lowerAll(fr.NameMarkers),
		})
	}

	if words := lowerAll(f.Indicators.Child); len(words) > 0 {
		quoted := make([]string, len(words))
		for i, w := range words {
			quoted[i] = regexp.QuoteMeta(w)
		}
		r.childWords = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return r, nil
}

// Cluster looks a cluster up by key.
func (r *Rules) Cluster(key string) (Cluster, bool) {
	for _, c := range r.Clusters {
		if c.Key == key {
			return c, true
		}
	}
	return Cluster{}, false
}

// InferForm returns the first form whose markers appear in the type or name.
// Unmatched items keep their lowercase type (e.g. "powder") with no class.
func (r *Rules) InferForm(medType, name string) (string, FormClass) {
	t := strings.ToLower(strings.TrimSpace(medType))
	n := strings.ToLower(strings.TrimSpace(name))
	for _, f := range r.Forms {
		if containsAny(t, f.TypeMarkers) || containsAny(n, f.NameMarkers) {
			return f.Name, f.Class
		}
	}
	if t != "" {
		return t, FormNone
	}
	return FormUnknown, FormNone
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(text string, markers []string) bool {
	if text == "" {
		return false
	}
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
