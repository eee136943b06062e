package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Skufu/SymptomDesk/internal/textnorm"
)

// Medicine is one catalog record. Derived token fields are filled by
// NewMedicine and never change afterwards.
type Medicine struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Disease  string `json:"disease"`
	Symptoms string `json:"symptoms"`
	Dosage   string `json:"dosage"`
	Image    string `json:"image"`
	URL      string `json:"url"`

	SymptomTokens textnorm.Set `json:"-"`
	DiseaseTokens textnorm.Set `json:"-"`
	BlobTokens    textnorm.Set `json:"-"`
	// Blob is the normalized text of disease, symptoms and name.
	Blob string `json:"-"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NewMedicine trims the raw fields and precomputes the token sets.
func NewMedicine(name, medType, disease, symptoms, dosage, image, url string) Medicine {
	m := Medicine{
		Name:     strings.TrimSpace(name),
		Type:     strings.TrimSpace(medType),
		Disease:  strings.TrimSpace(disease),
		Symptoms: strings.TrimSpace(symptoms),
		Dosage:   strings.TrimSpace(dosage),
		Image:    strings.TrimSpace(image),
		URL:      strings.TrimSpace(url),
	}
	m.SymptomTokens = textnorm.FromText(m.Symptoms)
	m.DiseaseTokens = textnorm.FromText(m.Disease)
	m.Blob = textnorm.Clean(strings.Join([]string{m.Disease, m.Symptoms, m.Name}, " "))
	m.BlobTokens = textnorm.NewSet(strings.Fields(m.Blob)...)
	return m
}

// Key is the dedup key: the lowercase name with every run of
// non-alphanumerics collapsed to one space. Digits survive, so different
// strengths of the same product stay distinct.
func (m Medicine) Key() string {
	k := nonAlnum.ReplaceAllString(strings.ToLower(m.Name), " ")
	return strings.TrimSpace(k)
}

// MatchText is the lowercase name plus blob, used for marker lookups.
func (m Medicine) MatchText() string {
	return strings.ToLower(m.Name) + " " + m.Blob
}

// Conditions splits the comma separated disease field.
func (m Medicine) Conditions() []string {
	var out []string
	for _, p := range strings.Split(m.Disease, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Parse decodes a JSON array of medicine objects. Entries that are not
// objects or have no name are skipped; optional fields that are missing or
// not strings become empty.
func Parse(data []byte) ([]Medicine, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	items := make([]Medicine, 0, len(raw))
	for _, entry := range raw {
		var obj map[string]any
		if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
			continue
		}
		name := stringField(obj, "name")
		if name == "" {
			continue
		}
		medType := stringField(obj, "@type")
		if medType == "" {
			medType = stringField(obj, "type")
		}
		items = append(items, NewMedicine(
			name,
			medType,
			stringField(obj, "disease"),
			stringField(obj, "symptoms"),
			stringField(obj, "dosage"),
			stringField(obj, "image"),
			stringField(obj, "url"),
		))
	}
	return items, nil
}

// Load reads and parses a catalog file.
func Load(path string) ([]Medicine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func stringField(obj map[string]any, key string) string {
	s, ok := obj[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Catalog is an immutable set of medicines plus the symptom vocabulary they
// define. Safe for concurrent readers.
type Catalog struct {
	items      []Medicine
	vocabulary textnorm.Set
}

func New(items []Medicine) *Catalog {
	vocab := make(textnorm.Set)
	for _, it := range items {
		for t := range it.SymptomTokens {
			vocab[t] = struct{}{}
		}
	}
	cp := make([]Medicine, len(items))
	copy(cp, items)
	return &Catalog{items: cp, vocabulary: vocab}
}

// Empty returns a catalog with no items.
func Empty() *Catalog { return New(nil) }

// Catalog lets a *Catalog stand in wherever a lazily loaded Source is
// accepted.
func (c *Catalog) Catalog() *Catalog { return c }

func (c *Catalog) Items() []Medicine {
	if c == nil {
		return nil
	}
	return c.items
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// HasSymptom reports whether any catalog entry lists token as a symptom.
func (c *Catalog) HasSymptom(token string) bool {
	if c == nil {
		return false
	}
	return c.vocabulary.Has(token)
}
