// Package textnorm turns free text into the bag of lowercase word tokens the
// recommendation engine matches on. Catalog entries and user messages go
// through the same functions so both sides share one token space.
package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var urlPattern = regexp.MustCompile(`http\S+|www\S+`)

// A chained transformer keeps state, so each call gets its own.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Clean lowercases text, removes URLs, folds accents and drops everything
// that is not an ASCII letter or whitespace. Whitespace runs collapse to a
// single space.
func Clean(text string) string {
	t := strings.ToLower(text)
	t = urlPattern.ReplaceAllString(t, "")
	if folded, _, err := transform.String(stripAccents(), t); err == nil {
		t = folded
	}
	t = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, t)
	return strings.Join(strings.Fields(t), " ")
}

// Tokens returns the whitespace separated words of Clean(text), in order and
// with duplicates kept.
func Tokens(text string) []string {
	return strings.Fields(Clean(text))
}

// Set is an unordered collection of tokens.
type Set map[string]struct{}

func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		s[t] = struct{}{}
	}
	return s
}

// FromText is NewSet(Tokens(text)...).
func FromText(text string) Set {
	return NewSet(Tokens(text)...)
}

func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

func (s Set) Len() int { return len(s) }

// Intersect returns the tokens present in both sets.
func (s Set) Intersect(other Set) Set {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set)
	for t := range small {
		if large.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Overlaps reports whether the sets share at least one token.
func (s Set) Overlaps(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for t := range small {
		if large.Has(t) {
			return true
		}
	}
	return false
}

func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Sorted returns the tokens in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
