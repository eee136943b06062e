package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and punctuation", "I have FEVER, headache!", "i have fever headache"},
		{"urls removed", "see https://example.com/x and www.foo.org now", "see and now"},
		{"digits dropped", "Paracetamol 500mg Tablet", "paracetamol mg tablet"},
		{"whitespace collapsed", "  runny\tnose \n\n sneezing ", "runny nose sneezing"},
		{"accents folded", "Diarrhée légère", "diarrhee legere"},
		{"apostrophes join", "I'm sick", "im sick"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Clean(tc.in))
		})
	}
}

func TestTokensKeepOrderAndDuplicates(t *testing.T) {
	assert.Equal(t, []string{"cough", "cough", "phlegm"}, Tokens("Cough, cough & phlegm"))
	assert.Empty(t, Tokens(""))
}

func TestSetOperations(t *testing.T) {
	a := NewSet("fever", "pain", "", "cough")
	b := FromText("pain and fever")

	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Has("fever"))
	assert.False(t, a.Has(""))
	assert.Equal(t, []string{"fever", "pain"}, a.Intersect(b).Sorted())
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(NewSet("rash")))
	assert.Equal(t, []string{"and", "cough", "fever", "pain"}, a.Union(b).Sorted())
}
