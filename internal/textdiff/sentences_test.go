package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "plain sentences",
			in:   "The team won. We are proud.",
			want: []string{"The team won.", "We are proud."},
		},
		{
			name: "no terminal punctuation",
			in:   "tickets from 89 pounds",
			want: []string{"tickets from 89 pounds"},
		},
		{
			name: "mixed terminals",
			in:   "Sold out! Really? Yes.",
			want: []string{"Sold out!", "Really?", "Yes."},
		},
		{
			name: "punctuation run stays together",
			in:   "What?! No way.",
			want: []string{"What?!", "No way."},
		},
		{
			name: "inner period without space does not split",
			in:   "Visit example.com today. Buy now.",
			want: []string{"Visit example.com today.", "Buy now."},
		},
		{
			name: "newlines count as whitespace",
			in:   "First line.\nSecond line.",
			want: []string{"First line.", "Second line."},
		},
		{
			name: "trailing text without terminal",
			in:   "Done. And then some",
			want: []string{"Done.", "And then some"},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "whitespace only",
			in:   "   \n\t ",
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Sentences(tc.in))
		})
	}
}
