package textdiff

import (
	"strings"
	"unicode"
)

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Sentences splits a text body into sentence segments. A sentence ends at a
// run of terminal punctuation (. ! ?) followed by whitespace or the end of
// the text. Segments are trimmed and empty ones dropped.
func Sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i
		for end+1 < len(runes) && isTerminal(runes[end+1]) {
			end++
		}
		if end+1 < len(runes) && !unicode.IsSpace(runes[end+1]) {
			i = end
			continue
		}
		if seg := strings.TrimSpace(string(runes[start : end+1])); seg != "" {
			out = append(out, seg)
		}
		i = end
		start = end + 1
	}
	if start < len(runes) {
		if seg := strings.TrimSpace(string(runes[start:])); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
