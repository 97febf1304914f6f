package textdiff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified renders a line-granularity unified diff between two text bodies for
// human consumption. It plays no part in the change metric.
func Unified(older, newer, fromLabel, toLabel string) (string, error) {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(older),
		B:        difflib.SplitLines(newer),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("render unified diff: %w", err)
	}
	return out, nil
}
