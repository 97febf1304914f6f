// Package textdiff computes the change metric between two captures of a page
// body. The percentage is character-granular so it answers "how much
// changed"; the added and removed segments are sentence-granular so they
// answer "what changed".
package textdiff

// Result holds the outcome of comparing two versions of a page body.
type Result struct {
	ChangePct float64  `json:"change_pct"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
}

// Compare diffs the older body against the newer one. Added segments are
// sentences present only in the newer body, in newer order; removed segments
// are sentences present only in the older body, in older order. Identical
// inputs always yield an identical zero Result.
func Compare(older, newer string) Result {
	if older == newer {
		return Result{}
	}
	res := Result{ChangePct: ChangePercent(older, newer)}

	olderSents := Sentences(older)
	newerSents := Sentences(newer)
	olderSet := make(map[string]struct{}, len(olderSents))
	for _, s := range olderSents {
		olderSet[s] = struct{}{}
	}
	newerSet := make(map[string]struct{}, len(newerSents))
	for _, s := range newerSents {
		newerSet[s] = struct{}{}
	}
	for _, s := range newerSents {
		if _, ok := olderSet[s]; !ok {
			res.Added = append(res.Added, s)
		}
	}
	for _, s := range olderSents {
		if _, ok := newerSet[s]; !ok {
			res.Removed = append(res.Removed, s)
		}
	}
	return res
}
