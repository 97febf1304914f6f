package textdiff

import "math/bits"

// lcsLength returns the length of the longest common subsequence of a and b
// at rune granularity. The bit-parallel row update handles 64 positions of a
// per word operation, which keeps full page bodies cheap to compare.
func lcsLength(a, b []rune) int {
	n := len(a)
	if n == 0 || len(b) == 0 {
		return 0
	}
	words := (n + 63) / 64

	match := make(map[rune][]uint64, 64)
	for i, r := range a {
		row := match[r]
		if row == nil {
			row = make([]uint64, words)
			match[r] = row
		}
		row[i>>6] |= 1 << uint(i&63)
	}

	v := make([]uint64, words)
	for i := range v {
		v[i] = ^uint64(0)
	}
	for _, r := range b {
		m := match[r]
		if m == nil {
			continue
		}
		var carry, borrow uint64
		for k := 0; k < words; k++ {
			u := v[k] & m[k]
			sum, carryOut := bits.Add64(v[k], u, carry)
			diff, borrowOut := bits.Sub64(v[k], u, borrow)
			v[k] = sum | diff
			carry, borrow = carryOut, borrowOut
		}
	}

	// Cleared bits within the first n positions mark LCS contributions.
	length := 0
	for k := 0; k < words; k++ {
		zeros := ^v[k]
		if k == words-1 {
			if rem := uint(n & 63); rem != 0 {
				zeros &= (1 << rem) - 1
			}
		}
		length += bits.OnesCount64(zeros)
	}
	return length
}

// ChangePercent measures how much of the older text was disturbed to produce
// the newer one: edit operations at character granularity (insertions plus
// deletions, a substitution counting as one of each) over the older text's
// length. Pure additions therefore still raise the score, and the value may
// exceed 100. An empty older body counts as a full change.
func ChangePercent(older, newer string) float64 {
	if older == newer {
		return 0
	}
	if older == "" {
		return 100
	}
	a := []rune(older)
	b := []rune(newer)
	edits := len(a) + len(b) - 2*lcsLength(a, b)
	return 100 * float64(edits) / float64(len(a))
}
