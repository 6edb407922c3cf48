// Package matcher scores how closely two free-text track strings resemble
// each other.
//
// The metric is a Ratcliff/Obershelp ratio: twice the number of characters
// in matching contiguous blocks divided by the total length of both
// strings. Input strings are case-folded and otherwise untouched; no
// punctuation stripping or accent folding happens here, so scores stay
// comparable across runs. Strings of the form "Title - Artist" are scored
// as opaque text.
package matcher

import "strings"

// Ratio returns a similarity score in [0, 1] for the two strings.
//
// The comparison is case-insensitive, deterministic, and symmetric:
// Ratio(a, b) == Ratio(b, a) for all inputs. 1.0 means the case-folded
// strings are identical; 0.0 means no characters match.
func Ratio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	// Canonical ordering makes the block search symmetric by construction.
	if a > b {
		a, b = b, a
	}

	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	matched := matchingBlockSize(ra, rb)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

// matchingBlockSize counts the characters covered by matching blocks:
// the longest common contiguous run, then recursively the pieces to its
// left and right.
func matchingBlockSize(a, b []rune) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}

	total := size
	total += matchingBlockSize(a[:ai], b[:bi])
	total += matchingBlockSize(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonRun finds the longest contiguous run shared by a and b,
// returning its start offsets and length. Ties resolve to the earliest
// position in a, then in b.
func longestCommonRun(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// lengths[j] is the run length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return ai, bi, size
}
