package geocode

import (
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

// Normalize returns the matching key of an address: letters and digits only,
// case folded. "Main St. 1" and "main st 1" share the key "mainst1".
func Normalize(s string) string {
	folded := cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, folded)
}

// Similarity scores two normalized strings from 0 (nothing in common) to
// 100 (identical) by edit distance relative to the longer string. When one
// string is at least half again as long as the other, the shorter one is
// also scored against its best matching substring of the longer one, scaled
// by 0.9 (0.6 beyond eight times the length), and the higher score wins.
func Similarity(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	score := 100 * (1 - float64(d)/float64(len(rb)))
	if len(ra) > 0 {
		if lenRatio := float64(len(rb)) / float64(len(ra)); lenRatio >= 1.5 {
			scale := 0.9
			if lenRatio > 8 {
				scale = 0.6
			}
			partial := 100 * (1 - float64(substringDistance(ra, rb))/float64(len(ra)))
			score = max(score, partial*scale)
		}
	}
	return int(score + 0.5)
}

// substringDistance is the smallest edit distance between needle and any
// substring of haystack: Levenshtein with free leading and trailing
// characters of haystack.
func substringDistance(needle, haystack []rune) int {
	prev := make([]int, len(haystack)+1)
	cur := make([]int, len(haystack)+1)
	for i := 1; i <= len(needle); i++ {
		cur[0] = i
		for j := 1; j <= len(haystack); j++ {
			cost := 1
			if needle[i-1] == haystack[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j-1]+cost, prev[j]+1, cur[j-1]+1)
		}
		prev, cur = cur, prev
	}
	return slices.Min(prev)
}
