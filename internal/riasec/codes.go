package riasec

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultMaxCodeLength is the longest permutation generated for compatibility
// checks.
const DefaultMaxCodeLength = 3

// CodeSet is a set of category code strings.
type CodeSet map[string]struct{}

// Has reports whether the normalized code is a member.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns members ordered by length, then lexically.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// NormalizeCode strips whitespace and punctuation and upper-cases the rest.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// AllowedCodes returns every ordered arrangement of 1 to maxLen distinct
// categories from top. maxLen <= 0 means DefaultMaxCodeLength.
func AllowedCodes(top []Category, maxLen int) CodeSet {
	if maxLen <= 0 {
		maxLen = DefaultMaxCodeLength
	}
	if maxLen > len(top) {
		maxLen = len(top)
	}

	set := make(CodeSet)
	used := make([]bool, len(top))
	var prefix []byte

	var walk func()
	walk = func() {
		if len(prefix) > 0 {
			set[string(prefix)] = struct{}{}
		}
		if len(prefix) == maxLen {
			return
		}
		for i, c := range top {
			if used[i] {
				continue
			}
			used[i] = true
			prefix = append(prefix, string(c)...)
			walk()
			prefix = prefix[:len(prefix)-len(c)]
			used[i] = false
		}
	}
	walk()

	return set
}

// Compatible reports whether the normalized code is exactly one of the
// allowed arrangements. Containment is not enough.
func Compatible(code string, allowed CodeSet) bool {
	normalized := NormalizeCode(code)
	return normalized != "" && allowed.Has(normalized)
}

// Letters returns the distinct category symbols of a normalized code.
func Letters(code string) map[rune]bool {
	letters := make(map[rune]bool)
	for _, r := range NormalizeCode(code) {
		letters[r] = true
	}
	return letters
}
