// internal/logic/split.go
package logic

import "strings"

/*
 * Condition splitter.
 *
 * Finds the next top-level logical operator in a condition string and
 * splits the string around it. There is no grammar: the search works on
 * byte offsets and only ever scans a bounded region, so an operator inside
 * a parenthesised group is never chosen.
 *
 * Region selection, by position of the first "(":
 *   - none:         the whole string
 *   - at offset 0:  everything after its matching ")"; if that ")" is the
 *                   last byte, the string is one parenthesised group and is
 *                   returned unwrapped as Left with no operator
 *   - later:        only the prefix before that "("
 *
 * Inside the region the first "&&" wins; "||" is used only when the region
 * has no "&&". This is positional preference, not precedence: it applies
 * only within the bounded region. The split itself is applied to the full
 * string and both sides are trimmed.
 *
 * Literal contents are masked (same length, offsets preserved) before any
 * search, so "&&", "||" or "(" inside quotes never drive a split.
 */

// Split is one decomposition step. An empty Op means Left is the unwrapped
// body of a condition that was entirely parenthesised.
type Split struct {
	Left  string
	Op    LogicalOp
	Right string
}

// SplitCondition locates the next top-level split point in cond.
// Returns false when cond is a single leaf clause.
func SplitCondition(cond string) (Split, bool) {
	s := strings.TrimSpace(cond)
	masked := maskLiterals(s)

	start, end := 0, len(s)
	switch pos := strings.IndexByte(masked, '('); {
	case pos < 0:
		// whole string
	case pos == 0:
		closing := matchingParen(masked, 0)
		if closing == len(s)-1 {
			return Split{Left: strings.TrimSpace(s[1:closing])}, true
		}
		if closing < 0 {
			// unclosed group: search what follows the opening paren
			start = 1
		} else {
			start = closing + 1
		}
	default:
		end = pos
	}

	region := masked[start:end]
	op := And
	idx := strings.Index(region, string(And))
	if idx < 0 {
		op = Or
		idx = strings.Index(region, string(Or))
	}
	if idx < 0 {
		return Split{}, false
	}

	at := start + idx
	return Split{
		Left:  strings.TrimSpace(s[:at]),
		Op:    op,
		Right: strings.TrimSpace(s[at+len(op):]),
	}, true
}

// matchingParen returns the offset of the ")" closing the "(" at open,
// or -1 when the group is never closed.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// maskLiterals blanks the inside of quoted literals with '_' so searches
// skip them. Strings with unbalanced quotes are returned unchanged.
func maskLiterals(s string) string {
	if !quotesBalanced(s) {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if !isQuote(b[i]) {
			continue
		}
		q := b[i]
		j := i + 1
		for ; j < len(b) && b[j] != q; j++ {
			b[j] = '_'
		}
		i = j
	}
	return string(b)
}
