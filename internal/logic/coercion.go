// internal/logic/coercion.go
package logic

import (
	"strings"

	"github.com/spf13/cast"
)

/*
 * Comparison coercion.
 *
 * Stored values and clause literals are both strings. The comparison
 * contract is explicit instead of relying on implicit coercion:
 *
 *   1. Trim surrounding whitespace from both operands.
 *   2. If both parse as numbers, compare as float64.
 *   3. Otherwise compare as strings, ordinally (byte order).
 *
 * Consequences worth knowing:
 *   - "5" == "5.0" (numeric), "05" == "5" (numeric)
 *   - "" never parses, so a blank value equals only a blank literal and
 *     orders before any non-blank text ("" < "1" is true)
 *   - "abc" > "5" is a string comparison
 */

// Kind reports how a pair of operands is compared.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

// Coerced holds a pair of operands ready for comparison.
type Coerced struct {
	Kind        Kind
	Left, Right float64 // valid when Kind == KindNumeric
	LeftText    string
	RightText   string
}

// Coerce decides the comparison kind for value and literal.
func Coerce(value, literal string) Coerced {
	v := strings.TrimSpace(value)
	l := strings.TrimSpace(literal)
	c := Coerced{Kind: KindText, LeftText: v, RightText: l}

	lv, okv := toNumber(v)
	ll, okl := toNumber(l)
	if okv && okl {
		c.Kind = KindNumeric
		c.Left, c.Right = lv, ll
	}
	return c
}

// compareLoose performs the three-way comparison described above.
func compareLoose(value, literal string) int {
	c := Coerce(value, literal)
	if c.Kind == KindNumeric {
		switch {
		case c.Left < c.Right:
			return -1
		case c.Left > c.Right:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(c.LeftText, c.RightText)
}

// toNumber parses decimal notation only; cast alone would also accept
// forms like "0x1p-2" that never appear in entered data.
func toNumber(s string) (float64, bool) {
	if !isNumeric(s) {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return f, true
}
