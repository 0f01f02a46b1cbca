// internal/logic/validate.go
package logic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Structural validation.
 *
 * Walks the token sequence once and reports every defect it can find; it
 * never stops at the first. An empty result means the condition is valid.
 *
 * Rules:
 *   - "(" / ")" counts and "[" / "]" counts must match (one global defect
 *     per mismatched pair type)
 *   - after "(": "(", ")" or "["
 *   - after ")" (unless last): ")" or an operator
 *   - comparison operator: not first, not last, not chained two tokens
 *     after another comparison, followed by a number or quoted value
 *   - logical operator: not first, not last, followed by "(" or "["
 *   - "]" (unless last): opened two tokens earlier, followed by ")", "["
 *     or a comparison operator
 *   - bare identifiers must name a field, a "<form>_complete" status
 *     field, or an event of the project
 *
 * A "(" in last position adds no defect of its own; the symmetry check
 * already covers it, so "((" yields exactly one defect.
 */

// Metadata answers existence questions about a project.
type Metadata interface {
	HasField(name string) bool
	HasEvent(name string) bool
	HasInstrument(name string) bool
}

// Defect is one validation finding. Index is the offending token's index,
// or -1 for findings about the condition as a whole.
type Defect struct {
	Index   int
	Token   string
	Message string
}

func (d Defect) String() string {
	return d.Message
}

// Messages flattens defects to their messages.
func Messages(defects []Defect) []string {
	out := make([]string, len(defects))
	for i, d := range defects {
		out[i] = d.Message
	}
	return out
}

// ValidateSyntax tokenizes cond and validates it. Unbalanced quotes are
// reported as a defect instead of being skipped silently.
func ValidateSyntax(cond string, meta Metadata) []Defect {
	tokens, err := TokenizeStrict(cond)
	var defects []Defect
	if errors.Is(err, types.ErrUnbalancedQuotes) {
		defects = append(defects, Defect{
			Index:   -1,
			Message: "Unbalanced quotes. A quoted value is never closed.",
		})
	}
	return append(defects, Validate(tokens, meta)...)
}

// Validate checks a token sequence. A nil meta skips identifier lookups.
func Validate(tokens []Token, meta Metadata) []Defect {
	var defects []Defect
	add := func(i int, format string, args ...any) {
		d := Defect{Index: i, Message: fmt.Sprintf(format, args...)}
		if i >= 0 {
			d.Token = tokens[i].Text
		}
		defects = append(defects, d)
	}

	if count(tokens, OpenParen) != count(tokens, CloseParen) {
		add(-1, "Odd number of parenthesis (. You've either added an extra parenthesis, or forgot to close one.")
	}
	if count(tokens, OpenBracket) != count(tokens, CloseBracket) {
		add(-1, "Odd number of square brackets [. You've either added an extra bracket, or forgot to close one.")
	}

	last := len(tokens) - 1
	for i, t := range tokens {
		switch t.Kind {
		case OpenParen:
			if i < last {
				next := tokens[i+1]
				if next.Kind != OpenParen && next.Kind != CloseParen && next.Kind != OpenBracket {
					add(i, "Invalid %s after (.", next.Text)
				}
			}

		case CloseParen:
			if i < last {
				next := tokens[i+1]
				if next.Kind != CloseParen && !isOperator(next) {
					add(i, "Invalid %s after ).", next.Text)
				}
			}

		case RelationalOperator:
			switch {
			case i == 0:
				add(i, "Cannot have a comparison operator %s as the first part in syntax.", t.Text)
			case i == last:
				add(i, "Cannot have a comparison operator %s as the last part in syntax.", t.Text)
			default:
				if i >= 2 && chainsComparison(tokens[i-2]) {
					add(i, "Invalid %s. You cannot chain comparison operators together, you must use an and (&&) or an or (||).", t.Text)
				}
				next := tokens[i+1]
				if next.Kind != NumberLiteral && next.Kind != StringLiteral {
					add(i, "Invalid %s after %s.", next.Text, t.Text)
				}
			}

		case LogicalOperator:
			switch {
			case i == 0:
				add(i, "Cannot have a logical operator %s as the first part in syntax.", t.Text)
			case i == last:
				add(i, "Cannot have a logical operator %s as the last part in syntax.", t.Text)
			default:
				next := tokens[i+1]
				if next.Kind != OpenParen && next.Kind != OpenBracket {
					add(i, "Invalid %s after %s.", next.Text, t.Text)
				}
			}

		case CloseBracket:
			if i < last {
				if i < 2 || tokens[i-2].Kind != OpenBracket {
					add(i, "Unclosed or empty ] bracket.")
				}
				next := tokens[i+1]
				if next.Kind != CloseParen && next.Kind != OpenBracket && next.Kind != RelationalOperator {
					add(i, "Invalid '%s' after ].", next.Text)
				}
			}

		case Comma:
			add(i, "Unexpected , in syntax. Functions are not supported.")

		case Identifier:
			if meta != nil && !knownReference(meta, t.Text) {
				add(i, "%s is not a valid event/field in this project", t.Text)
			}
		}
	}

	return defects
}

func count(tokens []Token, kind TokenKind) int {
	n := 0
	for _, t := range tokens {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

func isOperator(t Token) bool {
	return t.Kind == RelationalOperator || t.Kind == LogicalOperator
}

// chainsComparison reports whether the operand position two tokens before
// a comparison holds another comparison. The legacy text operators "and"
// and "or" never count as one.
func chainsComparison(t Token) bool {
	if t.Text == "and" || t.Text == "or" {
		return false
	}
	return t.Kind == RelationalOperator
}

func knownReference(meta Metadata, name string) bool {
	name = strings.Trim(name, "'")
	if meta.HasField(name) || meta.HasEvent(name) {
		return true
	}
	if form, ok := strings.CutSuffix(name, "_complete"); ok && form != "" {
		return meta.HasInstrument(form)
	}
	return false
}
