// internal/logic/clause.go
package logic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bcchr/detbuilder/internal/types"
)

// Clause is a single relational comparison: [event][field] op literal.
type Clause struct {
	Event   string // "" when the clause is not event-qualified
	Field   string
	Op      Operator
	OpText  string // operator as written
	Literal string // quotes stripped
	Quoted  bool
}

// String renders the clause in canonical form.
func (c Clause) String() string {
	addr := "[" + c.Field + "]"
	if c.Event != "" {
		addr = "[" + c.Event + "]" + addr
	}
	lit := c.Literal
	if c.Quoted {
		lit = "'" + lit + "'"
	}
	return addr + " " + c.OpText + " " + lit
}

// Longest spellings first so ">=" is never read as ">" followed by "=".
var clauseOperator = regexp.MustCompile(`==|<>|!=|>=|<=|=|>|<`)

var addressPattern = regexp.MustCompile(`^\[([^\[\]]+)\]\s*(?:\[([^\[\]]+)\])?$`)

// ParseClause parses a leaf clause. Leading group parens and trailing close
// parens left over from splitting are tolerated.
func ParseClause(raw string) (Clause, error) {
	s := strings.TrimLeft(strings.TrimSpace(raw), "( ")
	if s == "" {
		return Clause{}, fmt.Errorf("%w: empty clause", types.ErrMalformedClause)
	}

	loc := clauseOperator.FindStringIndex(maskLiterals(s))
	if loc == nil {
		return Clause{}, fmt.Errorf("%w: no comparison operator in %q", types.ErrMalformedClause, raw)
	}

	event, field, ok := parseAddress(s[:loc[0]])
	if !ok {
		return Clause{}, fmt.Errorf("%w: invalid field reference in %q", types.ErrMalformedClause, raw)
	}

	opText := s[loc[0]:loc[1]]
	op, _ := ParseOperator(opText)

	lit := strings.TrimRight(strings.TrimSpace(s[loc[1]:]), " )")
	quoted := false
	if len(lit) >= 2 && isQuote(lit[0]) && lit[len(lit)-1] == lit[0] {
		lit = lit[1 : len(lit)-1]
		quoted = true
	}
	if lit == "" && !quoted {
		return Clause{}, fmt.Errorf("%w: missing value after %s in %q", types.ErrMalformedClause, opText, raw)
	}

	return Clause{
		Event:   event,
		Field:   field,
		Op:      op,
		OpText:  opText,
		Literal: lit,
		Quoted:  quoted,
	}, nil
}

func parseAddress(s string) (event, field string, ok bool) {
	m := addressPattern.FindStringSubmatch(strings.Trim(s, " ()"))
	if m == nil {
		return "", "", false
	}
	first := cleanName(m[1])
	if m[2] == "" {
		return "", first, first != ""
	}
	second := cleanName(m[2])
	return first, second, first != "" && second != ""
}

func cleanName(s string) string {
	return strings.Trim(s, " '\"")
}
