// internal/logic/operators.go
package logic

/*
 * Operator comparison logic.
 *
 * Six comparison semantics over eight spellings:
 *   - "==", "=":  loose equality
 *   - "<>", "!=": loose inequality
 *   - ">", "<", ">=", "<=": ordinal comparison
 *
 * Operands are raw strings as stored by the host. Coerce decides whether a
 * pair compares numerically or as text (see coercion.go); Compare only
 * applies the operator to the three-way result.
 *
 * Function-based like the rest of the package: a switch over a small enum
 * reads better than one type per operator.
 */

// Operator is a relational operator in a leaf clause.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// LogicalOp joins two sub-expressions.
type LogicalOp string

const (
	And LogicalOp = "&&"
	Or  LogicalOp = "||"
)

var relationalOps = map[string]Operator{
	"==": OpEq,
	"=":  OpEq,
	"<>": OpNeq,
	"!=": OpNeq,
	">":  OpGt,
	"<":  OpLt,
	">=": OpGte,
	"<=": OpLte,
}

var logicalOps = map[string]LogicalOp{
	"&&": And,
	"||": Or,
}

// ParseOperator maps an operator spelling to its Operator.
func ParseOperator(s string) (Operator, bool) {
	op, ok := relationalOps[s]
	return op, ok
}

// String returns the canonical spelling.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// Compare applies op to a stored value and a clause literal.
func Compare(op Operator, value, literal string) bool {
	c := compareLoose(value, literal)
	switch op {
	case OpEq:
		return c == 0
	case OpNeq:
		return c != 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	default:
		return false
	}
}
