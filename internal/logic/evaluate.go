// internal/logic/evaluate.go
package logic

import (
	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Expression evaluation.
 *
 * Walks a compiled Expression against one record's per-event data.
 *
 * Evaluation flow:
 *   1. Branch: evaluate both sides, then combine with AND / OR
 *   2. Leaf:   resolve address -> coerce operands -> compare
 *
 * Both sides of a branch are always evaluated. Nodes are pure, so this
 * costs a little time and buys a complete clause trace for diagnostics;
 * it also means an error on either side surfaces even when the other side
 * already decides the result.
 *
 * Evaluation never mutates the expression or the data, so evaluating the
 * same expression against the same snapshot always yields the same result.
 */

// Options carries project facts evaluation depends on.
type Options struct {
	// Longitudinal selects event-qualified addressing.
	Longitudinal bool
}

// ClauseOutcome records one leaf evaluation.
type ClauseOutcome struct {
	Clause  Clause
	Event   string // event the value was read from
	Value   string
	Matched bool
}

// MatchResult contains the outcome of evaluation.
type MatchResult struct {
	Matched bool
	Clauses []ClauseOutcome
}

// Evaluate reports whether expr holds for data.
func Evaluate(expr *Expression, data types.RecordData, opts Options) (bool, error) {
	res, err := EvaluateDetailed(expr, data, opts)
	if err != nil {
		return false, err
	}
	return res.Matched, nil
}

// EvaluateDetailed is Evaluate with a per-clause trace.
func EvaluateDetailed(expr *Expression, data types.RecordData, opts Options) (MatchResult, error) {
	var result MatchResult
	matched, err := evaluateNode(expr.Root, data, opts, &result.Clauses)
	if err != nil {
		return MatchResult{Clauses: result.Clauses}, err
	}
	result.Matched = matched
	return result, nil
}

func evaluateNode(n Node, data types.RecordData, opts Options, trace *[]ClauseOutcome) (bool, error) {
	switch v := n.(type) {
	case *Leaf:
		return evaluateClause(v.Clause, data, opts, trace)
	case *Branch:
		left, lerr := evaluateNode(v.Left, data, opts, trace)
		right, rerr := evaluateNode(v.Right, data, opts, trace)
		if lerr != nil {
			return false, lerr
		}
		if rerr != nil {
			return false, rerr
		}
		if v.Op == And {
			return left && right, nil
		}
		return left || right, nil
	default:
		return false, types.ErrMalformedClause
	}
}

// evaluateClause orchestrates: resolve address -> compare operator.
func evaluateClause(c Clause, data types.RecordData, opts Options, trace *[]ClauseOutcome) (bool, error) {
	resolved, err := Resolve(c, data, opts.Longitudinal)
	if err != nil {
		return false, err
	}
	matched := Compare(c.Op, resolved.Value, c.Literal)
	*trace = append(*trace, ClauseOutcome{
		Clause:  c,
		Event:   resolved.Event,
		Value:   resolved.Value,
		Matched: matched,
	})
	return matched, nil
}
