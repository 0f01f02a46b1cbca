// internal/logic/tokenize_test.go
package logic

import (
	"errors"
	"strings"
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bcchr/detbuilder/internal/types"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		cond  string
		texts []string
		kinds []TokenKind
	}{
		{
			name:  "simple clause",
			cond:  "[age] > 5",
			texts: []string{"[", "age", "]", ">", "5"},
			kinds: []TokenKind{OpenBracket, Identifier, CloseBracket, RelationalOperator, NumberLiteral},
		},
		{
			name:  "event qualified",
			cond:  "[event_1_arm_1][age]>=18",
			texts: []string{"[", "event_1_arm_1", "]", "[", "age", "]", ">=18"},
			kinds: []TokenKind{OpenBracket, Identifier, CloseBracket, OpenBracket, Identifier, CloseBracket, Identifier},
		},
		{
			name:  "logical and quoted literal",
			cond:  "([age] > 5) && [gender] = 'M'",
			texts: []string{"(", "[", "age", "]", ">", "5", ")", "&&", "[", "gender", "]", "=", "'M'"},
			kinds: []TokenKind{
				OpenParen, OpenBracket, Identifier, CloseBracket, RelationalOperator, NumberLiteral, CloseParen,
				LogicalOperator, OpenBracket, Identifier, CloseBracket, RelationalOperator, StringLiteral,
			},
		},
		{
			name:  "delimiters inside literal are kept",
			cond:  "[note] = 'a (b) && c'",
			texts: []string{"[", "note", "]", "=", "'a (b) && c'"},
			kinds: []TokenKind{OpenBracket, Identifier, CloseBracket, RelationalOperator, StringLiteral},
		},
		{
			name:  "bracket quotes normalised",
			cond:  "['age'] <> '1'",
			texts: []string{"[", "age", "]", "<>", "'1'"},
			kinds: []TokenKind{OpenBracket, Identifier, CloseBracket, RelationalOperator, StringLiteral},
		},
		{
			name:  "comma",
			cond:  "sum([a],[b])",
			texts: []string{"sum", "(", "[", "a", "]", ",", "[", "b", "]", ")"},
			kinds: []TokenKind{Identifier, OpenParen, OpenBracket, Identifier, CloseBracket, Comma, OpenBracket, Identifier, CloseBracket, CloseParen},
		},
		{
			name: "empty",
			cond: "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.cond)
			gotTexts := texts(got)
			if strings.Join(gotTexts, "|") != strings.Join(tt.texts, "|") {
				t.Fatalf("Tokenize(%q) texts = %q, want %q", tt.cond, gotTexts, tt.texts)
			}
			gotKinds := kinds(got)
			for i := range gotKinds {
				if gotKinds[i] != tt.kinds[i] {
					t.Errorf("token %d (%q) kind = %v, want %v", i, gotTexts[i], gotKinds[i], tt.kinds[i])
				}
			}
		})
	}
}

func TestTokenize_Positions(t *testing.T) {
	got := Tokenize("[age] > 5")
	want := []int{0, 1, 4, 6, 8}
	for i, tok := range got {
		if tok.Pos != want[i] {
			t.Errorf("token %d (%q) Pos = %d, want %d", i, tok.Text, tok.Pos, want[i])
		}
	}
}

func TestTokenizeStrict_UnbalancedQuotes(t *testing.T) {
	tokens, err := TokenizeStrict("[name] = 'abc")
	if !errors.Is(err, types.ErrUnbalancedQuotes) {
		t.Fatalf("TokenizeStrict() error = %v, want %v", err, types.ErrUnbalancedQuotes)
	}
	if len(tokens) == 0 {
		t.Fatal("TokenizeStrict() returned no tokens, want the unmasked scan")
	}
	last := tokens[len(tokens)-1]
	if last.Text != "'abc" || last.Kind != StringLiteral {
		t.Errorf("last token = %+v, want StringLiteral 'abc", last)
	}

	// Tokenize degrades silently.
	if got := Tokenize("[name] = 'abc"); len(got) != len(tokens) {
		t.Errorf("Tokenize() len = %d, want %d", len(got), len(tokens))
	}
}

func TestTokenKind_String(t *testing.T) {
	if RelationalOperator.String() != "comparison operator" {
		t.Errorf("RelationalOperator.String() = %q", RelationalOperator.String())
	}
	if TokenKind(99).String() != "unknown" {
		t.Errorf("TokenKind(99).String() = %q", TokenKind(99).String())
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

var conditionFragments = []string{
	"[", "]", "(", ")", ",", " ", "  ", "\t",
	"age", "gender", "event_1_arm_1", "5", "-2.5",
	"'M'", "'a b'", "\"x y\"", "'&& ||'",
	"=", "==", "<>", "!=", ">=", "<=", ">", "<",
	"&&", "||",
}

// Property-based test: tokenization preserves content modulo whitespace
func TestTokenize_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("detokenize(tokenize(x)) keeps non-whitespace content", prop.ForAll(
		func(picks []int) bool {
			var b strings.Builder
			for _, p := range picks {
				b.WriteString(conditionFragments[p])
			}
			cond := b.String()

			got := stripSpace(Detokenize(Tokenize(cond)))
			want := stripSpace(Normalize(cond))
			if got != want {
				t.Logf("cond=%q got=%q want=%q", cond, got, want)
				return false
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(conditionFragments)-1)),
	))

	properties.TestingRun(t)
}
