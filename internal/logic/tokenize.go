// internal/logic/tokenize.go
package logic

import (
	"regexp"
	"strings"

	"github.com/bcchr/detbuilder/internal/types"
)

/*
 * Condition tokenizer.
 *
 * Splits branching logic into a flat, ordered sequence of lexical parts.
 * Brackets, parentheses and commas are single-character tokens; whitespace
 * is a boundary only; everything else accumulates into the pending buffer.
 *
 * Quoted literals are masked while scanning so delimiters inside them never
 * split a token; the literal text is kept verbatim in the token. When a
 * quote is left open the masking is skipped and the whole string is
 * scanned character by character. Tokenize does that silently;
 * TokenizeStrict additionally reports ErrUnbalancedQuotes so validation can
 * surface it.
 *
 * Whether a bracketed identifier names a field or an event is not decided
 * here; the validator resolves that against project metadata.
 */

// TokenKind classifies a token.
type TokenKind int

const (
	Identifier TokenKind = iota
	StringLiteral
	NumberLiteral
	RelationalOperator
	LogicalOperator
	OpenParen
	CloseParen
	OpenBracket
	CloseBracket
	Comma
)

// String returns the kind name used in diagnostics.
func (k TokenKind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case StringLiteral:
		return "string"
	case NumberLiteral:
		return "number"
	case RelationalOperator:
		return "comparison operator"
	case LogicalOperator:
		return "logical operator"
	case OpenParen:
		return "("
	case CloseParen:
		return ")"
	case OpenBracket:
		return "["
	case CloseBracket:
		return "]"
	case Comma:
		return ","
	default:
		return "unknown"
	}
}

// Token is one lexical part of a condition.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int // byte offset in the normalised condition
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

var bracketQuotes = strings.NewReplacer("['", "[", "']", "]")

// Tokenize splits a condition into tokens, silently skipping literal
// masking when quotes are unbalanced.
func Tokenize(cond string) []Token {
	tokens, _ := TokenizeStrict(cond)
	return tokens
}

// TokenizeStrict is Tokenize that also reports ErrUnbalancedQuotes.
// The token slice is returned either way.
func TokenizeStrict(cond string) ([]Token, error) {
	s := Normalize(cond)
	mask := quotesBalanced(s)
	tokens := scan(s, mask)
	if !mask {
		return tokens, types.ErrUnbalancedQuotes
	}
	return tokens, nil
}

// Normalize applies the pre-scan rewrites: trimming and unquoting bracketed
// identifiers.
func Normalize(cond string) string {
	return strings.TrimSpace(bracketQuotes.Replace(cond))
}

// Detokenize joins token text with single spaces.
func Detokenize(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func scan(s string, mask bool) []Token {
	var tokens []Token
	var buf strings.Builder
	start := -1

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			tokens = append(tokens, Token{Kind: classify(text), Text: text, Pos: start})
		}
		buf.Reset()
		start = -1
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == ')' || c == '[' || c == ']' || c == ',':
			flush()
			tokens = append(tokens, Token{Kind: classify(string(c)), Text: string(c), Pos: i})
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		case mask && isQuote(c):
			end := strings.IndexByte(s[i+1:], c)
			if start < 0 {
				start = i
			}
			// quotesBalanced guarantees a closing quote
			buf.WriteString(s[i : i+end+2])
			i += end + 1
		default:
			if start < 0 {
				start = i
			}
			buf.WriteByte(c)
		}
	}
	flush()

	return tokens
}

func classify(text string) TokenKind {
	switch text {
	case "(":
		return OpenParen
	case ")":
		return CloseParen
	case "[":
		return OpenBracket
	case "]":
		return CloseBracket
	case ",":
		return Comma
	}
	if _, ok := relationalOps[text]; ok {
		return RelationalOperator
	}
	if _, ok := logicalOps[text]; ok {
		return LogicalOperator
	}
	if isQuoted(text) {
		return StringLiteral
	}
	if isNumeric(text) {
		return NumberLiteral
	}
	return Identifier
}

// quotesBalanced reports whether every quote opened in s is closed by the
// same quote character.
func quotesBalanced(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isQuote(s[i]) {
			continue
		}
		end := strings.IndexByte(s[i+1:], s[i])
		if end < 0 {
			return false
		}
		i += end + 1
	}
	return true
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}

// isQuoted mirrors the legacy literal check: a quote at either end.
func isQuoted(text string) bool {
	if text == "" {
		return false
	}
	return isQuote(text[0]) || isQuote(text[len(text)-1])
}

func isNumeric(text string) bool {
	return numericPattern.MatchString(text)
}
