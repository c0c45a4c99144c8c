package filter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/temporal"
	"metaprops/internal/core/types"
)

// Query DSL: term (conj term)*, term := operator operand, conj is the
// whole word "and" or "or". Operands run up to the next conjunction and may
// contain spaces ("startsWith 2020-02-15 10:00:01").
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Symbol", Pattern: `==|<=|>=|<|>`},
	{Name: "Word", Pattern: `[^\s]+`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	symbolToken     = queryLexer.Symbols()["Symbol"]
	wordToken       = queryLexer.Symbols()["Word"]
	whitespaceToken = queryLexer.Symbols()["Whitespace"]
)

func invalidQuery(query, msg string) *apperror.AppError {
	return apperror.NewBadRequest(apperror.CodeInvalidQuery, msg).WithDetail("query", query)
}

// ParseQuery compiles a textual expression for sel. The result is a single
// AND or OR combinator; mixing both conjunctions is an error.
func ParseQuery(sel Selector, query string, norm *temporal.Normalizer) (*Combinator, error) {
	lex, err := queryLexer.Lex("", strings.NewReader(query))
	if err != nil {
		return nil, invalidQuery(query, "Invalid query '"+query+"'").WithCause(err)
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, invalidQuery(query, "Invalid query '"+query+"'").WithCause(err)
	}

	var (
		logic Logic
		terms [][]lexer.Token
		cur   []lexer.Token
		ends  []int
	)
	for _, tok := range all {
		if tok.EOF() {
			break
		}
		if tok.Type == whitespaceToken {
			continue
		}
		if tok.Type == wordToken && (tok.Value == "and" || tok.Value == "or") {
			next := LogicAnd
			if tok.Value == "or" {
				next = LogicOr
			}
			if logic != "" && logic != next {
				return nil, invalidQuery(query, "Only 'and' or 'or' allowed.")
			}
			logic = next
			terms = append(terms, cur)
			ends = append(ends, tok.Pos.Offset)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	terms = append(terms, cur)
	ends = append(ends, len(query))

	if logic == "" {
		logic = LogicAnd
	}
	root := &Combinator{Logic: logic}
	for i, term := range terms {
		if len(term) == 0 {
			return nil, invalidQuery(query, "Query '"+query+"' contains an empty term")
		}
		leaf, err := parseTerm(sel, query, term, ends[i], norm)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, leaf)
	}
	return root, nil
}

func parseTerm(sel Selector, query string, term []lexer.Token, end int, norm *temporal.Normalizer) (*Leaf, error) {
	opTok := term[0]
	op, ok := ParseOperator(opTok.Value)
	if !ok || (opTok.Type != symbolToken && opTok.Type != wordToken) {
		return nil, invalidQuery(query, fmt.Sprintf("Unknown operator '%s' in query '%s'", opTok.Value, query)).
			WithDetail("token", opTok.Value).
			WithDetail("offset", opTok.Pos.Offset)
	}
	text := strings.TrimSpace(query[opTok.Pos.Offset+len(opTok.Value) : end])
	if text == "" {
		return nil, invalidQuery(query, fmt.Sprintf("Missing operand after '%s' in query '%s'", opTok.Value, query))
	}
	operand, err := ParseOperand(sel, text, norm)
	if err != nil {
		return nil, err
	}
	return &Leaf{Selector: sel, Operator: op, Operand: operand}, nil
}

// ParseOperand types a literal by the selector's domain: decimal for
// numbers, true/false for booleans, a temporal literal for dates, the raw
// string otherwise.
func ParseOperand(sel Selector, text string, norm *temporal.Normalizer) (Operand, error) {
	switch sel.Domain {
	case DomainNumber:
		n, err := types.ParseNumber(text)
		if err != nil {
			return Operand{}, apperror.NewBadRequest(apperror.CodeInvalidQuery,
				fmt.Sprintf("Operand '%s' of %s is not a number", text, sel)).WithCause(err)
		}
		return NumberOperand(n), nil
	case DomainBoolean:
		switch strings.ToLower(text) {
		case "true":
			return BoolOperand(true), nil
		case "false":
			return BoolOperand(false), nil
		}
		return Operand{}, apperror.NewBadRequest(apperror.CodeInvalidQuery,
			fmt.Sprintf("Operand '%s' of %s is not a boolean", text, sel))
	case DomainDate:
		in, err := norm.Parse(text)
		if err != nil {
			return Operand{}, err
		}
		return TemporalOperand(text, in), nil
	}
	return StringOperand(text), nil
}
