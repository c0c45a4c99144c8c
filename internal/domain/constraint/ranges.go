package constraint

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"metaprops/internal/core/apperror"
	"metaprops/internal/core/types"
)

// RANGES grammar: range (',' range)*, where a range is low '-' high,
// optionally in brackets, and negative bounds are parenthesized: (-5).
var rangesLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+(\.\d+)?`},
	{Name: "Punct", Pattern: `[-,()\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type rangesAST struct {
	Ranges []*rangeAST `parser:"@@ (',' @@)*"`
}

type rangeAST struct {
	Pos   lexer.Position
	Open  bool      `parser:"@'['?"`
	Low   *boundAST `parser:"@@ '-'"`
	High  *boundAST `parser:"@@"`
	Close bool      `parser:"@']'?"`
}

type boundAST struct {
	Negative *string `parser:"  '(' '-' @Number ')'"`
	Positive *string `parser:"| @Number"`
}

var rangesParser = participle.MustBuild[rangesAST](
	participle.Lexer(rangesLexer),
	participle.Elide("Whitespace"),
)

func (b *boundAST) number() (types.Number, error) {
	if b.Negative != nil {
		return types.ParseNumber("-" + *b.Negative)
	}
	return types.ParseNumber(*b.Positive)
}

func parseRanges(spec string) ([]Interval, error) {
	ast, err := rangesParser.ParseString("", spec)
	if err != nil {
		return nil, apperror.NewMalformedConstraint("Invalid ranges '" + spec + "': " + err.Error()).
			WithDetail("pattern", spec).
			WithCause(err)
	}

	out := make([]Interval, 0, len(ast.Ranges))
	for _, r := range ast.Ranges {
		if r.Open != r.Close {
			return nil, apperror.NewMalformedConstraint("Unbalanced brackets in ranges '" + spec + "' at " + r.Pos.String()).
				WithDetail("pattern", spec)
		}
		low, err := r.Low.number()
		if err != nil {
			return nil, err
		}
		high, err := r.High.number()
		if err != nil {
			return nil, err
		}
		if low.GreaterThan(high) {
			low, high = high, low
		}
		out = append(out, Interval{Low: low, High: high})
	}
	return out, nil
}
