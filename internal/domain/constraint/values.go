package constraint

import (
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"metaprops/internal/core/apperror"
)

// VALUES grammar: "literal" (',' "literal")*. Inside a literal \" and \\
// are escapes.
var valuesLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Punct", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type valuesAST struct {
	Values []string `parser:"@String (',' @String)*"`
}

var valuesParser = participle.MustBuild[valuesAST](
	participle.Lexer(valuesLexer),
	participle.Elide("Whitespace"),
	participle.Map(unquoteLiteral, "String"),
)

var literalEscapes = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

func unquoteLiteral(tok lexer.Token) (lexer.Token, error) {
	tok.Value = literalEscapes.Replace(tok.Value[1 : len(tok.Value)-1])
	return tok, nil
}

func parseValues(spec string) ([]string, error) {
	ast, err := valuesParser.ParseString("", spec)
	if err != nil {
		return nil, apperror.NewMalformedConstraint("Invalid values '" + spec + "': " + err.Error()).
			WithDetail("pattern", spec).
			WithCause(err)
	}
	values := slices.Clone(ast.Values)
	slices.Sort(values)
	return slices.Compact(values), nil
}
