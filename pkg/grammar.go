package calx

import (
	"strconv"

	"github.com/pkg/errors"
)

const expression = "expression"

var arithmeticPrecedence = []PrecedenceLevel{
	{AssocLeft, []TokenType{TokenPlus, TokenMinus}},
	{AssocLeft, []TokenType{TokenMul, TokenDiv, TokenPow, TokenMod}},
}

// CoreGrammar accepts a single fully-parenthesized prefix expression over
// integer literals with + - * and /:
//
//	expression -> INTEGER
//	expression -> ( expression )
//	expression -> ( OP expression expression )
//
// The precedence table is declared but never consulted, since the
// parentheses already make every expression unambiguous.
func CoreGrammar() Grammar {
	return Grammar{
		Start:      expression,
		Precedence: arithmeticPrecedence,
		Rules: []Rule{
			{expression, []string{"INTEGER"}, reduceInteger},
			{expression, []string{"LPAREN", expression, "RPAREN"}, reduceGroup},
			binaryRule("PLUS", BinaryAddition),
			binaryRule("MINUS", BinarySubtraction),
			binaryRule("MUL", BinaryMultiplication),
			binaryRule("DIV", BinaryDivision),
		},
	}
}

// ArithmeticGrammar extends CoreGrammar with float literals and the % and **
// operators.
func ArithmeticGrammar() Grammar {
	g := CoreGrammar()
	g.Rules = append(g.Rules,
		Rule{expression, []string{"FLOAT"}, reduceFloat},
		binaryRule("MOD", BinaryModulo),
		binaryRule("POW", BinaryPower),
	)

	return g
}

// GrammarByName maps configuration names to grammars.
func GrammarByName(name string) (Grammar, error) {
	switch name {
	case "", "core":
		return CoreGrammar(), nil
	case "arithmetic":
		return ArithmeticGrammar(), nil
	default:
		return Grammar{}, errors.Errorf("unknown grammar %q", name)
	}
}

func binaryRule(opToken string, op BinaryOp) Rule {
	return Rule{
		Name:    expression,
		Pattern: []string{"LPAREN", opToken, expression, expression, "RPAREN"},
		Reduce: func(m []Match) (Expr, error) {
			return &BinaryExpr{
				Operation: op,
				Op1:       m[2].Expr,
				Op2:       m[3].Expr,
				Loc:       m[0].Tok.Loc,
			}, nil
		},
	}
}

func reduceInteger(m []Match) (Expr, error) {
	tok := m[0].Tok

	v, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return nil, &ParseError{Token: tok, Msg: "integer literal out of range"}
	}

	return &LiteralExpr{Val: Integer(v), Loc: tok.Loc}, nil
}

func reduceFloat(m []Match) (Expr, error) {
	tok := m[0].Tok

	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, &ParseError{Token: tok, Msg: "float literal out of range"}
	}

	return &LiteralExpr{Val: Float(v), Loc: tok.Loc}, nil
}

// reduceGroup makes parentheses transparent.
func reduceGroup(m []Match) (Expr, error) {
	return m[1].Expr, nil
}
