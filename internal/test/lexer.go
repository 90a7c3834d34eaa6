package test

import (
	"fmt"
	"math/rand"
	"strings"
)

const validTokens = "(;);+;-;*;/;%;**;==;!=;>=;<=;>;<;=;,;123;-321;1.5;-0.25;true;false;defun;if;else;let;and;or;not;identifier;ifx;\"this is a string\";'single';\"\"\"triple\"\"\";\"\";\n"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}

var operators = []string{"+", "-", "*", "/"}

// GetRandomExpression returns a well-formed prefix expression of the given
// nesting depth built from the four core operators and literals in 1..99.
func GetRandomExpression(depth int) string {
	return GetRandomExpressionFrom(rand.New(rand.NewSource(rand.Int63())), depth)
}

func GetRandomExpressionFrom(r *rand.Rand, depth int) string {
	if depth <= 0 {
		return fmt.Sprint(r.Intn(99) + 1)
	}

	op := operators[r.Intn(len(operators))]
	return fmt.Sprintf("(%s %s %s)", op, GetRandomExpressionFrom(r, depth-1), GetRandomExpressionFrom(r, r.Intn(depth)))
}
