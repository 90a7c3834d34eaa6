package calx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.calx.dev/internal/test"
)

type tok struct {
	Typ   TokenType
	Value string
}

func stripLocations(toks []Token) []tok {
	if toks == nil {
		return nil
	}

	out := make([]tok, len(toks))
	for i, t := range toks {
		out[i] = tok{t.Typ, t.Value}
	}

	return out
}

func TestLexer(t *testing.T) {
	cases := []struct {
		data   string
		fail   bool
		expect []tok
	}{
		{
			"(+ 2 3)",
			false,
			[]tok{
				{TokenOpenParentheses, "("},
				{TokenPlus, "+"},
				{TokenInteger, "2"},
				{TokenInteger, "3"},
				{TokenCloseParentheses, ")"},
			},
		},
		{
			"(** 2 (* 3 4))",
			false,
			[]tok{
				{TokenOpenParentheses, "("},
				{TokenPow, "**"},
				{TokenInteger, "2"},
				{TokenOpenParentheses, "("},
				{TokenMul, "*"},
				{TokenInteger, "3"},
				{TokenInteger, "4"},
				{TokenCloseParentheses, ")"},
				{TokenCloseParentheses, ")"},
			},
		},
		{
			"-1.5 -7 1.0",
			false,
			[]tok{
				{TokenFloat, "-1.5"},
				{TokenInteger, "-7"},
				{TokenFloat, "1.0"},
			},
		},
		{
			"(- 5 1)",
			false,
			[]tok{
				{TokenOpenParentheses, "("},
				{TokenMinus, "-"},
				{TokenInteger, "5"},
				{TokenInteger, "1"},
				{TokenCloseParentheses, ")"},
			},
		},
		{
			">= <= == != > < = % ,",
			false,
			[]tok{
				{TokenGreaterEq, ">="},
				{TokenLessEq, "<="},
				{TokenEq, "=="},
				{TokenNotEq, "!="},
				{TokenGreater, ">"},
				{TokenLess, "<"},
				{TokenAssign, "="},
				{TokenMod, "%"},
				{TokenComma, ","},
			},
		},
		{
			"if ifx defun let else and or not",
			false,
			[]tok{
				{TokenIf, "if"},
				{TokenIdentifier, "ifx"},
				{TokenDefun, "defun"},
				{TokenLet, "let"},
				{TokenElse, "else"},
				{TokenAnd, "and"},
				{TokenOr, "or"},
				{TokenNot, "not"},
			},
		},
		{
			"true false trueish _false",
			false,
			[]tok{
				{TokenBoolean, "true"},
				{TokenBoolean, "false"},
				{TokenIdentifier, "trueish"},
				{TokenIdentifier, "_false"},
			},
		},
		{
			`"a" "b" 'c' """d "e" f""" ""`,
			false,
			[]tok{
				{TokenString, `"a"`},
				{TokenString, `"b"`},
				{TokenString, `'c'`},
				{TokenString, `"""d "e" f"""`},
				{TokenString, `""`},
			},
		},
		{
			"únicódeShouldBeVàlid",
			false,
			[]tok{
				{TokenIdentifier, "únicódeShouldBeVàlid"},
			},
		},
		{
			"; only a comment",
			false,
			nil,
		},
		{
			"(+ 1 ; trailing comment\n 2)",
			false,
			[]tok{
				{TokenOpenParentheses, "("},
				{TokenPlus, "+"},
				{TokenInteger, "1"},
				{TokenInteger, "2"},
				{TokenCloseParentheses, ")"},
			},
		},
		{
			"",
			false,
			nil,
		},
		{
			"\"unclosed string",
			true,
			nil,
		},
		{
			"(+ 1 @)",
			true,
			nil,
		},
	}

	for _, c := range cases {
		toks, err := Tokenize(c.data)
		if c.fail {
			assert.Error(t, err, c.data)

			var lexErr *LexError
			assert.ErrorAs(t, err, &lexErr, c.data)
		} else {
			assert.NoError(t, err, c.data)
		}

		assert.Equal(t, c.expect, stripLocations(toks), c.data)
	}
}

func TestLexerCommentStripping(t *testing.T) {
	withComment, err := Tokenize("; full line\n(+ 1 1)")
	require.NoError(t, err)

	plain, err := Tokenize("(+ 1 1)")
	require.NoError(t, err)

	assert.Equal(t, stripLocations(plain), stripLocations(withComment))
}

func TestLexerLocations(t *testing.T) {
	toks, err := Tokenize("(+ 1\n  22)")
	require.NoError(t, err)
	require.Len(t, toks, 5)

	assert.Equal(t, &Location{Offset: 0, Line: 1, Col: 1}, toks[0].Loc)
	assert.Equal(t, &Location{Offset: 3, Line: 1, Col: 4}, toks[2].Loc)
	assert.Equal(t, &Location{Offset: 7, Line: 2, Col: 3}, toks[3].Loc)
	assert.Equal(t, &Location{Offset: 9, Line: 2, Col: 5}, toks[4].Loc)
}

func TestLexerErrorPosition(t *testing.T) {
	_, err := Tokenize("(+ 1\n  $)")

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 2, lexErr.Loc.Line)
	assert.Equal(t, 3, lexErr.Loc.Col)
	assert.Contains(t, lexErr.Msg, "'$'")
}

func TestLexerErrorQuotesControlCharacters(t *testing.T) {
	_, err := Tokenize("(+ 1 \x00)")

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, `invalid symbol '\x00'`, lexErr.Msg)
	assert.Equal(t, 6, lexErr.Loc.Col)
}

func TestLexerIsLazy(t *testing.T) {
	l := NewLexer("(+ 1 $")

	for _, want := range []TokenType{TokenOpenParentheses, TokenPlus, TokenInteger} {
		tok, err := l.Next()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Typ)
	}

	_, err := l.Next()
	assert.Error(t, err)

	_, again := l.Next()
	assert.Equal(t, err, again)
}

func TestLexerEOFRepeats(t *testing.T) {
	l := NewLexer("1")

	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenInteger, tok.Typ)

	for i := 0; i < 3; i++ {
		tok, err = l.Next()
		require.NoError(t, err)
		assert.Equal(t, TokenEOF, tok.Typ)
	}
}

func TestLexerFromReader(t *testing.T) {
	l, err := NewLexerFromReader(strings.NewReader("(* 2 2)"))
	require.NoError(t, err)

	toks, err := l.All()
	require.NoError(t, err)
	assert.Len(t, toks, 5)
}

func TestTokenTypeNames(t *testing.T) {
	for typ := TokenError; typ < tokenTypeCount; typ++ {
		name := typ.String()
		assert.NotContains(t, name, "TokenType(", "missing name for %d", typ)

		back, ok := tokenTypeByName(name)
		if typ == TokenError {
			assert.False(t, ok)
			continue
		}

		assert.True(t, ok, name)
		assert.Equal(t, typ, back)
	}
}

func TestRandomTokensLex(t *testing.T) {
	_, err := Tokenize(test.GetRandomTokens(1000))
	assert.NoError(t, err)
}

// Use a package-level variable to avoid compiler optimisation
var benchResult []Token

func benchmarkLexer(size int, b *testing.B) {
	for n := 0; n < b.N; n++ {
		// Setup
		b.StopTimer()
		data := test.GetRandomTokens(size)

		var err error
		b.StartTimer()

		benchResult, err = Tokenize(data)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLexer100(b *testing.B) {
	benchmarkLexer(100, b)
}

func BenchmarkLexer1000(b *testing.B) {
	benchmarkLexer(1000, b)
}

func BenchmarkLexer10000(b *testing.B) {
	benchmarkLexer(10000, b)
}
