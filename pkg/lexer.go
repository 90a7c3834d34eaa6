package calx

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type TokenType uint64
type stateFunc func(l *Lexer) stateFunc

const (
	EOF rune = 0

	TokenError TokenType = iota
	TokenEOF

	TokenInteger
	TokenFloat
	TokenString
	TokenBoolean

	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenPow
	TokenEq
	TokenNotEq
	TokenGreaterEq
	TokenLessEq
	TokenGreater
	TokenLess
	TokenAssign

	TokenOpenParentheses
	TokenCloseParentheses
	TokenComma

	TokenIdentifier
	TokenDefun
	TokenIf
	TokenElse
	TokenLet
	TokenAnd
	TokenOr
	TokenNot

	TokenNewline

	tokenTypeCount
)

var tokenNames = [...]string{
	TokenError:            "ERROR",
	TokenEOF:              "EOF",
	TokenInteger:          "INTEGER",
	TokenFloat:            "FLOAT",
	TokenString:           "STRING",
	TokenBoolean:          "BOOLEAN",
	TokenPlus:             "PLUS",
	TokenMinus:            "MINUS",
	TokenMul:              "MUL",
	TokenDiv:              "DIV",
	TokenMod:              "MOD",
	TokenPow:              "POW",
	TokenEq:               "EQ",
	TokenNotEq:            "NEQ",
	TokenGreaterEq:        "GTE",
	TokenLessEq:           "LTE",
	TokenGreater:          "GT",
	TokenLess:             "LT",
	TokenAssign:           "ASSIGN",
	TokenOpenParentheses:  "LPAREN",
	TokenCloseParentheses: "RPAREN",
	TokenComma:            "COMMA",
	TokenIdentifier:       "IDENTIFIER",
	TokenDefun:            "DEFUN",
	TokenIf:               "IF",
	TokenElse:             "ELSE",
	TokenLet:              "LET",
	TokenAnd:              "AND",
	TokenOr:               "OR",
	TokenNot:              "NOT",
	TokenNewline:          "NEWLINE",
}

func (t TokenType) String() string {
	if t < tokenTypeCount && tokenNames[t] != "" {
		return tokenNames[t]
	}

	return fmt.Sprintf("TokenType(%d)", uint64(t))
}

// tokenTypeByName resolves the names used in grammar patterns.
func tokenTypeByName(name string) (TokenType, bool) {
	for t, n := range tokenNames {
		if n == name && TokenType(t) != TokenError {
			return TokenType(t), true
		}
	}

	return 0, false
}

var keywordTable = map[string]TokenType{
	"defun": TokenDefun,
	"if":    TokenIf,
	"else":  TokenElse,
	"let":   TokenLet,
	"and":   TokenAnd,
	"or":    TokenOr,
	"not":   TokenNot,
	"true":  TokenBoolean,
	"false": TokenBoolean,
}

type tokenPattern struct {
	typ TokenType
	re  *regexp.Regexp
}

// patternTable is tried in order and the first match wins, so longer
// operators must come before their prefixes.
var patternTable = []tokenPattern{
	{TokenFloat, regexp.MustCompile(`^-?\d+\.\d+`)},
	{TokenInteger, regexp.MustCompile(`^-?\d+`)},
	{TokenString, regexp.MustCompile(`^(?s)""".*?"""`)},
	{TokenString, regexp.MustCompile(`^(?s)".*?"`)},
	{TokenString, regexp.MustCompile(`^(?s)'.*?'`)},
	{TokenPow, regexp.MustCompile(`^\*\*`)},
	{TokenMul, regexp.MustCompile(`^\*`)},
	{TokenDiv, regexp.MustCompile(`^/`)},
	{TokenMod, regexp.MustCompile(`^%`)},
	{TokenPlus, regexp.MustCompile(`^\+`)},
	{TokenMinus, regexp.MustCompile(`^-`)},
	{TokenEq, regexp.MustCompile(`^==`)},
	{TokenNotEq, regexp.MustCompile(`^!=`)},
	{TokenGreaterEq, regexp.MustCompile(`^>=`)},
	{TokenLessEq, regexp.MustCompile(`^<=`)},
	{TokenGreater, regexp.MustCompile(`^>`)},
	{TokenLess, regexp.MustCompile(`^<`)},
	{TokenAssign, regexp.MustCompile(`^=`)},
	{TokenOpenParentheses, regexp.MustCompile(`^\(`)},
	{TokenCloseParentheses, regexp.MustCompile(`^\)`)},
	{TokenComma, regexp.MustCompile(`^,`)},
}

var identifierPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*`)

// Location is a position in the source text. Line and Col are 1-based,
// Offset is a byte offset.
type Location struct {
	Offset int
	Line   int
	Col    int
}

func (l *Location) String() string {
	if l == nil {
		return "?"
	}

	return fmt.Sprintf("%d:%d", l.Line, l.Col)
}

type Token struct {
	Typ   TokenType
	Value string
	Loc   *Location
}

func (t Token) String() string {
	if t.Typ == TokenEOF {
		return "EOF"
	}

	return fmt.Sprintf("%s(%q)", t.Typ, t.Value)
}

// Tokenizer is the token source consumed by the parser.
type Tokenizer interface {
	Next() (Token, error)
	GetFilename() string
}

type Lexer struct {
	filename string
	src      string

	pos  int
	line int
	col  int

	state   stateFunc
	pending []Token
	err     error
}

func NewLexer(src string) *Lexer {
	return &Lexer{
		src:   src,
		line:  1,
		col:   1,
		state: defaultState,
	}
}

func NewLexerFromReader(reader io.Reader) (*Lexer, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading source")
	}

	return NewLexer(string(data)), nil
}

func NewLexerFromFile(filename string) (*Lexer, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}

	l := NewLexer(string(data))
	l.filename = filename

	return l, nil
}

// Tokenize returns every token in src, EOF excluded.
func Tokenize(src string) ([]Token, error) {
	return NewLexer(src).All()
}

func (l *Lexer) GetFilename() string {
	return l.filename
}

// Next runs the state machine until a token is available. Once the input is
// exhausted it keeps returning EOF; once it failed it keeps returning the
// same error.
func (l *Lexer) Next() (Token, error) {
	for len(l.pending) == 0 && l.state != nil {
		l.state = l.state(l)
	}

	if l.err != nil {
		return Token{Typ: TokenError, Loc: l.location()}, l.err
	}

	if len(l.pending) == 0 {
		return Token{Typ: TokenEOF, Loc: l.location()}, nil
	}

	tok := l.pending[0]
	l.pending = l.pending[1:]

	return tok, nil
}

func (l *Lexer) All() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		if tok.Typ == TokenEOF {
			return tokens, nil
		}

		tokens = append(tokens, tok)
	}
}

func defaultState(l *Lexer) stateFunc {
	for {
		switch r := l.peek(); {
		case r == EOF && l.pos >= len(l.src):
			return nil
		case unicode.IsSpace(r):
			l.next()
		case r == ';':
			return lineCommentState
		case r == '_' || unicode.IsLetter(r):
			return identifierState
		default:
			return patternState
		}
	}
}

func lineCommentState(l *Lexer) stateFunc {
	for r := l.peek(); r != '\n' && l.pos < len(l.src); r = l.peek() {
		l.next()
	}

	return defaultState
}

func identifierState(l *Lexer) stateFunc {
	id := identifierPattern.FindString(l.src[l.pos:])

	if t, ok := keywordTable[id]; ok {
		return l.emit(t, id)
	}

	return l.emit(TokenIdentifier, id)
}

func patternState(l *Lexer) stateFunc {
	rest := l.src[l.pos:]
	for _, p := range patternTable {
		if m := p.re.FindString(rest); m != "" {
			return l.emit(p.typ, m)
		}
	}

	r, _ := utf8.DecodeRuneInString(rest)
	if r == '"' || r == '\'' {
		return l.errorf("unclosed string")
	}

	return l.errorf("invalid symbol %q", r)
}

func (l *Lexer) errorf(format string, args ...interface{}) stateFunc {
	l.err = &LexError{
		Loc: l.location(),
		Msg: fmt.Sprintf(format, args...),
	}

	return nil
}

// emit queues a token for val, which must be a prefix of the remaining
// input, and advances past it.
func (l *Lexer) emit(t TokenType, val string) stateFunc {
	l.pending = append(l.pending, Token{
		Typ:   t,
		Value: val,
		Loc:   l.location(),
	})

	for end := l.pos + len(val); l.pos < end; {
		l.next()
	}

	return defaultState
}

func (l *Lexer) location() *Location {
	return &Location{Offset: l.pos, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.src) {
		return EOF
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}

	return r
}
