package calx

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// LexError reports input that matches no token pattern.
type LexError struct {
	Loc *Location
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s lexical error: %s", e.Loc, e.Msg)
}

// ParseError reports a token the grammar cannot accept in the current parser
// state. Expected lists the token types that state would have accepted. Msg
// is set instead when the token was accepted but its text is unusable.
type ParseError struct {
	Token    Token
	Expected []TokenType
	State    int
	Msg      string
}

func (e *ParseError) Error() string {
	var str strings.Builder
	fmt.Fprintf(&str, "%s parse error: unexpected %s", e.Token.Loc, e.Token)

	if e.Msg != "" {
		fmt.Fprintf(&str, ": %s", e.Msg)
	}

	if len(e.Expected) > 0 {
		names := make([]string, len(e.Expected))
		for i, t := range e.Expected {
			names[i] = t.String()
		}

		fmt.Fprintf(&str, ", expected one of %s", strings.Join(names, ", "))
	}

	return str.String()
}

// ArithmeticError is a runtime failure such as division by zero.
type ArithmeticError struct {
	Loc *Location
	Op  BinaryOp
	Msg string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s arithmetic error: %s", e.Loc, e.Msg)
}

type TypeError struct {
	Loc   *Location
	Op    BinaryOp
	Left  ValueType
	Right ValueType
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s type error: unsupported operand types for '%s': %s and %s", e.Loc, e.Op, e.Left, e.Right)
}

// GrammarError is returned by NewParser for grammars that cannot be turned
// into parse tables.
type GrammarError struct {
	Msg string
}

func (e *GrammarError) Error() string {
	return "grammar error: " + e.Msg
}

func errorLocation(err error) (*Location, string) {
	var lexErr *LexError
	var parseErr *ParseError
	var arithErr *ArithmeticError
	var typeErr *TypeError

	switch {
	case errors.As(err, &lexErr):
		return lexErr.Loc, "LEXICAL ERROR: " + lexErr.Msg
	case errors.As(err, &parseErr):
		msg := strings.TrimPrefix(parseErr.Error(), parseErr.Token.Loc.String()+" parse error: ")
		return parseErr.Token.Loc, "PARSE ERROR: " + msg
	case errors.As(err, &arithErr):
		return arithErr.Loc, "ARITHMETIC ERROR: " + arithErr.Msg
	case errors.As(err, &typeErr):
		msg := strings.TrimPrefix(typeErr.Error(), typeErr.Loc.String()+" type error: ")
		return typeErr.Loc, "TYPE ERROR: " + msg
	}

	return nil, ""
}

// FormatError renders err with a caret pointing into src when err carries a
// source location. Other errors are returned as err.Error().
//
//	PARSE ERROR: unexpected INTEGER("2"), expected one of EOF at 1:3
//	  1 | 1 2
//	    |   ^
func FormatError(err error, filename string, src string) string {
	loc, header := errorLocation(err)
	if loc == nil {
		return err.Error()
	}

	lines := strings.Split(src, "\n")
	line := clamp(loc.Line, 1, len(lines))
	col := clamp(loc.Col, 1, utf8.RuneCountInString(lines[line-1])+1)

	var str strings.Builder
	str.WriteString(header)
	if filename != "" {
		fmt.Fprintf(&str, " in %s", filename)
	}
	fmt.Fprintf(&str, " at %d:%d\n", line, col)

	width := len(fmt.Sprint(line))
	if line > 1 {
		fmt.Fprintf(&str, "  %*d | %s\n", width, line-1, lines[line-2])
	}

	fmt.Fprintf(&str, "  %*d | %s\n", width, line, lines[line-1])
	fmt.Fprintf(&str, "  %*s | %s^", width, "", caretPadding(lines[line-1], col))

	return str.String()
}

// caretPadding keeps tabs so the caret lines up under the offending column.
func caretPadding(line string, col int) string {
	var pad strings.Builder
	for i, r := range []rune(line) {
		if i >= col-1 {
			break
		}

		if r == '\t' {
			pad.WriteRune('\t')
		} else {
			pad.WriteRune(' ')
		}
	}

	return pad.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
