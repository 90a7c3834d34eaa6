package calx

import (
	"math"
	"strconv"
	"strings"
)

type ValueType int

const (
	TypeInteger ValueType = iota
	TypeFloat
	TypeString
	TypeBoolean
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the result of evaluating an expression.
type Value interface {
	Type() ValueType
	String() string
}

type Integer int64

func (Integer) Type() ValueType { return TypeInteger }

func (i Integer) String() string {
	return strconv.FormatInt(int64(i), 10)
}

type Float float64

func (Float) Type() ValueType { return TypeFloat }

// String always marks the value as a float, so 2.0 does not print as 2.
// Exponent notation is kept for magnitudes below 1e-4 or from 1e16 up.
func (f Float) String() string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}

	format := byte('g')
	if abs := math.Abs(v); abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		format = 'f'
	}

	s := strconv.FormatFloat(v, format, -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}

	return s
}

type String string

func (String) Type() ValueType { return TypeString }

func (s String) String() string {
	return string(s)
}

type Boolean bool

func (Boolean) Type() ValueType { return TypeBoolean }

func (b Boolean) String() string {
	return strconv.FormatBool(bool(b))
}
