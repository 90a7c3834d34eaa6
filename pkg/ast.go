package calx

import "fmt"

// Expr is a node of the syntax tree. Nodes own their children and are never
// modified once the parser has built them.
type Expr interface {
	Evaluate() (Value, error)
	Location() *Location
	fmt.Stringer
}

type BinaryOp int

const (
	BinaryAddition BinaryOp = iota
	BinarySubtraction
	BinaryMultiplication
	BinaryDivision
	BinaryModulo
	BinaryPower

	binaryOpCount
)

var binarySymbols = [binaryOpCount]string{
	BinaryAddition:       "+",
	BinarySubtraction:    "-",
	BinaryMultiplication: "*",
	BinaryDivision:       "/",
	BinaryModulo:         "%",
	BinaryPower:          "**",
}

func (op BinaryOp) String() string {
	if op >= 0 && op < binaryOpCount {
		return binarySymbols[op]
	}

	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

type BinaryExpr struct {
	Operation BinaryOp
	Op1       Expr
	Op2       Expr
	Loc       *Location
}

func (e *BinaryExpr) Location() *Location {
	return e.Loc
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Operation, e.Op1, e.Op2)
}

type LiteralExpr struct {
	Val Value
	Loc *Location
}

func (e *LiteralExpr) Location() *Location {
	return e.Loc
}

func (e *LiteralExpr) String() string {
	if s, ok := e.Val.(String); ok {
		return fmt.Sprintf("%q", string(s))
	}

	return e.Val.String()
}
