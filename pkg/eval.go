package calx

import "math"

func (e *LiteralExpr) Evaluate() (Value, error) {
	return e.Val, nil
}

// Evaluate computes the left operand, then the right one, then applies the
// operator. The first error aborts the whole evaluation.
func (e *BinaryExpr) Evaluate() (Value, error) {
	v1, err := e.Op1.Evaluate()
	if err != nil {
		return nil, err
	}

	v2, err := e.Op2.Evaluate()
	if err != nil {
		return nil, err
	}

	if !isNumber(v1) || !isNumber(v2) {
		return nil, &TypeError{
			Loc:   e.Loc,
			Op:    e.Operation,
			Left:  v1.Type(),
			Right: v2.Type(),
		}
	}

	return binaryOps[e.Operation](e, v1, v2)
}

type binaryFunc func(e *BinaryExpr, v1, v2 Value) (Value, error)

// binaryOps has one handler per BinaryOp.
var binaryOps = [binaryOpCount]binaryFunc{
	BinaryAddition:       evalAdd,
	BinarySubtraction:    evalSub,
	BinaryMultiplication: evalMul,
	BinaryDivision:       evalDiv,
	BinaryModulo:         evalMod,
	BinaryPower:          evalPow,
}

func evalAdd(e *BinaryExpr, v1, v2 Value) (Value, error) {
	if a, b, ok := bothIntegers(v1, v2); ok {
		if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
			return nil, overflow(e)
		}

		return Integer(a + b), nil
	}

	return Float(toFloat(v1) + toFloat(v2)), nil
}

func evalSub(e *BinaryExpr, v1, v2 Value) (Value, error) {
	if a, b, ok := bothIntegers(v1, v2); ok {
		if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
			return nil, overflow(e)
		}

		return Integer(a - b), nil
	}

	return Float(toFloat(v1) - toFloat(v2)), nil
}

func evalMul(e *BinaryExpr, v1, v2 Value) (Value, error) {
	if a, b, ok := bothIntegers(v1, v2); ok {
		p, ok := mulInt(a, b)
		if !ok {
			return nil, overflow(e)
		}

		return Integer(p), nil
	}

	return Float(toFloat(v1) * toFloat(v2)), nil
}

// evalDiv is true division: the result is a Float even for two integers.
func evalDiv(e *BinaryExpr, v1, v2 Value) (Value, error) {
	divisor := toFloat(v2)
	if divisor == 0 {
		return nil, divisionByZero(e)
	}

	return Float(toFloat(v1) / divisor), nil
}

// evalMod is floored modulo: a non-zero result takes the divisor's sign.
func evalMod(e *BinaryExpr, v1, v2 Value) (Value, error) {
	if a, b, ok := bothIntegers(v1, v2); ok {
		if b == 0 {
			return nil, divisionByZero(e)
		}

		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}

		return Integer(m), nil
	}

	a, b := toFloat(v1), toFloat(v2)
	if b == 0 {
		return nil, divisionByZero(e)
	}

	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}

	return Float(m), nil
}

func evalPow(e *BinaryExpr, v1, v2 Value) (Value, error) {
	if a, b, ok := bothIntegers(v1, v2); ok && b >= 0 {
		p, ok := powInt(a, b)
		if !ok {
			return nil, overflow(e)
		}

		return Integer(p), nil
	}

	a, b := toFloat(v1), toFloat(v2)
	if a == 0 && b < 0 {
		return nil, &ArithmeticError{Loc: e.Loc, Op: e.Operation, Msg: "zero cannot be raised to a negative power"}
	}

	p := math.Pow(a, b)
	if math.IsNaN(p) && !math.IsNaN(a) && !math.IsNaN(b) {
		return nil, &ArithmeticError{Loc: e.Loc, Op: e.Operation, Msg: "result is not a real number"}
	}

	return Float(p), nil
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}

	return p, true
}

// powInt is exponentiation by squaring; exp must not be negative.
func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}

		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}

	return result, true
}

func isNumber(v Value) bool {
	t := v.Type()
	return t == TypeInteger || t == TypeFloat
}

func bothIntegers(v1, v2 Value) (int64, int64, bool) {
	a, ok1 := v1.(Integer)
	b, ok2 := v2.(Integer)

	return int64(a), int64(b), ok1 && ok2
}

func toFloat(v Value) float64 {
	switch n := v.(type) {
	case Integer:
		return float64(n)
	case Float:
		return float64(n)
	}

	return math.NaN()
}

func divisionByZero(e *BinaryExpr) error {
	return &ArithmeticError{Loc: e.Loc, Op: e.Operation, Msg: "division by zero"}
}

func overflow(e *BinaryExpr) error {
	return &ArithmeticError{Loc: e.Loc, Op: e.Operation, Msg: "integer overflow"}
}
