package calx

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
)

type ValueLookup struct {
	vals map[string]value.Value
}

func NewValueLookup() *ValueLookup {
	return &ValueLookup{
		vals: make(map[string]value.Value),
	}
}

func (l *ValueLookup) Get(id string) (value.Value, bool) {
	val, ok := l.vals[id]
	return val, ok
}

func (l *ValueLookup) Set(id string, val value.Value) {
	l.vals[id] = val
}

type LLVMIRBuilder struct {
	mod    *ir.Module
	fn     *ir.Func
	block  *ir.Block
	trap   *ir.Block
	values *ValueLookup
}

func NewLLVMIRBuilder() *LLVMIRBuilder {
	builder := &LLVMIRBuilder{
		mod:    ir.NewModule(),
		values: NewValueLookup(),
	}

	defineBuiltins(builder)
	return builder
}

func (b *LLVMIRBuilder) lookup(name string) value.Value {
	v, ok := b.values.Get(name)
	if !ok {
		// defineBuiltins registers every name the builder asks for
		panic("undefined builtin: " + name)
	}

	return v
}

// main emits `i32 @main()` printing the value of expr.
func (b *LLVMIRBuilder) main(expr Expr) error {
	b.fn = b.mod.NewFunc("main", types.I32)
	b.block = b.fn.NewBlock("entry")

	v, typ, err := b.load(expr)
	if err != nil {
		return err
	}

	format := formatInteger
	if typ == TypeFloat {
		format = formatFloat
	}

	b.block.NewCall(b.lookup(builtinPrintf), b.lookup(format), v)
	b.block.NewRet(constant.NewInt(types.I32, 0))

	return nil
}

func (b *LLVMIRBuilder) load(expr Expr) (value.Value, ValueType, error) {
	switch e := expr.(type) {
	case *LiteralExpr:
		return b.loadLiteral(e)
	case *BinaryExpr:
		return b.binaryExpression(e)
	default:
		return nil, 0, errors.Errorf("%s: cannot lower %T", expr.Location(), expr)
	}
}

func (b *LLVMIRBuilder) loadLiteral(expr *LiteralExpr) (value.Value, ValueType, error) {
	switch v := expr.Val.(type) {
	case Integer:
		return constant.NewInt(types.I64, int64(v)), TypeInteger, nil
	case Float:
		return constant.NewFloat(types.Double, float64(v)), TypeFloat, nil
	default:
		return nil, 0, errors.Errorf("%s: %s literals have no LLVM lowering", expr.Loc, expr.Val.Type())
	}
}

func (b *LLVMIRBuilder) binaryExpression(expr *BinaryExpr) (value.Value, ValueType, error) {
	v1, t1, err := b.load(expr.Op1)
	if err != nil {
		return nil, 0, err
	}

	v2, t2, err := b.load(expr.Op2)
	if err != nil {
		return nil, 0, err
	}

	ints := t1 == TypeInteger && t2 == TypeInteger

	switch expr.Operation {
	case BinaryAddition:
		if ints {
			return b.block.NewAdd(v1, v2), TypeInteger, nil
		}

		return b.block.NewFAdd(b.toDouble(v1, t1), b.toDouble(v2, t2)), TypeFloat, nil
	case BinarySubtraction:
		if ints {
			return b.block.NewSub(v1, v2), TypeInteger, nil
		}

		return b.block.NewFSub(b.toDouble(v1, t1), b.toDouble(v2, t2)), TypeFloat, nil
	case BinaryMultiplication:
		if ints {
			return b.block.NewMul(v1, v2), TypeInteger, nil
		}

		return b.block.NewFMul(b.toDouble(v1, t1), b.toDouble(v2, t2)), TypeFloat, nil
	case BinaryDivision:
		d1, d2 := b.toDouble(v1, t1), b.toDouble(v2, t2)
		b.checkNonZero(b.block.NewFCmp(enum.FPredOEQ, d2, constant.NewFloat(types.Double, 0)))

		return b.block.NewFDiv(d1, d2), TypeFloat, nil
	case BinaryModulo:
		if ints {
			return b.intModulo(v1, v2), TypeInteger, nil
		}

		return b.floatModulo(b.toDouble(v1, t1), b.toDouble(v2, t2)), TypeFloat, nil
	case BinaryPower:
		return b.block.NewCall(b.lookup(builtinPow), b.toDouble(v1, t1), b.toDouble(v2, t2)), TypeFloat, nil
	default:
		return nil, 0, errors.Errorf("%s: unexpected binary op %s", expr.Loc, expr.Operation)
	}
}

func (b *LLVMIRBuilder) toDouble(v value.Value, typ ValueType) value.Value {
	if typ == TypeFloat {
		return v
	}

	return b.block.NewSIToFP(v, types.Double)
}

// checkNonZero branches to the trap block when isZero holds and continues
// emitting into a fresh block otherwise.
func (b *LLVMIRBuilder) checkNonZero(isZero value.Value) {
	cont := b.fn.NewBlock("")
	b.block.NewCondBr(isZero, b.trapBlock(), cont)
	b.block = cont
}

func (b *LLVMIRBuilder) trapBlock() *ir.Block {
	if b.trap == nil {
		b.trap = b.fn.NewBlock("div.zero")
		b.trap.NewCall(b.lookup(builtinPuts), b.lookup(messageDivZero))
		b.trap.NewRet(constant.NewInt(types.I32, 1))
	}

	return b.trap
}

// intModulo emits a floored srem: a non-zero remainder whose sign differs
// from the divisor's is moved by one divisor. A divisor of -1 is replaced by
// 1 since srem of the minimum i64 by -1 is undefined and both give 0.
func (b *LLVMIRBuilder) intModulo(v1, v2 value.Value) value.Value {
	zero := constant.NewInt(types.I64, 0)
	b.checkNonZero(b.block.NewICmp(enum.IPredEQ, v2, zero))

	minusOne := b.block.NewICmp(enum.IPredEQ, v2, constant.NewInt(types.I64, -1))
	divisor := b.block.NewSelect(minusOne, constant.NewInt(types.I64, 1), v2)

	rem := b.block.NewSRem(v1, divisor)
	nonZero := b.block.NewICmp(enum.IPredNE, rem, zero)
	signsDiffer := b.block.NewICmp(enum.IPredSLT, b.block.NewXor(rem, v2), zero)
	fix := b.block.NewAnd(nonZero, signsDiffer)

	return b.block.NewSelect(fix, b.block.NewAdd(rem, v2), rem)
}

func (b *LLVMIRBuilder) floatModulo(d1, d2 value.Value) value.Value {
	zero := constant.NewFloat(types.Double, 0)
	b.checkNonZero(b.block.NewFCmp(enum.FPredOEQ, d2, zero))

	rem := b.block.NewFRem(d1, d2)
	nonZero := b.block.NewFCmp(enum.FPredONE, rem, zero)
	remNeg := b.block.NewFCmp(enum.FPredOLT, rem, zero)
	divNeg := b.block.NewFCmp(enum.FPredOLT, d2, zero)
	fix := b.block.NewAnd(nonZero, b.block.NewXor(remNeg, divNeg))

	return b.block.NewSelect(fix, b.block.NewFAdd(rem, d2), rem)
}

type LLVMGenerator struct {
	expr Expr
}

func NewLLVMGenerator(expr Expr) *LLVMGenerator {
	return &LLVMGenerator{
		expr: expr,
	}
}

// Do builds a module for the expression. Integer arithmetic wraps on
// overflow; division and modulo by zero stop the program with exit code 1.
func (g LLVMGenerator) Do() (*ir.Module, error) {
	builder := NewLLVMIRBuilder()
	if err := builder.main(g.expr); err != nil {
		return nil, err
	}

	return builder.mod, nil
}
