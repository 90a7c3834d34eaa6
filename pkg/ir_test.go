package calx

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueLookup(t *testing.T) {
	vals := NewValueLookup()

	val1 := constant.NewInt(types.I32, 1)
	val2 := constant.NewInt(types.I32, 2)

	vals.Set("id1", val1)
	vals.Set("id2", val2)

	got, ok := vals.Get("id1")
	assert.True(t, ok)
	assert.Equal(t, val1, got)

	got, ok = vals.Get("id2")
	assert.True(t, ok)
	assert.Equal(t, val2, got)

	_, ok = vals.Get("id3")
	assert.False(t, ok)
}

func compile(t *testing.T, g Grammar, src string) string {
	t.Helper()

	in, err := NewInterpreter(WithGrammar(g))
	require.NoError(t, err)

	mod, err := in.Compile(src)
	require.NoError(t, err, src)

	return mod.String()
}

func TestLLVMIntegerArithmetic(t *testing.T) {
	out := compile(t, CoreGrammar(), "(* (+ 1 2) (- 5 1))")

	assert.Contains(t, out, "define i32 @main()")
	assert.Contains(t, out, "declare i32 @printf(")
	assert.Contains(t, out, "call i32")
	assert.Contains(t, out, "add i64 1, 2")
	assert.Contains(t, out, "sub i64 5, 1")
	assert.Contains(t, out, "mul i64")
	assert.Contains(t, out, "%lld")
	assert.NotContains(t, out, "div.zero")
}

func TestLLVMTrueDivision(t *testing.T) {
	out := compile(t, CoreGrammar(), "(/ 7 2)")

	assert.Contains(t, out, "sitofp i64 7 to double")
	assert.Contains(t, out, "fdiv double")
	assert.NotContains(t, out, "sdiv")
	assert.Contains(t, out, "fcmp oeq double")
	assert.Contains(t, out, "div.zero:")
	assert.Contains(t, out, "ret i32 1")
	assert.Contains(t, out, "division by zero")
	assert.Contains(t, out, "@puts(")
}

func TestLLVMSharesTrapBlock(t *testing.T) {
	out := compile(t, CoreGrammar(), "(/ (/ 1 2) (/ 3 4))")

	assert.Equal(t, 3, strings.Count(out, "fdiv double"))
	assert.Equal(t, 1, strings.Count(out, "div.zero:"))
}

func TestLLVMModuloAndPower(t *testing.T) {
	out := compile(t, ArithmeticGrammar(), "(% (** 2 10) 7)")

	assert.Contains(t, out, "declare double @llvm.pow.f64(")
	assert.Contains(t, out, "call double @llvm.pow.f64")
	assert.Contains(t, out, "frem double")
	assert.Contains(t, out, "select i1")

	out = compile(t, ArithmeticGrammar(), "(% -7 3)")
	assert.Contains(t, out, "srem i64 -7, %")
	assert.Contains(t, out, "icmp eq i64 3, 0")
}

func TestLLVMModuloGuardsMinusOne(t *testing.T) {
	out := compile(t, ArithmeticGrammar(), "(% -9223372036854775808 -1)")

	assert.Contains(t, out, "icmp eq i64 -1, -1")
	assert.Contains(t, out, "select i1")
	assert.NotContains(t, out, "srem i64 -9223372036854775808, -1")
}

func TestLLVMRejectsStrings(t *testing.T) {
	_, err := NewLLVMGenerator(bin(BinaryAddition, &LiteralExpr{Val: String("a")}, lit(1))).Do()
	assert.Error(t, err)
}
