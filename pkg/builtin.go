package calx

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

const (
	builtinPrintf = "printf"
	builtinPuts   = "puts"
	builtinPow    = "llvm.pow.f64"

	formatInteger  = "fmt.int"
	formatFloat    = "fmt.float"
	messageDivZero = "msg.divzero"
)

func defineBuiltins(b *LLVMIRBuilder) {
	defineBuiltinFunc(b, builtinPrintf, builtinPrintfDecl)
	defineBuiltinFunc(b, builtinPuts, builtinPutsDecl)
	defineBuiltinFunc(b, builtinPow, builtinPowDecl)

	defineString(b, formatInteger, "%lld\n")
	defineString(b, formatFloat, "%.17g\n")
	defineString(b, messageDivZero, "division by zero")
}

type funcDefinition = func(mod *ir.Module) *ir.Func

func defineBuiltinFunc(b *LLVMIRBuilder, name string, definition funcDefinition) {
	f := definition(b.mod)
	f.SetName(name)
	b.values.Set(name, f)
}

func builtinPrintfDecl(mod *ir.Module) *ir.Func {
	f := mod.NewFunc("", types.I32, ir.NewParam("format", types.I8Ptr))
	f.Sig.Variadic = true

	return f
}

func builtinPutsDecl(mod *ir.Module) *ir.Func {
	return mod.NewFunc("", types.I32, ir.NewParam("s", types.I8Ptr))
}

func builtinPowDecl(mod *ir.Module) *ir.Func {
	return mod.NewFunc("", types.Double, ir.NewParam("x", types.Double), ir.NewParam("y", types.Double))
}

// defineString adds a NUL-terminated global and registers a pointer to its
// first byte under name.
func defineString(b *LLVMIRBuilder, name string, s string) {
	data := constant.NewCharArrayFromString(s + "\x00")
	glob := b.mod.NewGlobalDef("."+name, data)
	glob.Immutable = true

	zero := constant.NewInt(types.I32, 0)
	addr := constant.NewGetElementPtr(types.NewArray(uint64(len(s)+1), types.I8), glob, zero, zero)

	b.values.Set(name, addr)
}
