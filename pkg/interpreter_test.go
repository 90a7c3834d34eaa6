package calx

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestEval(t *testing.T) {
	cases := []struct {
		src    string
		expect Value
	}{
		{"(+ 2 3)", Integer(5)},
		{"(* (+ 1 2) (- 5 1))", Integer(12)},
		{"(/ 7 2)", Float(3.5)},
		{"((+ 1 1))", Integer(2)},
		{"; full line\n(+ 1 1)", Integer(2)},
		{"(- -5 -7)", Integer(2)},
		{"42", Integer(42)},
	}

	for _, c := range cases {
		got, err := Eval(c.src)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.expect, got, c.src)
	}
}

func TestEvalRendersLargeFloatsPlainly(t *testing.T) {
	cases := []struct {
		src    string
		expect string
	}{
		{"(/ 100000 1)", "100000.0"},
		{"(/ 2000000 1)", "2000000.0"},
		{"(/ 1234567 1)", "1234567.0"},
		{"(/ 1 100000)", "1e-05"},
		{"(/ 10000000000000000 1)", "1e+16"},
	}

	for _, c := range cases {
		got, err := Eval(c.src)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.expect, got.String(), c.src)
	}
}

func TestEvalErrors(t *testing.T) {
	var lexErr *LexError
	var parseErr *ParseError
	var arithErr *ArithmeticError

	_, err := Eval("(/ 1 0)")
	assert.ErrorAs(t, err, &arithErr)

	_, err = Eval("(+ 1)")
	assert.ErrorAs(t, err, &parseErr)

	_, err = Eval("1 2")
	assert.ErrorAs(t, err, &parseErr)

	_, err = Eval("(defun f 1)")
	assert.ErrorAs(t, err, &parseErr)

	_, err = Eval("(+ 1 ?)")
	assert.ErrorAs(t, err, &lexErr)
}

func TestInterpreterArithmeticGrammar(t *testing.T) {
	in, err := NewInterpreter(WithGrammar(ArithmeticGrammar()))
	require.NoError(t, err)

	cases := []struct {
		src    string
		expect Value
	}{
		{"(** 2 10)", Integer(1024)},
		{"(% -7 3)", Integer(2)},
		{"(+ 1.5 1)", Float(2.5)},
		{"(/ 1.0 4)", Float(0.25)},
	}

	for _, c := range cases {
		got, err := in.Eval(c.src)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.expect, got, c.src)
	}

	core, err := NewInterpreter()
	require.NoError(t, err)

	_, err = core.Eval("(** 2 10)")

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestInterpreterRejectsBadGrammar(t *testing.T) {
	g := CoreGrammar()
	g.Precedence = nil

	_, err := NewInterpreter(WithGrammar(g))

	var grammarErr *GrammarError
	assert.ErrorAs(t, err, &grammarErr)
}

func TestInterpreterEvalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.cx")
	require.NoError(t, os.WriteFile(path, []byte("; twelve\n(* (+ 1 2)\n   (- 5 1))\n"), 0o644))

	in, err := NewInterpreter()
	require.NoError(t, err)

	got, err := in.EvalFile(path)
	require.NoError(t, err)
	assert.Equal(t, Integer(12), got)

	_, err = in.EvalFile(filepath.Join(dir, "missing.cx"))
	assert.Error(t, err)
}

func TestInterpreterEvalReader(t *testing.T) {
	in, err := NewInterpreter()
	require.NoError(t, err)

	got, err := in.EvalReader(strings.NewReader("(/ 9 3)"))
	require.NoError(t, err)
	assert.Equal(t, Float(3), got)
}

func TestInterpreterLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	in, err := NewInterpreter(WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = in.Eval("(+ 2 3)")
	require.NoError(t, err)

	parsed := logs.FilterMessage("parsed").All()
	require.Len(t, parsed, 1)
	assert.Equal(t, "(+ 2 3)", parsed[0].ContextMap()["ast"])

	evaluated := logs.FilterMessage("evaluated").All()
	require.Len(t, evaluated, 1)
	assert.Equal(t, "5", evaluated[0].ContextMap()["value"])

	_, err = in.Eval("(/ 1 0)")
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("evaluation failed").Len())
}

func TestInterpreterConcurrentUse(t *testing.T) {
	in, err := NewInterpreter()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				v, err := in.Eval("(* (+ 1 2) (- 5 1))")
				assert.NoError(t, err)
				assert.Equal(t, Integer(12), v)
			}
		}()
	}

	wg.Wait()
}
