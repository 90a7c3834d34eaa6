package calx

import (
	"io"
	"sync"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Interpreter runs source text through the lexer, the parser and the
// evaluator. It keeps no state between calls.
type Interpreter struct {
	grammar Grammar
	parser  *Parser
	logger  *zap.Logger
}

type Option func(*Interpreter)

func WithGrammar(g Grammar) Option {
	return func(in *Interpreter) {
		in.grammar = g
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logger
	}
}

func NewInterpreter(opts ...Option) (*Interpreter, error) {
	in := &Interpreter{
		grammar: CoreGrammar(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(in)
	}

	parser, err := NewParser(in.grammar)
	if err != nil {
		return nil, err
	}

	in.parser = parser
	return in, nil
}

var (
	defaultInterpreter    *Interpreter
	defaultInterpreterErr error
	defaultOnce           sync.Once
)

// Eval evaluates src with the core grammar.
func Eval(src string) (Value, error) {
	defaultOnce.Do(func() {
		defaultInterpreter, defaultInterpreterErr = NewInterpreter()
	})

	if defaultInterpreterErr != nil {
		return nil, defaultInterpreterErr
	}

	return defaultInterpreter.Eval(src)
}

func (in *Interpreter) Tokenize(src string) ([]Token, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	in.logger.Debug("tokenized", zap.Int("tokens", len(toks)))
	return toks, nil
}

// Accepts reports whether the interpreter's grammar uses tok.
func (in *Interpreter) Accepts(tok TokenType) bool {
	return in.parser.Accepts(tok)
}

func (in *Interpreter) Parse(src string) (Expr, error) {
	return in.parse(NewLexer(src))
}

func (in *Interpreter) parse(t Tokenizer) (Expr, error) {
	expr, err := in.parser.Parse(t)
	if err != nil {
		in.logger.Debug("parse failed", zap.String("file", t.GetFilename()), zap.Error(err))
		return nil, err
	}

	in.logger.Debug("parsed", zap.String("file", t.GetFilename()), zap.Stringer("ast", expr))
	return expr, nil
}

func (in *Interpreter) Eval(src string) (Value, error) {
	return in.eval(NewLexer(src))
}

func (in *Interpreter) EvalReader(reader io.Reader) (Value, error) {
	lexer, err := NewLexerFromReader(reader)
	if err != nil {
		return nil, err
	}

	return in.eval(lexer)
}

func (in *Interpreter) EvalFile(filename string) (Value, error) {
	lexer, err := NewLexerFromFile(filename)
	if err != nil {
		return nil, err
	}

	return in.eval(lexer)
}

func (in *Interpreter) eval(t Tokenizer) (Value, error) {
	expr, err := in.parse(t)
	if err != nil {
		return nil, err
	}

	v, err := expr.Evaluate()
	if err != nil {
		in.logger.Debug("evaluation failed", zap.Error(err))
		return nil, err
	}

	in.logger.Debug("evaluated", zap.Stringer("value", v), zap.Stringer("type", v.Type()))
	return v, nil
}

// Compile lowers src into an LLVM module whose main prints the result.
func (in *Interpreter) Compile(src string) (*ir.Module, error) {
	expr, err := in.Parse(src)
	if err != nil {
		return nil, err
	}

	mod, err := NewLLVMGenerator(expr).Do()
	if err != nil {
		return nil, errors.Wrap(err, "generating LLVM IR")
	}

	return mod, nil
}
