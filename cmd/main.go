package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	calx "go.calx.dev/pkg"
)

// rootEnv holds flag values and the state shared by every subcommand.
type rootEnv struct {
	configPath string
	file       string
	grammar    string
	logLevel   string
	noColor    bool

	cfg      *Config
	logger   *zap.Logger
	interp   *calx.Interpreter
	src      string
	filename string
}

func main() {
	env := &rootEnv{}
	root := env.getRootCmd()

	err := root.Execute()
	if env.logger != nil {
		_ = env.logger.Sync()
	}

	if err != nil {
		env.printError(os.Stderr, err)
		os.Exit(1)
	}
}

func (env *rootEnv) getRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "calx [expression]",
		Short: "Evaluate a prefix arithmetic expression such as (* (+ 1 2) (- 5 1)).",
		Long: `
Reads one expression from the argument or from --file and prints its value.
Division is true division: (/ 7 2) prints 3.5.`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: env.setup,
		RunE:              env.runEval,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&env.configPath, "config", "", "YAML configuration file")
	flags.StringVarP(&env.file, "file", "f", "", "Read the expression from this file")
	flags.StringVar(&env.grammar, "grammar", "core", "Grammar to parse with: core or arithmetic")
	flags.StringVar(&env.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flags.BoolVar(&env.noColor, "no-color", false, "Disable coloured error output")

	root.AddCommand(
		env.getEvalCmd(),
		env.getTokensCmd(),
		env.getASTCmd(),
		env.getLLVMCmd(),
	)

	return root
}

func (env *rootEnv) getEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval [expression]",
		Short: "Evaluate the expression and print its value.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  env.runEval,
	}
}

func (env *rootEnv) getTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [expression]",
		Short: "Print the tokens of the expression, one per line, marking those the grammar does not use.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  env.runTokens,
	}
}

func (env *rootEnv) getASTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ast [expression]",
		Short: "Print the parsed expression in canonical prefix form.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  env.runAST,
	}
}

func (env *rootEnv) getLLVMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "llvm [expression]",
		Short: "Print an LLVM module whose main prints the value of the expression.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  env.runLLVM,
	}
}

// setup merges the config file with the flags, then builds the logger and
// the interpreter.
func (env *rootEnv) setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(env.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("grammar") {
		cfg.Grammar = env.grammar
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = env.logLevel
	}
	if flags.Changed("no-color") {
		cfg.Color = !env.noColor
	}

	color.NoColor = color.NoColor || !cfg.Color
	env.cfg = cfg

	if env.logger, err = newLogger(cfg); err != nil {
		return err
	}

	g, err := calx.GrammarByName(cfg.Grammar)
	if err != nil {
		return err
	}

	env.interp, err = calx.NewInterpreter(calx.WithGrammar(g), calx.WithLogger(env.logger))
	if err != nil {
		return err
	}

	return env.readSource(args)
}

func (env *rootEnv) readSource(args []string) error {
	switch {
	case env.file != "" && len(args) > 0:
		return errors.New("give either an expression or --file, not both")
	case env.file != "":
		data, err := os.ReadFile(env.file)
		if err != nil {
			return errors.Wrapf(err, "reading %s", env.file)
		}

		env.src, env.filename = string(data), env.file
	case len(args) == 1:
		env.src = args[0]
	default:
		return errors.New("no expression given")
	}

	env.logger.Debug("source loaded", zap.String("file", env.filename), zap.Int("bytes", len(env.src)))
	return nil
}

func (env *rootEnv) runEval(cmd *cobra.Command, _ []string) error {
	v, err := env.interp.Eval(env.src)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func (env *rootEnv) runTokens(cmd *cobra.Command, _ []string) error {
	toks, err := env.interp.Tokenize(env.src)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, tok := range toks {
		fmt.Fprintf(out, "%s\t%-10s %s", tok.Loc, tok.Typ, tok.Value)
		if !env.interp.Accepts(tok.Typ) {
			fmt.Fprint(out, "\t(not in grammar)")
		}
		fmt.Fprintln(out)
	}

	return nil
}

func (env *rootEnv) runAST(cmd *cobra.Command, _ []string) error {
	expr, err := env.interp.Parse(env.src)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), expr)
	return nil
}

func (env *rootEnv) runLLVM(cmd *cobra.Command, _ []string) error {
	mod, err := env.interp.Compile(env.src)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), mod)
	return nil
}

func (env *rootEnv) printError(w io.Writer, err error) {
	msg := calx.FormatError(err, env.filename, env.src)

	header, rest, _ := strings.Cut(msg, "\n")
	color.New(color.FgRed, color.Bold).Fprintln(w, header)
	if rest != "" {
		fmt.Fprintln(w, rest)
	}
}
