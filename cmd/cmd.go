// Package cmd implements the nixel command-line interface. Import
// builtin packages via blank imports before calling Execute so they
// register their primops via init().
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/nixel-lang/nixel/eval"
	"github.com/nixel-lang/nixel/fetcher"
	"github.com/nixel-lang/nixel/store"
	"github.com/nixel-lang/nixel/syntax"
)

// Execute runs the nixel CLI with the given version string.
func Execute(version string) {
	cmd := &cli.Command{
		Name:                   "nixel",
		Usage:                  "A lazy functional package-description language evaluator",
		Version:                version,
		UseShortOptionHandling: true,
		// Allow `nixel expr.nix` as shorthand for `nixel eval expr.nix`.
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 && strings.HasSuffix(cmd.Args().First(), ".nix") {
				return evalTarget(cmd, cmd.Args().First(), "")
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "Evaluate an expression or file",
				ArgsUsage: "[file.nix]",
				Flags: append(evalFlags(),
					&cli.StringFlag{
						Name:    "expr",
						Aliases: []string{"e"},
						Usage:   "Evaluate the given expression instead of a file",
					},
					&cli.BoolFlag{
						Name:  "no-deep",
						Usage: "Print only the weak-head value",
					},
					&cli.BoolFlag{
						Name:  "stats",
						Usage: "Dump evaluation statistics to stderr",
					},
				),
				Action: evalAction,
			},
			{
				Name:      "parse",
				Usage:     "Parse a file and dump the expression tree",
				ArgsUsage: "<file.nix>",
				Action:    parseAction,
			},
			{
				Name:   "repl",
				Usage:  "Start an interactive evaluation loop",
				Flags:  evalFlags(),
				Action: replAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", colorize(err.Error()))
		os.Exit(1)
	}
}

func evalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load evaluator settings from a YAML file",
		},
		&cli.BoolFlag{
			Name:  "pure",
			Usage: "Pure evaluation mode",
		},
		&cli.BoolFlag{
			Name:  "restrict",
			Usage: "Restrict file system access to the allowed paths",
		},
		&cli.StringSliceFlag{
			Name:    "include",
			Aliases: []string{"I"},
			Usage:   "Add a search path entry (prefix=path or path)",
		},
	}
}

// newEvalState builds an evaluator from the flags and the optional
// configuration file.
func newEvalState(cmd *cli.Command) (*eval.EvalState, error) {
	cfg := eval.Config{
		Warn: func(msg string) { fmt.Fprintf(os.Stderr, "%s\n", colorizeWarn("warning: "+msg)) },
	}

	if path := cmd.String("config"); path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.Apply(cfg)
	}

	if cmd.Bool("pure") {
		cfg.PureEval = true
	}
	if cmd.Bool("restrict") {
		cfg.RestrictEval = true
	}
	for _, entry := range cmd.StringSlice("include") {
		prefix, value, found := strings.Cut(entry, "=")
		if !found {
			cfg.SearchPath = append(cfg.SearchPath, eval.SearchPathElem{Value: entry})
		} else {
			cfg.SearchPath = append(cfg.SearchPath, eval.SearchPathElem{Prefix: prefix, Value: value})
		}
	}

	return eval.New(cfg, store.NewMemStore(), fetcher.Disabled{}), nil
}

func evalAction(ctx context.Context, cmd *cli.Command) error {
	expr := cmd.String("expr")
	file := ""
	if cmd.NArg() > 0 {
		file = cmd.Args().First()
	}
	if expr == "" && file == "" {
		return fmt.Errorf("usage: nixel eval [-e expr | file.nix]")
	}
	return evalTarget(cmd, file, expr)
}

func evalTarget(cmd *cli.Command, file, expr string) error {
	st, err := newEvalState(cmd)
	if err != nil {
		return err
	}

	var v eval.Value
	if expr != "" {
		cwd, _ := os.Getwd()
		if err := st.EvalString(expr, cwd, &v); err != nil {
			return err
		}
	} else {
		if err := st.EvalFile(file, &v, false); err != nil {
			return err
		}
	}

	if !cmd.Bool("no-deep") {
		if err := st.ForceDeep(&v); err != nil {
			return err
		}
	}
	fmt.Println(st.PrintValue(&v, eval.PrintOptions{Force: true, DerivationPaths: true}))

	if cmd.Bool("stats") {
		stats, err := st.DumpStatistics()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s\n", stats)
	}
	return nil
}

func parseAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: nixel parse <file.nix>")
	}
	// Parsing needs the builtin names in scope, so borrow a throwaway
	// evaluator; the dump then matches what eval would see.
	st := eval.New(eval.Config{}, store.NewMemStore(), fetcher.Disabled{})
	expr, err := st.Parser().ParseFile(cmd.Args().First(), st.StaticBaseEnv())
	if err != nil {
		return err
	}
	fmt.Println(syntax.Show(st.Symbols, expr))
	return nil
}

// colorize wraps an error message in red when stderr is a terminal and
// NO_COLOR is unset.
func colorize(msg string) string {
	if !useColor() {
		return msg
	}
	return "\033[31m" + msg + "\033[0m"
}

func colorizeWarn(msg string) string {
	if !useColor() {
		return msg
	}
	return "\033[33m" + msg + "\033[0m"
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
