package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"

	"github.com/nixel-lang/nixel/eval"
)

const historyFile = ".nixel_history"

// replAction runs the interactive loop: expressions are parsed and
// evaluated against one persistent evaluator, so imports stay cached
// between inputs.
func replAction(ctx context.Context, cmd *cli.Command) error {
	st, err := newEvalState(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("nixel repl, :h for help\n")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	cwd, _ := os.Getwd()

	for {
		line, err := ln.Prompt("nixel> ")
		if errors.Is(err, io.EOF) {
			fmt.Println()
			break
		}
		if err != nil {
			// Ctrl+C aborts the current input; start over.
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(line), ":") {
			if quit := replCommand(st, line); quit {
				break
			}
			ln.AppendHistory(line)
			continue
		}

		var v eval.Value
		if err := st.EvalString(line, cwd, &v); err != nil {
			fmt.Println(colorize(err.Error()))
			continue
		}
		if err := st.ForceDeep(&v); err != nil {
			fmt.Println(colorize(err.Error()))
			continue
		}
		fmt.Println(st.PrintValue(&v, eval.PrintOptions{Force: true, DerivationPaths: true}))
		ln.AppendHistory(line)
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}

// replCommand handles :h, :q, :l and :reset; returns true to exit.
func replCommand(st *eval.EvalState, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":q", ":quit":
		return true
	case ":h", ":help":
		fmt.Print(`  :h             show this help
  :l <file.nix>  load and print a file
  :reset         drop the file caches
  :q             quit
`)
	case ":l", ":load":
		if len(fields) < 2 {
			fmt.Println("usage: :l <file.nix>")
			return false
		}
		var v eval.Value
		if err := st.EvalFile(fields[1], &v, false); err != nil {
			fmt.Println(colorize(err.Error()))
			return false
		}
		if err := st.ForceDeep(&v); err != nil {
			fmt.Println(colorize(err.Error()))
			return false
		}
		fmt.Println(st.PrintValue(&v, eval.PrintOptions{Force: true, DerivationPaths: true}))
	case ":reset":
		st.ResetFileCache()
		fmt.Println("file caches dropped.")
	default:
		fmt.Println("unknown command. Type :h for help.")
	}
	return false
}
