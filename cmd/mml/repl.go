package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/thomasrohde/miniml/pkg/ast"
	"github.com/thomasrohde/miniml/pkg/evaluator"
	"github.com/thomasrohde/miniml/pkg/runtime"
)

const continuationPrompt = "  "

const replHelp = `Enter one JSON program tree per entry, e.g.
  {"kind":"BinOp","op":"+","left":{"kind":"ILit","value":1},"right":{"kind":"ILit","value":2}}
An empty line evaluates the demo program 23 + 19.
Commands:
  :env     list the current bindings
  :reset   restore the initial environment
  :help    show this message
  :quit    leave the session`

// prompter reads one line of input. *liner.State satisfies it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

func cmdRepl(args []string) int {
	logLevel := ""
	for i := 0; i < len(args); i++ {
		if args[i] == "--log-level" && i+1 < len(args) {
			i++
			logLevel = args[i]
		}
	}

	cfg, logger, env, err := loadSettings(logLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		return 1
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.HistoryFile
	if !filepath.IsAbs(histPath) {
		if home, err := os.UserHomeDir(); err == nil {
			histPath = filepath.Join(home, histPath)
		}
	}
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			f.Close()
		}
	}()

	sess := runtime.New(runtime.WithLogger(logger), runtime.WithEnvironment(env))
	fmt.Println("MiniML. Type :help for commands.")
	runRepl(sess, ln, cfg.Prompt, os.Stdout, ln.AppendHistory)
	return 0
}

// runRepl drives the read-eval-print loop until EOF or :quit. Entries that
// are incomplete JSON keep reading under the continuation prompt.
func runRepl(sess *runtime.Session, in prompter, prompt string, out io.Writer, remember func(string)) {
	var buf strings.Builder
	for {
		p := prompt
		if buf.Len() > 0 {
			p = continuationPrompt
		}
		line, err := in.Prompt(p)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				buf.Reset()
				continue
			}
			if err != io.EOF {
				fmt.Fprintf(out, "error: %s\n", err)
			}
			return
		}

		trimmed := strings.TrimSpace(line)
		if buf.Len() == 0 {
			switch trimmed {
			case ":quit", ":q":
				return
			case ":help":
				fmt.Fprintln(out, replHelp)
				continue
			case ":env":
				printEnv(out, sess.Env())
				continue
			case ":reset":
				sess.Reset()
				fmt.Fprintln(out, "environment reset")
				continue
			case "":
				evalAndPrint(sess, runtime.DemoProgram(), out)
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		if incompleteJSON(buf.String()) {
			continue
		}
		entry := buf.String()
		buf.Reset()
		if remember != nil {
			remember(strings.TrimSpace(entry))
		}

		progs, err := runtime.Decode([]byte(entry))
		if err != nil {
			printDiagError(out, err, true)
			continue
		}
		for _, prog := range progs {
			evalAndPrint(sess, prog, out)
		}
	}
}

func evalAndPrint(sess *runtime.Session, prog ast.Program, out io.Writer) {
	res, err := sess.Eval(prog)
	if err != nil {
		fmt.Fprintln(out, runtime.FormatError(err))
		return
	}
	fmt.Fprintln(out, runtime.FormatResult(res))
}

// printEnv lists visible bindings, most recent first.
func printEnv(out io.Writer, env evaluator.Env) {
	if env.Len() == 0 {
		fmt.Fprintln(out, "(empty)")
		return
	}
	for _, name := range env.Names() {
		v, _ := env.Lookup(name)
		fmt.Fprintf(out, "%s = %s\n", name, v)
	}
}

// incompleteJSON reports whether src is a JSON prefix that needs more input.
func incompleteJSON(src string) bool {
	dec := json.NewDecoder(bytes.NewReader([]byte(src)))
	var raw json.RawMessage
	err := dec.Decode(&raw)
	return errors.Is(err, io.ErrUnexpectedEOF)
}
