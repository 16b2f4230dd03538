// Command mml is the MiniML CLI entry point.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thomasrohde/miniml/pkg/config"
	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/evaluator"
	"github.com/thomasrohde/miniml/pkg/formatter"
	"github.com/thomasrohde/miniml/pkg/help"
	"github.com/thomasrohde/miniml/pkg/runtime"
)

const usage = `usage: mml <command> [options]
commands:
  repl                         interactive session (one JSON program per entry)
  run <file|-> [--json] [--trace <path>] [--log-level <lvl>]
  check <file|-> [--pretty]
  fmt <file|->
  trace <file.jsonl> [--json|--text]
  serve [--addr <host:port>] [--log-level <lvl>]
  help [topic]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "repl":
		os.Exit(cmdRepl(args))
	case "run":
		os.Exit(cmdRun(args, os.Stdin, os.Stdout, os.Stderr))
	case "check":
		os.Exit(cmdCheck(args, os.Stdin, os.Stdout, os.Stderr))
	case "fmt":
		os.Exit(cmdFmt(args, os.Stdin, os.Stdout, os.Stderr))
	case "trace":
		os.Exit(cmdTrace(args, os.Stdout, os.Stderr))
	case "serve":
		os.Exit(cmdServe(args))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(args, os.Stdout, os.Stderr))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

// loadSettings loads the config for the working directory and builds the
// logger and initial environment. A non-empty levelFlag overrides the config.
func loadSettings(levelFlag string, stderr io.Writer) (*config.Config, *logrus.Logger, evaluator.Env, error) {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, nil, evaluator.Env{}, err
	}
	if levelFlag != "" {
		cfg.LogLevel = levelFlag
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, evaluator.Env{}, err
	}
	env, err := cfg.Environment()
	if err != nil {
		return nil, nil, evaluator.Env{}, err
	}
	return cfg, runtime.NewLogger(stderr, level), env, nil
}

func cmdHelp(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, usage)
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, help.QUICKREF)
		return 0
	}
	if args[0] == "ops" {
		fmt.Fprint(stdout, help.OperatorIndex())
		return 0
	}
	name, content, err := help.MatchTopic(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s\n\n%s\n", strings.ToUpper(name), content)
	return 0
}

func cmdRun(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var file string
	jsonOutput := false
	tracePath := ""
	logLevel := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--log-level":
			if i+1 < len(args) {
				i++
				logLevel = args[i]
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(stderr, "usage: mml run <file|-> [--json] [--trace <path>]")
		return 1
	}

	_, logger, env, err := loadSettings(logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}

	source, exitCode := readSource(file, stdin, stderr)
	if exitCode != 0 {
		return exitCode
	}
	progs, err := runtime.Decode(source)
	if err != nil {
		printDiagError(stderr, err, !jsonOutput)
		return 2
	}

	opts := []runtime.Option{runtime.WithLogger(logger), runtime.WithEnvironment(env)}
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			fmt.Fprintf(stderr, "error creating trace file: %s\n", err)
			return 1
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		opts = append(opts, runtime.WithTrace(func(e evaluator.TraceEvent) {
			_ = enc.Encode(e)
		}))
	}
	sess := runtime.New(opts...)

	failed := false
	for _, out := range sess.EvalAll(progs) {
		if out.Err != nil {
			failed = true
			if jsonOutput {
				printEvalErrorJSON(stdout, out.Err)
			} else {
				fmt.Fprintln(stdout, runtime.FormatError(out.Err))
			}
			continue
		}
		if jsonOutput {
			b, _ := json.Marshal(map[string]any{
				"name":  out.Result.Name,
				"value": json.RawMessage(evaluator.ValueToJSONString(out.Result.Value)),
			})
			fmt.Fprintln(stdout, string(b))
		} else {
			fmt.Fprintln(stdout, runtime.FormatResult(out.Result))
		}
	}

	if failed {
		return 4
	}
	return 0
}

func cmdCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(stderr, "usage: mml check <file|-> [--pretty]")
		return 1
	}

	_, logger, env, err := loadSettings("", stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return 1
	}

	source, exitCode := readSource(file, stdin, stderr)
	if exitCode != 0 {
		return exitCode
	}
	progs, err := runtime.Decode(source)
	if err != nil {
		printDiagError(stderr, err, pretty)
		return 2
	}

	sess := runtime.New(runtime.WithLogger(logger), runtime.WithEnvironment(env))
	diags := sess.Check(progs)
	if len(diags) > 0 {
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Fprintln(stdout, "No errors found.")
	} else {
		fmt.Fprintln(stdout, "[]")
	}
	return 0
}

func cmdFmt(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var file string
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(stderr, "usage: mml fmt <file|->")
		return 1
	}

	source, exitCode := readSource(file, stdin, stderr)
	if exitCode != 0 {
		return exitCode
	}
	progs, err := runtime.Decode(source)
	if err != nil {
		printDiagError(stderr, err, false)
		return 2
	}
	if len(progs) == 0 {
		return 0
	}
	fmt.Fprint(stdout, formatter.Format(progs))
	return 0
}

func cmdTrace(args []string, stdout, stderr io.Writer) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(stderr, "usage: mml trace <file.jsonl> [--json|--text]")
		return 1
	}

	// Read and parse NDJSON trace file
	f, err := os.Open(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), "", "")
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return 1
	}
	defer f.Close()

	summary := computeTraceSummary(f)

	if textOutput {
		printTraceSummaryText(stdout, summary)
	} else {
		b, _ := json.Marshal(summary)
		fmt.Fprintln(stdout, string(b))
	}
	return 0
}

// TraceSummary aggregates a trace file written by `mml run --trace`.
type TraceSummary struct {
	RunID        string         `json:"runId"`
	TotalEvents  int            `json:"totalEvents"`
	Declarations int            `json:"declarations"`
	Succeeded    int            `json:"succeeded"`
	Failures     int            `json:"failures"`
	ErrorsByCode map[string]int `json:"errorsByCode"`
	StartTime    string         `json:"startTime,omitempty"`
	EndTime      string         `json:"endTime,omitempty"`
	DurationMs   float64        `json:"durationMs"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		ErrorsByCode: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event evaluator.TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}
		if summary.StartTime == "" {
			summary.StartTime = event.Timestamp
		}
		summary.EndTime = event.Timestamp

		switch event.Event {
		case evaluator.TraceDeclStart:
			summary.Declarations++
		case evaluator.TraceDeclEnd:
			summary.Succeeded++
		case evaluator.TraceError:
			summary.Failures++
			summary.ErrorsByCode[event.Data["code"]]++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Declarations: %d (%d failures)\n", s.Declarations, s.Failures)
	codes := make([]string, 0, len(s.ErrorsByCode))
	for code := range s.ErrorsByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorsByCode[code])
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func readSource(file string, stdin io.Reader, stderr io.Writer) ([]byte, int) {
	if file == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "error reading stdin: %s\n", err)
			return nil, 1
		}
		return data, 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), "", "")
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return nil, 1
	}
	return source, 0
}

func printDiagError(w io.Writer, err error, pretty bool) {
	var de *runtime.DiagnosticError
	if errors.As(err, &de) {
		fmt.Fprintln(w, diagnostics.FormatDiagnostics(de.Diagnostics, pretty))
		return
	}
	fmt.Fprintln(w, err.Error())
}

func printEvalErrorJSON(w io.Writer, err error) {
	var ee *evaluator.EvalError
	if errors.As(err, &ee) {
		fmt.Fprintln(w, diagnostics.FormatDiagnostic(ee.Diagnostic(), false))
		return
	}
	fmt.Fprintln(w, diagnostics.FormatDiagnostic(diagnostics.MakeDiag(diagnostics.EType, err.Error(), "", ""), false))
}

func parseTime(s string) (time.Time, error) {
	// Try RFC3339Nano first, then other common formats
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
