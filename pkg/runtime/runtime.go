// Package runtime provides the session that threads environments across
// successive MiniML programs.
package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/thomasrohde/miniml/pkg/ast"
	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/environment"
	"github.com/thomasrohde/miniml/pkg/evaluator"
	"github.com/thomasrohde/miniml/pkg/formatter"
	"github.com/thomasrohde/miniml/pkg/validator"
)

// Result holds the outcome of one successful declaration.
type Result struct {
	Name  ast.Identifier
	Value evaluator.Value
	Env   evaluator.Env
}

// Outcome pairs a program with its result or error.
type Outcome struct {
	Program ast.Program
	Result  *Result
	Err     error
}

// Session owns the current environment. Each successful program replaces it
// with the environment the declaration returned; a failed program leaves it
// untouched. A Session is not safe for concurrent use.
type Session struct {
	id      string
	initial evaluator.Env
	env     evaluator.Env
	log     *logrus.Entry
	trace   func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Session.
type Option func(*Session)

// WithID sets the session ID used in logs and trace events.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithEnvironment sets the initial environment.
func WithEnvironment(env evaluator.Env) Option {
	return func(s *Session) {
		s.initial = env
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Session) {
		s.log = logrus.NewEntry(l)
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(s *Session) {
		s.trace = fn
	}
}

// NewLogger returns the default structured logger writing JSON to w.
func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)
	return l
}

// New creates a new Session with the given options.
// By default, the session starts from the empty environment, gets a random
// ID and logs warnings to stderr.
func New(opts ...Option) *Session {
	s := &Session{
		initial: environment.Empty[evaluator.Value](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.log == nil {
		s.log = logrus.NewEntry(NewLogger(os.Stderr, logrus.WarnLevel))
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "runtime", "session_id": s.id})
	s.env = s.initial
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Env returns the current environment snapshot.
func (s *Session) Env() evaluator.Env {
	return s.env
}

// Reset restores the initial environment.
func (s *Session) Reset() {
	s.env = s.initial
	s.log.Debug("session reset")
}

// Eval evaluates prog against the current environment.
func (s *Session) Eval(prog ast.Program) (*Result, error) {
	ev := evaluator.New(s.env, evaluator.WithRunID(s.id), evaluator.WithTrace(s.trace))
	src := "<nil>"
	if prog != nil {
		src = formatter.FormatProgram(prog)
	}

	decl, err := ev.EvalDecl(prog)
	if err != nil {
		fields := logrus.Fields{"program": src}
		var ee *evaluator.EvalError
		if errors.As(err, &ee) {
			fields["code"] = ee.Code
		}
		s.log.WithFields(fields).WithError(err).Info("declaration failed")
		return nil, err
	}

	s.env = decl.Env
	s.log.WithFields(logrus.Fields{
		"program":  src,
		"name":     decl.Name,
		"value":    decl.Value.String(),
		"bindings": s.env.Len(),
	}).Debug("declaration evaluated")
	return &Result{Name: decl.Name, Value: decl.Value, Env: decl.Env}, nil
}

// EvalAll evaluates programs in order. A failing program is recorded and
// the next one runs against the environment from before the failure.
func (s *Session) EvalAll(progs []ast.Program) []Outcome {
	out := make([]Outcome, len(progs))
	for i, p := range progs {
		res, err := s.Eval(p)
		out[i] = Outcome{Program: p, Result: res, Err: err}
	}
	return out
}

// Check validates programs against the current environment without evaluating them.
func (s *Session) Check(progs []ast.Program) []diagnostics.Diagnostic {
	return validator.ValidateAll(progs, s.env)
}

// Decode parses a JSON program file (one tree or an array of trees).
func Decode(data []byte) ([]ast.Program, error) {
	progs, err := ast.UnmarshalPrograms(data)
	if err != nil {
		var de *ast.DecodeError
		if errors.As(err, &de) {
			return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
				diagnostics.MakeDiag(diagnostics.EDecode, de.Message, de.Path, ""),
			}}
		}
		return nil, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EDecode, err.Error(), "", ""),
		}}
	}
	return progs, nil
}

// DemoProgram is the fixed program evaluated when no input is supplied: 23 + 19.
func DemoProgram() ast.Program {
	return ast.Decl(ast.Plus(ast.Int(23), ast.Int(19)))
}

// FormatResult renders a result as "val <name> = <value>".
func FormatResult(r *Result) string {
	return fmt.Sprintf("val %s = %s", r.Name, r.Value)
}

// FormatError renders an error as "error!: <message>".
func FormatError(err error) string {
	return fmt.Sprintf("error!: %s", err)
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
