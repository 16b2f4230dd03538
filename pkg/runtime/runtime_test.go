package runtime_test

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/thomasrohde/miniml/pkg/ast"
	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/environment"
	"github.com/thomasrohde/miniml/pkg/evaluator"
	"github.com/thomasrohde/miniml/pkg/runtime"
)

func newSession(t *testing.T, opts ...runtime.Option) (*runtime.Session, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return runtime.New(append([]runtime.Option{runtime.WithLogger(logger)}, opts...)...), hook
}

func TestDemoProgram(t *testing.T) {
	s, _ := newSession(t)
	res, err := s.Eval(runtime.DemoProgram())
	if err != nil {
		t.Fatal(err)
	}
	if got := runtime.FormatResult(res); got != "val - = 42" {
		t.Errorf("got %q, want %q", got, "val - = 42")
	}
	if s.Env().Len() != 0 {
		t.Errorf("environment should stay empty, got %d bindings", s.Env().Len())
	}
}

func TestFailureKeepsPriorEnvironment(t *testing.T) {
	initial := environment.Empty[evaluator.Value]().Extend("x", evaluator.NewInt(5))
	s, hook := newSession(t, runtime.WithEnvironment(initial))

	_, err := s.Eval(ast.Decl(ast.Plus(ast.Ident("x"), ast.Bool(true))))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := runtime.FormatError(err); got != "error!: Both arguments must be integer: +" {
		t.Errorf("got %q", got)
	}
	if s.Env().Len() != 1 {
		t.Errorf("got %d bindings after failure, want 1", s.Env().Len())
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "declaration failed" {
		t.Fatalf("got log entry %+v", entry)
	}
	if entry.Data["code"] != diagnostics.EType {
		t.Errorf("got code field %v", entry.Data["code"])
	}
	if entry.Data["session_id"] != s.ID() {
		t.Errorf("got session_id %v, want %s", entry.Data["session_id"], s.ID())
	}

	res, err := s.Eval(ast.Decl(ast.Mult(ast.Ident("x"), ast.Int(2))))
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != evaluator.NewInt(10) {
		t.Errorf("got %v, want 10", res.Value)
	}
}

func TestEvalAll(t *testing.T) {
	s, _ := newSession(t, runtime.WithID("fixed"))
	outcomes := s.EvalAll([]ast.Program{
		ast.Decl(ast.Int(1)),
		ast.Decl(ast.Ident("nope")),
		ast.Decl(ast.Lt(ast.Int(1), ast.Int(2))),
	})
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Result.Value != evaluator.NewInt(1) {
		t.Errorf("outcome 0: %+v", outcomes[0])
	}
	if !evaluator.IsUnbound(outcomes[1].Err) || outcomes[1].Result != nil {
		t.Errorf("outcome 1: %+v", outcomes[1])
	}
	if outcomes[2].Err != nil || outcomes[2].Result.Value != evaluator.NewBool(true) {
		t.Errorf("outcome 2: %+v", outcomes[2])
	}
	if s.ID() != "fixed" {
		t.Errorf("got id %q", s.ID())
	}
}

func TestDefaultIDIsUUID(t *testing.T) {
	s, _ := newSession(t)
	if len(s.ID()) != 36 {
		t.Errorf("got id %q, want a UUID", s.ID())
	}
	other, _ := newSession(t)
	if other.ID() == s.ID() {
		t.Error("sessions should get distinct ids")
	}
}

func TestReset(t *testing.T) {
	initial := environment.Empty[evaluator.Value]().Extend("a", evaluator.NewBool(false))
	s, _ := newSession(t, runtime.WithEnvironment(initial))
	s.Reset()
	if v, err := s.Env().Lookup("a"); err != nil || v != evaluator.NewBool(false) {
		t.Errorf("got %v, %v", v, err)
	}
}

func TestTraceCarriesSessionID(t *testing.T) {
	var events []evaluator.TraceEvent
	s, _ := newSession(t, runtime.WithID("sess-1"), runtime.WithTrace(func(e evaluator.TraceEvent) {
		events = append(events, e)
	}))
	if _, err := s.Eval(runtime.DemoProgram()); err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 {
		t.Fatal("no trace events")
	}
	for _, e := range events {
		if e.RunID != "sess-1" {
			t.Errorf("got run id %q", e.RunID)
		}
	}
}

func TestCheck(t *testing.T) {
	s, _ := newSession(t)
	diags := s.Check([]ast.Program{ast.Decl(ast.If(ast.Bool(true), ast.Int(1), ast.Ident("y")))})
	if len(diags) != 1 || diags[0].Code != diagnostics.EUnbound {
		t.Errorf("got %+v", diags)
	}
}

func TestDecode(t *testing.T) {
	progs, err := runtime.Decode([]byte(`[{"kind":"ILit","value":1},{"kind":"BLit","value":false}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(progs) != 2 {
		t.Errorf("got %d programs", len(progs))
	}

	_, err = runtime.Decode([]byte(`{"kind":"BinOp","op":"+","left":{"kind":"ILit","value":1}}`))
	var de *runtime.DiagnosticError
	if !errors.As(err, &de) {
		t.Fatalf("got %T, want *DiagnosticError", err)
	}
	d := de.Diagnostics[0]
	if d.Code != diagnostics.EDecode || d.Path != "$.right" {
		t.Errorf("got %+v", d)
	}

	_, err = runtime.Decode([]byte(`[1,`))
	if !errors.As(err, &de) || de.Diagnostics[0].Code != diagnostics.EDecode {
		t.Errorf("got %v", err)
	}
}
