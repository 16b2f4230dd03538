package evaluator

import (
	"errors"
	"fmt"
	"time"

	"github.com/thomasrohde/miniml/pkg/ast"
	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/environment"
)

// AnonymousName is the binding name reported for bare-expression programs.
const AnonymousName ast.Identifier = "-"

// Env is the environment the evaluator closes over.
type Env = environment.Environment[Value]

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceDeclStart TraceEventType = "decl_start"
	TraceDeclEnd   TraceEventType = "decl_end"
	TraceEvalStart TraceEventType = "eval_start"
	TraceEvalEnd   TraceEventType = "eval_end"
	TraceError     TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during evaluation.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Kind      string            `json:"kind,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// EvalError represents a failure during evaluation.
// Code is diagnostics.EUnbound (Name set) or diagnostics.EType.
type EvalError struct {
	Code    string
	Message string
	Name    ast.Identifier
	Path    string
	Hint    string
}

func (e *EvalError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display alongside decode and validation diagnostics.
func (e *EvalError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Path, e.Hint)
}

// IsUnbound reports whether err is an unbound-variable failure.
func IsUnbound(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee) && ee.Code == diagnostics.EUnbound
}

// IsTypeMismatch reports whether err is a type-mismatch failure.
func IsTypeMismatch(err error) bool {
	var ee *EvalError
	return errors.As(err, &ee) && ee.Code == diagnostics.EType
}

// Declaration is the outcome of evaluating a top-level program.
type Declaration struct {
	Name  ast.Identifier
	Env   Env
	Value Value
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTrace sets the trace callback.
func WithTrace(fn func(event TraceEvent)) Option {
	return func(ev *Evaluator) {
		ev.trace = fn
	}
}

// WithRunID sets the run ID attached to trace events.
func WithRunID(id string) Option {
	return func(ev *Evaluator) {
		ev.runID = id
	}
}

// Evaluator reduces expressions to values under a fixed environment.
// It never modifies the environment it was created with.
type Evaluator struct {
	env   Env
	trace func(event TraceEvent)
	runID string
}

// New creates an evaluator closed over env.
func New(env Env, opts ...Option) *Evaluator {
	ev := &Evaluator{env: env}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// Env returns the environment the evaluator closes over.
func (ev *Evaluator) Env() Env {
	return ev.env
}

func (ev *Evaluator) emit(event TraceEventType, kind string, data map[string]string) {
	if ev.trace != nil {
		ev.trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.runID,
			Event:     event,
			Kind:      kind,
			Data:      data,
		})
	}
}

func (ev *Evaluator) emitError(err error) {
	var ee *EvalError
	if errors.As(err, &ee) {
		ev.emit(TraceError, "", map[string]string{"code": ee.Code, "message": ee.Message, "path": ee.Path})
	}
}

// EvalDecl evaluates a top-level program. Bare-expression programs bind
// nothing: the returned environment is the evaluator's own.
func (ev *Evaluator) EvalDecl(prog ast.Program) (*Declaration, error) {
	kind := "<nil>"
	if prog != nil {
		kind = prog.Kind()
	}
	ev.emit(TraceDeclStart, kind, nil)

	switch p := prog.(type) {
	case *ast.ExpProgram:
		v, err := ev.EvalExp(p.Exp)
		if err != nil {
			return nil, err
		}
		ev.emit(TraceDeclEnd, kind, map[string]string{"name": AnonymousName, "value": v.String()})
		return &Declaration{Name: AnonymousName, Env: ev.env, Value: v}, nil
	}

	err := &EvalError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unsupported program type: %T", prog),
	}
	ev.emitError(err)
	return nil, err
}

// EvalExp reduces exp to a value. The first failure aborts evaluation.
func (ev *Evaluator) EvalExp(exp ast.Exp) (Value, error) {
	ev.emit(TraceEvalStart, kindOf(exp), nil)
	v, err := ev.evalExp(exp, "$")
	if err != nil {
		ev.emitError(err)
		return nil, err
	}
	ev.emit(TraceEvalEnd, kindOf(exp), map[string]string{"value": v.String()})
	return v, nil
}

func kindOf(exp ast.Exp) string {
	if exp == nil {
		return "<nil>"
	}
	return exp.Kind()
}

func (ev *Evaluator) evalExp(exp ast.Exp, path string) (Value, error) {
	switch e := exp.(type) {
	case *ast.Var:
		return ev.evalVar(e, path)

	case *ast.ILit:
		return NewInt(e.Value), nil

	case *ast.BLit:
		return NewBool(e.Value), nil

	case *ast.BinOp:
		return ev.evalBinOp(e, path)

	case *ast.IfExp:
		return ev.evalIfExp(e, path)

	default:
		return nil, &EvalError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unsupported expression type: %T", exp),
			Path:    path,
		}
	}
}

func (ev *Evaluator) evalVar(e *ast.Var, path string) (Value, error) {
	val, err := ev.env.Lookup(e.Name)
	if err != nil {
		return nil, &EvalError{
			Code:    diagnostics.EUnbound,
			Message: fmt.Sprintf("Variable not bound: %s", e.Name),
			Name:    e.Name,
			Path:    path,
		}
	}
	return val, nil
}

func (ev *Evaluator) evalBinOp(e *ast.BinOp, path string) (Value, error) {
	left, err := ev.evalExp(e.Left, path+".left")
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExp(e.Right, path+".right")
	if err != nil {
		return nil, err
	}

	val, err := ApplyPrim(e.Op, left, right)
	if err != nil {
		var ee *EvalError
		if errors.As(err, &ee) {
			ee.Path = path
		}
		return nil, err
	}
	return val, nil
}

func (ev *Evaluator) evalIfExp(e *ast.IfExp, path string) (Value, error) {
	cond, err := ev.evalExp(e.Cond, path+".cond")
	if err != nil {
		return nil, err
	}
	b, ok := cond.(BoolValue)
	if !ok {
		return nil, &EvalError{
			Code:    diagnostics.EType,
			Message: "Test expression must be boolean: if",
			Path:    path + ".cond",
			Hint:    "got " + typeNameOf(cond),
		}
	}
	if b.Value {
		return ev.evalExp(e.Then, path+".then")
	}
	return ev.evalExp(e.Else, path+".else")
}

// ApplyPrim applies a primitive operator to two evaluated operands.
// Integer arithmetic wraps around on overflow (two's complement).
func ApplyPrim(op ast.BinaryOp, left, right Value) (Value, error) {
	if !op.Valid() {
		return nil, &EvalError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("unknown operator: %s", op),
		}
	}
	l, lErr := left.ToInt()
	r, rErr := right.ToInt()
	if lErr != nil || rErr != nil {
		return nil, &EvalError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("Both arguments must be integer: %s", op),
			Hint:    fmt.Sprintf("got %s and %s", typeNameOf(left), typeNameOf(right)),
		}
	}

	switch op {
	case ast.OpPlus:
		return NewInt(l + r), nil
	case ast.OpMult:
		return NewInt(l * r), nil
	case ast.OpLt:
		return NewBool(l < r), nil
	}
	return nil, &EvalError{Code: diagnostics.EType, Message: fmt.Sprintf("unknown operator: %s", op)}
}
