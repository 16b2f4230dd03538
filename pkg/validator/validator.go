// Package validator implements static checks of MiniML programs.
//
// Validation never evaluates anything. It walks every branch of the tree,
// including the branch a conditional would skip at run time, and reports
// names missing from the environment and operands whose kind is already
// fixed by their syntax (literals and operator results).
package validator

import (
	"fmt"

	"github.com/thomasrohde/miniml/pkg/ast"
	"github.com/thomasrohde/miniml/pkg/diagnostics"
	"github.com/thomasrohde/miniml/pkg/environment"
	"github.com/thomasrohde/miniml/pkg/evaluator"
)

// kind is the statically known value kind of an expression.
type kind int

const (
	kindUnknown kind = iota
	kindInt
	kindBool
)

func (k kind) String() string {
	switch k {
	case kindInt:
		return "int"
	case kindBool:
		return "bool"
	}
	return "unknown"
}

func kindOfValue(v evaluator.Value) kind {
	switch {
	case v.IsInt():
		return kindInt
	case v.IsBool():
		return kindBool
	}
	return kindUnknown
}

type validator struct {
	diags []diagnostics.Diagnostic
	kinds environment.Environment[kind]
}

// Validate performs static analysis on a program against the environment it
// would be evaluated in and returns diagnostics.
func Validate(prog ast.Program, env evaluator.Env) []diagnostics.Diagnostic {
	v := &validator{kinds: environment.Map(env, kindOfValue)}

	switch p := prog.(type) {
	case *ast.ExpProgram:
		v.validateExp(p.Exp, "$")
	default:
		v.addDiag(diagnostics.EType, fmt.Sprintf("unsupported program type: %T", prog), "$", "")
	}
	return v.diags
}

// ValidateAll validates programs in sequence. Bare-expression programs bind
// nothing, so every program sees the same environment.
func ValidateAll(progs []ast.Program, env evaluator.Env) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	for i, p := range progs {
		for _, d := range Validate(p, env) {
			if len(progs) > 1 {
				d.Path = fmt.Sprintf("$[%d]%s", i, d.Path[1:])
			}
			diags = append(diags, d)
		}
	}
	return diags
}

func (v *validator) addDiag(code, msg, path, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, path, hint))
}

// validateExp reports problems under e and returns its static kind.
func (v *validator) validateExp(e ast.Exp, path string) kind {
	switch exp := e.(type) {
	case *ast.Var:
		k, err := v.kinds.Lookup(exp.Name)
		if err != nil {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("Variable not bound: %s", exp.Name), path,
				"bind it in the session before this program runs")
			return kindUnknown
		}
		return k

	case *ast.ILit:
		return kindInt

	case *ast.BLit:
		return kindBool

	case *ast.BinOp:
		left := v.validateExp(exp.Left, path+".left")
		right := v.validateExp(exp.Right, path+".right")
		if left == kindBool || right == kindBool {
			v.addDiag(diagnostics.EType, fmt.Sprintf("Both arguments must be integer: %s", exp.Op), path,
				fmt.Sprintf("got %s and %s", left, right))
		}
		if exp.Op == ast.OpLt {
			return kindBool
		}
		return kindInt

	case *ast.IfExp:
		cond := v.validateExp(exp.Cond, path+".cond")
		if cond == kindInt {
			v.addDiag(diagnostics.EType, "Test expression must be boolean: if", path+".cond", "got int")
		}
		then := v.validateExp(exp.Then, path+".then")
		els := v.validateExp(exp.Else, path+".else")
		if then == els {
			return then
		}
		return kindUnknown
	}

	v.addDiag(diagnostics.EType, fmt.Sprintf("unsupported expression type: %T", e), path, "")
	return kindUnknown
}
