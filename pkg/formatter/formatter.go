// Package formatter renders MiniML syntax trees as surface syntax.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/miniml/pkg/ast"
)

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpLt:   1,
	ast.OpPlus: 2,
	ast.OpMult: 3,
}

func needsParens(child ast.Exp, parentOp ast.BinaryOp, isRight bool) bool {
	switch c := child.(type) {
	case *ast.IfExp:
		return true
	case *ast.ILit:
		return c.Value < 0
	case *ast.BinOp:
		childPrec := precedence[c.Op]
		parentPrec := precedence[parentOp]
		if childPrec < parentPrec {
			return true
		}
		// Left-associativity: for same-precedence on right side, add parens
		return childPrec == parentPrec && isRight
	}
	return false
}

// Format pretty-prints a sequence of programs, one per line.
func Format(progs []ast.Program) string {
	lines := make([]string, len(progs))
	for i, p := range progs {
		lines[i] = FormatProgram(p)
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatProgram renders a single top-level program.
func FormatProgram(p ast.Program) string {
	switch prog := p.(type) {
	case *ast.ExpProgram:
		return FormatExp(prog.Exp)
	}
	return "<?>"
}

// FormatExp renders an expression.
func FormatExp(e ast.Exp) string {
	var b strings.Builder
	writeExp(&b, e)
	return b.String()
}

func writeExp(b *strings.Builder, e ast.Exp) {
	switch expr := e.(type) {
	case *ast.Var:
		b.WriteString(expr.Name)

	case *ast.ILit:
		b.WriteString(strconv.FormatInt(expr.Value, 10))

	case *ast.BLit:
		b.WriteString(strconv.FormatBool(expr.Value))

	case *ast.BinOp:
		writeOperand(b, expr.Left, expr.Op, false)
		b.WriteString(" ")
		b.WriteString(string(expr.Op))
		b.WriteString(" ")
		writeOperand(b, expr.Right, expr.Op, true)

	case *ast.IfExp:
		b.WriteString("if ")
		writeExp(b, expr.Cond)
		b.WriteString(" then ")
		writeExp(b, expr.Then)
		b.WriteString(" else ")
		writeExp(b, expr.Else)

	default:
		b.WriteString("<?>")
	}
}

func writeOperand(b *strings.Builder, child ast.Exp, parentOp ast.BinaryOp, isRight bool) {
	if needsParens(child, parentOp, isRight) {
		b.WriteString("(")
		writeExp(b, child)
		b.WriteString(")")
		return
	}
	writeExp(b, child)
}
