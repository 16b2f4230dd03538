// Package ast defines the MiniML syntax tree node types.
package ast

// Identifier names a binding.
type Identifier = string

// Node is the interface implemented by all syntax tree nodes.
type Node interface {
	Kind() string
}

// BinaryOp represents a primitive binary operator.
type BinaryOp string

const (
	OpPlus BinaryOp = "+"
	OpMult BinaryOp = "*"
	OpLt   BinaryOp = "<"
)

// Valid reports whether op is one of the known operators.
func (op BinaryOp) Valid() bool {
	switch op {
	case OpPlus, OpMult, OpLt:
		return true
	}
	return false
}

// --- Exp is the interface for all expression nodes ---

type Exp interface {
	Node
	expNode() // sealed marker
}

// --- Program is the interface for top-level units ---

type Program interface {
	Node
	programNode() // sealed marker
}

// --- Variables and literals ---

type Var struct {
	Name Identifier
}

func (n *Var) Kind() string { return "Var" }
func (n *Var) expNode()     {}

type ILit struct {
	Value int64
}

func (n *ILit) Kind() string { return "ILit" }
func (n *ILit) expNode()     {}

type BLit struct {
	Value bool
}

func (n *BLit) Kind() string { return "BLit" }
func (n *BLit) expNode()     {}

// --- Operators and control flow ---

type BinOp struct {
	Op    BinaryOp
	Left  Exp
	Right Exp
}

func (n *BinOp) Kind() string { return "BinOp" }
func (n *BinOp) expNode()     {}

type IfExp struct {
	Cond Exp
	Then Exp
	Else Exp
}

func (n *IfExp) Kind() string { return "IfExp" }
func (n *IfExp) expNode()     {}

// --- Programs ---

// ExpProgram is a program consisting of a single bare expression.
type ExpProgram struct {
	Exp Exp
}

func (n *ExpProgram) Kind() string { return "ExpProgram" }
func (n *ExpProgram) programNode() {}

// --- Constructors for hand-built trees ---

// Ident returns a variable reference.
func Ident(name Identifier) Exp { return &Var{Name: name} }

// Int returns an integer literal.
func Int(v int64) Exp { return &ILit{Value: v} }

// Bool returns a boolean literal.
func Bool(v bool) Exp { return &BLit{Value: v} }

// Binary returns a binary operation node.
func Binary(op BinaryOp, left, right Exp) Exp {
	return &BinOp{Op: op, Left: left, Right: right}
}

func Plus(left, right Exp) Exp { return Binary(OpPlus, left, right) }
func Mult(left, right Exp) Exp { return Binary(OpMult, left, right) }
func Lt(left, right Exp) Exp   { return Binary(OpLt, left, right) }

// If returns a conditional expression.
func If(cond, then, els Exp) Exp {
	return &IfExp{Cond: cond, Then: then, Else: els}
}

// Decl wraps an expression as a top-level program.
func Decl(e Exp) Program { return &ExpProgram{Exp: e} }
