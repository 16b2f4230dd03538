package ast

import "fmt"

// Ty is a type expression. Nothing in the evaluator consults it yet; it is
// kept so a later checking phase has a shape to build on.
type Ty interface {
	fmt.Stringer
	tyNode() // sealed marker
}

// TyVarID identifies a type variable.
type TyVarID int64

type tyInt struct{}

func (tyInt) String() string { return "int" }
func (tyInt) tyNode()        {}

type tyBool struct{}

func (tyBool) String() string { return "bool" }
func (tyBool) tyNode()        {}

// TyInt and TyBool are the base types.
var (
	TyInt  Ty = tyInt{}
	TyBool Ty = tyBool{}
)

type TyVar struct {
	ID TyVarID
}

func (t *TyVar) String() string { return fmt.Sprintf("'a%d", t.ID) }
func (t *TyVar) tyNode()        {}

type TyFun struct {
	Arg    Ty
	Result Ty
}

func (t *TyFun) String() string {
	arg := t.Arg.String()
	if _, ok := t.Arg.(*TyFun); ok {
		arg = "(" + arg + ")"
	}
	return arg + " -> " + t.Result.String()
}
func (t *TyFun) tyNode() {}

type TyList struct {
	Elem Ty
}

func (t *TyList) String() string {
	elem := t.Elem.String()
	if _, ok := t.Elem.(*TyFun); ok {
		elem = "(" + elem + ")"
	}
	return elem + " list"
}
func (t *TyList) tyNode() {}
