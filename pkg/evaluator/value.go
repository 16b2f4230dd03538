// Package evaluator implements the MiniML tree-walking evaluator.
package evaluator

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/miniml/pkg/diagnostics"
)

// Value is the interface for all MiniML runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	fmt.Stringer
	IsInt() bool
	IsBool() bool
	ToInt() (int64, error)
	ToBool() (bool, error)
	value() // sealed marker
}

// IntValue represents a 64-bit signed integer.
type IntValue struct {
	Value int64
}

func (IntValue) value() {}

// BoolValue represents a boolean.
type BoolValue struct {
	Value bool
}

func (BoolValue) value() {}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return IntValue{Value: n}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return BoolValue{Value: b}
}

func (v IntValue) IsInt() bool  { return true }
func (v IntValue) IsBool() bool { return false }

func (v IntValue) ToInt() (int64, error) { return v.Value, nil }

func (v IntValue) ToBool() (bool, error) {
	return false, typeMismatch("fail to cast as bool")
}

func (v IntValue) String() string { return strconv.FormatInt(v.Value, 10) }

func (v BoolValue) IsInt() bool  { return false }
func (v BoolValue) IsBool() bool { return true }

func (v BoolValue) ToInt() (int64, error) {
	return 0, typeMismatch("fail to cast as int")
}

func (v BoolValue) ToBool() (bool, error) { return v.Value, nil }

func (v BoolValue) String() string { return strconv.FormatBool(v.Value) }

// typeNameOf returns the MiniML type name for error messages.
func typeNameOf(v Value) string {
	switch v.(type) {
	case IntValue:
		return "int"
	case BoolValue:
		return "bool"
	default:
		return "unknown"
	}
}

func typeMismatch(msg string) *EvalError {
	return &EvalError{Code: diagnostics.EType, Message: msg}
}
