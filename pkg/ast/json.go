package ast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// rawNode is the JSON shape shared by every expression kind.
type rawNode struct {
	Kind  string          `json:"kind"`
	Name  string          `json:"name,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Op    BinaryOp        `json:"op,omitempty"`
	Left  json.RawMessage `json:"left,omitempty"`
	Right json.RawMessage `json:"right,omitempty"`
	Cond  json.RawMessage `json:"cond,omitempty"`
	Then  json.RawMessage `json:"then,omitempty"`
	Else  json.RawMessage `json:"else,omitempty"`
}

// MarshalExp encodes an expression tree as JSON.
func MarshalExp(e Exp) ([]byte, error) {
	return json.Marshal(expToRaw(e))
}

func expToRaw(e Exp) any {
	switch n := e.(type) {
	case *Var:
		return map[string]any{"kind": n.Kind(), "name": n.Name}
	case *ILit:
		return map[string]any{"kind": n.Kind(), "value": n.Value}
	case *BLit:
		return map[string]any{"kind": n.Kind(), "value": n.Value}
	case *BinOp:
		return map[string]any{
			"kind":  n.Kind(),
			"op":    string(n.Op),
			"left":  expToRaw(n.Left),
			"right": expToRaw(n.Right),
		}
	case *IfExp:
		return map[string]any{
			"kind": n.Kind(),
			"cond": expToRaw(n.Cond),
			"then": expToRaw(n.Then),
			"else": expToRaw(n.Else),
		}
	}
	return nil
}

// UnmarshalExp decodes a JSON expression tree.
func UnmarshalExp(data []byte) (Exp, error) {
	return decodeExp(data, "$")
}

// UnmarshalProgram decodes a single expression tree and wraps it as a program.
func UnmarshalProgram(data []byte) (Program, error) {
	e, err := UnmarshalExp(data)
	if err != nil {
		return nil, err
	}
	return Decl(e), nil
}

// UnmarshalPrograms decodes either one expression tree or a JSON array of them.
func UnmarshalPrograms(data []byte) ([]Program, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '[' {
		p, err := UnmarshalProgram(trimmed)
		if err != nil {
			return nil, err
		}
		return []Program{p}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode program list: %w", err)
	}
	progs := make([]Program, 0, len(items))
	for i, item := range items {
		e, err := decodeExp(item, fmt.Sprintf("$[%d]", i))
		if err != nil {
			return nil, err
		}
		progs = append(progs, Decl(e))
	}
	return progs, nil
}

// DecodeError reports a malformed expression tree.
type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func decodeExp(data json.RawMessage, path string) (Exp, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Path: path, Message: "missing expression"}
	}
	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Path: path, Message: err.Error()}
	}

	switch raw.Kind {
	case "Var":
		if raw.Name == "" {
			return nil, &DecodeError{Path: path, Message: "Var requires a name"}
		}
		return &Var{Name: raw.Name}, nil

	case "ILit":
		var v int64
		if err := unmarshalScalar(raw.Value, &v); err != nil {
			return nil, &DecodeError{Path: path + ".value", Message: "ILit requires an integer value"}
		}
		return &ILit{Value: v}, nil

	case "BLit":
		var v bool
		if err := unmarshalScalar(raw.Value, &v); err != nil {
			return nil, &DecodeError{Path: path + ".value", Message: "BLit requires a boolean value"}
		}
		return &BLit{Value: v}, nil

	case "BinOp":
		if !raw.Op.Valid() {
			return nil, &DecodeError{Path: path + ".op", Message: fmt.Sprintf("unknown operator %q", raw.Op)}
		}
		left, err := decodeExp(raw.Left, path+".left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExp(raw.Right, path+".right")
		if err != nil {
			return nil, err
		}
		return &BinOp{Op: raw.Op, Left: left, Right: right}, nil

	case "IfExp":
		cond, err := decodeExp(raw.Cond, path+".cond")
		if err != nil {
			return nil, err
		}
		then, err := decodeExp(raw.Then, path+".then")
		if err != nil {
			return nil, err
		}
		els, err := decodeExp(raw.Else, path+".else")
		if err != nil {
			return nil, err
		}
		return &IfExp{Cond: cond, Then: then, Else: els}, nil

	case "":
		return nil, &DecodeError{Path: path, Message: "missing kind"}
	}

	return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown expression kind %q", raw.Kind)}
}

func unmarshalScalar(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return errors.New("missing value")
	}
	return json.Unmarshal(data, v)
}
