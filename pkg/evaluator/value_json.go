package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ValueToJSON marshals a Value to JSON bytes.
// Integers become JSON numbers and booleans JSON booleans.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case IntValue:
		return val.Value
	case BoolValue:
		return val.Value
	}
	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// ParseJSONToValue converts a JSON integer or boolean to a Value.
// Fractional numbers, strings, null and composite values are rejected.
func ParseJSONToValue(data json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	switch val := raw.(type) {
	case bool:
		return NewBool(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("%s is not a 64-bit integer", val)
		}
		return NewInt(n), nil
	case nil:
		return nil, errors.New("null is not a value")
	}
	return nil, fmt.Errorf("unsupported JSON value %s", bytes.TrimSpace(data))
}
