package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type validates a single state value.
type Type interface {
	// Name returns the type as written in a tools file (e.g. "[int]").
	Name() string
	Validate(value any) error
}

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		// Stores that round-trip through JSON hand back float64.
		if v == math.Trunc(v) {
			return nil
		}
		return fmt.Errorf("expected int, got fractional number %v", v)
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return fmt.Errorf("expected int, got %s", v)
		}
		return nil
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

type floatType struct{}

func (floatType) Name() string { return "float" }

func (floatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

type objectType struct{}

func (objectType) Name() string { return "object" }

func (objectType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("expected object, got %T", value)
	}
	return nil
}

type anyType struct{}

func (anyType) Name() string             { return "any" }
func (anyType) Validate(value any) error { return nil }

type sliceType struct {
	elem Type
}

func (t sliceType) Name() string {
	return "[" + t.elem.Name() + "]"
}

func (t sliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected list, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elem.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// optionalType accepts a missing key or a nil value.
type optionalType struct {
	Type
}

func (t optionalType) Name() string {
	return t.Type.Name() + "?"
}

func (t optionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.Type.Validate(value)
}

// String, Int, Float, Bool, Object and Any return the built-in types.
func String() Type { return stringType{} }
func Int() Type    { return intType{} }
func Float() Type  { return floatType{} }
func Bool() Type   { return boolType{} }
func Object() Type { return objectType{} }
func Any() Type    { return anyType{} }

// Slice returns a list type whose elements must satisfy elem.
func Slice(elem Type) Type {
	return sliceType{elem: elem}
}

// Optional marks t as allowed to be absent.
func Optional(t Type) Type {
	if _, ok := t.(optionalType); ok {
		return t
	}
	return optionalType{Type: t}
}

// IsOptional reports whether t accepts a missing key.
func IsOptional(t Type) bool {
	_, ok := t.(optionalType)
	return ok
}

// ParseType converts a type name such as "int", "[string]" or "bool?" into
// a Type.
func ParseType(typeStr string) (Type, error) {
	s := strings.TrimSpace(typeStr)
	if rest, ok := strings.CutSuffix(s, "?"); ok {
		t, err := ParseType(rest)
		if err != nil {
			return nil, err
		}
		return Optional(t), nil
	}

	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		elem, err := ParseType(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		if IsOptional(elem) {
			return nil, fmt.Errorf("unsupported type: %s", typeStr)
		}
		return Slice(elem), nil
	}

	switch s {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "object":
		return Object(), nil
	case "any":
		return Any(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of state keys to type names into a Schema.
// Example: {"text": "string", "chunk_size": "int?"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema, len(typeMap))
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
