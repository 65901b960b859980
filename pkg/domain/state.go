package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
)

// State is the shared, mutable key-value store a run threads through its nodes.
//
// Values are restricted to a closed set of kinds so that they survive JSON,
// YAML and Redis round-trips:
//
//	nil, bool, string, numbers (int*, uint*, float*, json.Number),
//	map[string]any, []any, []string
//
// Nested values follow the same rules. Tools may introduce new keys. Changing
// the kind of an existing key is allowed by the engine but is considered a
// tool bug.
type State map[string]any

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge overwrites keys of s with the values of fragment.
// Nested structures are replaced whole, never merged.
func (s State) Merge(fragment State) {
	for k, v := range fragment {
		s[k] = cloneValue(v)
	}
}

// Delta returns the entries of fragment that would change s when merged.
func (s State) Delta(fragment State) State {
	delta := make(State)
	for k, v := range fragment {
		old, exists := s[k]
		if !exists || !equalValue(old, v) {
			delta[k] = cloneValue(v)
		}
	}
	return delta
}

// Validate checks that every value belongs to the supported kinds.
// Keys are visited in sorted order so the reported key is deterministic.
func (s State) Validate() error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := checkValue(k, s[k]); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the state keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkValue(path string, v any) error {
	return checkNested(path, v, nil)
}

// checkNested walks v keeping the containers on the current path so that a
// map or slice holding itself is reported instead of recursing forever.
func checkNested(path string, v any, ancestors []uintptr) error {
	switch val := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, []string:
		return nil
	case map[string]any:
		return checkMap(path, v, val, ancestors)
	case State:
		return checkMap(path, v, val, ancestors)
	case []any:
		if len(val) == 0 {
			return nil
		}
		ptr := reflect.ValueOf(val).Pointer()
		if slices.Contains(ancestors, ptr) {
			return &ValueKindError{Key: path, Value: v, Cyclic: true}
		}
		ancestors = append(ancestors, ptr)
		for i, inner := range val {
			if err := checkNested(fmt.Sprintf("%s[%d]", path, i), inner, ancestors); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValueKindError{Key: path, Value: v}
	}
}

func checkMap(path string, v any, m map[string]any, ancestors []uintptr) error {
	ptr := reflect.ValueOf(m).Pointer()
	if slices.Contains(ancestors, ptr) {
		return &ValueKindError{Key: path, Value: v, Cyclic: true}
	}
	ancestors = append(ancestors, ptr)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := checkNested(path+"."+k, m[k], ancestors); err != nil {
			return err
		}
	}
	return nil
}

// cloneValue deep-copies v. A container that holds itself is not copied
// again; the original reference is kept so Validate still reports the cycle.
func cloneValue(v any) any {
	return cloneNested(v, nil)
}

func cloneNested(v any, ancestors []uintptr) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(v, val, ancestors)
	case State:
		return cloneMap(v, val, ancestors)
	case []any:
		if len(val) == 0 {
			return []any{}
		}
		ptr := reflect.ValueOf(val).Pointer()
		if slices.Contains(ancestors, ptr) {
			return v
		}
		ancestors = append(ancestors, ptr)
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneNested(inner, ancestors)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func cloneMap(v any, m map[string]any, ancestors []uintptr) any {
	ptr := reflect.ValueOf(m).Pointer()
	if slices.Contains(ancestors, ptr) {
		return v
	}
	ancestors = append(ancestors, ptr)
	out := make(map[string]any, len(m))
	for k, inner := range m {
		out[k] = cloneNested(inner, ancestors)
	}
	return out
}

func equalValue(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
