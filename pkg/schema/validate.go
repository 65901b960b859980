package schema

import "sort"

// Schema maps state keys to their expected types.
type Schema map[string]Type

// Keys returns the schema keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks data against the schema and reports every failing key,
// in key order. Keys not named by the schema are ignored.
func Validate(schema Schema, data map[string]any) error {
	var errs []error
	for _, key := range schema.Keys() {
		typ := schema[key]
		value, exists := data[key]
		if !exists {
			if !IsOptional(typ) {
				errs = append(errs, &ValidationError{Key: key, Reason: "required"})
			}
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
