// Package schema describes the shape of state values a tool expects.
//
// A schema maps state keys to types written as short strings, which is how
// command tools declare their inputs in a tools file:
//
//	inputs:
//	  text: string
//	  chunk_size: int?
//	  tags: "[string]"
//
// Supported types are string, int, float, bool, object, any and lists
// written as [T]. A trailing ? marks the key as optional.
//
//	s, err := schema.ParseTypeMap(map[string]string{"text": "string"})
//	if err != nil {
//	    return err
//	}
//	if err := schema.Validate(s, state); err != nil {
//	    // every problem is listed in the *AggregateError
//	}
package schema
