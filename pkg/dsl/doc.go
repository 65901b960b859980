/*
Package dsl provides a fluent Go API for constructing stepgraph graphs.

It is an alternative to YAML or JSON graph files, handy for tests and for
graphs generated at runtime.

Example usage:

	b := dsl.New("summarize")
	b.Add("split").Do("split_text").Go("summarize")
	b.Add("summarize").Do("summarize_chunks").Go("merge")
	b.Add("merge").Do("merge_summaries").Go("refine")
	b.Add("refine").Do("refine_summary").Loop("summary_within_limit", "")

	g, err := b.Build()
*/
package dsl
