package tools

import "github.com/aretw0/stepgraph/pkg/domain"

// ExampleGraph is the summarization workflow:
// split_text -> summarize_chunks -> merge_summaries -> refine_summary, with
// refine_summary looping on itself until summary_within_limit is true.
func ExampleGraph(id string) *domain.Graph {
	return &domain.Graph{
		ID:        id,
		StartNode: SplitText,
		Nodes: []domain.Node{
			{Name: SplitText, Tool: SplitText, Next: SummarizeChunks},
			{Name: SummarizeChunks, Tool: SummarizeChunks, Next: MergeSummaries},
			{Name: MergeSummaries, Tool: MergeSummaries, Next: RefineSummary},
			{
				Name:         RefineSummary,
				Tool:         RefineSummary,
				ConditionKey: "summary_within_limit",
				NextIfFalse:  RefineSummary,
			},
		},
	}
}
