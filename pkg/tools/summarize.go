// Package tools ships the built-in text summarization tools used by the
// example workflow.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

const (
	DefaultChunkSize     = 80
	DefaultTargetLength  = 120
	DefaultMaxIterations = 5

	// summaryWords caps a chunk summary when the chunk has no sentence.
	summaryWords = 25
)

// Tool names.
const (
	SplitText       = "split_text"
	SummarizeChunks = "summarize_chunks"
	MergeSummaries  = "merge_summaries"
	RefineSummary   = "refine_summary"
)

// Register installs every built-in tool into reg.
func Register(reg *registry.Registry) error {
	all := []struct {
		info domain.ToolInfo
		fn   registry.ToolFunc
	}{
		{domain.ToolInfo{
			Name:        SplitText,
			Description: "Split text into chunks of chunk_size words.",
			Reads:       []string{"text", "chunk_size"},
			Writes:      []string{"chunks"},
		}, splitText},
		{domain.ToolInfo{
			Name:        SummarizeChunks,
			Description: "Summarize each chunk by its first sentence.",
			Reads:       []string{"chunks"},
			Writes:      []string{"summaries"},
		}, summarizeChunks},
		{domain.ToolInfo{
			Name:        MergeSummaries,
			Description: "Join chunk summaries into one text.",
			Reads:       []string{"summaries"},
			Writes:      []string{"merged_summary"},
		}, mergeSummaries},
		{domain.ToolInfo{
			Name:        RefineSummary,
			Description: "Trim the merged summary until it fits target_length words.",
			Reads:       []string{"merged_summary", "target_length", "max_iterations", "iteration"},
			Writes:      []string{"merged_summary", "final_summary", "iteration", "summary_within_limit"},
		}, refineSummary},
	}
	for _, t := range all {
		if err := reg.RegisterInfo(t.info, t.fn); err != nil {
			return err
		}
	}
	return nil
}

// decode reads the keys a tool needs into out. Values are weakly typed so
// numbers that went through JSON (float64) or arrived as strings still fit.
func decode(state domain.State, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(state)); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func splitText(ctx context.Context, state domain.State) (domain.State, error) {
	in := struct {
		Text      string `mapstructure:"text"`
		ChunkSize int    `mapstructure:"chunk_size"`
	}{ChunkSize: DefaultChunkSize}
	if err := decode(state, &in); err != nil {
		return nil, err
	}
	if in.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", in.ChunkSize)
	}

	words := strings.Fields(in.Text)
	chunks := []string{}
	for i := 0; i < len(words); i += in.ChunkSize {
		end := min(i+in.ChunkSize, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return domain.State{"chunks": chunks}, nil
}

func summarizeChunks(ctx context.Context, state domain.State) (domain.State, error) {
	var in struct {
		Chunks []string `mapstructure:"chunks"`
	}
	if err := decode(state, &in); err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(in.Chunks))
	for _, chunk := range in.Chunks {
		summaries = append(summaries, firstSentence(chunk))
	}
	return domain.State{"summaries": summaries}, nil
}

func firstSentence(chunk string) string {
	for _, s := range strings.Split(chunk, ".") {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	words := strings.Fields(chunk)
	return strings.Join(words[:min(summaryWords, len(words))], " ")
}

func mergeSummaries(ctx context.Context, state domain.State) (domain.State, error) {
	var in struct {
		Summaries []string `mapstructure:"summaries"`
	}
	if err := decode(state, &in); err != nil {
		return nil, err
	}
	return domain.State{"merged_summary": strings.Join(in.Summaries, ". ")}, nil
}

// refineSummary trims merged_summary to target_length words, one iteration
// per call. summary_within_limit turns true once the summary fits or
// max_iterations is reached.
func refineSummary(ctx context.Context, state domain.State) (domain.State, error) {
	in := struct {
		MergedSummary string `mapstructure:"merged_summary"`
		TargetLength  int    `mapstructure:"target_length"`
		MaxIterations int    `mapstructure:"max_iterations"`
		Iteration     int    `mapstructure:"iteration"`
	}{TargetLength: DefaultTargetLength, MaxIterations: DefaultMaxIterations}
	if err := decode(state, &in); err != nil {
		return nil, err
	}
	if in.TargetLength < 0 {
		return nil, fmt.Errorf("target_length must not be negative, got %d", in.TargetLength)
	}

	iteration := in.Iteration + 1
	words := strings.Fields(in.MergedSummary)
	trimmed := strings.Join(words[:min(in.TargetLength, len(words))], " ")

	if len(words) <= in.TargetLength || iteration >= in.MaxIterations {
		return domain.State{
			"final_summary":        trimmed,
			"iteration":            iteration,
			"summary_within_limit": true,
		}, nil
	}

	return domain.State{
		"merged_summary":       trimmed,
		"final_summary":        trimmed,
		"iteration":            iteration,
		"summary_within_limit": false,
	}, nil
}
