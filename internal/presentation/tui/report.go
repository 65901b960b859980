package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// RunReport builds a markdown summary of a run: status, one table row per
// step and the final state.
func RunReport(run *domain.Run) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run `%s`\n\n", run.ID)
	fmt.Fprintf(&sb, "- **Graph:** `%s`\n", run.GraphID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", run.Status)
	fmt.Fprintf(&sb, "- **Steps:** %d / %d\n", run.Steps(), run.MaxSteps)
	if run.CurrentNode != "" {
		fmt.Fprintf(&sb, "- **Current node:** `%s`\n", run.CurrentNode)
	}
	if run.Error != "" {
		fmt.Fprintf(&sb, "- **Error:** %s\n", run.Error)
	}

	if len(run.Log) > 0 {
		sb.WriteString("\n## Steps\n\n")
		sb.WriteString("| # | Node | Tool | Next | Changed | Duration |\n")
		sb.WriteString("|---|------|------|------|---------|----------|\n")
		for _, e := range run.Log {
			next := e.Next
			switch {
			case e.Failed():
				next = "error"
			case next == "":
				next = "end"
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n",
				e.Index, e.Node, e.Tool, next, strings.Join(e.Delta.Keys(), ", "), e.Duration)
		}
	}

	sb.WriteString("\n## Final state\n\n```json\n")
	data, err := json.MarshalIndent(run.State, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}
	sb.Write(data)
	sb.WriteString("\n```\n")

	return sb.String()
}

// StatusLine returns a one-line colored summary of the run.
func StatusLine(run *domain.Run) string {
	p := termenv.ColorProfile()
	badge := termenv.String(" " + strings.ToUpper(string(run.Status)) + " ").
		Foreground(p.Color("#000000")).
		Background(p.Color(statusColor(run.Status))).
		Bold()
	return fmt.Sprintf("%s %s: %d steps", badge, run.ID, run.Steps())
}

func statusColor(s domain.RunStatus) string {
	switch s {
	case domain.StatusCompleted:
		return "#4ade80"
	case domain.StatusFailed:
		return "#f87171"
	case domain.StatusStepLimitExceeded:
		return "#fbbf24"
	default:
		return "#93c5fd"
	}
}
