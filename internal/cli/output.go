package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// Output formats for run results.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// WriteRun prints a finished run. The pretty format is rendered through
// glamour only when terminal is true; pipes get the raw markdown.
func WriteRun(w io.Writer, run *domain.Run, format string, terminal bool) error {
	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case FormatPretty:
		report := tui.RunReport(run)
		if !terminal {
			_, err := io.WriteString(w, report)
			return err
		}
		rendered, err := tui.NewRenderer()(report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n%s\n", rendered, tui.StatusLine(run))
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatJSON, FormatPretty)
	}
}

// ExitCode maps a run's terminal status to a process exit code.
func ExitCode(run *domain.Run) int {
	switch run.Status {
	case domain.StatusCompleted:
		return 0
	case domain.StatusStepLimitExceeded:
		return 3
	default:
		return 2
	}
}
