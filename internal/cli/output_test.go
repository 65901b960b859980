package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func TestWriteRun(t *testing.T) {
	run := domain.NewRun("r1", "g1", "a", domain.State{"k": "v"}, 0)
	run.Status = domain.StatusCompleted
	run.CurrentNode = ""

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRun(&buf, run, FormatJSON, false))
		assert.Contains(t, buf.String(), `"status": "completed"`)
	})

	t.Run("Pretty To A Pipe", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRun(&buf, run, FormatPretty, false))
		assert.True(t, strings.HasPrefix(buf.String(), "# Run `r1`"))
	})

	t.Run("Pretty To A Terminal", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteRun(&buf, run, FormatPretty, true))
		assert.Contains(t, buf.String(), "COMPLETED")
		assert.Contains(t, buf.String(), "r1: 0 steps")
	})

	t.Run("Unknown Format", func(t *testing.T) {
		assert.Error(t, WriteRun(&bytes.Buffer{}, run, "xml", false))
	})
}

func TestExitCode(t *testing.T) {
	for status, want := range map[domain.RunStatus]int{
		domain.StatusCompleted:         0,
		domain.StatusFailed:            2,
		domain.StatusStepLimitExceeded: 3,
	} {
		assert.Equal(t, want, ExitCode(&domain.Run{Status: status}), string(status))
	}
}
