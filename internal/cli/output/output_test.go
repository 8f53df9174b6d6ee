package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeCSV, false, ModeCSV},
	}
	for _, tt := range tests {
		r, _, _ := newTest(tt.mode, tt.tty)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode=%q tty=%v", tt.mode, tt.tty)
	}
}

func TestResultsFormat(t *testing.T) {
	cases := map[Mode]string{
		ModeText:     "table",
		ModeMarkdown: "markdown",
		ModeJSON:     "json",
		ModeCSV:      "csv",
		ModeYAML:     "yaml",
	}
	for mode, want := range cases {
		r, _, _ := newTest(mode, false)
		assert.Equal(t, want, r.ResultsFormat(), string(mode))
	}
}

func TestMarkdownOutputHasNoANSI(t *testing.T) {
	r, out, errOut := newTest(ModeAuto, false)

	r.Header(1, "Saved Queries")
	r.KeyValue("ID", "q1")
	r.StatusLine("run-1", "SUCCEEDED", "1.2s")
	r.Success("done")
	r.Error("boom")

	s := out.String()
	assert.Contains(t, s, "# Saved Queries")
	assert.Contains(t, s, "- **ID:** q1")
	assert.Contains(t, s, "✓ run-1 succeeded 1.2s")
	assert.NotContains(t, s+errOut.String(), "\x1b[")
	assert.Contains(t, errOut.String(), "✗ boom")
}

func TestJSON(t *testing.T) {
	r, out, _ := newTest(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Runs", FormatHeader(2, "Runs"))
	assert.Equal(t, "# Runs", FormatHeader(0, "Runs"))
	assert.Equal(t, "- **Name:** x", FormatKeyValue("Name", "x"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
}

func TestSpinnerDisabledWithoutTTY(t *testing.T) {
	r, _, errOut := newTest(ModeAuto, false)
	s := r.NewSpinner("waiting")
	s.Start()
	s.Update("still waiting")
	s.Stop()
	assert.Empty(t, errOut.String())
}
