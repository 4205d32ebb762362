package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const shortReport = "Admitted with pneumonia, given aspirin."

type runResult struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI offline: the lexicon backend extracts, and short
// reports never load the summarizer.
func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(stdin), &stdout, &stderr)
	argv := append([]string{"reportlens", "--env-file", ""}, args...)
	err := app.Run(argv)
	return runResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func findFlag[T cli.Flag](t *testing.T, flags []cli.Flag, name string) T {
	t.Helper()
	for _, flag := range flags {
		if f, ok := flag.(T); ok && flag.Names()[0] == name {
			return f
		}
	}
	t.Fatalf("flag %q not found", name)
	var zero T
	return zero
}

func TestAnalyzeCommandFlags(t *testing.T) {
	app := newApp(nil, nil, nil)
	analyze := app.Command("analyze")
	require.NotNil(t, analyze)

	t.Run("format defaults to text", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](t, analyze.Flags, "format")
		assert.Equal(t, "text", f.Value)
	})

	t.Run("host reads the environment", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](t, analyze.Flags, "host")
		assert.Equal(t, []string{"REPORTLENS_HOST"}, f.EnvVars)
		assert.Empty(t, f.Value, "defaults come from the configuration")
	})

	t.Run("api-key reads the environment", func(t *testing.T) {
		f := findFlag[*cli.StringFlag](t, analyze.Flags, "api-key")
		assert.Equal(t, []string{"REPORTLENS_API_KEY"}, f.EnvVars)
	})

	t.Run("summary-max is measured in tokens", func(t *testing.T) {
		f := findFlag[*cli.IntFlag](t, analyze.Flags, "summary-max")
		assert.Contains(t, f.Usage, "tokens")
		assert.NotContains(t, f.Usage, "words")
	})

	t.Run("check shares model flags", func(t *testing.T) {
		check := app.Command("check")
		require.NotNil(t, check)
		findFlag[*cli.StringFlag](t, check.Flags, "extractor")
	})
}

func TestAnalyze_Text(t *testing.T) {
	path := writeReport(t, "a.txt", shortReport)

	res := run(t, "", "analyze", "--extractor", "lexicon", path)
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "Report: a.txt (1 chunks)")
	assert.Contains(t, res.stdout, "DISEASE: pneumonia")
	assert.Contains(t, res.stdout, "DRUG: aspirin")
	assert.Contains(t, res.stdout, "Summary:\n  "+shortReport)
	assert.Contains(t, res.stdout, core.DefaultDisclaimer)
	assert.NotContains(t, res.stdout, "Incomplete")
}

func TestAnalyze_JSON(t *testing.T) {
	path := writeReport(t, "a.txt", shortReport)

	res := run(t, "", "analyze", "--extractor", "lexicon", "--format", "json", path)
	require.NoError(t, res.err, res.stderr)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "a.txt", out["source"])
	assert.Equal(t, false, out["partial"])
	assert.Equal(t, core.DefaultDisclaimer, out["disclaimer"])

	entities, ok := out["entities"].([]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(entities), 2)
}

func TestAnalyze_Stdin(t *testing.T) {
	res := run(t, shortReport, "analyze", "--extractor", "lexicon")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Report: stdin")
}

func TestAnalyze_LabelFilter(t *testing.T) {
	path := writeReport(t, "a.txt", shortReport)

	res := run(t, "", "analyze", "--extractor", "lexicon", "--label", "DRUG", path)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "DRUG: aspirin")
	assert.NotContains(t, res.stdout, "DISEASE")
}

func TestAnalyze_EmptyReport(t *testing.T) {
	path := writeReport(t, "empty.txt", "  \n\n ")

	res := run(t, "", "analyze", "--extractor", "lexicon", path)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, core.NoContentNotice)
}

func TestAnalyze_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		path := writeReport(t, "a.txt", shortReport)
		res := run(t, "", "analyze", "--extractor", "lexicon", "--max-total-length", "5", path)
		require.Error(t, res.err)
		assert.Contains(t, res.stderr, "too large")
	})

	t.Run("one missing file", func(t *testing.T) {
		path := writeReport(t, "a.txt", shortReport)
		missing := filepath.Join(t.TempDir(), "missing.txt")
		res := run(t, "", "analyze", "--extractor", "lexicon", path, missing)
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "1 of 2")
		assert.Contains(t, res.stdout, "Report: a.txt")
		assert.Contains(t, res.stderr, "missing.txt")
	})

	t.Run("invalid format", func(t *testing.T) {
		res := run(t, "", "analyze", "--extractor", "lexicon", "--format", "xml")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "xml")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		res := run(t, shortReport, "analyze", "--extractor", "oracle")
		require.Error(t, res.err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		res := run(t, "", "--log-level", "loud", "analyze")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "loud")
	})
}

func TestAnalyze_ConfigFile(t *testing.T) {
	cfg := writeReport(t, "reportlens.yaml", "ai:\n  extractor: lexicon\npipeline:\n  labels: [DISEASE]\n")
	path := writeReport(t, "a.txt", shortReport)

	res := run(t, "", "--config", cfg, "analyze", path)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "DISEASE: pneumonia")
	assert.NotContains(t, res.stdout, "DRUG")
}

func TestCheckCommand(t *testing.T) {
	res := run(t, "", "check", "--extractor", "lexicon")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Extractor: lexicon")
	assert.Contains(t, res.stdout, "OK")
}

func TestProgressMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := newProgressMonitor(&buf)

	m.Start(core.NewRawReport("text", "a.txt"))
	m.AfterSplit(make([]chunker.Chunk, 2))
	m.ChunkFailed(core.ChunkFailure{ChunkIndex: 0, Stage: core.StageExtract, Err: "boom"})
	m.ChunkFailed(core.ChunkFailure{ChunkIndex: 0, Stage: core.StageSummarize, Err: "boom"})
	m.ChunkDone(1, 3)
	m.Finish(&core.StructuredReport{})

	out := buf.String()
	assert.Contains(t, out, "a.txt: 0/2 chunks (0.0%)")
	assert.Contains(t, out, "1/2 chunks (50.0%)")
	assert.Contains(t, out, "2/2 chunks (100.0%)")
	assert.Contains(t, out, "2 failed")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestProgressMonitor_CachedReportPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	m := newProgressMonitor(&buf)

	m.Start(core.NewRawReport("text", "a.txt"))
	m.Finish(&core.StructuredReport{})
	assert.Empty(t, buf.String())
}

func TestRenderText_Failures(t *testing.T) {
	report := &core.StructuredReport{
		Source:     "a.txt",
		ChunkCount: 2,
		Entities:   []core.Entity{{Text: "aspirin", Category: "DRUG", Start: 0, End: 7}},
		Disclaimer: core.DefaultDisclaimer,
		Failures: []core.ChunkFailure{
			{ChunkIndex: 1, Stage: core.StageExtract, Err: "timeout"},
			{ChunkIndex: -1, Stage: core.StageCombine, Err: "refused"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderText(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "Incomplete: 2 contribution(s) skipped")
	assert.Contains(t, out, "chunk 1 extract: timeout")
	assert.Contains(t, out, "  combine: refused")
	assert.Contains(t, out, "DRUG: aspirin")
}
