package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/reportlens/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_PlainText(t *testing.T) {
	path := writeFile(t, "report.txt", "Patient given aspirin.\n\nFollow up in two weeks.")

	report, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", report.Source)
	assert.Equal(t, "Patient given aspirin.\n\nFollow up in two weeks.", report.Text)
	assert.Equal(t, len([]rune(report.Text)), report.Length)
}

func TestLoad_StripsByteOrderMark(t *testing.T) {
	path := writeFile(t, "bom.txt", "\xef\xbb\xbfAspirin daily.")

	report, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin daily.", report.Text)
}

func TestLoad_HTML(t *testing.T) {
	doc := `<!DOCTYPE html>
<html><head><title>Discharge</title><style>p { color: red }</style></head>
<body>
<h1>Discharge summary</h1>
<p>Patient admitted with <b>pneumonia</b>.</p>
<script>alert("x")</script>
<ul><li>Aspirin &amp; rest</li><li>Warfarin</li></ul>
</body></html>`
	path := writeFile(t, "summary.HTML", doc)

	report, err := Load(path)
	require.NoError(t, err)

	assert.Contains(t, report.Text, "Discharge summary")
	assert.Contains(t, report.Text, "Patient admitted with pneumonia.")
	assert.Contains(t, report.Text, "Aspirin & rest\nWarfarin")
	assert.NotContains(t, report.Text, "alert")
	assert.NotContains(t, report.Text, "color")
	assert.NotContains(t, report.Text, "<p>")
	assert.Contains(t, report.Text, "\n\n", "paragraph structure survives")
}

func TestLoad_Stdin(t *testing.T) {
	report, err := Load(Stdin, WithStdin(strings.NewReader("from a pipe")))
	require.NoError(t, err)
	assert.Equal(t, "stdin", report.Source)
	assert.Equal(t, "from a pipe", report.Text)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.ErrorIs(t, err, ErrNotRegularFile)
	})

	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "big.txt", strings.Repeat("a", 100))
		_, err := Load(path, WithMaxBytes(10))
		assert.ErrorIs(t, err, core.ErrInputTooLarge)
	})

	t.Run("binary", func(t *testing.T) {
		path := writeFile(t, "scan.pdf", "%PDF-1.4\x00\x01\x02")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrBinaryContent)
	})
}

func TestRead_LimitAppliesToStreams(t *testing.T) {
	_, err := Read(strings.NewReader(strings.Repeat("word ", 10)), "stream", WithMaxBytes(20))
	assert.ErrorIs(t, err, core.ErrInputTooLarge)

	report, err := Read(strings.NewReader("short"), "stream", WithMaxBytes(20))
	require.NoError(t, err)
	assert.Equal(t, "short", report.Text)
}
