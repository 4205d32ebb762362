package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/reportlens/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ExtractsAllCategories(t *testing.T) {
	text := "On 2024-01-05 the patient with type 2 diabetes started Metformin at " +
		"Springfield General Hospital. ECG normal."

	found, err := Default().ExtractEntities(context.Background(), text)
	require.NoError(t, err)

	got := make([][2]string, len(found))
	for i, e := range found {
		assert.Equal(t, text[e.Start:e.End], e.Text)
		got[i] = [2]string{e.Text, e.Label}
	}
	assert.Equal(t, [][2]string{
		{"2024-01-05", ai.LabelDate},
		{"type 2 diabetes", ai.LabelDisease},
		{"Metformin", ai.LabelDrug},
		{"Springfield General Hospital", ai.LabelOrg},
		{"ECG", ai.LabelProcedure},
	}, got)
}

func TestParse(t *testing.T) {
	t.Run("terms and patterns", func(t *testing.T) {
		lex, err := Parse([]byte(`
terms:
  medication: [tylenol]
patterns:
  DATE: ['\d{2}\.\d{2}\.\d{4}']
`))
		require.NoError(t, err)
		assert.Equal(t, 2, lex.Size())

		found, err := lex.ExtractEntities(context.Background(), "Tylenol given 01.02.2024")
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, ai.LabelDrug, found[0].Label, "labels go through NormalizeLabel")
		assert.Equal(t, "01.02.2024", found[1].Text)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := Parse([]byte("patterns:\n  DATE: ['(']\n"))
		assert.ErrorContains(t, err, "lexicon pattern")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Parse([]byte("terms: {}\n"))
		assert.ErrorIs(t, err, ErrEmptyLexicon)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("terms: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("built-in", func(t *testing.T) {
		extractor, err := NewLoader("").LoadExtractor(ctx)
		require.NoError(t, err)
		assert.NotNil(t, extractor)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "terms.yaml")
		require.NoError(t, os.WriteFile(path, []byte("terms:\n  DRUG: [zyrtec]\n"), 0o600))

		extractor, err := NewLoader(path).LoadExtractor(ctx)
		require.NoError(t, err)

		found, err := extractor.ExtractEntities(ctx, "Takes Zyrtec daily")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Zyrtec", found[0].Text)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).LoadExtractor(ctx)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestExtractEntities_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Default().ExtractEntities(ctx, "aspirin")
	assert.ErrorIs(t, err, context.Canceled)
}
