package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateMentions(t *testing.T) {
	text := "Started Metformin in March. metformin dose raised; no metforminx."

	found := LocateMentions(text, []Mention{{Text: "metformin", Label: LabelDrug}})
	require.Len(t, found, 2)

	for _, e := range found {
		assert.Equal(t, text[e.Start:e.End], e.Text)
		assert.Equal(t, LabelDrug, e.Label)
	}
	assert.Equal(t, "Metformin", found[0].Text)
	assert.Equal(t, "metformin", found[1].Text)
}

func TestLocateMentions_MultiWordAndOverlap(t *testing.T) {
	text := "History of type 2   diabetes and diabetes insipidus."

	found := LocateMentions(text, []Mention{
		{Text: "diabetes", Label: LabelDisease},
		{Text: "type 2 diabetes", Label: LabelDisease},
		{Text: "  ", Label: LabelDisease},
	})
	require.Len(t, found, 2)

	assert.Equal(t, "type 2   diabetes", found[0].Text)
	assert.Equal(t, "diabetes", found[1].Text)
	assert.Less(t, found[0].End, found[1].Start)
}

func TestCompilePattern(t *testing.T) {
	p, err := CompilePattern(LabelDate, `\d{4}-\d{2}-\d{2}`)
	require.NoError(t, err)
	assert.Equal(t, LabelDate, p.Label())

	found := p.FindAll("seen 2024-01-05, again 2024-02-10")
	require.Len(t, found, 2)
	assert.Equal(t, "2024-01-05", found[0].Text)
	assert.Equal(t, 5, found[0].Start)

	_, err = CompilePattern(LabelDate, `(`)
	assert.Error(t, err)
}

func TestResolveOverlaps(t *testing.T) {
	assert.Empty(t, ResolveOverlaps(nil))

	in := []ExtractedEntity{
		{Text: "b", Start: 10, End: 11},
		{Text: "aaa", Start: 0, End: 3},
		{Text: "aa", Start: 1, End: 3},
		{Text: "x", Start: 2, End: 4},
	}
	out := ResolveOverlaps(in)

	require.Len(t, out, 2)
	assert.Equal(t, "aaa", out[0].Text)
	assert.Equal(t, "b", out[1].Text)
	assert.Len(t, in, 4, "input is not modified")
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, LabelDrug, NormalizeLabel("chemical"))
	assert.Equal(t, LabelDrug, NormalizeLabel(" Medication "))
	assert.Equal(t, LabelDisease, NormalizeLabel("condition"))
	assert.Equal(t, LabelOrg, NormalizeLabel("organization"))
	assert.Equal(t, LabelDate, NormalizeLabel("DATE"))
	assert.Equal(t, "GPE", NormalizeLabel("gpe"))
}

type stubExtractors struct{ closed int }

func (s *stubExtractors) LoadExtractor(context.Context) (EntityExtractor, error) {
	return nil, errors.New("not loaded")
}

func (s *stubExtractors) Close() error {
	s.closed++
	return nil
}

type stubSummarizers struct{}

func (stubSummarizers) LoadSummarizer(context.Context) (Summarizer, error) {
	return nil, nil
}

func TestCompose(t *testing.T) {
	extractors := &stubExtractors{}
	provider := Compose(extractors, stubSummarizers{})

	_, err := provider.LoadExtractor(context.Background())
	assert.EqualError(t, err, "not loaded")

	_, err = provider.LoadSummarizer(context.Background())
	assert.NoError(t, err)

	require.NoError(t, provider.Close())
	assert.Equal(t, 1, extractors.closed)
}
