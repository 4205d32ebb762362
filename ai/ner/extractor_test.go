package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/reportlens/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, entities []span, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	mux.HandleFunc("/ner", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if status != http.StatusOK {
			http.Error(w, "model crashed", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response{Entities: entities})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func config(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithExtractorBackend(ai.BackendNER),
		ai.WithNERHost(host),
	)
}

func TestExtractor_ConvertsCharacterOffsets(t *testing.T) {
	text := "Naïve patient on metformin since 2020."
	srv := newTestServer(t, []span{
		{Text: "metformin", Label: "CHEMICAL", Start: 17, End: 26},
		{Text: "2020", Label: "DATE", Start: 33, End: 37},
		{Text: "bogus", Label: "DRUG", Start: 0, End: 5},
		{Text: "x", Label: "DRUG", Start: 30, End: 99},
	}, http.StatusOK)

	extractor, err := NewExtractor(config(srv.URL))
	require.NoError(t, err)

	found, err := extractor.ExtractEntities(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, ai.ExtractedEntity{Text: "metformin", Label: ai.LabelDrug, Start: 18, End: 27}, found[0])
	assert.Equal(t, ai.ExtractedEntity{Text: "2020", Label: ai.LabelDate, Start: 34, End: 38}, found[1])
}

func TestExtractor_ServiceError(t *testing.T) {
	srv := newTestServer(t, nil, http.StatusInternalServerError)

	extractor, err := NewExtractor(config(srv.URL))
	require.NoError(t, err)

	_, err = extractor.ExtractEntities(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrServiceStatus)
}

func TestLoader(t *testing.T) {
	t.Run("healthy service", func(t *testing.T) {
		srv := newTestServer(t, nil, http.StatusOK)

		extractor, err := NewLoader(config(srv.URL)).LoadExtractor(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, extractor)
	})

	t.Run("unhealthy service", func(t *testing.T) {
		srv := newTestServer(t, nil, http.StatusServiceUnavailable)

		_, err := NewLoader(config(srv.URL)).LoadExtractor(context.Background())
		assert.ErrorIs(t, err, ErrServiceStatus)
	})

	t.Run("unreachable service", func(t *testing.T) {
		srv := newTestServer(t, nil, http.StatusOK)
		url := srv.URL
		srv.Close()

		_, err := NewLoader(config(url)).LoadExtractor(context.Background())
		assert.Error(t, err)
	})
}

func TestByteOffsets(t *testing.T) {
	assert.Equal(t, []int{0, 1, 3, 4}, byteOffsets("aéb"))
	assert.Equal(t, []int{0}, byteOffsets(""))
}
