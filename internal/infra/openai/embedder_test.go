package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc, opts ...EmbedderOption) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]EmbedderOption{
		WithEmbeddingBaseURL(server.URL + "/"),
		WithEmbeddingBackoff(time.Millisecond, 5*time.Millisecond),
	}, opts...)
	return NewEmbedder("test-key", opts...)
}

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
	assert.Equal(t, 100, embedder.MaxBatchSize())
}

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key")
	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestEmbedder_BatchEmbedKeepsInputOrder(t *testing.T) {
	var body map[string]any
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		// 応答の順序が入力と異なっても index で並べ直す
		_, _ = w.Write([]byte(`{
		  "object": "list",
		  "model": "text-embedding-ada-002",
		  "data": [
		    {"object": "embedding", "index": 1, "embedding": [0.0, 1.0]},
		    {"object": "embedding", "index": 0, "embedding": [1.0, 0.0]}
		  ],
		  "usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	})

	vectors, err := embedder.BatchEmbed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)

	assert.Equal(t, "text-embedding-ada-002", body["model"])
	assert.Equal(t, []any{"first", "second"}, body["input"])
	_, hasDimensions := body["dimensions"]
	assert.False(t, hasDimensions)
}

func TestEmbedder_EmbedSendsDimensionsForV3Models(t *testing.T) {
	var body map[string]any
	embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "object": "list",
		  "model": "text-embedding-3-small",
		  "data": [{"object": "embedding", "index": 0, "embedding": [0.5, 0.25, 0.125]}],
		  "usage": {"prompt_tokens": 1, "total_tokens": 1}
		}`))
	}, WithEmbeddingModel("text-embedding-3-small"), WithEmbeddingDimension(3))

	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vector)
	assert.Equal(t, "hello", body["input"])
	assert.EqualValues(t, 3, body["dimensions"])
}

func TestEmbedder_BatchEmbedRejectsInvalidBatches(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	_, err := embedder.BatchEmbed(context.Background(), nil)
	assert.Error(t, err)

	_, err = embedder.BatchEmbed(context.Background(), make([]string, 101))
	assert.Error(t, err)
}
