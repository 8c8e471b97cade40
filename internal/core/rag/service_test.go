package rag_test

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
	"github.com/jinford/hybrid-rag/internal/core/ingestion"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
	"github.com/jinford/hybrid-rag/internal/core/rag"
	"github.com/jinford/hybrid-rag/internal/infra/filestore"
	"github.com/jinford/hybrid-rag/internal/infra/memory"
)

type wordEmbedder struct{}

func (wordEmbedder) vector(text string) []float32 {
	vec := make([]float32, 32)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%32]++
	}
	return vec
}

func (e wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e wordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (wordEmbedder) MaxBatchSize() int { return 100 }

type textExtractor struct {
	text string
}

func (e textExtractor) Extract(ctx context.Context, path string) (string, error) {
	return e.text, nil
}

type recordingCompleter struct {
	reply string
	err   error
	reqs  []answer.CompletionRequest
}

func (c *recordingCompleter) Complete(ctx context.Context, req answer.CompletionRequest) (string, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *recordingCompleter) ModelName() string { return "gpt-3.5-turbo" }

type failingStore struct {
	*memory.VectorStore
}

func (failingStore) Count(ctx context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

type serviceFixture struct {
	svc       *rag.Service
	dataset   *dataset.Service
	index     *corpus.Index
	completer *recordingCompleter
	dataDir   string
}

func newServiceFixture(t *testing.T, store corpus.VectorStore) *serviceFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()

	ds := dataset.NewService(
		filestore.NewDatasetRepository(filepath.Join(dataDir, "dataset.json")),
		dataset.WithDataDir(dataDir),
		dataset.WithDatasetLogger(logger),
	)
	require.NoError(t, ds.Load(context.Background()))

	if store == nil {
		store = memory.NewVectorStore(corpus.DefaultCollection)
	}
	index := corpus.NewIndex(wordEmbedder{}, store, corpus.WithIndexLogger(logger))

	splitter, err := chunk.NewSplitter(chunk.DefaultChunkSize, chunk.DefaultChunkOverlap)
	require.NoError(t, err)

	extractors := map[chunk.FileType]ingestion.Extractor{
		chunk.FileTypeHTML: textExtractor{text: "Rivers carry water to the sea. Mountains are tall."},
	}
	docStore := ingestion.NewDocumentStore(dataDir)
	require.NoError(t, docStore.EnsureDirs())
	library := ingestion.NewLibrary(docStore, ingestion.NewPipeline(extractors, splitter, index), index,
		ingestion.WithLibraryLogger(logger))

	completer := &recordingCompleter{reply: "Rivers flow to the sea."}
	composer := answer.NewComposer(completer, answer.WithComposerLogger(logger))

	svc := rag.NewService(rag.Dependencies{
		Dataset:        ds,
		Library:        library,
		Index:          index,
		Composer:       composer,
		Pricing:        answer.DefaultPricing(),
		EmbeddingModel: "text-embedding-ada-002",
	},
		rag.WithServiceLogger(logger),
		rag.WithServiceClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)

	return &serviceFixture{svc: svc, dataset: ds, index: index, completer: completer, dataDir: dataDir}
}

func (f *serviceFixture) upload(t *testing.T, name string) {
	t.Helper()
	_, err := f.svc.Upload(context.Background(), name, strings.NewReader("<html><body><p>rivers</p></body></html>"))
	require.NoError(t, err)
}

func TestService_Health(t *testing.T) {
	f := newServiceFixture(t, nil)

	h := f.svc.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, rag.Version, h.Version)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), h.Timestamp)
}

func TestService_QueryWithEmptyCorpus(t *testing.T) {
	f := newServiceFixture(t, nil)

	resp, err := f.svc.Query(context.Background(), rag.Query{Text: "Where do rivers go?"})
	require.NoError(t, err)

	assert.Equal(t, rag.NoContextAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Empty(t, f.completer.reqs)
	assert.Equal(t, 19, resp.Metadata["query_length"])
	assert.Equal(t, 0, resp.Metadata["sources_count"])
	assert.Equal(t, "gpt-3.5-turbo", resp.Metadata["model"])
	assert.Equal(t, "none", resp.Metadata["answered_from"])
}

func TestService_QueryFromDocuments(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.upload(t, "rivers.html")

	resp, err := f.svc.Query(context.Background(), rag.Query{Text: "Where do rivers go?"})
	require.NoError(t, err)

	assert.Equal(t, "Rivers flow to the sea.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, filepath.Join(f.dataDir, "html", "rivers.html"), resp.Sources[0].Metadata["source"])
	assert.Equal(t, 1, resp.Metadata["sources_count"])
	assert.Equal(t, "documents", resp.Metadata["answered_from"])

	require.Len(t, f.completer.reqs, 1)
	req := f.completer.reqs[0]
	assert.Equal(t, answer.DefaultMaxTokens, req.MaxTokens)
	assert.InDelta(t, answer.DefaultTemperature, req.Temperature, 1e-9)
	assert.Contains(t, req.Messages[0].Content, "Rivers carry water to the sea.")
}

func TestService_QueryPrefersDataset(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.upload(t, "rivers.html")

	_, err := f.dataset.Add(context.Background(), dataset.NewItem{
		Question: "Where do rivers go?",
		Answer:   "They go to the sea.",
	})
	require.NoError(t, err)

	resp, err := f.svc.Query(context.Background(), rag.Query{Text: "where do rivers go?"})
	require.NoError(t, err)

	assert.Equal(t, "They go to the sea.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, rag.SourceTypeDataset, resp.Sources[0].Type)
	assert.Equal(t, "dataset", resp.Metadata["answered_from"])
	assert.Empty(t, f.completer.reqs)
}

func TestService_QueryGenerationFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.upload(t, "rivers.html")
	f.completer.err = errors.New("rate limited")

	resp, err := f.svc.Query(context.Background(), rag.Query{Text: "Where do rivers go?"})
	assert.Nil(t, resp)
	assert.Error(t, err)
}

func TestService_Status(t *testing.T) {
	t.Run("正常", func(t *testing.T) {
		f := newServiceFixture(t, nil)
		f.upload(t, "rivers.html")
		_, err := f.dataset.Add(context.Background(), dataset.NewItem{Question: "q?", Answer: "a"})
		require.NoError(t, err)

		status := f.svc.Status(context.Background())
		assert.Equal(t, "healthy", status.Status)
		require.NotNil(t, status.VectorStore)
		assert.Equal(t, 1, status.VectorStore.TotalEntries)
		assert.Equal(t, corpus.DefaultCollection, status.VectorStore.CollectionID)
		assert.Equal(t, 1, status.TotalDocuments)
		assert.Equal(t, 1, status.DatasetItems)
		require.NotNil(t, status.ModelInfo)
		assert.Equal(t, "text-embedding-ada-002", status.ModelInfo.EmbeddingModel)
		assert.Equal(t, answer.DefaultMaxTokens, status.ModelInfo.MaxTokens)
	})

	t.Run("ストア障害", func(t *testing.T) {
		f := newServiceFixture(t, failingStore{memory.NewVectorStore(corpus.DefaultCollection)})

		status := f.svc.Status(context.Background())
		assert.Equal(t, "error", status.Status)
		assert.Contains(t, status.Error, "connection refused")
		assert.Nil(t, status.ModelInfo)
	})
}

func TestService_DeleteDocumentWipesCollection(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.upload(t, "rivers.html")
	f.upload(t, "mountains.html")

	require.NoError(t, f.svc.DeleteDocument(context.Background(), "rivers.html"))

	stats, err := f.index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)

	docs, err := f.svc.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mountains.html", docs[0].Filename)
}

func TestService_ResetSystemKeepsDataset(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.upload(t, "rivers.html")
	_, err := f.dataset.Add(context.Background(), dataset.NewItem{Question: "q?", Answer: "a"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetSystem(context.Background()))

	stats, err := f.index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)

	docs, err := f.svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 1, f.svc.Dataset().Len())
}

func TestService_EstimateCost(t *testing.T) {
	f := newServiceFixture(t, nil)

	// トークナイザ無しの場合は文字数 / 4
	assert.Equal(t, 2, f.svc.CountTokens("12345678"))

	est := f.svc.EstimateCost(strings.Repeat("a", 4000), strings.Repeat("b", 2000))
	assert.Equal(t, 1000, est.InputTokens)
	assert.Equal(t, 500, est.OutputTokens)
	assert.InDelta(t, 0.0015, est.InputCostUSD, 1e-9)
	assert.InDelta(t, 0.001, est.OutputCostUSD, 1e-9)
	assert.InDelta(t, 0.0025, est.TotalCostUSD, 1e-9)
	assert.Equal(t, "gpt-3.5-turbo", est.Model)
}
