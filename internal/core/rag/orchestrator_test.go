package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

type stubMatcher struct {
	match         *dataset.Match
	lastThreshold float64
}

func (m *stubMatcher) FindBestMatch(query string, threshold float64) (*dataset.Match, bool) {
	m.lastThreshold = threshold
	if m.match == nil || m.match.SimilarityScore < threshold {
		return nil, false
	}
	return m.match, true
}

type stubRetriever struct {
	docs  []corpus.Document
	err   error
	calls int
	lastK int
	lastQ string
}

func (r *stubRetriever) Search(ctx context.Context, query string, k int) ([]corpus.Document, error) {
	r.calls++
	r.lastK = k
	r.lastQ = query
	if r.err != nil {
		return nil, r.err
	}
	return r.docs, nil
}

type stubGenerator struct {
	reply        string
	err          error
	calls        int
	lastContexts []string
	lastHistory  []answer.Turn
	lastMax      int
}

func (g *stubGenerator) Generate(ctx context.Context, query string, contexts []string, history []answer.Turn, maxTokens int) (string, error) {
	g.calls++
	g.lastContexts = contexts
	g.lastHistory = history
	g.lastMax = maxTokens
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestOrchestrator(m DatasetMatcher, r Retriever, g Generator) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(m, r, g, WithOrchestratorLogger(logger))
}

func TestOrchestrator_DatasetMatchTakesPrecedence(t *testing.T) {
	matcher := &stubMatcher{match: &dataset.Match{
		Item: dataset.Item{
			Question: "What is courage?",
			Answer:   "Courage is acting despite fear.",
			Category: "emotions",
			Source:   "book",
		},
		SimilarityScore: 1.3,
	}}
	retriever := &stubRetriever{docs: []corpus.Document{{Text: "doc"}}}
	generator := &stubGenerator{reply: "generated"}

	result, err := newTestOrchestrator(matcher, retriever, generator).Answer(context.Background(), Query{Text: "what is courage?"})
	require.NoError(t, err)

	assert.Equal(t, "Courage is acting despite fear.", result.Answer)
	assert.Equal(t, AnsweredFromDataset, result.AnsweredFrom)
	assert.InDelta(t, DatasetThreshold, matcher.lastThreshold, 1e-9)
	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, 0, generator.calls)

	require.Len(t, result.Sources, 1)
	src := result.Sources[0]
	assert.Equal(t, SourceTypeDataset, src.Type)
	assert.Equal(t, "emotions", src.Metadata["category"])
	assert.Equal(t, "book", src.Metadata["source"])
	assert.InDelta(t, 1.3, src.Metadata["similarity_score"], 1e-9)
	assert.InDelta(t, 1.0, src.RelevanceScore, 1e-9)
}

func TestOrchestrator_EmptyCorpusReturnsFixedMessage(t *testing.T) {
	retriever := &stubRetriever{}
	generator := &stubGenerator{reply: "should not be used"}

	result, err := newTestOrchestrator(&stubMatcher{}, retriever, generator).Answer(context.Background(), Query{Text: "anything"})
	require.NoError(t, err)

	assert.Equal(t, NoContextAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.NotNil(t, result.Sources)
	assert.Equal(t, AnsweredFromNone, result.AnsweredFrom)
	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, 0, generator.calls)
}

func TestOrchestrator_ComposesFromRetrievedDocuments(t *testing.T) {
	long := strings.Repeat("あ", 250)
	retriever := &stubRetriever{docs: []corpus.Document{
		{Text: "short chunk", Metadata: map[string]any{"source": "a.pdf", "chunk_index": 0}},
		{Text: long, Metadata: map[string]any{"source": "b.html", "chunk_index": 3}},
	}}
	generator := &stubGenerator{reply: "composed answer"}
	history := []answer.Turn{{Role: answer.RoleUser, Content: "earlier"}}

	result, err := newTestOrchestrator(&stubMatcher{}, retriever, generator).Answer(context.Background(), Query{
		Text:      "question",
		History:   history,
		MaxTokens: 256,
	})
	require.NoError(t, err)

	assert.Equal(t, "composed answer", result.Answer)
	assert.Equal(t, AnsweredFromDocuments, result.AnsweredFrom)
	assert.Equal(t, DefaultK, retriever.lastK)
	assert.Equal(t, []string{"short chunk", long}, generator.lastContexts)
	assert.Equal(t, history, generator.lastHistory)
	assert.Equal(t, 256, generator.lastMax)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "short chunk", result.Sources[0].Content)
	assert.Equal(t, "a.pdf", result.Sources[0].Metadata["source"])
	assert.InDelta(t, 0.8, result.Sources[0].RelevanceScore, 1e-9)
	assert.Empty(t, result.Sources[0].Type)

	assert.Equal(t, strings.Repeat("あ", 200)+"...", result.Sources[1].Content)
	assert.Equal(t, 3, result.Sources[1].Metadata["chunk_index"])
}

func TestOrchestrator_DatasetBelowThresholdFallsThrough(t *testing.T) {
	matcher := &stubMatcher{match: &dataset.Match{Item: dataset.Item{Answer: "curated"}, SimilarityScore: 0.65}}
	retriever := &stubRetriever{docs: []corpus.Document{{Text: "doc"}}}
	generator := &stubGenerator{reply: "generated"}

	result, err := newTestOrchestrator(matcher, retriever, generator).Answer(context.Background(), Query{Text: "q", K: 2})
	require.NoError(t, err)
	assert.Equal(t, "generated", result.Answer)
	assert.Equal(t, 2, retriever.lastK)
}

func TestOrchestrator_FailuresAbort(t *testing.T) {
	t.Run("検索失敗", func(t *testing.T) {
		retriever := &stubRetriever{err: apperror.External("corpus.search", errors.New("down"))}
		generator := &stubGenerator{}

		result, err := newTestOrchestrator(&stubMatcher{}, retriever, generator).Answer(context.Background(), Query{Text: "q"})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperror.ErrExternal)
		assert.Equal(t, 0, generator.calls)
	})

	t.Run("生成失敗", func(t *testing.T) {
		retriever := &stubRetriever{docs: []corpus.Document{{Text: "doc"}}}
		generator := &stubGenerator{err: apperror.External("answer.generate", errors.New("timeout"))}

		result, err := newTestOrchestrator(&stubMatcher{}, retriever, generator).Answer(context.Background(), Query{Text: "q"})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperror.ErrExternal)
	})

	t.Run("空のクエリ", func(t *testing.T) {
		_, err := newTestOrchestrator(&stubMatcher{}, &stubRetriever{}, &stubGenerator{}).Answer(context.Background(), Query{})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
