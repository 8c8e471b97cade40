package rag

import (
	"context"
	"log/slog"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

// DatasetMatcher はデータセットから最も近い項目を探す
type DatasetMatcher interface {
	FindBestMatch(query string, threshold float64) (*dataset.Match, bool)
}

// Retriever はクエリに関連するチャンクを返す
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]corpus.Document, error)
}

// Generator はコンテキストと履歴から回答を生成する
type Generator interface {
	Generate(ctx context.Context, query string, contexts []string, history []answer.Turn, maxTokens int) (string, error)
}

// Orchestrator はデータセット照合 → 文書検索 → 回答生成の順に質問を処理する
type Orchestrator struct {
	matcher   DatasetMatcher
	retriever Retriever
	generator Generator
	logger    *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger は Orchestrator にロガーを設定する
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator は新しい Orchestrator を作成する
func NewOrchestrator(matcher DatasetMatcher, retriever Retriever, generator Generator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		matcher:   matcher,
		retriever: retriever,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Answer は質問に回答する。
// データセットに閾値以上の一致があればその回答を返し、文書検索と生成は行わない。
// 関連チャンクが無い場合は生成を行わずに固定メッセージを返す。
func (o *Orchestrator) Answer(ctx context.Context, q Query) (*Result, error) {
	if q.Text == "" {
		return nil, apperror.Validation("rag.answer", "query is required")
	}

	k := q.K
	if k <= 0 {
		k = DefaultK
	}

	// 1. データセット照合
	if match, ok := o.matcher.FindBestMatch(q.Text, DatasetThreshold); ok {
		o.logger.Info("answered from dataset",
			"score", match.SimilarityScore,
			"category", match.Item.Category,
		)
		return datasetResult(match), nil
	}

	// 2. 文書検索
	docs, err := o.retriever.Search(ctx, q.Text, k)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		o.logger.Info("no relevant documents found", "query", truncate(q.Text, 50))
		return &Result{
			Answer:       NoContextAnswer,
			Sources:      []Source{},
			AnsweredFrom: AnsweredFromNone,
		}, nil
	}

	// 3. 回答生成
	contexts := make([]string, len(docs))
	for i, d := range docs {
		contexts[i] = d.Text
	}

	text, err := o.generator.Generate(ctx, q.Text, contexts, q.History, q.MaxTokens)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(docs))
	for i, d := range docs {
		sources[i] = Source{
			Content:        truncate(d.Text, excerptLength),
			Metadata:       d.Metadata,
			RelevanceScore: placeholderScore,
		}
	}

	o.logger.Info("answered from documents", "sources", len(sources), "query", truncate(q.Text, 50))
	return &Result{
		Answer:       text,
		Sources:      sources,
		AnsweredFrom: AnsweredFromDocuments,
	}, nil
}

// datasetResult はデータセット一致から結果を組み立てる。
// 複合スコアは 1.0 を超えうるため、relevance_score のみ 1.0 で頭打ちにする。
func datasetResult(match *dataset.Match) *Result {
	return &Result{
		Answer: match.Item.Answer,
		Sources: []Source{{
			Type:    SourceTypeDataset,
			Content: truncate(match.Item.Question, excerptLength),
			Metadata: map[string]any{
				"category":         match.Item.Category,
				"source":           match.Item.Source,
				"similarity_score": match.SimilarityScore,
				"item_id":          match.Item.ID.String(),
			},
			RelevanceScore: min(match.SimilarityScore, 1.0),
		}},
		AnsweredFrom: AnsweredFromDataset,
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
