package rag

import (
	"context"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
	"github.com/jinford/hybrid-rag/internal/core/ingestion"
)

// Service は HTTP / CLI から呼ばれる操作をまとめる
type Service struct {
	orchestrator   *Orchestrator
	dataset        *dataset.Service
	library        *ingestion.Library
	index          *corpus.Index
	composer       *answer.Composer
	tokens         *answer.TokenCounter
	pricing        *answer.Pricing
	embeddingModel string
	now            func() time.Time
	logger         *slog.Logger
}

// Dependencies は Service の構成要素
type Dependencies struct {
	Dataset        *dataset.Service
	Library        *ingestion.Library
	Index          *corpus.Index
	Composer       *answer.Composer
	Tokens         *answer.TokenCounter
	Pricing        *answer.Pricing
	EmbeddingModel string
}

type ServiceOption func(*Service)

// WithServiceLogger は Service にロガーを設定する
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithServiceClock は時刻の取得元を差し替える
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService は新しい Service を作成する
func NewService(deps Dependencies, opts ...ServiceOption) *Service {
	svc := &Service{
		dataset:        deps.Dataset,
		library:        deps.Library,
		index:          deps.Index,
		composer:       deps.Composer,
		tokens:         deps.Tokens,
		pricing:        deps.Pricing,
		embeddingModel: deps.EmbeddingModel,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.pricing == nil {
		svc.pricing = answer.DefaultPricing()
	}
	if svc.tokens == nil {
		svc.tokens = &answer.TokenCounter{}
	}

	svc.orchestrator = NewOrchestrator(deps.Dataset, deps.Index, deps.Composer, WithOrchestratorLogger(svc.logger))
	return svc
}

// Health はサービスの稼働状態を返す
func (s *Service) Health() HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Timestamp: s.now(),
		Version:   Version,
	}
}

// Query は質問に回答し、メタデータを付けて返す
func (s *Service) Query(ctx context.Context, q Query) (*QueryResponse, error) {
	result, err := s.orchestrator.Answer(ctx, q)
	if err != nil {
		s.logger.Error("query failed", "error", err)
		return nil, err
	}

	return &QueryResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
		Metadata: map[string]any{
			"query_length":  utf8.RuneCountInString(q.Text),
			"sources_count": len(result.Sources),
			"model":         s.composer.Model(),
			"answered_from": string(result.AnsweredFrom),
		},
	}, nil
}

// Ingest は複数ファイルを取り込む
func (s *Service) Ingest(ctx context.Context, paths []string) (*ingestion.IngestResult, error) {
	return s.library.IngestPaths(ctx, paths)
}

// AddDocument は単一ファイルを取り込む
func (s *Service) AddDocument(ctx context.Context, path string) (*ingestion.AddResult, error) {
	return s.library.AddDocument(ctx, path)
}

// Upload はアップロードされたファイルを保存して取り込む
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*ingestion.AddResult, error) {
	return s.library.Upload(ctx, filename, r)
}

// ListDocuments は保存済みドキュメントを返す
func (s *Service) ListDocuments(ctx context.Context) ([]ingestion.DocumentInfo, error) {
	return s.library.ListDocuments(ctx)
}

// DeleteDocument はドキュメントを削除する。
// 対象外設定のコーパスではコレクション全体が消去される。
func (s *Service) DeleteDocument(ctx context.Context, filename string) error {
	return s.library.DeleteDocument(ctx, filename)
}

// ResetSystem はコーパスと保存済みファイルを全て削除する。データセットは残る。
func (s *Service) ResetSystem(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	if err := s.library.ResetFiles(ctx); err != nil {
		return err
	}
	s.logger.Info("system reset")
	return nil
}

// Dataset はデータセットの操作を返す
func (s *Service) Dataset() *dataset.Service {
	return s.dataset
}

// ModelInfo は使用中のモデル設定を返す
func (s *Service) ModelInfo() ModelInfo {
	return ModelInfo{
		Model:          s.composer.Model(),
		EmbeddingModel: s.embeddingModel,
		MaxTokens:      s.composer.MaxTokens(),
		Temperature:    s.composer.Temperature(),
	}
}

// Status はシステム全体の状態を返す。内部の失敗はエラーではなく status=error として返す。
func (s *Service) Status(ctx context.Context) *SystemStatus {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to get corpus stats", "error", err)
		return &SystemStatus{Status: "error", Error: err.Error()}
	}

	docs, err := s.library.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return &SystemStatus{Status: "error", Error: err.Error()}
	}

	info := s.ModelInfo()
	return &SystemStatus{
		Status:             "healthy",
		VectorStore:        &stats,
		AvailableDocuments: docs,
		TotalDocuments:     len(docs),
		ModelInfo:          &info,
		DatasetItems:       s.dataset.Len(),
	}
}

// CountTokens はテキストのトークン数を返す
func (s *Service) CountTokens(text string) int {
	return s.tokens.Count(text)
}

// EstimateCost は入力テキストと出力テキストのトークン数から概算コストを返す
func (s *Service) EstimateCost(input, output string) answer.CostEstimate {
	return s.pricing.EstimateCost(s.composer.Model(), s.tokens.Count(input), s.tokens.Count(output))
}
