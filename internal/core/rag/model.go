package rag

import (
	"time"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/ingestion"
)

const (
	// DatasetThreshold はデータセット照合に使う閾値
	DatasetThreshold = 0.7

	// DefaultK は文書検索で取得するチャンク数
	DefaultK = 4

	// NoContextAnswer は関連チャンクが見つからない場合の固定応答
	NoContextAnswer = "I don't have enough context to answer this question. Please ensure documents have been ingested."

	// SourceTypeDataset はデータセット由来の回答に付けるソース種別
	SourceTypeDataset = "predefined_dataset"

	// Version はサービスのバージョン
	Version = "1.0.0"

	excerptLength    = 200
	placeholderScore = 0.8
)

// AnsweredFrom は回答がどの経路で得られたかを表す
type AnsweredFrom string

const (
	AnsweredFromDataset   AnsweredFrom = "dataset"
	AnsweredFromDocuments AnsweredFrom = "documents"
	AnsweredFromNone      AnsweredFrom = "none"
)

// Query は質問応答の入力
type Query struct {
	Text      string
	History   []answer.Turn
	MaxTokens int // 0 以下の場合は生成側のデフォルト
	K         int // 0 以下の場合は DefaultK
}

// Source は回答の根拠の1件
type Source struct {
	Type           string         `json:"type,omitempty"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata"`
	RelevanceScore float64        `json:"relevance_score"`
}

// Result は質問応答の結果。失敗時に部分的な結果は返さない
type Result struct {
	Answer       string
	Sources      []Source
	AnsweredFrom AnsweredFrom
}

// QueryResponse は外部に返す質問応答の結果
type QueryResponse struct {
	Answer   string         `json:"answer"`
	Sources  []Source       `json:"sources"`
	Metadata map[string]any `json:"metadata"`
}

// HealthStatus はヘルスチェックの結果
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ModelInfo は使用中のモデル設定
type ModelInfo struct {
	Model          string  `json:"model"`
	EmbeddingModel string  `json:"embedding_model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
}

// SystemStatus はシステム全体の状態
type SystemStatus struct {
	Status             string                   `json:"status"`
	Error              string                   `json:"error,omitempty"`
	VectorStore        *corpus.Stats            `json:"vector_store,omitempty"`
	AvailableDocuments []ingestion.DocumentInfo `json:"available_documents,omitempty"`
	TotalDocuments     int                      `json:"total_documents"`
	ModelInfo          *ModelInfo               `json:"model_info,omitempty"`
	DatasetItems       int                      `json:"dataset_items"`
}
