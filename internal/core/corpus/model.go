package corpus

import (
	"context"

	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
)

// DefaultCollection はコレクション名のデフォルト値
const DefaultCollection = "nazarriya_documents"

// Document は検索結果として返すチャンク本文とメタデータ
type Document struct {
	Text     string
	Metadata map[string]any
}

// Source はメタデータに記録された取り込み元パスを返す
func (d Document) Source() string {
	s, _ := d.Metadata["source"].(string)
	return s
}

// ScoredDocument は類似度付きの検索結果。Score はコサイン類似度
type ScoredDocument struct {
	Document
	Score float64
}

// Record はベクトルストアに保存する1件分のエントリ
type Record struct {
	Source    string
	Text      string
	Metadata  map[string]any
	Embedding []float32
}

// Stats はコレクションの統計情報
type Stats struct {
	TotalEntries int    `json:"total_documents"`
	CollectionID string `json:"collection_name"`
}

// Embedder はテキストをベクトルに変換する外部機能
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	MaxBatchSize() int
}

// VectorStore は単一コレクションのベクトル保存・検索を行う外部機能。
// Search は類似度の降順、同点は挿入順で返す。
type VectorStore interface {
	Collection() string
	Insert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]ScoredDocument, error)
	Count(ctx context.Context) (int, error)
	HasSource(ctx context.Context, source string) (bool, error)
	DeleteAll(ctx context.Context) error
	DeleteBySource(ctx context.Context, source string) (int, error)
}

func recordFromChunk(c chunk.Chunk, embedding []float32) Record {
	return Record{
		Source:    c.SourcePath,
		Text:      c.Text,
		Metadata:  c.Metadata(),
		Embedding: embedding,
	}
}
