package rest

import (
	"github.com/samber/mo"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

// QueryRequest は POST /rag/query の入力
type QueryRequest struct {
	Query     string              `json:"query" validate:"required"`
	History   []map[string]string `json:"history"`
	MaxTokens int                 `json:"max_tokens" validate:"omitempty,min=1,max=16384"`
	K         int                 `json:"k" validate:"omitempty,min=1,max=50"`
}

// Turns は履歴を会話ターンに変換する。
// message を持つ要素のみ対象とし、role が無い場合は user とみなす。
func (r QueryRequest) Turns() []answer.Turn {
	turns := make([]answer.Turn, 0, len(r.History))
	for _, msg := range r.History {
		content, ok := msg["message"]
		if !ok {
			continue
		}
		role, ok := msg["role"]
		if !ok {
			role = string(answer.RoleUser)
		}
		turns = append(turns, answer.Turn{Role: answer.Role(role), Content: content})
	}
	return turns
}

// IngestRequest は POST /rag/ingest の入力。JSON 配列そのものも受け付ける
type IngestRequest struct {
	FilePaths []string `json:"file_paths" validate:"required,min=1,dive,required"`
}

// UploadResponse は取り込み系エンドポイントの応答
type UploadResponse struct {
	Message            string `json:"message"`
	DocumentsProcessed int    `json:"documents_processed"`
	ChunksCreated      int    `json:"chunks_created"`
}

// MessageResponse はメッセージのみの応答
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse はエラー応答
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// DatasetItemRequest は POST /rag/dataset の入力
type DatasetItemRequest struct {
	Question string   `json:"question" validate:"required"`
	Answer   string   `json:"answer" validate:"required"`
	Keywords []string `json:"keywords"` // 省略時は質問文から自動生成
	Category string   `json:"category"`
	Source   string   `json:"source"`
}

func (r DatasetItemRequest) toNewItem() dataset.NewItem {
	return dataset.NewItem{
		Question: r.Question,
		Answer:   r.Answer,
		Keywords: r.Keywords,
		Category: r.Category,
		Source:   r.Source,
	}
}

// DatasetUpdateRequest は PUT /rag/dataset/:ref の入力。指定されたフィールドのみ更新する
type DatasetUpdateRequest struct {
	Question *string   `json:"question" validate:"omitempty,min=1"`
	Answer   *string   `json:"answer" validate:"omitempty,min=1"`
	Keywords *[]string `json:"keywords"`
	Category *string   `json:"category"`
	Source   *string   `json:"source"`
}

func (r DatasetUpdateRequest) toFields() dataset.UpdateFields {
	return dataset.UpdateFields{
		Question: mo.PointerToOption(r.Question),
		Answer:   mo.PointerToOption(r.Answer),
		Keywords: mo.PointerToOption(r.Keywords),
		Category: mo.PointerToOption(r.Category),
		Source:   mo.PointerToOption(r.Source),
	}
}

// DatasetIngestRequest は POST /rag/dataset/ingest の入力
type DatasetIngestRequest struct {
	FilePath string `json:"file_path" validate:"required"`
}

// MatchResponse は GET /rag/dataset/match の応答
type MatchResponse struct {
	Found           bool          `json:"found"`
	Item            *dataset.Item `json:"item,omitempty"`
	SimilarityScore float64       `json:"similarity_score,omitempty"`
}

// EstimateRequest は POST /rag/estimate の入力
type EstimateRequest struct {
	Input  string `json:"input" validate:"required"`
	Output string `json:"output"`
}
