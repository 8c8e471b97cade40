package dataset

import (
	"github.com/google/uuid"
	"github.com/samber/mo"
)

const (
	// DefaultCategory は追加時にカテゴリ未指定の場合の値
	DefaultCategory = "general"

	// DefaultSource は追加時にソース未指定の場合の値
	DefaultSource = "manual"

	// DefaultThreshold は API から直接呼ばれる場合のマッチ閾値
	DefaultThreshold = 0.6
)

// Item は事前定義された質問と回答のペアを表す
type Item struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Keywords []string  `json:"keywords"`
	Category string    `json:"category"`
	Source   string    `json:"source"`
}

// clone は Keywords を含めて Item を複製する
func (i Item) clone() Item {
	c := i
	if i.Keywords != nil {
		c.Keywords = append([]string(nil), i.Keywords...)
	}
	return c
}

// Match はクエリに対する最良一致と、そのスコアを表す
type Match struct {
	Item            Item
	Index           int     // 一致時点でのコレクション内位置
	SimilarityScore float64 // 質問類似度 + キーワードボーナス（1.0 を超えることがある）
}

// NewItem は Add に渡す入力
type NewItem struct {
	Question string
	Answer   string
	Keywords []string // nil の場合は質問文から自動生成する
	Category string
	Source   string
}

// UpdateFields は Update で変更するフィールド。値が存在するフィールドのみ上書きする
type UpdateFields struct {
	Question mo.Option[string]
	Answer   mo.Option[string]
	Keywords mo.Option[[]string]
	Category mo.Option[string]
	Source   mo.Option[string]
}

// IngestResult はデータセットファイル取り込みの結果
type IngestResult struct {
	FileProcessed    string `json:"file_processed"`
	DataFileLocation string `json:"data_file_location"`
	ItemsAdded       int    `json:"items_added"`
	ItemsSkipped     int    `json:"items_skipped"`
	TotalItems       int    `json:"total_items"`
	AutoCopied       bool   `json:"auto_copied"`
}
