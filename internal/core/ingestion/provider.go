package ingestion

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
)

// Extractor はファイルからプレーンテキストを取り出す外部機能
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PageCounter はドキュメントのページ数を返す。一覧表示でのみ使用する
type PageCounter interface {
	PageCount(path string) (int, error)
}

// CorpusWriter はチャンクを受け取るコーパス側の操作
type CorpusWriter interface {
	Add(ctx context.Context, chunks []chunk.Chunk) error
	DeleteBySource(ctx context.Context, source string) error
	Reset(ctx context.Context) error
}

// subdirs はファイル種別ごとの保存先サブディレクトリ
var subdirs = map[chunk.FileType]string{
	chunk.FileTypePDF:  "pdfs",
	chunk.FileTypeHTML: "html",
}

// FileTypeFor は拡張子からファイル種別を判定する（.pdf / .html / .htm）
func FileTypeFor(path string) (chunk.FileType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return chunk.FileTypePDF, true
	case ".html", ".htm":
		return chunk.FileTypeHTML, true
	default:
		return "", false
	}
}
