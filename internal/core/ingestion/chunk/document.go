package chunk

import (
	"time"
)

// FileType はチャンク元ドキュメントの種別
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeHTML FileType = "html"
)

// Chunk はドキュメントから切り出したテキスト片と由来情報
type Chunk struct {
	Text        string
	SourcePath  string
	FileType    FileType
	ChunkIndex  int // 0始まり
	TotalChunks int
	CreatedAt   time.Time
}

// Metadata はベクトルストアに保存するメタデータを返す
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		"source":       c.SourcePath,
		"file_type":    string(c.FileType),
		"chunk_index":  c.ChunkIndex,
		"total_chunks": c.TotalChunks,
		"processed_at": c.CreatedAt.Format(time.RFC3339),
	}
}
