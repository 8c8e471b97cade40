package ingestion

import (
	"context"
	"fmt"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
)

// Pipeline は1ファイル分の抽出 → チャンク化 → コーパス登録を行う
type Pipeline struct {
	extractors map[chunk.FileType]Extractor
	splitter   *chunk.Splitter
	corpus     CorpusWriter
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(extractors map[chunk.FileType]Extractor, splitter *chunk.Splitter, corpus CorpusWriter) *Pipeline {
	return &Pipeline{
		extractors: extractors,
		splitter:   splitter,
		corpus:     corpus,
	}
}

// Process はファイルを処理し、登録したチャンク数を返す。
// 抽出結果が空の場合はチャンク0件として扱い、コーパスには何も追加しない。
func (p *Pipeline) Process(ctx context.Context, path string, fileType chunk.FileType) (int, error) {
	extractor, ok := p.extractors[fileType]
	if !ok {
		return 0, apperror.Validation("ingestion.process", "no extractor registered for file type %q", fileType)
	}

	text, err := extractor.Extract(ctx, path)
	if err != nil {
		return 0, apperror.External("ingestion.extract", fmt.Errorf("%s: %w", path, err))
	}

	chunks := p.splitter.Chunk(text, path, fileType)
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := p.corpus.Add(ctx, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}
