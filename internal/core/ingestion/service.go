package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
)

// IngestResult は複数ファイル取り込みの結果
type IngestResult struct {
	Message        string   `json:"message"`
	FilesProcessed int      `json:"files_processed"`
	TotalChunks    int      `json:"total_chunks"`
	Skipped        []string `json:"skipped,omitempty"`
}

// AddResult は単一ドキュメント追加の結果
type AddResult struct {
	Message       string `json:"message"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	FileType      string `json:"file_type"` // 拡張子（".pdf" など）
}

// Library は元ファイルの保存とコーパスへの取り込みを管理する
type Library struct {
	store    *DocumentStore
	pipeline *Pipeline
	corpus   CorpusWriter
	pages    PageCounter
	logger   *slog.Logger
}

type libraryOptions struct {
	pages  PageCounter
	logger *slog.Logger
}

// LibraryOption は Library のオプション設定
type LibraryOption func(*libraryOptions)

// WithLibraryLogger は Library にロガーを設定する
func WithLibraryLogger(logger *slog.Logger) LibraryOption {
	return func(o *libraryOptions) {
		o.logger = logger
	}
}

// WithPageCounter は PDF のページ数取得に使う PageCounter を設定する
func WithPageCounter(pages PageCounter) LibraryOption {
	return func(o *libraryOptions) {
		o.pages = pages
	}
}

// NewLibrary は新しい Library を作成する
func NewLibrary(store *DocumentStore, pipeline *Pipeline, corpus CorpusWriter, opts ...LibraryOption) *Library {
	options := libraryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Library{
		store:    store,
		pipeline: pipeline,
		corpus:   corpus,
		pages:    options.pages,
		logger:   options.logger,
	}
}

// IngestPaths は複数のファイルを取り込む。
// 存在しないファイルと未対応の種別は警告を出してスキップし、抽出やコーパス登録の失敗は全体を中断する。
func (l *Library) IngestPaths(ctx context.Context, paths []string) (*IngestResult, error) {
	result := &IngestResult{}

	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			l.logger.Warn("file not found, skipping", "path", path)
			result.Skipped = append(result.Skipped, path)
			continue
		}

		fileType, ok := FileTypeFor(path)
		if !ok {
			l.logger.Warn("unsupported file type, skipping", "path", path, "ext", filepath.Ext(path))
			result.Skipped = append(result.Skipped, path)
			continue
		}

		dest, copied, err := l.store.Import(path, fileType)
		if err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				l.logger.Warn("file content does not match its type, skipping", "path", path, "error", err)
				result.Skipped = append(result.Skipped, path)
				continue
			}
			return nil, err
		}
		if copied {
			l.logger.Info("copied file to data directory", "file", filepath.Base(path))
		}

		n, err := l.pipeline.Process(ctx, dest, fileType)
		if err != nil {
			return nil, err
		}

		result.FilesProcessed++
		result.TotalChunks += n
		l.logger.Info("file processed", "file", filepath.Base(path), "chunks", n)
	}

	result.Message = fmt.Sprintf("Successfully processed %d files", result.FilesProcessed)
	return result, nil
}

// AddDocument は単一のファイルを取り込む
func (l *Library) AddDocument(ctx context.Context, path string) (*AddResult, error) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, apperror.NotFound("ingestion.add", "file not found: %s", path)
	}

	fileType, ok := FileTypeFor(path)
	if !ok {
		return nil, apperror.Validation("ingestion.add", "unsupported file type: %s", filepath.Ext(path))
	}

	dest, copied, err := l.store.Import(path, fileType)
	if err != nil {
		return nil, err
	}
	if copied {
		l.logger.Info("copied file to data directory", "file", filepath.Base(path))
	}

	return l.process(ctx, dest)
}

// Upload はアップロードされたファイルを保存して取り込む
func (l *Library) Upload(ctx context.Context, filename string, r io.Reader) (*AddResult, error) {
	if filename == "" {
		return nil, apperror.Validation("ingestion.upload", "no filename provided")
	}

	fileType, ok := FileTypeFor(filename)
	if !ok {
		return nil, apperror.Validation("ingestion.upload", "unsupported file type: %s", filepath.Ext(filename))
	}

	dest, err := l.store.Save(filename, fileType, r)
	if err != nil {
		return nil, err
	}

	return l.process(ctx, dest)
}

func (l *Library) process(ctx context.Context, path string) (*AddResult, error) {
	fileType, _ := FileTypeFor(path)

	n, err := l.pipeline.Process(ctx, path, fileType)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	l.logger.Info("document added", "file", name, "chunks", n)

	return &AddResult{
		Message:       fmt.Sprintf("Successfully added %s", name),
		Filename:      name,
		ChunksCreated: n,
		FileType:      strings.ToLower(filepath.Ext(name)),
	}, nil
}

// ListDocuments は保存済みドキュメントを返す。ページ数が読めない PDF は警告を出して除外する。
func (l *Library) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	files, err := l.store.List()
	if err != nil {
		return nil, err
	}

	docs := make([]DocumentInfo, 0, len(files))
	for _, f := range files {
		doc := DocumentInfo{
			Filename:   f.Info.Name(),
			FileType:   f.FileType,
			SizeBytes:  f.Info.Size(),
			UploadedAt: f.Info.ModTime(),
		}

		if f.FileType == chunk.FileTypePDF && l.pages != nil {
			pages, err := l.pages.PageCount(f.Path)
			if err != nil {
				l.logger.Warn("could not read PDF", "file", f.Path, "error", err)
				continue
			}
			doc.Chunks = pages
		}

		docs = append(docs, doc)
	}
	return docs, nil
}

// DeleteDocument はファイル名で指定したドキュメントを削除する。
// コーパス側の削除はその設定次第でコレクション全体の消去になる。
func (l *Library) DeleteDocument(ctx context.Context, filename string) error {
	if filename == "" || filename != filepath.Base(filename) || filename == ".." {
		return apperror.Validation("ingestion.delete", "invalid filename: %q", filename)
	}

	path, _, ok := l.store.Find(filename)
	if !ok {
		return apperror.NotFound("ingestion.delete", "document %s not found", filename)
	}

	if err := l.corpus.DeleteBySource(ctx, path); err != nil {
		return err
	}
	if err := l.store.Remove(path); err != nil {
		return err
	}

	l.logger.Info("document deleted", "file", filename)
	return nil
}

// ResetFiles は保存済みの元ファイルを全て削除する
func (l *Library) ResetFiles(ctx context.Context) error {
	removed, err := l.store.Clear()
	if err != nil {
		return err
	}
	l.logger.Info("document files cleared", "removed", removed)
	return nil
}
