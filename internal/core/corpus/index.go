package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
)

// Index は埋め込みとベクトルストアをまとめたコーパスの索引。
// Add / Reset / DeleteBySource は排他、Search / Stats は共有ロックで実行する。
type Index struct {
	mu             sync.RWMutex
	embedder       Embedder
	store          VectorStore
	targetedDelete bool
	logger         *slog.Logger
}

type indexOptions struct {
	targetedDelete bool
	logger         *slog.Logger
}

// IndexOption は Index のオプション設定
type IndexOption func(*indexOptions)

// WithIndexLogger は Index にロガーを設定する
func WithIndexLogger(logger *slog.Logger) IndexOption {
	return func(o *indexOptions) {
		o.logger = logger
	}
}

// WithTargetedDelete は DeleteBySource を指定ソースのエントリのみの削除に切り替える。
// 無効の場合はコレクション全体を消去する。
func WithTargetedDelete(enabled bool) IndexOption {
	return func(o *indexOptions) {
		o.targetedDelete = enabled
	}
}

// NewIndex は新しい Index を作成する
func NewIndex(embedder Embedder, store VectorStore, opts ...IndexOption) *Index {
	options := indexOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Index{
		embedder:       embedder,
		store:          store,
		targetedDelete: options.targetedDelete,
		logger:         options.logger,
	}
}

// Add はチャンクを埋め込み、コレクションに追加する。
// 全チャンクの埋め込みが揃ってから保存するため、埋め込み失敗時は何も追加されない。
func (i *Index) Add(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Text
	}

	embeddings, err := i.embedAll(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]Record, len(chunks))
	for n, c := range chunks {
		records[n] = recordFromChunk(c, embeddings[n])
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.Insert(ctx, records); err != nil {
		return apperror.External("corpus.add", err)
	}

	i.logger.Info("chunks added to corpus", "chunks", len(records), "collection", i.store.Collection())
	return nil
}

func (i *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := i.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		batch, err := i.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, apperror.External("corpus.embed", err)
		}
		if len(batch) != end-start {
			return nil, apperror.External("corpus.embed", fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start))
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

// Search はクエリに類似するチャンクを最大 k 件返す。コレクションが空の場合は埋め込みを行わず空を返す。
func (i *Index) Search(ctx context.Context, query string, k int) ([]Document, error) {
	scored, err := i.SearchWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(scored))
	for n, s := range scored {
		docs[n] = s.Document
	}
	return docs, nil
}

// SearchWithScores は Search と同じ結果を類似度付きで返す
func (i *Index) SearchWithScores(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return nil, apperror.Validation("corpus.search", "k must be positive: %d", k)
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	count, err := i.store.Count(ctx)
	if err != nil {
		return nil, apperror.External("corpus.search", err)
	}
	if count == 0 {
		return []ScoredDocument{}, nil
	}

	vector, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperror.External("corpus.embed", err)
	}

	results, err := i.store.Search(ctx, vector, k)
	if err != nil {
		return nil, apperror.External("corpus.search", err)
	}

	i.logger.Info("corpus search completed", "results", len(results), "query", truncate(query, 50))
	return results, nil
}

// Stats はコレクションの件数と名前を返す
func (i *Index) Stats(ctx context.Context) (Stats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	count, err := i.store.Count(ctx)
	if err != nil {
		return Stats{CollectionID: i.store.Collection()}, apperror.External("corpus.stats", err)
	}
	return Stats{TotalEntries: count, CollectionID: i.store.Collection()}, nil
}

// Reset はコレクションの全エントリを削除する
func (i *Index) Reset(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.store.DeleteAll(ctx); err != nil {
		return apperror.External("corpus.reset", err)
	}

	i.logger.Info("corpus collection reset", "collection", i.store.Collection())
	return nil
}

// DeleteBySource は指定ソースのエントリを削除する。
// 既定ではソースのエントリが1件でもあればコレクション全体を消去し、他のドキュメントのチャンクも失われる。
func (i *Index) DeleteBySource(ctx context.Context, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	found, err := i.store.HasSource(ctx, source)
	if err != nil {
		return apperror.External("corpus.delete", err)
	}
	if !found {
		i.logger.Info("no corpus entries for source", "source", source)
		return nil
	}

	if i.targetedDelete {
		deleted, err := i.store.DeleteBySource(ctx, source)
		if err != nil {
			return apperror.External("corpus.delete", err)
		}
		i.logger.Info("deleted corpus entries for source", "source", source, "deleted", deleted)
		return nil
	}

	i.logger.Warn("deleting a source resets the whole corpus collection", "source", source, "collection", i.store.Collection())
	if err := i.store.DeleteAll(ctx); err != nil {
		return apperror.External("corpus.delete", err)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
