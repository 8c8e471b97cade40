package cache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jinford/hybrid-rag/internal/core/corpus"
)

// DefaultTTL はクエリ埋め込みの保持期間のデフォルト値
const DefaultTTL = 10 * time.Minute

// Embedder は Embed の結果をテキスト単位でキャッシュする corpus.Embedder。
// BatchEmbed（取り込み時）はキャッシュせずに委譲する。
type Embedder struct {
	next  corpus.Embedder
	cache *cache.Cache
}

// NewEmbedder は next をラップした Embedder を作成する。ttl が 0 以下の場合は DefaultTTL を使う。
func NewEmbedder(next corpus.Embedder, ttl time.Duration) *Embedder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Embedder{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

var _ corpus.Embedder = (*Embedder)(nil)

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, found := e.cache.Get(text); found {
		return v.([]float32), nil
	}

	vector, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vector, cache.DefaultExpiration)
	return vector, nil
}

func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.BatchEmbed(ctx, texts)
}

func (e *Embedder) MaxBatchSize() int {
	return e.next.MaxBatchSize()
}

// Len はキャッシュ中のエントリ数を返す
func (e *Embedder) Len() int {
	return e.cache.ItemCount()
}

// Flush はキャッシュを空にする
func (e *Embedder) Flush() {
	e.cache.Flush()
}
