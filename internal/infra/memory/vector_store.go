package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jinford/hybrid-rag/internal/core/corpus"
)

// VectorStore はプロセス内で全件走査するベクトルストア。再起動で内容は失われる
type VectorStore struct {
	mu         sync.RWMutex
	collection string
	records    []corpus.Record
}

// NewVectorStore は新しい VectorStore を作成する
func NewVectorStore(collection string) *VectorStore {
	return &VectorStore{collection: collection}
}

var _ corpus.VectorStore = (*VectorStore)(nil)

func (s *VectorStore) Collection() string {
	return s.collection
}

func (s *VectorStore) Insert(ctx context.Context, records []corpus.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if len(s.records) > 0 && len(r.Embedding) != len(s.records[0].Embedding) {
			return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(r.Embedding), len(s.records[0].Embedding))
		}
	}
	s.records = append(s.records, records...)
	return nil
}

// Search はコサイン類似度の降順で最大 k 件を返す。同点は挿入順
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]corpus.ScoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]corpus.ScoredDocument, len(s.records))
	for i, r := range s.records {
		results[i] = corpus.ScoredDocument{
			Document: corpus.Document{Text: r.Text, Metadata: r.Metadata},
			Score:    cosine(vector, r.Embedding),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *VectorStore) HasSource(ctx context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Source == source {
			return true, nil
		}
	}
	return false, nil
}

func (s *VectorStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *VectorStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	deleted := 0
	for _, r := range s.records {
		if r.Source == source {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return deleted, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
