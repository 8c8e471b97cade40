package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/platform/database"
)

// VectorStore は pgvector を使った corpus.VectorStore 実装。
// コレクションは corpus_entries.collection 列で分離する。
type VectorStore struct {
	txp        *database.TransactionProvider
	collection string
}

// NewVectorStore は新しい VectorStore を返す
func NewVectorStore(txp *database.TransactionProvider, collection string) *VectorStore {
	return &VectorStore{txp: txp, collection: collection}
}

var _ corpus.VectorStore = (*VectorStore)(nil)

// Collection はコレクション名を返す
func (s *VectorStore) Collection() string {
	return s.collection
}

// Insert はエントリを1トランザクションで追加する
func (s *VectorStore) Insert(ctx context.Context, records []corpus.Record) error {
	if len(records) == 0 {
		return nil
	}

	_, err := database.Transact(ctx, s.txp, func(tx pgx.Tx) (struct{}, error) {
		if err := database.AcquireXactLock(ctx, tx, s.lockID()); err != nil {
			return struct{}{}, err
		}

		batch := &pgx.Batch{}
		for _, r := range records {
			metadata, err := json.Marshal(r.Metadata)
			if err != nil {
				return struct{}{}, fmt.Errorf("failed to encode metadata: %w", err)
			}
			batch.Queue(
				`INSERT INTO corpus_entries (collection, source, content, metadata, embedding)
				 VALUES ($1, $2, $3, $4, $5::vector)`,
				s.collection, r.Source, r.Text, metadata, pgvector.NewVector(r.Embedding),
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to insert corpus entries: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

// Search はコサイン距離の昇順で最大 k 件を返す。距離が同じ場合は挿入順。
func (s *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]corpus.ScoredDocument, error) {
	rows, err := s.txp.Pool().Query(ctx,
		`SELECT content, metadata, 1 - (embedding <=> $2::vector) AS score
		 FROM corpus_entries
		 WHERE collection = $1
		 ORDER BY embedding <=> $2::vector, id
		 LIMIT $3`,
		s.collection, pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search corpus entries: %w", err)
	}
	defer rows.Close()

	results := make([]corpus.ScoredDocument, 0, k)
	for rows.Next() {
		var (
			content  string
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&content, &metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan corpus entry: %w", err)
		}

		meta := map[string]any{}
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}

		results = append(results, corpus.ScoredDocument{
			Document: corpus.Document{Text: content, Metadata: meta},
			Score:    score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus entries: %w", err)
	}
	return results, nil
}

// Count はコレクションのエントリ数を返す
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.txp.Pool().QueryRow(ctx,
		`SELECT count(*) FROM corpus_entries WHERE collection = $1`, s.collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count corpus entries: %w", err)
	}
	return n, nil
}

// HasSource は指定ソースのエントリが存在するかを返す
func (s *VectorStore) HasSource(ctx context.Context, source string) (bool, error) {
	var exists bool
	err := s.txp.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM corpus_entries WHERE collection = $1 AND source = $2)`,
		s.collection, source,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check source: %w", err)
	}
	return exists, nil
}

// DeleteAll はコレクションの全エントリを削除する
func (s *VectorStore) DeleteAll(ctx context.Context) error {
	_, err := s.deleteWhere(ctx, `DELETE FROM corpus_entries WHERE collection = $1`, s.collection)
	return err
}

// DeleteBySource は指定ソースのエントリのみ削除し、削除件数を返す
func (s *VectorStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	return s.deleteWhere(ctx, `DELETE FROM corpus_entries WHERE collection = $1 AND source = $2`, s.collection, source)
}

func (s *VectorStore) deleteWhere(ctx context.Context, sql string, args ...any) (int, error) {
	return database.Transact(ctx, s.txp, func(tx pgx.Tx) (int, error) {
		if err := database.AcquireXactLock(ctx, tx, s.lockID()); err != nil {
			return 0, err
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to delete corpus entries: %w", err)
		}
		return int(tag.RowsAffected()), nil
	})
}

func (s *VectorStore) lockID() int64 {
	return database.LockID("corpus", s.collection)
}
