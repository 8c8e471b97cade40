package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jinford/hybrid-rag/internal/core/dataset"
	"github.com/jinford/hybrid-rag/internal/platform/database"
)

// DatasetRepository はデータセットを dataset_items テーブルに保存する dataset.Repository 実装
type DatasetRepository struct {
	txp *database.TransactionProvider
}

// NewDatasetRepository は新しい DatasetRepository を返す
func NewDatasetRepository(txp *database.TransactionProvider) *DatasetRepository {
	return &DatasetRepository{txp: txp}
}

var _ dataset.Repository = (*DatasetRepository)(nil)

// Load は保存順にデータセットを読み込む
func (r *DatasetRepository) Load(ctx context.Context) ([]dataset.Item, error) {
	rows, err := r.txp.Pool().Query(ctx,
		`SELECT id, question, answer, keywords, category, source
		 FROM dataset_items
		 ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	defer rows.Close()

	var items []dataset.Item
	for rows.Next() {
		var item dataset.Item
		if err := rows.Scan(&item.ID, &item.Question, &item.Answer, &item.Keywords, &item.Category, &item.Source); err != nil {
			return nil, fmt.Errorf("failed to scan dataset item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return items, nil
}

// Save はテーブル全体を1トランザクションで書き換える
func (r *DatasetRepository) Save(ctx context.Context, items []dataset.Item) error {
	_, err := database.Transact(ctx, r.txp, func(tx pgx.Tx) (struct{}, error) {
		if err := database.AcquireXactLock(ctx, tx, database.LockID("dataset")); err != nil {
			return struct{}{}, err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM dataset_items`); err != nil {
			return struct{}{}, fmt.Errorf("failed to clear dataset: %w", err)
		}
		if len(items) == 0 {
			return struct{}{}, nil
		}

		batch := &pgx.Batch{}
		for i, item := range items {
			keywords := item.Keywords
			if keywords == nil {
				keywords = []string{}
			}
			batch.Queue(
				`INSERT INTO dataset_items (id, position, question, answer, keywords, category, source)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				item.ID, i, item.Question, item.Answer, keywords, item.Category, item.Source,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return struct{}{}, fmt.Errorf("failed to save dataset: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
