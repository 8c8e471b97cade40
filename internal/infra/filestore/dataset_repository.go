package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jinford/hybrid-rag/internal/core/dataset"
)

// DatasetRepository はデータセットを JSON ファイルとして保存する dataset.Repository 実装
type DatasetRepository struct {
	path string
}

// NewDatasetRepository は新しい DatasetRepository を返す
func NewDatasetRepository(path string) *DatasetRepository {
	return &DatasetRepository{path: path}
}

var _ dataset.Repository = (*DatasetRepository)(nil)

// Path は保存先ファイルパスを返す
func (r *DatasetRepository) Path() string {
	return r.path
}

// Load はファイルからデータセットを読み込む。ファイルが存在しない場合は空のデータセットを返す。
func (r *DatasetRepository) Load(ctx context.Context) ([]dataset.Item, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var items []dataset.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset file: %w", err)
	}
	return items, nil
}

// Save はデータセット全体をファイルに書き込む。一時ファイルへの書き込み後にリネームする。
func (r *DatasetRepository) Save(ctx context.Context, items []dataset.Item) error {
	if items == nil {
		items = []dataset.Item{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace dataset file: %w", err)
	}
	return nil
}
