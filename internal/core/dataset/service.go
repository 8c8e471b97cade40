package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/platform/fileutil"
)

// Repository はデータセット全体の永続化インターフェース。
// Save は常にコレクション全体を書き換える。
type Repository interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Service はデータセットの読み書きとマッチングを提供する。
// コレクションは単一ライター/複数リーダーで保護される。
type Service struct {
	mu      sync.RWMutex
	items   []Item
	repo    Repository
	dataDir string
	logger  *slog.Logger
}

type ServiceOption func(*Service)

// WithDatasetLogger は Service にロガーを設定する
func WithDatasetLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDataDir はデータセットファイルの探索・コピー先ディレクトリを設定する
func WithDataDir(dir string) ServiceOption {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// NewService は新しい Service を作成する。Load を呼ぶまでコレクションは空。
func NewService(repo Repository, opts ...ServiceOption) *Service {
	svc := &Service{
		repo:    repo,
		dataDir: "data",
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Load は永続化ストアからコレクションを読み込む。
// 読み込みに失敗した場合は空のコレクションで開始し、エラーを返す。
func (s *Service) Load(ctx context.Context) error {
	items, err := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.items = nil
		s.logger.Error("failed to load dataset, starting with empty dataset", "error", err)
		return apperror.Storage("dataset.load", err)
	}

	changed := false
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
			changed = true
		}
	}
	s.items = items

	// ID を持たない旧形式の項目には ID を採番して書き戻す
	if changed {
		if err := s.saveLocked(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("dataset loaded", "items", len(s.items))
	return nil
}

// Reload は永続化ストアからコレクションを読み直す。
// Load と異なり、読み込みに失敗した場合は現在のコレクションを保持する。
func (s *Service) Reload(ctx context.Context) error {
	items, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to reload dataset, keeping current items", "error", err)
		return apperror.Storage("dataset.reload", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
			changed = true
		}
	}
	if len(items) != len(s.items) {
		s.logger.Info("dataset reloaded", "items", len(items), "previous", len(s.items))
	}
	s.items = items

	// 採番した ID を書き戻し、次回の読み直しでも同じ ID を返す
	if changed {
		return s.saveLocked(ctx)
	}
	return nil
}

// Len は項目数を返す
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items はコレクションのスナップショットを返す
func (s *Service) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// ItemsByCategory はカテゴリが一致する項目を返す
func (s *Service) ItemsByCategory(category string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Item
	for _, item := range s.items {
		if item.Category == category {
			out = append(out, item.clone())
		}
	}
	return out
}

// FindBestMatch はクエリに最も近い項目を返す。閾値を超える項目がなければ false を返す。
func (s *Service) FindBestMatch(query string, threshold float64) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match, ok := FindBestMatch(s.items, query, threshold)
	if ok {
		s.logger.Info("dataset match found",
			"score", match.SimilarityScore,
			"query", truncate(query, 50),
		)
	}
	return match, ok
}

// Add は項目を末尾に追加して保存する
func (s *Service) Add(ctx context.Context, in NewItem) (Item, error) {
	if in.Question == "" || in.Answer == "" {
		return Item{}, apperror.Validation("dataset.add", "question and answer are required")
	}

	keywords := in.Keywords
	if keywords == nil {
		keywords = GenerateKeywords(in.Question)
	}
	category := in.Category
	if category == "" {
		category = DefaultCategory
	}
	source := in.Source
	if source == "" {
		source = DefaultSource
	}

	item := Item{
		ID:       uuid.New(),
		Question: in.Question,
		Answer:   in.Answer,
		Keywords: keywords,
		Category: category,
		Source:   source,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, item)
	if err := s.saveLocked(ctx); err != nil {
		return item.clone(), err
	}

	s.logger.Info("dataset item added", "id", item.ID.String(), "category", category)
	return item.clone(), nil
}

// Update は index 位置の項目を更新して保存する。
// index は呼び出し時点の位置であり、並行する削除があれば別の項目を指しうる。
func (s *Service) Update(ctx context.Context, index int, fields UpdateFields) (Item, error) {
	if err := validateFields(fields); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return Item{}, apperror.NotFound("dataset.update", "index %d out of range", index)
	}

	return s.updateLocked(ctx, index, fields)
}

// UpdateByID は ID で指定した項目を更新して保存する
func (s *Service) UpdateByID(ctx context.Context, id uuid.UUID, fields UpdateFields) (Item, error) {
	if err := validateFields(fields); err != nil {
		return Item{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOfLocked(id)
	if index < 0 {
		return Item{}, apperror.NotFound("dataset.update", "item %s not found", id)
	}

	return s.updateLocked(ctx, index, fields)
}

func (s *Service) updateLocked(ctx context.Context, index int, fields UpdateFields) (Item, error) {
	item := &s.items[index]
	if v, ok := fields.Question.Get(); ok {
		item.Question = v
	}
	if v, ok := fields.Answer.Get(); ok {
		item.Answer = v
	}
	if v, ok := fields.Keywords.Get(); ok {
		item.Keywords = append([]string(nil), v...)
	}
	if v, ok := fields.Category.Get(); ok {
		item.Category = v
	}
	if v, ok := fields.Source.Get(); ok {
		item.Source = v
	}

	updated := item.clone()
	if err := s.saveLocked(ctx); err != nil {
		return updated, err
	}

	s.logger.Info("dataset item updated", "index", index, "id", updated.ID.String())
	return updated, nil
}

// Delete は index 位置の項目を削除して保存する
func (s *Service) Delete(ctx context.Context, index int) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return Item{}, apperror.NotFound("dataset.delete", "index %d out of range", index)
	}

	return s.deleteLocked(ctx, index)
}

// DeleteByID は ID で指定した項目を削除して保存する
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOfLocked(id)
	if index < 0 {
		return Item{}, apperror.NotFound("dataset.delete", "item %s not found", id)
	}

	return s.deleteLocked(ctx, index)
}

func (s *Service) deleteLocked(ctx context.Context, index int) (Item, error) {
	deleted := s.items[index]
	s.items = append(s.items[:index:index], s.items[index+1:]...)

	if err := s.saveLocked(ctx); err != nil {
		return deleted, err
	}

	s.logger.Info("dataset item deleted", "question", truncate(deleted.Question, 50))
	return deleted, nil
}

// Clear は全項目を削除して保存する
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.logger.Info("dataset cleared")
	return nil
}

// IngestFile は JSON 配列形式のデータセットファイルでコレクション全体を置き換える。
// question/answer を持たない項目はスキップし、件数をログに残す。
func (s *Service) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	sourceFile, ok := s.findSourceFile(path)
	if !ok {
		return nil, apperror.NotFound("dataset.ingest", "dataset file not found: %s", path)
	}

	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, apperror.Storage("dataset.ingest", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperror.Validation("dataset.ingest", "dataset file must contain a list of items: %v", err)
	}

	dataFile, copied := s.ensureInDataDir(sourceFile)

	items := make([]Item, 0, len(raw))
	skipped := 0
	for _, msg := range raw {
		var item Item
		if err := json.Unmarshal(msg, &item); err != nil || item.Question == "" || item.Answer == "" {
			skipped++
			s.logger.Warn("skipping invalid dataset item", "item", truncate(string(msg), 50))
			continue
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		items = append(items, item)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	if err := s.saveLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("dataset file ingested",
		"file", filepath.Base(sourceFile),
		"added", len(items),
		"skipped", skipped,
	)

	return &IngestResult{
		FileProcessed:    sourceFile,
		DataFileLocation: dataFile,
		ItemsAdded:       len(items),
		ItemsSkipped:     skipped,
		TotalItems:       len(s.items),
		AutoCopied:       copied,
	}, nil
}

// saveLocked はコレクション全体を保存する。
// 失敗してもメモリ上の状態は巻き戻さないため、ファイルと乖離しうる。
func (s *Service) saveLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, cloneItems(s.items)); err != nil {
		s.logger.Error("failed to save dataset", "error", err)
		return apperror.Storage("dataset.save", err)
	}
	return nil
}

func (s *Service) indexOfLocked(id uuid.UUID) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// findSourceFile は指定パス、カレントディレクトリ、データディレクトリの順にファイルを探す
func (s *Service) findSourceFile(path string) (string, bool) {
	candidates := []string{path}
	if wd, err := os.Getwd(); err == nil && !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join(wd, path))
	}
	candidates = append(candidates,
		filepath.Join(s.dataDir, path),
		filepath.Join(s.dataDir, filepath.Base(path)),
	)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	s.logger.Warn("dataset file not found", "candidates", candidates)
	return "", false
}

// ensureInDataDir はファイルをデータディレクトリへコピーする。コピーに失敗した場合は元ファイルを使う。
func (s *Service) ensureInDataDir(sourceFile string) (string, bool) {
	dataFile := filepath.Join(s.dataDir, filepath.Base(sourceFile))

	if fileutil.SamePath(sourceFile, dataFile) {
		return dataFile, false
	}

	if err := fileutil.CopyFile(sourceFile, dataFile); err != nil {
		s.logger.Warn("could not copy dataset file to data directory", "error", err)
		return sourceFile, false
	}

	return dataFile, true
}

func validateFields(fields UpdateFields) error {
	if v, ok := fields.Question.Get(); ok && v == "" {
		return apperror.Validation("dataset.update", "question must not be empty")
	}
	if v, ok := fields.Answer.Get(); ok && v == "" {
		return apperror.Validation("dataset.update", "answer must not be empty")
	}
	return nil
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:n]))
}
