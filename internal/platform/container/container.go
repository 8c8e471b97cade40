package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/hybrid-rag/internal/core/answer"
	"github.com/jinford/hybrid-rag/internal/core/corpus"
	"github.com/jinford/hybrid-rag/internal/core/dataset"
	"github.com/jinford/hybrid-rag/internal/core/ingestion"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
	"github.com/jinford/hybrid-rag/internal/core/rag"
	"github.com/jinford/hybrid-rag/internal/infra/cache"
	"github.com/jinford/hybrid-rag/internal/infra/extract"
	"github.com/jinford/hybrid-rag/internal/infra/filestore"
	"github.com/jinford/hybrid-rag/internal/infra/memory"
	"github.com/jinford/hybrid-rag/internal/infra/openai"
	"github.com/jinford/hybrid-rag/internal/infra/postgres"
	"github.com/jinford/hybrid-rag/internal/platform/config"
	"github.com/jinford/hybrid-rag/internal/platform/database"
)

// ServiceContainer はアプリケーションの依存関係を保持する
type ServiceContainer struct {
	Service *rag.Service
	Dataset *dataset.Service

	logger   *slog.Logger
	database *database.DB
}

type containerOptions struct {
	logger      *slog.Logger
	embedder    corpus.Embedder
	completer   answer.Completer
	vectorStore corpus.VectorStore
	datasetRepo dataset.Repository
	tokens      *answer.TokenCounter
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder corpus.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerCompleter はテキスト生成クライアントを差し替える
func WithContainerCompleter(completer answer.Completer) ContainerOption {
	return func(opts *containerOptions) {
		opts.completer = completer
	}
}

// WithContainerVectorStore はベクトルストアを差し替える
func WithContainerVectorStore(store corpus.VectorStore) ContainerOption {
	return func(opts *containerOptions) {
		opts.vectorStore = store
	}
}

// WithContainerDatasetRepository はデータセットの永続化先を差し替える
func WithContainerDatasetRepository(repo dataset.Repository) ContainerOption {
	return func(opts *containerOptions) {
		opts.datasetRepo = repo
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter *answer.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokens = counter
	}
}

func buildOptions(opts []ContainerOption) containerOptions {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return options
}

// NewContainer は設定からコンテナを生成する。
// PostgreSQL を使うバックエンドが設定されている場合は接続してスキーマを作成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := buildOptions(opts)
	logger := options.logger

	db, txp, err := openDatabase(ctx, cfg, options)
	if err != nil {
		return nil, err
	}

	c, err := build(ctx, cfg, options, txp)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}
	c.database = db

	logger.Info("service container initialized",
		"datasetBackend", cfg.Storage.DatasetBackend,
		"vectorBackend", cfg.Storage.VectorBackend,
		"collection", cfg.Storage.Collection,
	)
	return c, nil
}

func build(ctx context.Context, cfg *config.Config, options containerOptions, txp *database.TransactionProvider) (*ServiceContainer, error) {
	logger := options.logger

	// Dataset
	datasetService := newDatasetService(ctx, cfg, options, txp)

	// Embedder (OpenAI) + クエリ埋め込みキャッシュ
	embedder := options.embedder
	if embedder == nil {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		embedder = openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
			openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
		)
	}
	embedder = cache.NewEmbedder(embedder, cfg.Storage.EmbeddingCacheTTL)

	// VectorStore
	store := options.vectorStore
	if store == nil {
		switch cfg.Storage.VectorBackend {
		case config.BackendMemory:
			store = memory.NewVectorStore(cfg.Storage.Collection)
		default:
			store = postgres.NewVectorStore(txp, cfg.Storage.Collection)
		}
	}

	index := corpus.NewIndex(embedder, store,
		corpus.WithIndexLogger(logger),
		corpus.WithTargetedDelete(cfg.Storage.TargetedDelete),
	)

	// Chunker / Extractor / Library
	splitter, err := chunk.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}

	pdfExtractor := extract.NewPDFExtractor()
	extractors := map[chunk.FileType]ingestion.Extractor{
		chunk.FileTypePDF:  pdfExtractor,
		chunk.FileTypeHTML: extract.NewHTMLExtractor(),
	}

	docStore := ingestion.NewDocumentStore(cfg.Storage.DataDir)
	if err := docStore.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	library := ingestion.NewLibrary(docStore, ingestion.NewPipeline(extractors, splitter, index), index,
		ingestion.WithLibraryLogger(logger),
		ingestion.WithPageCounter(pdfExtractor),
	)

	// Completer (OpenAI)
	completer := options.completer
	if completer == nil {
		client, err := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("OpenAI クライアント初期化に失敗しました: %w", err)
		}
		completer = client
	}

	composer := answer.NewComposer(completer,
		answer.WithComposerLogger(logger),
		answer.WithTemperature(cfg.OpenAI.Temperature),
		answer.WithDefaultMaxTokens(cfg.OpenAI.MaxTokens),
	)

	tokens := options.tokens
	if tokens == nil {
		tokens = answer.NewTokenCounter(completer.ModelName())
	}

	pricing, err := answer.LoadPricing(cfg.Storage.PricingFile)
	if err != nil {
		return nil, err
	}

	svc := rag.NewService(rag.Dependencies{
		Dataset:        datasetService,
		Library:        library,
		Index:          index,
		Composer:       composer,
		Tokens:         tokens,
		Pricing:        pricing,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, rag.WithServiceLogger(logger))

	return &ServiceContainer{
		Service: svc,
		Dataset: datasetService,
		logger:  logger,
	}, nil
}

// NewDatasetContainer はデータセットのみを扱うコンテナを生成する。OpenAI の設定は不要。
func NewDatasetContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := buildOptions(opts)

	var txp *database.TransactionProvider
	var db *database.DB
	if options.datasetRepo == nil && cfg.Storage.DatasetBackend == config.BackendPostgres {
		var err error
		db, txp, err = connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	datasetService := newDatasetService(ctx, cfg, options, txp)

	return &ServiceContainer{
		Dataset:  datasetService,
		logger:   options.logger,
		database: db,
	}, nil
}

// newDatasetService はデータセットを読み込んだ Service を返す。
// 読み込みに失敗しても起動は止めず、空のデータセットで開始する。
func newDatasetService(ctx context.Context, cfg *config.Config, options containerOptions, txp *database.TransactionProvider) *dataset.Service {
	repo := options.datasetRepo
	if repo == nil {
		switch cfg.Storage.DatasetBackend {
		case config.BackendPostgres:
			repo = postgres.NewDatasetRepository(txp)
		default:
			repo = filestore.NewDatasetRepository(cfg.Storage.DatasetFile)
		}
	}

	svc := dataset.NewService(repo,
		dataset.WithDataDir(cfg.Storage.DataDir),
		dataset.WithDatasetLogger(options.logger),
	)
	// エラーは Load 内でログ出力済み
	_ = svc.Load(ctx)
	return svc
}

// openDatabase は差し替えられていない PostgreSQL バックエンドがある場合のみ接続する
func openDatabase(ctx context.Context, cfg *config.Config, options containerOptions) (*database.DB, *database.TransactionProvider, error) {
	needsVector := options.vectorStore == nil && cfg.Storage.VectorBackend == config.BackendPostgres
	needsDataset := options.datasetRepo == nil && cfg.Storage.DatasetBackend == config.BackendPostgres
	if !needsVector && !needsDataset {
		return nil, nil, nil
	}
	return connect(ctx, cfg)
}

func connect(ctx context.Context, cfg *config.Config) (*database.DB, *database.TransactionProvider, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	txp := database.NewTransactionProvider(db.Pool)
	if err := postgres.EnsureSchema(ctx, txp, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("スキーマ作成に失敗しました: %w", err)
	}
	return db, txp, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}
