package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/hybrid-rag/internal/platform/config"
	"github.com/jinford/hybrid-rag/internal/platform/container"
	"github.com/jinford/hybrid-rag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config    *config.Config
	Container *container.ServiceContainer
}

// NewAppContext は設定ファイルを読み込み、全サービスを組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	cont, err := container.NewContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{Config: cfg, Container: cont}, nil
}

// NewDatasetAppContext はデータセット操作のみの AppContext を作成する。OpenAI の設定は不要。
func NewDatasetAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, appLogger, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	cont, err := container.NewDatasetContainer(ctx, cfg, container.WithContainerLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{Config: cfg, Container: cont}, nil
}

func loadConfig(envFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("設定が不正です: %w", err)
	}

	appLogger := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	return cfg, appLogger, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
