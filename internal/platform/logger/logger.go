package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config はロガーの設定
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"

	// File を指定した場合は標準出力に加えてローテーション付きでファイルにも書き出す
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// DefaultConfig はデフォルトのロガー設定
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
	}
}

// New は新しいロガーを作成し、デフォルトロガーとして設定します
func New(cfg Config) *slog.Logger {
	logger := slog.New(newHandler(cfg, output(cfg)))
	slog.SetDefault(logger)

	return logger
}

func output(cfg Config) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	})
}

func newHandler(cfg Config, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	switch cfg.Format {
	case "text":
		return slog.NewTextHandler(w, opts)
	default: // "json"
		return slog.NewJSONHandler(w, opts)
	}
}
