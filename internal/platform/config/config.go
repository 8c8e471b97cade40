package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// バックエンド種別
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + チャット補完）
	OpenAI OpenAIConfig

	// チャンク分割設定
	Chunk ChunkConfig

	// 保存先設定
	Storage StorageConfig

	// HTTPサーバー設定
	Server ServerConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // 空の場合は公式エンドポイント
	Model              string
	EmbeddingModel     string
	EmbeddingDimension int
	Temperature        float64
	MaxTokens          int
}

// ChunkConfig はチャンク分割の設定（文字数）
type ChunkConfig struct {
	Size    int
	Overlap int
}

// StorageConfig はデータセットとコーパスの保存先設定
type StorageConfig struct {
	DataDir           string
	DatasetBackend    string // "file" or "postgres"
	DatasetFile       string
	VectorBackend     string // "postgres" or "memory"
	Collection        string
	TargetedDelete    bool
	EmbeddingCacheTTL time.Duration
	PricingFile       string

	// DatasetReloadSchedule はサーバ稼働中にデータセットを再読み込みする cron 式。空の場合は無効
	DatasetReloadSchedule string
}

// ServerConfig はHTTPサーバー設定
type ServerConfig struct {
	Host string
	Port int
}

// Addr は listen アドレスを返します
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level      slog.Level
	Format     string // "json" or "text"
	File       string // 空の場合は標準出力のみ
	MaxSizeMB  int
	MaxBackups int
}

// ErrAPIKeyNotSet はOpenAI APIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY is not set")

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	dataDir := getEnv("DATA_DIRECTORY", "./data")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "hybridrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "hybridrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			Model:              getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-ada-002"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			Temperature:        getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:          getEnvAsInt("MAX_TOKENS", 1000),
		},
		Chunk: ChunkConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Storage: StorageConfig{
			DataDir:           dataDir,
			DatasetBackend:    strings.ToLower(getEnv("DATASET_BACKEND", BackendFile)),
			DatasetFile:       getEnv("DATASET_FILE", dataDir+"/dataset.json"),
			VectorBackend:     strings.ToLower(getEnv("VECTOR_BACKEND", BackendPostgres)),
			Collection:        getEnv("CORPUS_COLLECTION", "nazarriya_documents"),
			TargetedDelete:    getEnvAsBool("CORPUS_TARGETED_DELETE", false),
			EmbeddingCacheTTL: getEnvAsDuration("EMBEDDING_CACHE_TTL", 10*time.Minute),
			PricingFile:       getEnv("PRICING_FILE", ""),

			DatasetReloadSchedule: getEnv("DATASET_RELOAD_SCHEDULE", ""),
		},
		Server: ServerConfig{
			Host: getEnv("HOST", "0.0.0.0"),
			Port: getEnvAsInt("PORT", 8001),
		},
		Log: LogConfig{
			Level:      getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
			Format:     getEnv("LOG_FORMAT", "json"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		},
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します。APIキーの有無は RequireAPIKey で確認します。
func (c *Config) Validate() error {
	var errs []error

	if c.Chunk.Size <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive: %d", c.Chunk.Size))
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE): %d", c.Chunk.Overlap))
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive: %d", c.OpenAI.EmbeddingDimension))
	}
	if c.OpenAI.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TOKENS must be positive: %d", c.OpenAI.MaxTokens))
	}
	switch c.Storage.DatasetBackend {
	case BackendFile, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown DATASET_BACKEND: %q", c.Storage.DatasetBackend))
	}
	switch c.Storage.VectorBackend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND: %q", c.Storage.VectorBackend))
	}

	return errors.Join(errs...)
}

// RequireAPIKey はOpenAI APIキーが設定されていることを確認します
func (c *Config) RequireAPIKey() error {
	if c.OpenAI.APIKey == "" {
		return ErrAPIKeyNotSet
	}
	return nil
}

// UsesPostgres はいずれかのバックエンドが PostgreSQL を使う場合に true を返します
func (c *Config) UsesPostgres() bool {
	return c.Storage.DatasetBackend == BackendPostgres || c.Storage.VectorBackend == BackendPostgres
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsLevel は環境変数をログレベルとして取得します（debug/info/warn/error）
func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		return defaultValue
	}
	return level
}
