package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_EMBEDDING_MODEL", "OPENAI_EMBEDDING_DIMENSION",
	"OPENAI_TEMPERATURE", "MAX_TOKENS", "CHUNK_SIZE", "CHUNK_OVERLAP", "DATA_DIRECTORY",
	"DATASET_BACKEND", "DATASET_FILE", "VECTOR_BACKEND", "CORPUS_COLLECTION", "CORPUS_TARGETED_DELETE",
	"EMBEDDING_CACHE_TTL", "PRICING_FILE", "DATASET_RELOAD_SCHEDULE", "HOST", "PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	"LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
}

// clearEnv はテスト中だけ設定キーを空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, "text-embedding-ada-002", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimension)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 1000, cfg.OpenAI.MaxTokens)
	assert.Equal(t, ChunkConfig{Size: 1000, Overlap: 200}, cfg.Chunk)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "./data/dataset.json", cfg.Storage.DatasetFile)
	assert.Equal(t, BackendFile, cfg.Storage.DatasetBackend)
	assert.Equal(t, BackendPostgres, cfg.Storage.VectorBackend)
	assert.Equal(t, "nazarriya_documents", cfg.Storage.Collection)
	assert.False(t, cfg.Storage.TargetedDelete)
	assert.Equal(t, 10*time.Minute, cfg.Storage.EmbeddingCacheTTL)
	assert.Empty(t, cfg.Storage.DatasetReloadSchedule)
	assert.Equal(t, "0.0.0.0:8001", cfg.Server.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrAPIKeyNotSet)
	assert.True(t, cfg.UsesPostgres())
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OPENAI_API_KEY=sk-test\n"+
			"CHUNK_SIZE=500\n"+
			"CHUNK_OVERLAP=50\n"+
			"VECTOR_BACKEND=Memory\n"+
			"CORPUS_TARGETED_DELETE=true\n"+
			"EMBEDDING_CACHE_TTL=30s\n"+
			"DATASET_RELOAD_SCHEDULE=*/5 * * * *\n"+
			"LOG_LEVEL=debug\n"+
			"PORT=9000\n"+
			"DATA_DIRECTORY=/srv/data\n",
	), 0o644))
	// godotenv は既存の環境変数を上書きしないため、空にした値は解除しておく
	for _, key := range configKeys {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, ChunkConfig{Size: 500, Overlap: 50}, cfg.Chunk)
	assert.Equal(t, BackendMemory, cfg.Storage.VectorBackend)
	assert.True(t, cfg.Storage.TargetedDelete)
	assert.Equal(t, 30*time.Second, cfg.Storage.EmbeddingCacheTTL)
	assert.Equal(t, "*/5 * * * *", cfg.Storage.DatasetReloadSchedule)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/data/dataset.json", cfg.Storage.DatasetFile)
	assert.False(t, cfg.UsesPostgres())
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("OPENAI_TEMPERATURE", "warm")
	t.Setenv("EMBEDDING_CACHE_TTL", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.OpenAI.Temperature, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.Storage.EmbeddingCacheTTL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "オーバーラップがサイズ以上", modify: func(c *Config) { c.Chunk.Overlap = c.Chunk.Size }, wantErr: "CHUNK_OVERLAP"},
		{name: "サイズが0", modify: func(c *Config) { c.Chunk.Size = 0 }, wantErr: "CHUNK_SIZE"},
		{name: "未知のデータセットバックエンド", modify: func(c *Config) { c.Storage.DatasetBackend = "redis" }, wantErr: "DATASET_BACKEND"},
		{name: "未知のベクトルバックエンド", modify: func(c *Config) { c.Storage.VectorBackend = "chroma" }, wantErr: "VECTOR_BACKEND"},
		{name: "次元が0", modify: func(c *Config) { c.OpenAI.EmbeddingDimension = 0 }, wantErr: "OPENAI_EMBEDDING_DIMENSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("")
			require.NoError(t, err)

			tt.modify(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
