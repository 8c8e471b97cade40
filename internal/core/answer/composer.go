package answer

import (
	"context"
	"log/slog"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
)

const (
	// DefaultTemperature は生成時の温度
	DefaultTemperature = 0.7

	// DefaultMaxTokens は出力トークン上限のデフォルト値
	DefaultMaxTokens = 1000
)

// Role は会話メッセージの役割
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn は会話履歴の1発言
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message は生成機能に渡すメッセージ
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest はテキスト生成リクエスト
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer はテキスト生成の外部機能。応答テキストをそのまま返す
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ModelName() string
}

// Composer は検索結果のコンテキストと会話履歴から回答を生成する
type Composer struct {
	completer   Completer
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

type composerOptions struct {
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// ComposerOption は Composer のオプション設定
type ComposerOption func(*composerOptions)

// WithComposerLogger は Composer にロガーを設定する
func WithComposerLogger(logger *slog.Logger) ComposerOption {
	return func(o *composerOptions) {
		o.logger = logger
	}
}

// WithTemperature は生成時の温度を上書きする
func WithTemperature(t float64) ComposerOption {
	return func(o *composerOptions) {
		o.temperature = t
	}
}

// WithDefaultMaxTokens はリクエストで指定がない場合の出力トークン上限を設定する
func WithDefaultMaxTokens(n int) ComposerOption {
	return func(o *composerOptions) {
		o.maxTokens = n
	}
}

// NewComposer は新しい Composer を作成する
func NewComposer(completer Completer, opts ...ComposerOption) *Composer {
	options := composerOptions{
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Composer{
		completer:   completer,
		temperature: options.temperature,
		maxTokens:   options.maxTokens,
		logger:      options.logger,
	}
}

// Generate は回答を生成する。maxTokens が 0 以下の場合はデフォルト値を使う。
// 生成機能の失敗はリトライせずに返す。
func (c *Composer) Generate(ctx context.Context, query string, contexts []string, history []Turn, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	text, err := c.completer.Complete(ctx, CompletionRequest{
		Messages:    BuildMessages(query, contexts, history),
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Error("failed to generate response", "error", err)
		return "", apperror.External("answer.generate", err)
	}

	c.logger.Info("response generated", "characters", len([]rune(text)), "contexts", len(contexts))
	return text, nil
}

// Model は生成に使うモデル名を返す
func (c *Composer) Model() string {
	return c.completer.ModelName()
}

// Temperature は生成時の温度を返す
func (c *Composer) Temperature() float64 {
	return c.temperature
}

// MaxTokens は出力トークン上限のデフォルト値を返す
func (c *Composer) MaxTokens() int {
	return c.maxTokens
}
