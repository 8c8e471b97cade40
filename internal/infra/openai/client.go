package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/hybrid-rag/internal/core/answer"
)

const (
	// DefaultModel はデフォルトで使用するチャットモデル
	DefaultModel = "gpt-3.5-turbo"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// Client は OpenAI のチャット補完を使った answer.Completer 実装
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	backoff backoff
}

type clientOptions struct {
	model   string
	timeout time.Duration
	baseURL string
	backoff backoff
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithModel はチャットモデルを上書きする
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTimeout はAPIコール1回あたりのタイムアウトを設定する
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithBaseURL は API のエンドポイントを差し替える（互換 API やテスト用）
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithBackoff はレート制限時のリトライ間隔を設定する
func WithBackoff(base, max time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.backoff.base = base
		o.backoff.max = max
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:   DefaultModel,
		timeout: DefaultTimeout,
		backoff: defaultBackoff(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		client:  openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:   options.model,
		timeout: options.timeout,
		backoff: options.backoff,
	}, nil
}

// requestOptions は SDK 側のリトライを無効化する。429 のリトライは withRetry が担う
func requestOptions(apiKey, baseURL string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Complete はメッセージ列からテキストを生成し、応答本文をそのまま返す
func (c *Client) Complete(ctx context.Context, req answer.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toChatMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := withRetry(ctx, c.backoff, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

func toChatMessages(messages []answer.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case answer.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case answer.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// インターフェース実装の確認
var _ answer.Completer = (*Client)(nil)
