package answer

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding はモデル固有のエンコーディングが得られない場合に使う
const fallbackEncoding = "cl100k_base"

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// TokenCounter はテキストのトークン数を数える。
// エンコーダを初期化できなかった場合は文字数 / 4（切り捨て）で近似する。
type TokenCounter struct {
	enc encoder
}

// NewTokenCounter はモデル名に対応するエンコーディング、次に cl100k_base を試して TokenCounter を作成する
func NewTokenCounter(model string) *TokenCounter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &TokenCounter{enc: enc}
	}

	enc, err := tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		slog.Warn("tokenizer unavailable, falling back to character estimate", "model", model, "error", err)
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

// Count はトークン数を返す
func (c *TokenCounter) Count(text string) int {
	if c.enc == nil {
		return utf8.RuneCountInString(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}
