package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

const (
	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// backoff は 429 応答に対するリトライ間隔
type backoff struct {
	base       time.Duration
	max        time.Duration
	maxRetries int
}

func defaultBackoff() backoff {
	return backoff{base: BaseBackoff, max: MaxBackoff, maxRetries: MaxRetries}
}

func (b backoff) delay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * b.base
	return min(d, b.max)
}

// withRetry は fn をレート制限エラーの間だけ指数バックオフで再実行する。その他のエラーは即座に返す。
func withRetry[T any](ctx context.Context, b backoff, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(b.delay(attempt)):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRateLimitError(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
