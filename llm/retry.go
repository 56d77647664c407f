package llm

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Retrier re-runs model calls that failed with a transient error: rate
// limits, 5xx responses, timeouts and dropped connections.
type Retrier struct {
	config RetryConfig
	logger zerolog.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		logger: log.Logger,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLogger returns r logging retries to l.
func (r *Retrier) WithLogger(l zerolog.Logger) *Retrier {
	r.logger = l
	return r
}

// RetryOperation is one attempt, numbered from zero.
type RetryOperation[T any] func(ctx context.Context, attempt int) (T, error)

// Execute runs op until it succeeds, fails permanently, or MaxRetries
// retries are spent. Exhaustion wraps the last error.
func Execute[T any](r *Retrier, ctx context.Context, op RetryOperation[T]) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if attempt >= r.config.MaxRetries {
			if attempt == 0 {
				return zero, err
			}
			return zero, fmt.Errorf("operation failed after %d attempts: %w", attempt+1, err)
		}
		if !r.retryable(err) {
			return zero, err
		}

		delay := r.delay(attempt, err)
		r.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("model call failed, retrying")
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Retrier) retryable(err error) bool {
	if llmErr, ok := IsLLMError(err); ok {
		return llmErr.IsRetryable()
	}
	msg := strings.ToLower(err.Error())
	for _, s := range r.config.RetryableErrors {
		if strings.Contains(msg, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// delay honours a provider's Retry-After, otherwise backs off
// exponentially with 25% jitter, clamped to [InitialDelay, MaxDelay].
func (r *Retrier) delay(attempt int, err error) time.Duration {
	if llmErr, ok := IsLLMError(err); ok && llmErr.RetryAfter > 0 {
		return time.Duration(llmErr.RetryAfter) * time.Second
	}
	factor := r.config.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(r.config.InitialDelay) * math.Pow(factor, float64(attempt))

	r.mu.Lock()
	d += 0.25 * d * (r.rand.Float64()*2 - 1)
	r.mu.Unlock()

	if max := float64(r.config.MaxDelay); max > 0 && d > max {
		d = max
	}
	if min := float64(r.config.InitialDelay); d < min {
		d = min
	}
	return time.Duration(d)
}
