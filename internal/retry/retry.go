package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	// MaxBackoff 为单次等待的上限，避免位移溢出。
	MaxBackoff = 5 * time.Minute
)

// Policy 控制指数退避重试。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry 在每次失败后、等待前调用，attempt 从 1 开始。
	OnRetry func(attempt int, wait time.Duration, err error)
	// Retryable 为空时所有错误都重试；返回 false 时立即返回该错误。
	Retryable func(err error) bool

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy 返回 3 次尝试、基础间隔 1s 的策略。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Backoff 返回第 attempt 次（从 0 开始）失败后的等待时间：BaseDelay × 2^attempt，
// 最长不超过 MaxBackoff。
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if base >= MaxBackoff {
		return MaxBackoff
	}
	for i := 0; i < attempt; i++ {
		base <<= 1
		if base >= MaxBackoff {
			return MaxBackoff
		}
	}
	return base
}

// Do 执行 op，失败时按指数退避重试，全部失败后返回最后一次错误。
// 未设置 Retryable 时所有错误一视同仁；不在最后一次失败后等待。
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if lastErr != nil {
				return zero, errors.Join(lastErr, ctxErr)
			}
			return zero, ctxErr
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			break
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, wait, err)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return zero, errors.Join(lastErr, sleepErr)
		}
	}

	return zero, lastErr
}

// Run 为无返回值操作的便捷封装。
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
