package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/domain/ai"
)

// Requester calls the model with a per-attempt timeout and bounded retry.
type Requester struct {
	Client     ai.Client
	Timeout    time.Duration
	MaxRetries int
	// BaseDelay is the first backoff interval. Zero retries immediately.
	BaseDelay time.Duration
	Log       *zap.Logger
}

// Request returns the raw model text. Errors wrap one of the ai sentinels.
// Only transport failures and quota errors are retried.
func (r *Requester) Request(ctx context.Context, req ai.Request) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("%w: no LLM client configured", ai.ErrRequestFailed)
	}

	var lastErr error
	op := func() (string, error) {
		out, err := r.once(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(r.policy()),
		backoff.WithMaxTries(uint(max(r.MaxRetries, 0))+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			if r.Log != nil {
				r.Log.Warn("LLM request failed, retrying", zap.Duration("delay", delay), zap.Error(err))
			}
		}),
	)
	if err == nil {
		return out, nil
	}
	// the caller gave up between attempts; report what the model call did
	if lastErr != nil && !errors.Is(err, lastErr) {
		return "", lastErr
	}
	return "", err
}

func (r *Requester) once(ctx context.Context, req ai.Request) (string, error) {
	actx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	out, err := r.Client.Generate(actx, req)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrTimeout), errors.Is(err, ai.ErrQuotaExceeded),
			errors.Is(err, ai.ErrEmptyResponse), errors.Is(err, ai.ErrRequestFailed):
			return "", err
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(actx.Err(), context.DeadlineExceeded):
			return "", fmt.Errorf("%w: %w", ai.ErrTimeout, err)
		default:
			return "", fmt.Errorf("%w: %w", ai.ErrRequestFailed, err)
		}
	}
	if strings.TrimSpace(out) == "" {
		return "", ai.ErrEmptyResponse
	}
	return out, nil
}

// policy grows the delay from BaseDelay with +-50% jitter.
func (r *Requester) policy() backoff.BackOff {
	if r.BaseDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     r.BaseDelay,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         r.BaseDelay << 4,
	}
}

func retryable(err error) bool {
	return errors.Is(err, ai.ErrRequestFailed) || errors.Is(err, ai.ErrQuotaExceeded)
}
