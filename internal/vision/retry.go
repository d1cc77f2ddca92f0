package vision

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/port"
)

// RetryConfig holds settings for the retrying extractor wrapper.
type RetryConfig struct {
	MaxRetries int           // additional attempts after the first call
	BaseDelay  time.Duration // first backoff step, doubled per attempt
	MaxDelay   time.Duration // cap on a single backoff step
}

// Retrier wraps a VisionExtractor with bounded exponential backoff for
// transient failures. Fatal failures pass through immediately. It
// implements port.VisionExtractor.
type Retrier struct {
	inner port.VisionExtractor
	cfg   RetryConfig
	sleep func(context.Context, time.Duration) error
}

// NewRetrier creates a Retrier around inner. MaxRetries zero disables
// retries; a negative value falls back to 3. Non-positive delays get
// defaults of 1s base and a 30s cap.
func NewRetrier(inner port.VisionExtractor, cfg RetryConfig) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Retrier{inner: inner, cfg: cfg, sleep: sleepCtx}
}

func (r *Retrier) Extract(ctx context.Context, task domain.RecognitionTask) (*domain.RawExtractionResponse, error) {
	var lastErr error
	delay := r.cfg.BaseDelay

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := delay
			var te *TransientError
			if errors.As(lastErr, &te) && te.RetryAfter > 0 {
				wait = te.RetryAfter
			}
			if wait > r.cfg.MaxDelay {
				wait = r.cfg.MaxDelay
			}
			log.Printf("vision.Retrier: task %s attempt %d/%d after %s: %v",
				task.ID, attempt, r.cfg.MaxRetries, wait, lastErr)
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
			delay *= 2
		}

		resp, err := r.inner.Extract(ctx, task)
		if err == nil {
			return resp, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
