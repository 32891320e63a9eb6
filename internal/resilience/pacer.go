package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Pacer spaces out consecutive requests to the report backend.
// attempt is the zero-based index of the request about to be sent.
type Pacer interface {
	Wait(ctx context.Context, attempt int) error
}

// PacerKind names a pacing policy.
type PacerKind string

const (
	PacerFixed       PacerKind = "fixed"
	PacerExponential PacerKind = "exponential"
	PacerTokenBucket PacerKind = "token_bucket"
	PacerNone        PacerKind = "none"
)

// PacerConfig describes a pacing policy.
type PacerConfig struct {
	Kind        PacerKind `yaml:"kind" mapstructure:"kind"`
	IntervalMs  int       `yaml:"interval_ms" mapstructure:"interval_ms"`
	MaxInterval int       `yaml:"max_interval_ms" mapstructure:"max_interval_ms"`
	Multiplier  float64   `yaml:"multiplier" mapstructure:"multiplier"`
	Burst       int       `yaml:"burst" mapstructure:"burst"`
}

// NewPacer builds the pacer described by cfg.
func NewPacer(cfg PacerConfig) (Pacer, error) {
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	switch cfg.Kind {
	case PacerFixed, "":
		return FixedPacer{Interval: interval}, nil
	case PacerExponential:
		return ExponentialPacer{
			Initial:    interval,
			Max:        time.Duration(cfg.MaxInterval) * time.Millisecond,
			Multiplier: cfg.Multiplier,
		}, nil
	case PacerTokenBucket:
		if interval <= 0 {
			return nil, eris.New("resilience: token_bucket pacer needs interval_ms > 0")
		}
		return NewTokenBucketPacer(interval, cfg.Burst), nil
	case PacerNone:
		return FixedPacer{}, nil
	default:
		return nil, eris.Errorf("resilience: unknown pacer kind %q (valid: fixed, exponential, token_bucket, none)", cfg.Kind)
	}
}

// FixedPacer waits the same interval before every request.
type FixedPacer struct {
	Interval time.Duration
}

// Wait sleeps for the fixed interval.
func (p FixedPacer) Wait(ctx context.Context, _ int) error {
	return sleep(ctx, p.Interval)
}

// ExponentialPacer grows the delay with each request, capped at Max.
type ExponentialPacer struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Wait sleeps Initial*Multiplier^(attempt-1); the first request is not delayed.
func (p ExponentialPacer) Wait(ctx context.Context, attempt int) error {
	if attempt <= 0 {
		return ctx.Err()
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	maxDelay := p.Max
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return sleep(ctx, backoff(attempt-1, p.Initial, maxDelay, mult, 0))
}

// TokenBucketPacer admits one request per interval with the given burst.
type TokenBucketPacer struct {
	limiter *rate.Limiter
}

// NewTokenBucketPacer creates a token-bucket pacer.
func NewTokenBucketPacer(interval time.Duration, burst int) *TokenBucketPacer {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketPacer{limiter: rate.NewLimiter(rate.Every(interval), burst)}
}

// Wait blocks until the bucket has a token.
func (p *TokenBucketPacer) Wait(ctx context.Context, _ int) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "resilience: pacer wait")
	}
	return nil
}
