package retry

import (
	"context"
	"errors"
	"rental/config"
	"rental/shared/failure"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = time.Second
)

// Policy bounds the retries of a store call.
type Policy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts:    cfg.Store.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Store.Retry.InitialBackoffMs) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.Store.Retry.MaxBackoffMs) * time.Millisecond,
	}.WithDefaults()
}

func (p Policy) WithDefaults() Policy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultMaxAttempts
	}

	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}

	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = max(defaultMaxBackoff, p.InitialBackoff)
	}

	return p
}

// Transient reports whether err is infrastructure trouble another attempt may clear. Domain
// failures such as not found or a version conflict are answers, not trouble.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	fail, ok := failure.As(err)

	return !ok || fail.Kind == failure.KindStore
}

// Store runs op until it succeeds, fails with a non transient error or the policy is spent.
// op receives the 1-based attempt number.
func Store[T any](ctx context.Context, policy Policy, name string, op func(attempt int) (T, error)) (T, error) {
	policy = policy.WithDefaults()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialBackoff
	exp.MaxInterval = policy.MaxBackoff

	attempt := 0

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++

		res, err := op(attempt)
		if err != nil && !Transient(err) {
			return res, backoff.Permanent(err)
		}

		return res, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(policy.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("operation", name).Int("attempt", attempt).Dur("retryIn", next).Msg("store call failed, retrying")
		}),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return res, permanent.Err
	}

	return res, err //nolint:wrapcheck
}

// Do is Store for calls that only return an error.
func Do(ctx context.Context, policy Policy, name string, op func(attempt int) error) error {
	_, err := Store(ctx, policy, name, func(attempt int) (struct{}, error) {
		return struct{}{}, op(attempt)
	})

	return err
}
