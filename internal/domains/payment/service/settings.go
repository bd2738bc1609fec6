package service

import (
	"rental/config"
	"rental/shared/retry"
	"time"
)

const (
	defaultVerifyMaxAttempts = 4
	defaultInitialBackoff    = 200 * time.Millisecond
	defaultMaxBackoff        = 2 * time.Second
	defaultMaxCASRetries     = 3
)

// Settings is the reconciler's fixed configuration. It is copied at construction.
type Settings struct {
	VerifyMaxAttempts uint
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	MaxCASRetries     int
	StoreRetry        retry.Policy
}

func NewSettings(cfg *config.Config) Settings {
	return Settings{
		VerifyMaxAttempts: cfg.Payment.VerifyMaxAttempts,
		InitialBackoff:    time.Duration(cfg.Payment.VerifyInitialBackoffMs) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.Payment.VerifyMaxBackoffMs) * time.Millisecond,
		MaxCASRetries:     cfg.Booking.MaxCASRetries,
		StoreRetry:        retry.NewPolicy(cfg),
	}.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.VerifyMaxAttempts == 0 {
		s.VerifyMaxAttempts = defaultVerifyMaxAttempts
	}

	if s.InitialBackoff <= 0 {
		s.InitialBackoff = defaultInitialBackoff
	}

	if s.MaxBackoff < s.InitialBackoff {
		s.MaxBackoff = max(defaultMaxBackoff, s.InitialBackoff)
	}

	if s.MaxCASRetries <= 0 {
		s.MaxCASRetries = defaultMaxCASRetries
	}

	s.StoreRetry = s.StoreRetry.WithDefaults()

	return s
}
