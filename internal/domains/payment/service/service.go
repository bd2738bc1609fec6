package service

import (
	"context"
	"fmt"
	"rental/infras/otel"
	"rental/internal/domains/booking/model"
	bookingRepo "rental/internal/domains/booking/repository"
	bookingService "rental/internal/domains/booking/service"
	"rental/internal/domains/payment/model/dto"
	"rental/shared"
	"rental/shared/cache"
	"rental/shared/constant"
	"rental/shared/failure"
	"rental/shared/retry"
	"rental/shared/timezone"
	"rental/shared/validator"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

// Reconciler matches payment callbacks against the recorded expectation before letting a
// booking be confirmed. Both operations tolerate replay.
type Reconciler interface {
	RecordPayment(ctx context.Context, userID, bookingID string, req dto.RecordPaymentRequest) (model.Booking, error)
	VerifyPayment(ctx context.Context, userID, bookingID, referenceID string) (model.Booking, error)
}

type serviceImpl struct {
	repo     bookingRepo.Booking
	bookings bookingService.Booking
	settings Settings
	cache    cache.RedisCache
	otel     otel.Otel
}

func New(repo bookingRepo.Booking, bookings bookingService.Booking, settings Settings, cache cache.RedisCache, otel otel.Otel) Reconciler {
	return &serviceImpl{
		repo:     repo,
		bookings: bookings,
		settings: settings.withDefaults(),
		cache:    cache,
		otel:     otel,
	}
}

// RecordPayment stores the expected payment on a draft booking, unverified. Replaying the same
// reference with the same amounts is a no-op.
func (s *serviceImpl) RecordPayment(ctx context.Context, userID, bookingID string, req dto.RecordPaymentRequest) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RecordPayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = validator.ValidateStruct(&req); err != nil {
		return res, err //nolint:wrapcheck
	}

	incoming := req.ToModel()

	for attempt := 0; attempt <= s.settings.MaxCASRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return res, fmt.Errorf("record payment abandoned: %w", err)
		}

		var current model.Booking

		current, err = retry.Store(ctx, s.settings.StoreRetry, "booking.Get", func(int) (model.Booking, error) {
			return s.repo.Get(ctx, userID, bookingID)
		})
		if err != nil {
			return res, failure.Store(fmt.Errorf("failed to get booking: %w", err)) //nolint:wrapcheck
		}

		if recorded := current.PaymentInfo; recorded != nil {
			if recorded.ReferenceID == incoming.ReferenceID {
				if recorded.SameCharge(incoming) {
					log.Info().Str("bookingId", bookingID).Str("referenceId", incoming.ReferenceID).Msg("payment already recorded")

					return current, nil
				}

				return res, failure.PaymentMismatch(fmt.Sprintf("payment %s was already recorded with different details", incoming.ReferenceID)) //nolint:wrapcheck
			}

			if recorded.Verified {
				return res, failure.Precondition("a verified payment cannot be replaced") //nolint:wrapcheck
			}
		}

		if current.BasicInfo.Status != model.StatusDraft {
			return res, failure.Precondition(fmt.Sprintf("payments can only be recorded on draft bookings, booking is %s", current.BasicInfo.Status)) //nolint:wrapcheck
		}

		patch := model.Patch{PaymentInfo: &incoming, UpdatedAt: timezone.Now()}

		// A write that landed without a reply shows up as a version conflict on the next try, and
		// the re-read then finds the same payment already recorded.
		err = retry.Do(ctx, s.settings.StoreRetry, "booking.ConditionalUpdate", func(int) error {
			return s.repo.ConditionalUpdate(ctx, userID, bookingID, current.Version, patch)
		})
		if err == nil {
			shared.InvalidateCaches(ctx, s.cache, bookingService.CacheKey(userID, bookingID))

			log.Info().
				Str("bookingId", bookingID).
				Str("referenceId", incoming.ReferenceID).
				Int64("tokenAmount", incoming.TokenAmount).
				Int64("totalAmount", incoming.TotalAmount).
				Msg("payment recorded")

			return current.Apply(patch), nil
		}

		if !failure.IsKind(err, failure.KindVersionConflict) {
			log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to record payment")

			return res, failure.Store(fmt.Errorf("failed to record payment: %w", err)) //nolint:wrapcheck
		}
	}

	return res, failure.Concurrency(fmt.Sprintf("booking %s kept changing, retry later", bookingID)) //nolint:wrapcheck
}

// VerifyPayment marks the recorded payment verified and confirms the booking. Store trouble is
// retried with exponential backoff; a reference mismatch or a lifecycle rejection is not.
func (s *serviceImpl) VerifyPayment(ctx context.Context, userID, bookingID, referenceID string) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".VerifyPayment")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return res, failure.Validation([]string{"referenceId"}, []string{"referenceId is required"}) //nolint:wrapcheck
	}

	scope.SetAttributes(map[string]any{
		"booking.id":           bookingID,
		"payment.reference_id": referenceID,
	})

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.settings.InitialBackoff
	exp.MaxInterval = s.settings.MaxBackoff

	res, err = backoff.Retry(ctx, func() (model.Booking, error) {
		return s.verifyOnce(ctx, userID, bookingID, referenceID)
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(s.settings.VerifyMaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("bookingId", bookingID).Dur("retryIn", next).Msg("payment verification failed, retrying")
		}),
	)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	return res, nil
}

func (s *serviceImpl) verifyOnce(ctx context.Context, userID, bookingID, referenceID string) (model.Booking, error) {
	current, err := s.repo.Get(ctx, userID, bookingID)
	if err != nil {
		return retryable(failure.Store(fmt.Errorf("failed to get booking: %w", err)))
	}

	recorded := current.PaymentInfo
	if recorded == nil || recorded.ReferenceID != referenceID {
		return model.Booking{}, backoff.Permanent(failure.PaymentMismatch("payment reference does not match the recorded payment"))
	}

	if current.BasicInfo.Status == model.StatusCancelled {
		return model.Booking{}, backoff.Permanent(failure.InvalidTransition(string(model.StatusCancelled), string(model.StatusConfirmed)))
	}

	if !recorded.Verified {
		verifiedAt := timezone.Now()
		verified := *recorded
		verified.Verified = true
		verified.VerifiedAt = &verifiedAt

		patch := model.Patch{PaymentInfo: &verified, UpdatedAt: verifiedAt}

		if err = s.repo.ConditionalUpdate(ctx, userID, bookingID, current.Version, patch); err != nil {
			return retryable(failure.Store(fmt.Errorf("failed to mark payment verified: %w", err)))
		}

		shared.InvalidateCaches(ctx, s.cache, bookingService.CacheKey(userID, bookingID))

		log.Info().Str("bookingId", bookingID).Str("referenceId", referenceID).Msg("payment verified")
	}

	booking, err := s.bookings.Transition(ctx, userID, bookingID, model.StatusConfirmed, model.Guard{PaymentVerified: true})
	if err == nil {
		return booking, nil
	}

	if failure.IsKind(err, failure.KindInvalidTransition) {
		latest, getErr := s.repo.Get(ctx, userID, bookingID)
		if getErr == nil && alreadyConfirmed(latest.BasicInfo.Status) {
			log.Info().Str("bookingId", bookingID).Msg("payment verification replayed on a confirmed booking")

			return latest, nil
		}
	}

	return retryable(err)
}

func alreadyConfirmed(status model.Status) bool {
	return status == model.StatusConfirmed || status == model.StatusCompleted
}

// retryable lets lost races and store trouble be retried and stops on everything else.
func retryable(err error) (model.Booking, error) {
	if failure.IsKind(err, failure.KindStore) ||
		failure.IsKind(err, failure.KindConcurrency) ||
		failure.IsKind(err, failure.KindVersionConflict) {
		return model.Booking{}, err
	}

	return model.Booking{}, backoff.Permanent(err)
}
