package service

import (
	"context"
	"fmt"
	"rental/config"
	"rental/infras/otel"
	"rental/internal/domains/booking/model"
	"rental/internal/domains/booking/model/dto"
	"rental/internal/domains/booking/repository"
	"rental/internal/events"
	"rental/shared"
	"rental/shared/cache"
	"rental/shared/constant"
	"rental/shared/failure"
	"rental/shared/retry"
	"rental/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultMaxCASRetries = 3

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

// Booking is the booking state machine. Every status write goes through Transition.
type Booking interface {
	Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (model.Booking, error)
	Get(ctx context.Context, userID, bookingID string) (model.Booking, error)
	Transition(ctx context.Context, userID, bookingID string, target model.Status, guard model.Guard) (model.Booking, error)
	Cancel(ctx context.Context, userID, bookingID string) (model.Booking, error)
	Complete(ctx context.Context, userID, bookingID string) (model.Booking, error)
	Delete(ctx context.Context, userID, bookingID string) error
}

type serviceImpl struct {
	repo       repository.Booking
	publisher  events.Publisher
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	maxRetries int
	retry      retry.Policy
}

func New(repo repository.Booking, publisher events.Publisher, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Booking {
	maxRetries := cfg.Booking.MaxCASRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxCASRetries
	}

	return &serviceImpl{
		repo:       repo,
		publisher:  publisher,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		maxRetries: maxRetries,
		retry:      retry.NewPolicy(cfg),
	}
}

// CacheKey is the read-cache key of one booking.
func CacheKey(userID, bookingID string) string {
	return shared.BuildCacheKey(model.CacheKeyPrefix, userID, bookingID)
}

func (s *serviceImpl) Create(ctx context.Context, userID string, req dto.CreateBookingRequest) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = req.Validate(userID); err != nil {
		return res, err //nolint:wrapcheck
	}

	booking := req.ToModel(userID, uuid.NewString())

	// The id is fresh, so a conflict on a later attempt is an earlier attempt that landed.
	err = retry.Do(ctx, s.retry, "booking.Create", func(attempt int) error {
		_, err := s.repo.Create(ctx, booking)
		if attempt > 1 && failure.IsKind(err, failure.KindConflict) {
			return nil
		}

		return err //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to create booking")

		return res, failure.Store(fmt.Errorf("failed to create booking: %w", err)) //nolint:wrapcheck
	}

	s.publish(ctx, events.EventCreated, booking)

	return booking, nil
}

func (s *serviceImpl) Get(ctx context.Context, userID, bookingID string) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := CacheKey(userID, bookingID)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	res, err = s.load(ctx, userID, bookingID)
	if err != nil {
		if !failure.IsKind(err, failure.KindNotFound) {
			log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to get booking")
		}

		return res, failure.Store(fmt.Errorf("failed to get booking: %w", err)) //nolint:wrapcheck
	}

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("failed to save booking to cache")
	}

	return res, nil
}

// Transition moves a booking to target with an optimistic compare-and-swap. A lost race is
// retried against a fresh read up to maxRetries times before surfacing a concurrency failure.
func (s *serviceImpl) Transition(ctx context.Context, userID, bookingID string, target model.Status, guard model.Guard) (res model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Transition")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		"booking.id":     bookingID,
		"booking.target": string(target),
	})

	var current model.Booking

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return res, fmt.Errorf("transition abandoned: %w", err)
		}

		current, err = s.load(ctx, userID, bookingID)
		if err != nil {
			return res, failure.Store(fmt.Errorf("failed to get booking: %w", err)) //nolint:wrapcheck
		}

		if err = checkTransition(current, target, guard); err != nil {
			return res, err
		}

		patch := buildPatch(current, target, guard)

		err = s.update(ctx, userID, bookingID, current, patch)
		if err == nil {
			res = current.Apply(patch)

			shared.InvalidateCaches(ctx, s.cache, CacheKey(userID, bookingID))
			s.publish(ctx, target.EventType(), res)

			log.Info().
				Str("bookingId", bookingID).
				Str("from", string(current.BasicInfo.Status)).
				Str("to", string(target)).
				Int64("version", res.Version).
				Msg("booking transitioned")

			return res, nil
		}

		if !failure.IsKind(err, failure.KindVersionConflict) {
			log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to update booking status")

			return res, failure.Store(fmt.Errorf("failed to update booking status: %w", err)) //nolint:wrapcheck
		}

		log.Warn().Str("bookingId", bookingID).Int("attempt", attempt+1).Msg("booking version conflict, retrying")
	}

	return res, failure.Concurrency(fmt.Sprintf("booking %s kept changing, retry later", bookingID)) //nolint:wrapcheck
}

func (s *serviceImpl) Cancel(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	return s.Transition(ctx, userID, bookingID, model.StatusCancelled, model.Guard{})
}

func (s *serviceImpl) Complete(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	return s.Transition(ctx, userID, bookingID, model.StatusCompleted, model.Guard{})
}

// Delete is the administrative hard delete. It records no transition and emits no event.
func (s *serviceImpl) Delete(ctx context.Context, userID, bookingID string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	err = retry.Do(ctx, s.retry, "booking.Delete", func(attempt int) error {
		err := s.repo.Delete(ctx, userID, bookingID)
		if attempt > 1 && failure.IsKind(err, failure.KindNotFound) {
			return nil
		}

		return err //nolint:wrapcheck
	})
	if err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to delete booking")

		return failure.Store(fmt.Errorf("failed to delete booking: %w", err)) //nolint:wrapcheck
	}

	shared.InvalidateCaches(ctx, s.cache, CacheKey(userID, bookingID))

	log.Info().Str("bookingId", bookingID).Str("userId", userID).Msg("booking deleted")

	return nil
}

func (s *serviceImpl) load(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	return retry.Store(ctx, s.retry, "booking.Get", func(int) (model.Booking, error) {
		return s.repo.Get(ctx, userID, bookingID)
	})
}

// update writes patch if current is still the stored version. Store errors are retried here; a
// version conflict is left to the caller's compare-and-swap loop, unless it is this very patch
// having landed on an attempt whose reply was lost.
func (s *serviceImpl) update(ctx context.Context, userID, bookingID string, current model.Booking, patch model.Patch) error {
	return retry.Do(ctx, s.retry, "booking.ConditionalUpdate", func(attempt int) error {
		err := s.repo.ConditionalUpdate(ctx, userID, bookingID, current.Version, patch)
		if attempt == 1 || !failure.IsKind(err, failure.KindVersionConflict) {
			return err //nolint:wrapcheck
		}

		stored, getErr := s.repo.Get(ctx, userID, bookingID)
		if getErr == nil && stored.Version == current.Version+1 &&
			stored.BasicInfo.Status == *patch.Status && stored.UpdatedAt.Equal(patch.UpdatedAt) {
			return nil
		}

		return err //nolint:wrapcheck
	})
}

func checkTransition(current model.Booking, target model.Status, guard model.Guard) error {
	from := current.BasicInfo.Status

	if !target.Valid() {
		return failure.Validation([]string{"status"}, []string{"status must be one of draft confirmed completed cancelled"}) //nolint:wrapcheck
	}

	if from.Terminal() {
		return failure.InvalidTransition(string(from), string(target)) //nolint:wrapcheck
	}

	if target == model.StatusCompleted && from != model.StatusConfirmed {
		return failure.Precondition("booking must be confirmed before it can be completed") //nolint:wrapcheck
	}

	if !model.CanTransition(from, target) {
		return failure.InvalidTransition(string(from), string(target)) //nolint:wrapcheck
	}

	if target == model.StatusConfirmed && !guard.ManualOverride && !paymentVerified(current, guard) {
		return failure.Precondition("confirming requires a verified payment or a manual override") //nolint:wrapcheck
	}

	return nil
}

func paymentVerified(current model.Booking, guard model.Guard) bool {
	return guard.PaymentVerified && current.PaymentInfo != nil && current.PaymentInfo.Verified
}

// buildPatch stamps isPaid on a payment driven confirmation so the booking never reads as
// paid while still in draft.
func buildPatch(current model.Booking, target model.Status, guard model.Guard) model.Patch {
	now := timezone.Now().Truncate(time.Microsecond)
	patch := model.Patch{Status: &target, UpdatedAt: now}

	if target == model.StatusConfirmed && paymentVerified(current, guard) &&
		current.PaymentInfo.FullPayment && !current.PaymentInfo.IsPaid {
		paid := *current.PaymentInfo
		paid.IsPaid = true
		paid.PaidAt = &now
		patch.PaymentInfo = &paid
	}

	return patch
}

// publish hands the committed change to lifecycle consumers. Delivery problems are logged and
// never reach the caller, whose booking write already succeeded.
func (s *serviceImpl) publish(ctx context.Context, eventType events.EventType, booking model.Booking) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".publish")
	defer scope.End()

	event := events.LifecycleEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		OccurredAt: booking.UpdatedAt,
		Snapshot:   booking.Snapshot(),
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		scope.AddEvent("lifecycle_event.publish_failed", map[string]any{
			"event.type": string(eventType),
			"booking.id": booking.ID,
		})
		log.Error().
			Err(err).
			Str("eventType", string(eventType)).
			Str("bookingId", booking.ID).
			Msg("failed to publish lifecycle event")
	}
}
