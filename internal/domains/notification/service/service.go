package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"rental/infras/otel"
	"rental/internal/domains/notification/channel"
	"rental/internal/domains/notification/model"
	"rental/internal/domains/notification/repository"
	"rental/internal/events"
	"rental/shared/constant"
	"rental/shared/failure"
	"rental/shared/retry"
	"rental/shared/timezone"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const releaseTimeout = 5 * time.Second

var errAttemptCeiling = errors.New("attempt ceiling reached")

// Dispatcher fans lifecycle events out to notification channels. Delivery is at least once per
// (event, booking, channel, role); a success is never repeated for the same dedup key.
type Dispatcher interface {
	events.Handler
	Dispatch(ctx context.Context, event events.LifecycleEvent) (model.Report, error)
	Records(ctx context.Context, bookingID string) ([]model.DispatchRecord, error)
}

type serviceImpl struct {
	repo     repository.Notification
	archive  repository.Archive
	senders  channel.Senders
	settings Settings
	limiters map[model.Channel]*rate.Limiter
	otel     otel.Otel
}

func New(repo repository.Notification, archive repository.Archive, senders channel.Senders, settings Settings, otel otel.Otel) Dispatcher {
	settings = settings.withDefaults()

	limit := rate.Inf
	if settings.RateLimit > 0 {
		limit = rate.Limit(settings.RateLimit)
	}

	limiters := make(map[model.Channel]*rate.Limiter, len(senders))
	for ch := range senders {
		limiters[ch] = rate.NewLimiter(limit, settings.RateBurst)
	}

	return &serviceImpl{
		repo:     repo,
		archive:  archive,
		senders:  senders,
		settings: settings,
		limiters: limiters,
		otel:     otel,
	}
}

// Handle implements events.Handler. Delivery failures are reported through logs and traces
// only; the returned error means the event or one of its notifications was left without a
// durable outcome and the event has to be handled again.
func (s *serviceImpl) Handle(ctx context.Context, event events.LifecycleEvent) error {
	_, err := s.Dispatch(ctx, event)

	return err
}

func (s *serviceImpl) Dispatch(ctx context.Context, event events.LifecycleEvent) (report model.Report, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Dispatch")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	report = model.Report{EventID: event.ID, EventType: event.Type, BookingID: event.BookingID}

	scope.SetAttributes(map[string]any{
		"event.id":   event.ID,
		"event.type": string(event.Type),
		"booking.id": event.BookingID,
	})

	if !event.Type.Valid() {
		return report, failure.Validation([]string{"eventType"}, []string{fmt.Sprintf("unknown event type %q", event.Type)}) //nolint:wrapcheck
	}

	_, err = retry.Store(ctx, s.settings.StoreRetry, "notification.SaveEvent", func(int) (bool, error) {
		return s.repo.SaveEvent(ctx, event)
	})
	if err != nil {
		log.Error().Err(err).Str("eventId", event.ID).Msg("failed to record lifecycle event")

		return report, failure.Store(fmt.Errorf("failed to record lifecycle event: %w", err)) //nolint:wrapcheck
	}

	if archiveErr := s.archive.Store(ctx, event); archiveErr != nil {
		log.Warn().Err(archiveErr).Str("eventId", event.ID).Msg("failed to archive lifecycle event")
	}

	pairs := s.settings.Pairs(event.Type, s.senders)
	report.Results = make([]model.Result, len(pairs))

	var group errgroup.Group
	group.SetLimit(s.settings.Concurrency)

	for i, pair := range pairs {
		group.Go(func() error {
			report.Results[i] = s.dispatchPair(ctx, event, pair)

			return nil
		})
	}

	_ = group.Wait()

	log.Info().
		Str("eventId", event.ID).
		Str("eventType", string(event.Type)).
		Str("bookingId", event.BookingID).
		Int("sent", report.Count(model.ResultSent)).
		Int("skipped", report.Count(model.ResultSkipped)).
		Int("failed", report.Count(model.ResultFailed)).
		Msg("lifecycle event dispatched")

	if err = leftPending(report); err != nil {
		log.Error().Err(err).Str("eventId", event.ID).Msg("lifecycle event left notifications pending")

		return report, err
	}

	return report, nil
}

// leftPending collects the pairs that ended without a recorded outcome because the store or the
// caller's context gave out.
func leftPending(report model.Report) error {
	var errs []error

	for _, res := range report.Results {
		if res.Status != model.ResultFailed || res.Err == nil {
			continue
		}

		if failure.IsKind(res.Err, failure.KindStore) || errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			errs = append(errs, fmt.Errorf("%s: %w", res.DedupKey, res.Err))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return failure.Store(fmt.Errorf("%d of %d notifications left pending: %w", len(errs), len(report.Results), errors.Join(errs...))) //nolint:wrapcheck
}

func (s *serviceImpl) Records(ctx context.Context, bookingID string) (records []model.DispatchRecord, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Records")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	records, err = s.repo.ListByBooking(ctx, bookingID)
	if err != nil {
		log.Error().Err(err).Str("bookingId", bookingID).Msg("failed to list dispatch records")

		return nil, failure.Store(fmt.Errorf("failed to list dispatch records: %w", err)) //nolint:wrapcheck
	}

	return records, nil
}

// dispatchPair delivers one (channel, role) notification. The claim comes before any send so two
// dispatchers handling the same event cannot both deliver it.
func (s *serviceImpl) dispatchPair(ctx context.Context, event events.LifecycleEvent, pair model.Pair) model.Result {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".dispatchPair")
	defer scope.End()

	key := model.DedupKey(event.Type, event.BookingID, pair.Channel, pair.Role)
	result := model.Result{Pair: pair, DedupKey: key}

	scope.SetAttributes(map[string]any{
		"notification.channel":   string(pair.Channel),
		"notification.role":      string(pair.Role),
		"notification.dedup_key": key,
	})

	recipient, ok := s.settings.Recipient(pair, event.Snapshot)
	if !ok {
		log.Warn().
			Str("bookingId", event.BookingID).
			Str("channel", string(pair.Channel)).
			Str("role", string(pair.Role)).
			Msg("no recipient for notification")

		result.Status = model.ResultNoRecipient

		return result
	}

	stored, claimed, err := s.claim(ctx, event, pair, key)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("dedupKey", key).Msg("failed to claim dispatch record")

		result.Status = model.ResultFailed
		result.Err = failure.Store(fmt.Errorf("failed to claim dispatch record: %w", err))

		return result
	}

	result.Attempts = stored.Attempt

	if !claimed {
		log.Debug().Str("dedupKey", key).Str("outcome", string(stored.Outcome)).Msg("notification already handled")

		result.Status = model.ResultSkipped

		return result
	}

	body, err := s.render(pair, event)
	if err != nil {
		s.giveUp(ctx, scope, key, pair, stored.Attempt, err)

		result.Status = model.ResultFailed
		result.Err = err

		return result
	}

	receipt, attempts, err := s.send(ctx, key, stored.Attempt, channel.Message{
		DedupKey:  key,
		Channel:   pair.Channel,
		Recipient: recipient,
		Body:      body,
	})
	result.Attempts = attempts

	if err != nil && ctx.Err() != nil {
		s.release(ctx, key, attempts, err)

		result.Status = model.ResultFailed
		result.Err = fmt.Errorf("dispatch interrupted: %w", context.Cause(ctx))

		return result
	}

	if err != nil {
		s.giveUp(ctx, scope, key, pair, attempts, err)

		result.Status = model.ResultFailed
		result.Err = err

		return result
	}

	err = retry.Do(ctx, s.settings.StoreRetry, "notification.Complete", func(int) error {
		return s.repo.Complete(ctx, key, attempts, timezone.Now())
	})
	if err != nil {
		log.Error().Err(err).Str("dedupKey", key).Msg("notification delivered but its record was not completed")
	}

	result.Status = model.ResultSent
	result.MessageID = receipt.MessageID

	return result
}

type claimResult struct {
	record  model.DispatchRecord
	claimed bool
}

// claim takes the lease on the pair's record. A retried insert that finds a pending record with
// this very event and lease is the earlier attempt having landed, and counts as claimed.
func (s *serviceImpl) claim(ctx context.Context, event events.LifecycleEvent, pair model.Pair, key string) (model.DispatchRecord, bool, error) {
	now := timezone.Now().Truncate(time.Microsecond)
	record := model.DispatchRecord{
		DedupKey:   key,
		EventID:    event.ID,
		EventType:  event.Type,
		BookingID:  event.BookingID,
		Channel:    pair.Channel,
		Role:       pair.Role,
		Outcome:    model.OutcomePending,
		LeaseUntil: now.Add(s.settings.Lease),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	res, err := retry.Store(ctx, s.settings.StoreRetry, "notification.Claim", func(attempt int) (claimResult, error) {
		stored, claimed, err := s.repo.Claim(ctx, record, now)
		if err != nil {
			return claimResult{}, err
		}

		if !claimed && attempt > 1 && stored.Outcome == model.OutcomePending &&
			stored.EventID == record.EventID && stored.LeaseUntil.Equal(record.LeaseUntil) {
			claimed = true
		}

		return claimResult{record: stored, claimed: claimed}, nil
	})

	return res.record, res.claimed, err
}

func (s *serviceImpl) render(pair model.Pair, event events.LifecycleEvent) (string, error) {
	tmpl, ok := s.settings.Templates[TemplateKey{Channel: pair.Channel, Event: event.Type, Role: pair.Role}]
	if !ok {
		return "", failure.Template(fmt.Sprintf("no %s template for %s %s notifications", pair.Channel, pair.Role, event.Type)) //nolint:wrapcheck
	}

	return model.Render(tmpl, event.Snapshot)
}

// send retries the channel with exponential backoff until it accepts the message or the attempt
// ceiling is reached. attempt is the number of attempts already spent on this record.
func (s *serviceImpl) send(ctx context.Context, key string, attempt int, msg channel.Message) (channel.Receipt, int, error) {
	if attempt >= int(s.settings.MaxAttempts) {
		return channel.Receipt{}, attempt, failure.Delivery(errAttemptCeiling)
	}

	sender := s.senders[msg.Channel]
	limiter := s.limiters[msg.Channel]

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.settings.InitialBackoff
	exp.MaxInterval = s.settings.MaxBackoff

	receipt, err := backoff.Retry(ctx, func() (channel.Receipt, error) {
		if err := limiter.Wait(ctx); err != nil {
			return channel.Receipt{}, backoff.Permanent(failure.Delivery(err))
		}

		attempt++

		sendCtx, cancel := context.WithTimeout(ctx, s.settings.SendTimeout)
		defer cancel()

		receipt, err := sender.Send(sendCtx, msg)
		if err == nil {
			return receipt, nil
		}

		err = failure.Delivery(err)
		now := timezone.Now()

		if recErr := s.repo.RecordAttempt(ctx, key, attempt, err.Error(), now.Add(s.settings.Lease), now); recErr != nil {
			log.Warn().Err(recErr).Str("dedupKey", key).Msg("failed to record delivery attempt")
		}

		log.Warn().
			Err(err).
			Str("dedupKey", key).
			Str("channel", string(msg.Channel)).
			Int("attempt", attempt).
			Msg("notification delivery failed")

		return channel.Receipt{}, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(s.settings.MaxAttempts-uint(attempt)),
	)

	return receipt, attempt, err //nolint:wrapcheck
}

// release hands an interrupted record back with an expired lease so the next delivery of the
// event claims it straight away. The write outlives ctx.
func (s *serviceImpl) release(ctx context.Context, key string, attempts int, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	now := timezone.Now()

	if err := s.repo.RecordAttempt(ctx, key, attempts, cause.Error(), now, now); err != nil {
		log.Warn().Err(err).Str("dedupKey", key).Msg("failed to release dispatch record")
	}

	log.Warn().
		Err(cause).
		Str("dedupKey", key).
		Int("attempts", attempts).
		Msg("notification interrupted, record left pending")
}

// giveUp marks the record permanently failed. This is the only signal a lost notification
// leaves behind; the booking transition that caused it stands.
func (s *serviceImpl) giveUp(ctx context.Context, scope otel.Scope, key string, pair model.Pair, attempts int, cause error) {
	err := retry.Do(ctx, s.settings.StoreRetry, "notification.Fail", func(int) error {
		return s.repo.Fail(ctx, key, attempts, cause.Error(), timezone.Now())
	})
	if err != nil {
		log.Error().Err(err).Str("dedupKey", key).Msg("failed to mark dispatch record failed")
	}

	scope.AddEvent("notification.permanently_failed", map[string]any{
		"notification.dedup_key": key,
		"notification.channel":   string(pair.Channel),
		"notification.role":      string(pair.Role),
		"notification.attempts":  attempts,
		"error.kind":             string(failure.GetKind(cause)),
	})
	scope.TraceError(cause)

	log.Error().
		Err(cause).
		Str("dedupKey", key).
		Str("channel", string(pair.Channel)).
		Str("role", string(pair.Role)).
		Int("attempts", attempts).
		Msg("notification permanently failed")
}
