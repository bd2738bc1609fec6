package service_test

import (
	"context"
	"errors"
	"rental/config"
	otelMocks "rental/infras/otel/mocks"
	"rental/internal/domains/notification/channel"
	notificationMocks "rental/internal/domains/notification/mocks"
	"rental/internal/domains/notification/model"
	"rental/internal/domains/notification/repository"
	"rental/internal/domains/notification/service"
	"rental/internal/events"
	"rental/shared/failure"
	"rental/shared/retry"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testSettings() service.Settings {
	return service.Settings{
		Routing: map[events.EventType]map[model.Role]bool{
			events.EventCreated:   {model.RoleAdmin: true},
			events.EventConfirmed: {model.RoleUser: true, model.RoleAdmin: true},
			events.EventCancelled: {model.RoleUser: true, model.RoleAdmin: true},
		},
		AdminPhone:     "+620000",
		AdminEmail:     "ops@rental.test",
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		SendTimeout:    time.Second,
		Lease:          time.Minute,
		Concurrency:    4,
		StoreRetry:     retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	}
}

func confirmedEvent() events.LifecycleEvent {
	return events.LifecycleEvent{
		ID:         "e1",
		Type:       events.EventConfirmed,
		BookingID:  "b1",
		UserID:     "u1",
		OccurredAt: time.Date(2025, 1, 9, 8, 0, 0, 0, time.UTC),
		Snapshot: events.Snapshot{
			events.SnapshotBookingID:     "b1",
			events.SnapshotUserID:        "u1",
			events.SnapshotCarID:         "C1",
			events.SnapshotStartDate:     "2025-01-10",
			events.SnapshotEndDate:       "2025-01-12",
			events.SnapshotCustomerPhone: "+62811",
			events.SnapshotCustomerEmail: "rider@rental.test",
		},
	}
}

type fixture struct {
	repo       *repository.Memory
	sms        *notificationMocks.MockSender
	email      *notificationMocks.MockSender
	otel       *otelMocks.Otel
	dispatcher service.Dispatcher
}

func newFixture(t *testing.T, settings service.Settings) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixture{
		repo:  repository.NewMemory(),
		sms:   notificationMocks.NewMockSender(ctrl),
		email: notificationMocks.NewMockSender(ctrl),
		otel:  otelMocks.NewOtel(),
	}

	senders := channel.Senders{model.ChannelSMS: f.sms, model.ChannelEmail: f.email}
	f.dispatcher = service.New(f.repo, repository.NewArchive(&config.Config{}, nil), senders, settings, f.otel)

	return f
}

func accept(ch model.Channel) func(context.Context, channel.Message) (channel.Receipt, error) {
	return func(_ context.Context, msg channel.Message) (channel.Receipt, error) {
		return channel.Receipt{MessageID: "m-" + msg.DedupKey[:8], Channel: ch}, nil
	}
}

func outcomes(t *testing.T, repo *repository.Memory, bookingID string) map[model.Pair]model.DispatchRecord {
	t.Helper()

	records, err := repo.ListByBooking(context.Background(), bookingID)
	require.NoError(t, err)

	byPair := map[model.Pair]model.DispatchRecord{}
	for _, record := range records {
		byPair[model.Pair{Channel: record.Channel, Role: record.Role}] = record
	}

	return byPair
}

func TestDispatcher_FansOutToEnabledPairs(t *testing.T) {
	f := newFixture(t, testSettings())

	var (
		mu         sync.Mutex
		recipients []string
	)

	record := func(_ context.Context, msg channel.Message) (channel.Receipt, error) {
		mu.Lock()
		defer mu.Unlock()

		recipients = append(recipients, msg.Recipient)

		return channel.Receipt{MessageID: "m1", Channel: msg.Channel}, nil
	}

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record).Times(2)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(record).Times(2)

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Len(t, report.Results, 4)
	assert.Equal(t, 4, report.Count(model.ResultSent))
	assert.ElementsMatch(t, []string{"+62811", "+620000", "rider@rental.test", "ops@rental.test"}, recipients)

	byPair := outcomes(t, f.repo, "b1")
	require.Len(t, byPair, 4)

	for pair, record := range byPair {
		assert.Equal(t, model.OutcomeSuccess, record.Outcome, pair)
		assert.Equal(t, 1, record.Attempt, pair)
		assert.Equal(t, model.DedupKey(events.EventConfirmed, "b1", pair.Channel, pair.Role), record.DedupKey)
	}
}

func TestDispatcher_RoutingTable(t *testing.T) {
	f := newFixture(t, testSettings())

	event := confirmedEvent()
	event.ID = "e0"
	event.Type = events.EventCreated

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg channel.Message) (channel.Receipt, error) {
		assert.Equal(t, "+620000", msg.Recipient)
		assert.Contains(t, msg.Body, "New booking attempt b1 by user u1")

		return channel.Receipt{MessageID: "m1"}, nil
	})
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail))

	report, err := f.dispatcher.Dispatch(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(model.ResultSent))

	for _, result := range report.Results {
		assert.Equal(t, model.RoleAdmin, result.Role)
	}

	report, err = f.dispatcher.Dispatch(context.Background(), events.LifecycleEvent{ID: "e9", Type: events.EventCompleted, BookingID: "b1"})

	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestDispatcher_DuplicateDeliveryIsSentOnce(t *testing.T) {
	f := newFixture(t, testSettings())

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS)).Times(2)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail)).Times(2)

	var wg sync.WaitGroup

	reports := make([]model.Report, 2)
	for i := range reports {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			event := confirmedEvent()
			event.ID = []string{"e1", "e1-redelivered"}[i]

			report, err := f.dispatcher.Dispatch(context.Background(), event)
			assert.NoError(t, err)

			reports[i] = report
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 4, reports[0].Count(model.ResultSent)+reports[1].Count(model.ResultSent))
	assert.Equal(t, 4, reports[0].Count(model.ResultSkipped)+reports[1].Count(model.ResultSkipped))

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 4, report.Count(model.ResultSkipped))
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleUser: true}}

	f := newFixture(t, settings)

	gomock.InOrder(
		f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).Return(channel.Receipt{}, errors.New("gateway timeout")),
		f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS)),
	)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail))

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(model.ResultSent))

	sms := outcomes(t, f.repo, "b1")[model.Pair{Channel: model.ChannelSMS, Role: model.RoleUser}]
	assert.Equal(t, model.OutcomeSuccess, sms.Outcome)
	assert.Equal(t, 2, sms.Attempt)
	assert.Empty(t, sms.LastError)
}

func TestDispatcher_AttemptCeiling(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleUser: true}}

	f := newFixture(t, settings)

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).Return(channel.Receipt{}, errors.New("gateway timeout")).Times(3)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail))

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(model.ResultSent))
	assert.Equal(t, 1, report.Count(model.ResultFailed))

	for _, result := range report.Results {
		if result.Status == model.ResultFailed {
			assert.Equal(t, model.ChannelSMS, result.Channel)
			assert.Equal(t, 3, result.Attempts)
			assert.True(t, failure.IsKind(result.Err, failure.KindDelivery))
		}
	}

	sms := outcomes(t, f.repo, "b1")[model.Pair{Channel: model.ChannelSMS, Role: model.RoleUser}]
	assert.Equal(t, model.OutcomePermanentlyFailed, sms.Outcome)
	assert.Equal(t, 3, sms.Attempt)
	assert.Equal(t, "gateway timeout", sms.LastError)

	assert.Contains(t, f.otel.Events(), "notification.permanently_failed")

	report, err = f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(model.ResultSkipped))
}

func TestDispatcher_TemplateErrorIsIsolated(t *testing.T) {
	settings := testSettings()
	settings.Templates = service.DefaultTemplates()
	settings.Templates[service.TemplateKey{Channel: model.ChannelSMS, Event: events.EventConfirmed, Role: model.RoleUser}] = "Hi {{customerName}}, booking {{bookingId}} is confirmed."

	f := newFixture(t, settings)

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS)).Times(1)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail)).Times(2)

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 3, report.Count(model.ResultSent))
	assert.Equal(t, 1, report.Count(model.ResultFailed))

	for _, result := range report.Results {
		if result.Status == model.ResultFailed {
			assert.True(t, failure.IsKind(result.Err, failure.KindTemplate))
			assert.Contains(t, result.Err.Error(), "customerName")
		}
	}

	sms := outcomes(t, f.repo, "b1")[model.Pair{Channel: model.ChannelSMS, Role: model.RoleUser}]
	assert.Equal(t, model.OutcomePermanentlyFailed, sms.Outcome)
	assert.Equal(t, 0, sms.Attempt)
}

func TestDispatcher_NoRecipient(t *testing.T) {
	settings := testSettings()
	settings.AdminPhone = ""

	f := newFixture(t, settings)

	event := confirmedEvent()
	delete(event.Snapshot, events.SnapshotCustomerPhone)

	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail)).Times(2)

	report, err := f.dispatcher.Dispatch(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(model.ResultNoRecipient))
	assert.Equal(t, 2, report.Count(model.ResultSent))
	assert.Len(t, outcomes(t, f.repo, "b1"), 2)
}

func TestDispatcher_TakesOverExpiredLease(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleAdmin: true}}

	f := newFixture(t, settings)

	key := model.DedupKey(events.EventConfirmed, "b1", model.ChannelSMS, model.RoleAdmin)
	past := time.Now().Add(-time.Hour)

	_, _, err := f.repo.Claim(context.Background(), model.DispatchRecord{
		DedupKey:   key,
		EventID:    "e0",
		EventType:  events.EventConfirmed,
		BookingID:  "b1",
		Channel:    model.ChannelSMS,
		Role:       model.RoleAdmin,
		Attempt:    1,
		Outcome:    model.OutcomePending,
		LeaseUntil: past,
		CreatedAt:  past,
	}, past)
	require.NoError(t, err)

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS))
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail))

	report, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(model.ResultSent))

	record, err := f.repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, record.Outcome)
	assert.Equal(t, 2, record.Attempt)
	assert.Equal(t, "e1", record.EventID)
}

func TestDispatcher_RateLimitsEachChannel(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleUser: true}}
	settings.RateLimit = 50
	settings.RateBurst = 1

	ctrl := gomock.NewController(t)
	sms := notificationMocks.NewMockSender(ctrl)
	dispatcher := service.New(repository.NewMemory(), repository.NewArchive(&config.Config{}, nil), channel.Senders{model.ChannelSMS: sms}, settings, otelMocks.NewOtel())

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).Return(channel.Receipt{}, errors.New("busy")).Times(2)
	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS))

	start := time.Now()

	report, err := dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(model.ResultSent))
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestDispatcher_RejectsUnknownEvents(t *testing.T) {
	f := newFixture(t, testSettings())

	_, err := f.dispatcher.Dispatch(context.Background(), events.LifecycleEvent{ID: "e1", Type: "archived"})

	assert.True(t, failure.IsKind(err, failure.KindValidation))
}

func TestDispatcher_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := notificationMocks.NewMockNotification(ctrl)
	archive := notificationMocks.NewMockArchive(ctrl)
	dispatcher := service.New(repo, archive, channel.Senders{}, testSettings(), otelMocks.NewOtel())

	repo.EXPECT().SaveEvent(gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused")).Times(3)

	err := dispatcher.Handle(context.Background(), confirmedEvent())

	assert.True(t, failure.IsKind(err, failure.KindStore))
}

func TestDispatcher_SaveEventRecovers(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := notificationMocks.NewMockNotification(ctrl)
	archive := notificationMocks.NewMockArchive(ctrl)
	dispatcher := service.New(repo, archive, channel.Senders{}, testSettings(), otelMocks.NewOtel())

	gomock.InOrder(
		repo.EXPECT().SaveEvent(gomock.Any(), gomock.Any()).Return(false, errors.New("connection reset")),
		repo.EXPECT().SaveEvent(gomock.Any(), gomock.Any()).Return(true, nil),
	)
	archive.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, dispatcher.Handle(context.Background(), confirmedEvent()))
}

// flakyClaims fails the first calls to Claim. When landed is set the failing calls still write
// the record, as a commit whose acknowledgement was lost would.
type flakyClaims struct {
	*repository.Memory
	mu       sync.Mutex
	failures int
	landed   bool
	calls    int
}

func (f *flakyClaims) Claim(ctx context.Context, record model.DispatchRecord, now time.Time) (model.DispatchRecord, bool, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()

	if !fail {
		return f.Memory.Claim(ctx, record, now)
	}

	if f.landed {
		if _, _, err := f.Memory.Claim(ctx, record, now); err != nil {
			return model.DispatchRecord{}, false, err
		}
	}

	return model.DispatchRecord{}, false, errors.New("connection reset by peer")
}

func TestDispatcher_ClaimRetries(t *testing.T) {
	tests := []struct {
		name   string
		landed bool
	}{
		{"claim not written", false},
		{"claim written but unacknowledged", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleAdmin: true}}

			ctrl := gomock.NewController(t)
			sms := notificationMocks.NewMockSender(ctrl)
			repo := &flakyClaims{Memory: repository.NewMemory(), failures: 1, landed: tt.landed}
			dispatcher := service.New(repo, repository.NewArchive(&config.Config{}, nil), channel.Senders{model.ChannelSMS: sms}, settings, otelMocks.NewOtel())

			sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS)).Times(1)

			report, err := dispatcher.Dispatch(context.Background(), confirmedEvent())

			require.NoError(t, err)
			assert.Equal(t, 1, report.Count(model.ResultSent))
			assert.Equal(t, 2, repo.calls)

			record := outcomes(t, repo.Memory, "b1")[model.Pair{Channel: model.ChannelSMS, Role: model.RoleAdmin}]
			assert.Equal(t, model.OutcomeSuccess, record.Outcome)
			assert.Equal(t, 1, record.Attempt)
		})
	}
}

func TestDispatcher_ClaimOutageIsRedelivered(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleAdmin: true}}

	ctrl := gomock.NewController(t)
	sms := notificationMocks.NewMockSender(ctrl)
	repo := &flakyClaims{Memory: repository.NewMemory(), failures: 3}
	dispatcher := service.New(repo, repository.NewArchive(&config.Config{}, nil), channel.Senders{model.ChannelSMS: sms}, settings, otelMocks.NewOtel())

	err := dispatcher.Handle(context.Background(), confirmedEvent())

	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindStore))
	assert.Equal(t, 3, repo.calls)
	assert.Empty(t, outcomes(t, repo.Memory, "b1"))

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS))

	require.NoError(t, dispatcher.Handle(context.Background(), confirmedEvent()))

	record := outcomes(t, repo.Memory, "b1")[model.Pair{Channel: model.ChannelSMS, Role: model.RoleAdmin}]
	assert.Equal(t, model.OutcomeSuccess, record.Outcome)
}

func TestDispatcher_CancelledSendLeavesRecordPending(t *testing.T) {
	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleAdmin: true}}

	ctrl := gomock.NewController(t)
	sms := notificationMocks.NewMockSender(ctrl)
	repo := repository.NewMemory()
	tracer := otelMocks.NewOtel()
	dispatcher := service.New(repo, repository.NewArchive(&config.Config{}, nil), channel.Senders{model.ChannelSMS: sms}, settings, tracer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, channel.Message) (channel.Receipt, error) {
			cancel()

			return channel.Receipt{}, errors.New("connection closed")
		})

	report, err := dispatcher.Dispatch(ctx, confirmedEvent())

	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.KindStore))
	assert.Equal(t, 1, report.Count(model.ResultFailed))
	assert.ErrorIs(t, report.Results[0].Err, context.Canceled)
	assert.NotContains(t, tracer.Events(), "notification.permanently_failed")

	key := model.DedupKey(events.EventConfirmed, "b1", model.ChannelSMS, model.RoleAdmin)

	record, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePending, record.Outcome)
	assert.Equal(t, 1, record.Attempt)
	assert.False(t, record.LeaseUntil.After(time.Now()))

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS))

	report, err = dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(model.ResultSent))

	record, err = repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSuccess, record.Outcome)
	assert.Equal(t, 2, record.Attempt)
}

func TestDispatcher_ArchiveFailureDoesNotStopDispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := notificationMocks.NewMockNotification(ctrl)
	archive := notificationMocks.NewMockArchive(ctrl)
	sms := notificationMocks.NewMockSender(ctrl)

	settings := testSettings()
	settings.Routing = map[events.EventType]map[model.Role]bool{events.EventConfirmed: {model.RoleAdmin: true}}

	dispatcher := service.New(repo, archive, channel.Senders{model.ChannelSMS: sms}, settings, otelMocks.NewOtel())

	repo.EXPECT().SaveEvent(gomock.Any(), gomock.Any()).Return(true, nil)
	archive.EXPECT().Store(gomock.Any(), gomock.Any()).Return(errors.New("bucket missing"))
	repo.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, record model.DispatchRecord, _ time.Time) (model.DispatchRecord, bool, error) {
			return record, true, nil
		})
	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS))
	repo.EXPECT().Complete(gomock.Any(), gomock.Any(), 1, gomock.Any()).Return(nil)

	report, err := dispatcher.Dispatch(context.Background(), confirmedEvent())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(model.ResultSent))
}

func TestDispatcher_Records(t *testing.T) {
	f := newFixture(t, testSettings())

	f.sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelSMS)).Times(2)
	f.email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(accept(model.ChannelEmail)).Times(2)

	_, err := f.dispatcher.Dispatch(context.Background(), confirmedEvent())
	require.NoError(t, err)

	records, err := f.dispatcher.Records(context.Background(), "b1")

	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestNewSettings(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notification.UserEvents = []string{"confirmed", "bogus"}
	cfg.Notification.AdminEvents = []string{"created", "confirmed"}
	cfg.Notification.Templates = map[string]string{
		"sms.confirmed.user": "Booked {{bookingId}}",
		"fax.confirmed.user": "ignored",
	}
	cfg.Notification.Admin.Phone = "+620000"

	settings := service.NewSettings(cfg)

	assert.True(t, settings.Routing[events.EventConfirmed][model.RoleUser])
	assert.True(t, settings.Routing[events.EventCreated][model.RoleAdmin])
	assert.False(t, settings.Routing[events.EventCreated][model.RoleUser])
	assert.Equal(t, "Booked {{bookingId}}", settings.Templates[service.TemplateKey{Channel: model.ChannelSMS, Event: events.EventConfirmed, Role: model.RoleUser}])
	assert.Equal(t, uint(5), settings.MaxAttempts)
	assert.Equal(t, 6, settings.Concurrency)
	assert.Equal(t, 5*time.Minute, settings.Lease)

	senders := channel.Senders{model.ChannelSMS: nil, model.ChannelEmail: nil}
	assert.Equal(t, []model.Pair{
		{Channel: model.ChannelSMS, Role: model.RoleUser},
		{Channel: model.ChannelSMS, Role: model.RoleAdmin},
		{Channel: model.ChannelEmail, Role: model.RoleUser},
		{Channel: model.ChannelEmail, Role: model.RoleAdmin},
	}, settings.Pairs(events.EventConfirmed, senders))
}

func TestNewSettings_LeaseCoversOneAttempt(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notification.LeaseSeconds = 1
	cfg.Notification.SendTimeoutMs = 10000
	cfg.Notification.MaxBackoffMs = 30000

	settings := service.NewSettings(cfg)

	assert.Equal(t, 40*time.Second, settings.Lease)

	cfg.Notification.LeaseSeconds = 120

	assert.Equal(t, 2*time.Minute, service.NewSettings(cfg).Lease)
}

func TestParseTemplateKey(t *testing.T) {
	key, err := service.ParseTemplateKey("whatsapp.cancelled.admin")
	require.NoError(t, err)
	assert.Equal(t, service.TemplateKey{Channel: model.ChannelWhatsApp, Event: events.EventCancelled, Role: model.RoleAdmin}, key)

	for _, raw := range []string{"sms.confirmed", "sms.shipped.user", "sms.confirmed.owner"} {
		_, err := service.ParseTemplateKey(raw)
		assert.Error(t, err, raw)
	}
}
