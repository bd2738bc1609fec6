package service_test

import (
	"context"
	"rental/config"
	otelMocks "rental/infras/otel/mocks"
	bookingModel "rental/internal/domains/booking/model"
	bookingDto "rental/internal/domains/booking/model/dto"
	bookingRepository "rental/internal/domains/booking/repository"
	bookingService "rental/internal/domains/booking/service"
	"rental/internal/domains/notification/channel"
	notificationMocks "rental/internal/domains/notification/mocks"
	"rental/internal/domains/notification/model"
	"rental/internal/domains/notification/repository"
	"rental/internal/domains/notification/service"
	paymentDto "rental/internal/domains/payment/model/dto"
	paymentService "rental/internal/domains/payment/service"
	"rental/internal/events"
	"rental/shared/cache"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestScenario_BookingPaidAndConfirmed(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Booking.MaxCASRetries = 3

	ot := otelMocks.NewOtel()
	noCache := cache.NewRedisCache(cfg, nil, ot)

	ctrl := gomock.NewController(t)
	sms := notificationMocks.NewMockSender(ctrl)
	email := notificationMocks.NewMockSender(ctrl)

	var (
		mu       sync.Mutex
		messages []channel.Message
	)

	capture := func(_ context.Context, msg channel.Message) (channel.Receipt, error) {
		mu.Lock()
		defer mu.Unlock()

		messages = append(messages, msg)

		return channel.Receipt{MessageID: msg.DedupKey[:8], Channel: msg.Channel}, nil
	}

	sms.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(capture).AnyTimes()
	email.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(capture).AnyTimes()

	notifications := repository.NewMemory()
	dispatcher := service.New(notifications, repository.NewArchive(cfg, nil), channel.Senders{
		model.ChannelSMS:   sms,
		model.ChannelEmail: email,
	}, testSettings(), ot)

	bus := events.NewLocal()
	bus.Subscribe(dispatcher)

	bookingRepo := bookingRepository.NewMemory()
	bookings := bookingService.New(bookingRepo, bus, cfg, noCache, ot)
	reconciler := paymentService.New(bookingRepo, bookings, paymentService.Settings{
		VerifyMaxAttempts: 4,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        2 * time.Millisecond,
		MaxCASRetries:     3,
	}, noCache, ot)

	drain := func() {
		drainCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		require.NoError(t, bus.Drain(drainCtx))
	}

	booking, err := bookings.Create(ctx, "u1", bookingDto.CreateBookingRequest{
		CarID:     "C1",
		StartDate: "2025-01-10",
		EndDate:   "2025-01-12",
		ContactInfo: &bookingDto.ContactInfoRequest{
			Name:  "Rider",
			Email: "rider@rental.test",
			Phone: "+62811",
		},
	})
	require.NoError(t, err)
	drain()

	_, err = reconciler.RecordPayment(ctx, "u1", booking.ID, paymentDto.RecordPaymentRequest{
		PaymentMethod: "transfer",
		ReferenceID:   "ref-42",
		TokenAmount:   1000,
		TotalAmount:   5000,
		FullPayment:   true,
	})
	require.NoError(t, err)

	confirmed, err := reconciler.VerifyPayment(ctx, "u1", booking.ID, "ref-42")
	require.NoError(t, err)
	assert.Equal(t, bookingModel.StatusConfirmed, confirmed.BasicInfo.Status)
	assert.True(t, confirmed.PaymentInfo.IsPaid)

	// Verification replays must not produce a second confirmation.
	_, err = reconciler.VerifyPayment(ctx, "u1", booking.ID, "ref-42")
	require.NoError(t, err)
	drain()

	records, err := dispatcher.Records(ctx, booking.ID)
	require.NoError(t, err)

	byType := map[events.EventType][]model.DispatchRecord{}
	for _, record := range records {
		byType[record.EventType] = append(byType[record.EventType], record)
	}

	require.Len(t, byType[events.EventConfirmed], 4)

	for _, record := range byType[events.EventConfirmed] {
		assert.Equal(t, model.OutcomeSuccess, record.Outcome)
		assert.Equal(t, 1, record.Attempt)
	}

	assert.Len(t, byType[events.EventCreated], 2)

	mu.Lock()
	defer mu.Unlock()

	assert.Len(t, messages, 6)

	for _, msg := range messages {
		if msg.Recipient == "+62811" {
			assert.Contains(t, msg.Body, "Booking "+booking.ID+" for car C1 from 2025-01-10 to 2025-01-12 is confirmed.")
		}
	}
}
