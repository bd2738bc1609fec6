package channel_test

import (
	"context"
	"errors"
	"rental/config"
	"rental/infras/kafka"
	kafkaMocks "rental/infras/kafka/mocks"
	otelMocks "rental/infras/otel/mocks"
	"rental/internal/domains/notification/channel"
	"rental/internal/domains/notification/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestNewSenders(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notification.WhatsApp = config.Channel{Enable: true, Driver: "kafka", Topic: "wa.outbound"}
	cfg.Notification.SMS = config.Channel{Enable: false, Driver: "kafka"}
	cfg.Notification.Email = config.Channel{Enable: true, Driver: "log"}

	senders := channel.NewSenders(cfg, kafkaMocks.NewMockClient(gomock.NewController(t)), otelMocks.NewOtel())

	assert.Len(t, senders, 2)
	assert.Contains(t, senders, model.ChannelWhatsApp)
	assert.Contains(t, senders, model.ChannelEmail)
	assert.NotContains(t, senders, model.ChannelSMS)
}

func TestKafkaSender_Send(t *testing.T) {
	msg := channel.Message{DedupKey: "k1", Channel: model.ChannelSMS, Recipient: "+62811", Body: "hello"}

	t.Run("keys the record by dedup key", func(t *testing.T) {
		client := kafkaMocks.NewMockClient(gomock.NewController(t))
		sender := channel.NewKafka(model.ChannelSMS, client, "sms.outbound", otelMocks.NewOtel())

		client.EXPECT().SendMessages(gomock.Any(), "sms.outbound", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, messages ...kafka.Message) error {
				require.Len(t, messages, 1)
				assert.Equal(t, "k1", messages[0].Key)

				return nil
			})

		receipt, err := sender.Send(context.Background(), msg)

		require.NoError(t, err)
		assert.NotEmpty(t, receipt.MessageID)
		assert.Equal(t, model.ChannelSMS, receipt.Channel)
	})

	t.Run("broker failure", func(t *testing.T) {
		client := kafkaMocks.NewMockClient(gomock.NewController(t))
		ot := otelMocks.NewOtel()
		sender := channel.NewKafka(model.ChannelSMS, client, "sms.outbound", ot)

		client.EXPECT().SendMessages(gomock.Any(), "sms.outbound", gomock.Any()).Return(errors.New("leader not available"))

		_, err := sender.Send(context.Background(), msg)

		require.Error(t, err)
		assert.Len(t, ot.Errors(), 1)
	})
}

func TestLogSender_Send(t *testing.T) {
	sender := channel.NewLog(model.ChannelEmail)

	receipt, err := sender.Send(context.Background(), channel.Message{Recipient: "a@b.c", Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelEmail, receipt.Channel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sender.Send(ctx, channel.Message{})
	assert.ErrorIs(t, err, context.Canceled)
}
