package channel

//go:generate go run go.uber.org/mock/mockgen -source=./channel.go -destination=../mocks/channel_mock.go -package=mocks

import (
	"context"
	"fmt"
	"rental/config"
	"rental/infras/kafka"
	"rental/infras/otel"
	"rental/internal/domains/notification/model"
	"rental/shared/constant"
	"rental/shared/timezone"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Message is a rendered notification addressed to one recipient.
type Message struct {
	DedupKey  string        `json:"dedupKey"`
	Channel   model.Channel `json:"channel"`
	Recipient string        `json:"recipient"`
	Body      string        `json:"body"`
}

type Receipt struct {
	MessageID  string
	Channel    model.Channel
	AcceptedAt time.Time
}

// Sender delivers messages on one channel. It knows nothing about bookings.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Senders holds the sender of every enabled channel. A channel without a sender is disabled.
type Senders map[model.Channel]Sender

// NewSenders builds a sender for each channel enabled in cfg.
func NewSenders(cfg *config.Config, client kafka.Client, otel otel.Otel) Senders {
	settings := map[model.Channel]config.Channel{
		model.ChannelWhatsApp: cfg.Notification.WhatsApp,
		model.ChannelSMS:      cfg.Notification.SMS,
		model.ChannelEmail:    cfg.Notification.Email,
	}

	senders := Senders{}

	for ch, setting := range settings {
		if !setting.Enable {
			continue
		}

		switch setting.Driver {
		case constant.ChannelDriverKafka:
			topic := setting.Topic
			if topic == "" {
				topic = "notification." + string(ch)
			}

			senders[ch] = NewKafka(ch, client, topic, otel)
		default:
			senders[ch] = NewLog(ch)
		}

		log.Info().Str("channel", string(ch)).Str("driver", setting.Driver).Msg("notification channel enabled")
	}

	return senders
}

// envelope is what vendor relays read from a channel topic.
type envelope struct {
	MessageID string        `json:"messageId"`
	DedupKey  string        `json:"dedupKey"`
	Channel   model.Channel `json:"channel"`
	Recipient string        `json:"recipient"`
	Body      string        `json:"body"`
	SentAt    time.Time     `json:"sentAt"`
}

type kafkaSender struct {
	channel model.Channel
	client  kafka.Client
	topic   string
	otel    otel.Otel
}

// NewKafka hands messages to the relay consuming topic. The send returns once every in-sync
// replica has acknowledged the write.
func NewKafka(ch model.Channel, client kafka.Client, topic string, otel otel.Otel) Sender {
	return &kafkaSender{
		channel: ch,
		client:  client,
		topic:   topic,
		otel:    otel,
	}
}

func (k *kafkaSender) Send(ctx context.Context, msg Message) (receipt Receipt, err error) {
	ctx, scope := k.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".channel."+string(k.channel))
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	env := envelope{
		MessageID: uuid.NewString(),
		DedupKey:  msg.DedupKey,
		Channel:   k.channel,
		Recipient: msg.Recipient,
		Body:      msg.Body,
		SentAt:    timezone.Now(),
	}

	scope.SetAttributes(map[string]any{
		"notification.channel":    string(k.channel),
		"notification.dedup_key":  msg.DedupKey,
		"notification.message_id": env.MessageID,
	})

	if err = k.client.SendMessages(ctx, k.topic, kafka.Message{Key: msg.DedupKey, Value: env}); err != nil {
		return receipt, fmt.Errorf("failed to hand %s message to relay: %w", k.channel, err)
	}

	return Receipt{MessageID: env.MessageID, Channel: k.channel, AcceptedAt: env.SentAt}, nil
}

type logSender struct {
	channel model.Channel
}

// NewLog writes messages to the service log instead of a vendor. Used in development.
func NewLog(ch model.Channel) Sender {
	return &logSender{channel: ch}
}

func (l *logSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	log.Info().
		Str("channel", string(l.channel)).
		Str("recipient", msg.Recipient).
		Str("dedupKey", msg.DedupKey).
		Str("body", msg.Body).
		Msg("notification sent")

	return Receipt{MessageID: uuid.NewString(), Channel: l.channel, AcceptedAt: timezone.Now()}, nil
}
