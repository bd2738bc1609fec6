package kafka

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkaGo.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkaGo.Message) error
}

func consume(ctx context.Context, reader messageReader, topic string, handler MessageHandler) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", topic).Msg("Consumer context done.")

				return nil
			}

			log.Error().Err(err).Str("topic", topic).Msg("Failed to read message from Kafka.")

			return fmt.Errorf("failed to read message from Kafka: %w", err)
		}

		log.Debug().Str("topic", topic).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("Received message from Kafka.")

		if err := handler(ctx, msg); err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", topic).Int64("offset", msg.Offset).Msg("Consumer stopped mid message, leaving it uncommitted.")

				return nil
			}

			log.Error().
				Err(err).
				Str("topic", topic).
				Str("key", string(msg.Key)).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("Failed to handle Kafka message, leaving it uncommitted.")

			return fmt.Errorf("failed to handle Kafka message at offset %d: %w", msg.Offset, err)
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			log.Error().Err(err).Str("topic", topic).Msg("Failed to commit Kafka message.")

			return fmt.Errorf("failed to commit Kafka message: %w", err)
		}
	}
}
