package kafka

import (
	"context"
	"errors"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	messages  []kafkaGo.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkaGo.Message, error) {
	if len(f.messages) == 0 {
		<-ctx.Done()

		return kafkaGo.Message{}, ctx.Err()
	}

	msg := f.messages[0]
	f.messages = f.messages[1:]

	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	for _, msg := range msgs {
		f.committed = append(f.committed, msg.Offset)
	}

	return nil
}

func TestConsume_CommitsHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{{Offset: 1}, {Offset: 2}}}
	ctx, cancel := context.WithCancel(context.Background())

	var handled []int64

	err := consume(ctx, reader, "booking.lifecycle", func(_ context.Context, msg kafkaGo.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 2 {
			cancel()
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, handled)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsume_HandlerErrorLeavesMessageUncommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{{Offset: 1}, {Offset: 2}, {Offset: 3}}}
	storeDown := errors.New("store unavailable")

	err := consume(context.Background(), reader, "booking.lifecycle", func(_ context.Context, msg kafkaGo.Message) error {
		if msg.Offset == 2 {
			return storeDown
		}

		return nil
	})

	require.ErrorIs(t, err, storeDown)
	assert.Equal(t, []int64{1}, reader.committed)
	assert.Len(t, reader.messages, 1)
}

func TestConsume_CancelledHandlerIsNotAnError(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{{Offset: 7}}}
	ctx, cancel := context.WithCancel(context.Background())

	err := consume(ctx, reader, "booking.lifecycle", func(ctx context.Context, _ kafkaGo.Message) error {
		cancel()

		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Empty(t, reader.committed)
}
