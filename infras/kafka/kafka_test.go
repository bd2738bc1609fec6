package kafka_test

import (
	"rental/infras/kafka"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	BookingID string `json:"bookingId"`
	Attempt   int    `json:"attempt"`
}

func TestMessage_RoundTrip(t *testing.T) {
	message := kafka.Message{Key: "b1", Value: payload{BookingID: "b1", Attempt: 2}}

	msg, err := message.ToKafkaMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("b1"), msg.Key)
	assert.JSONEq(t, `{"bookingId":"b1","attempt":2}`, string(msg.Value))

	decoded, err := kafka.Decode[payload](msg)
	require.NoError(t, err)
	assert.Equal(t, payload{BookingID: "b1", Attempt: 2}, decoded)
}

func TestMessage_Unmarshalable(t *testing.T) {
	message := kafka.Message{Key: "b1", Value: make(chan int)}

	_, err := message.ToKafkaMessage()
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := kafka.Decode[payload](kafkaGo.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
