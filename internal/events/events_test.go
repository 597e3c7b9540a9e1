package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNew(t *testing.T) {
	e, err := New(TypeOTPRequested, "u1", OTPRequested{Email: "a@b.co", OTP: "123456"})
	require.NoError(t, err)

	assert.Equal(t, TypeOTPRequested, e.Type)
	assert.Equal(t, "u1", e.Key)
	assert.False(t, e.OccurredAt.IsZero())
	assert.JSONEq(t, `{"email":"a@b.co","name":"","otp":"123456"}`, string(e.Data))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())

	e, err := New(TypePlanChanged, "user-9", PlanChanged{UserID: "user-9", Plan: "pro"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "user-9", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypePlanChanged, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, TypePlanChanged, decoded.Type)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, zerolog.Nop())

	err := p.Publish(context.Background(), Event{Type: TypeGenerationCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, zerolog.Nop())
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Username: "u"}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypePlanChanged}))
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeGenerationCompleted}))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(TypePlanChanged), 1)
	assert.Empty(t, r.OfType(TypeOTPRequested))
}
