package connectors

import (
	"adaptive-etl-service/service/models"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))
}

func TestKafkaConnector_PublishDecision(t *testing.T) {
	writer := &fakeWriter{}
	kc := &KafkaConnector{config: &KafkaConfig{Topic: "policy", WriteTimeout: time.Second}, writer: writer}

	event := &models.PolicyDecisionEvent{
		RunID:        "run-7",
		Score:        0.8,
		NextStrategy: models.StrategyMedian,
		Timestamp:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, kc.PublishDecision(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "run-7", string(msg.Key))
	assert.Equal(t, "policy_decision", string(msg.Headers[0].Value))

	var decoded models.PolicyDecisionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, models.StrategyMedian, decoded.NextStrategy)

	require.NoError(t, kc.Close())
	assert.True(t, writer.closed)
	assert.Equal(t, "kafka", kc.Name())
}

func TestKafkaConnector_PublishError(t *testing.T) {
	kc := &KafkaConnector{
		config: &KafkaConfig{Topic: "policy", WriteTimeout: time.Second},
		writer: &fakeWriter{err: errors.New("leader not available")},
	}
	err := kc.PublishDecision(context.Background(), &models.PolicyDecisionEvent{RunID: "r"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaConnector_Defaults(t *testing.T) {
	kc := NewKafkaConnector(&KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	defer kc.Close()
	assert.Equal(t, 5*time.Second, kc.config.WriteTimeout)
}
