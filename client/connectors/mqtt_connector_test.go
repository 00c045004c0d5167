package connectors

import (
	"adaptive-etl-service/service/models"
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeMQTTClient 只实现连接器用到的方法
type fakeMQTTClient struct {
	mqtt.Client
	connected  bool
	connectErr error
	publishErr error
	topics     []string
	payloads   [][]byte
}

func (c *fakeMQTTClient) IsConnected() bool { return c.connected }

func (c *fakeMQTTClient) Connect() mqtt.Token {
	if c.connectErr == nil {
		c.connected = true
	}
	return doneToken{err: c.connectErr}
}

func (c *fakeMQTTClient) Disconnect(quiesce uint) { c.connected = false }

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return doneToken{err: c.publishErr}
}

func TestMQTTConnector_PublishDecision(t *testing.T) {
	client := &fakeMQTTClient{}
	mc := newMQTTConnectorWithClient(&MQTTConfig{Broker: "tcp://fake:1883", Topic: "etl/policy", Timeout: time.Second}, client)

	err := mc.PublishDecision(context.Background(), &models.PolicyDecisionEvent{RunID: "run-1"})
	require.NoError(t, err)
	assert.True(t, client.connected)
	assert.Equal(t, []string{"etl/policy"}, client.topics)
	assert.Contains(t, string(client.payloads[0]), `"run_id":"run-1"`)

	require.NoError(t, mc.Close())
	assert.False(t, client.connected)
}

func TestMQTTConnector_Errors(t *testing.T) {
	cfg := &MQTTConfig{Broker: "tcp://fake:1883", Topic: "etl/policy", Timeout: time.Second}

	mc := newMQTTConnectorWithClient(cfg, &fakeMQTTClient{connectErr: errors.New("refused")})
	err := mc.PublishDecision(context.Background(), &models.PolicyDecisionEvent{RunID: "r"})
	assert.ErrorContains(t, err, "refused")

	mc = newMQTTConnectorWithClient(cfg, &fakeMQTTClient{connected: true, publishErr: errors.New("not authorized")})
	err = mc.PublishDecision(context.Background(), &models.PolicyDecisionEvent{RunID: "r"})
	assert.ErrorContains(t, err, "not authorized")
}
