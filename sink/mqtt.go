package sink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gr-butler/joystick/receive"
	logger "github.com/sirupsen/logrus"
)

const mqttPublishTimeout = 2 * time.Second

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every event as JSON, qos 0 and not retained.
type MQTT struct {
	client  publisher
	topic   string
	timeout time.Duration
}

// DialMQTT connects to broker and returns a sink publishing on topic.
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	logger.Infof("Connected to MQTT broker %s, publishing on %s", broker, topic)
	return NewMQTT(client, topic), nil
}

func NewMQTT(client publisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic, timeout: mqttPublishTimeout}
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Publish(ev receive.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 0, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("MQTT publish to %s timed out after %v", m.topic, m.timeout)
	}
	return token.Error()
}

func (m *MQTT) Close() error {
	if c, ok := m.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
	return nil
}
