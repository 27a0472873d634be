package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttPublishTimeout = 5 * time.Second

// Publisher is the part of an MQTT client the bridge needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEmitter mirrors every emitted event onto an MQTT topic so other API
// processes and dashboards can relay it. Topics are <prefix>/<room>/<event>.
type MQTTEmitter struct {
	client Publisher
	prefix string
	qos    byte
}

// NewMQTTEmitter wraps a connected MQTT client.
func NewMQTTEmitter(client Publisher, prefix string) *MQTTEmitter {
	return &MQTTEmitter{client: client, prefix: strings.Trim(prefix, "/"), qos: 1}
}

// Topic returns the topic an event for a room is published on.
func (e *MQTTEmitter) Topic(room, event string) string {
	if e.prefix == "" {
		return room + "/" + event
	}
	return e.prefix + "/" + room + "/" + event
}

// Emit implements Emitter.
func (e *MQTTEmitter) Emit(ctx context.Context, room, event string, payload interface{}) error {
	body, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}

	token := e.client.Publish(e.Topic(room, event), e.qos, false, body)

	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s timed out", e.Topic(room, event))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", e.Topic(room, event), err)
	}
	return nil
}

// ConnectMQTT connects to a broker with automatic reconnects.
func ConnectMQTT(brokerURL, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return client, nil
}
