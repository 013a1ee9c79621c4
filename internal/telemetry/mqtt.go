// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package telemetry bridges eventbus events to outbound-only external
// feeds: an MQTT publisher and a read-only WebSocket stream. Neither
// accepts commands back into the device.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"dmx-gateway/internal/eventbus"
)

// MQTTConfig configures the outbound MQTT bridge.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"topic_prefix"`
}

// MQTTBridge forwards moduleStatus and senseData events to an MQTT broker.
// It never subscribes to a command topic.
type MQTTBridge struct {
	cfg    MQTTConfig
	bus    *eventbus.Bus
	logger *slog.Logger
	client mqtt.Client
	done   chan struct{}
}

// NewMQTTBridge constructs a bridge. cfg.Prefix defaults to "dmx-gateway"
// and cfg.ClientID to "dmx-gateway-telemetry" when left empty.
func NewMQTTBridge(cfg MQTTConfig, bus *eventbus.Bus, logger *slog.Logger) *MQTTBridge {
	if cfg.Prefix == "" {
		cfg.Prefix = "dmx-gateway"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dmx-gateway-telemetry"
	}
	return &MQTTBridge{cfg: cfg, bus: bus, logger: logger, done: make(chan struct{})}
}

// Start connects to the broker and begins forwarding events.
func (b *MQTTBridge) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("mqtt telemetry connection lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	go b.forward(eventbus.TopicModuleStatus, "module_status")
	go b.forward(eventbus.TopicSenseData, "sense_data")

	b.logger.Info("mqtt telemetry bridge started", "broker", b.cfg.Broker, "prefix", b.cfg.Prefix)
	return nil
}

// Stop disconnects from the broker.
func (b *MQTTBridge) Stop() {
	close(b.done)
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(1000)
	}
}

func (b *MQTTBridge) forward(topic, subtopic string) {
	sub := b.bus.Subscribe(topic)
	out := b.cfg.Prefix + "/" + subtopic
	for {
		select {
		case <-b.done:
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt.Data)
			if err != nil {
				b.logger.Warn("telemetry marshal failed", "topic", topic, "error", err)
				continue
			}
			if b.client != nil && b.client.IsConnected() {
				b.client.Publish(out, 0, false, payload)
			}
		}
	}
}
