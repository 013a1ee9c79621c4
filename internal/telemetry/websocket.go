// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"dmx-gateway/internal/eventbus"
)

// WebSocketFeed streams moduleStatus, senseData, and systemStatusUpdate
// events to connected clients. It is read-only: the handler never reads
// client-sent frames as commands, only to detect disconnects.
type WebSocketFeed struct {
	bus      *eventbus.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketFeed constructs a feed bound to bus.
func NewWebSocketFeed(bus *eventbus.Bus, logger *slog.Logger) *WebSocketFeed {
	return &WebSocketFeed{
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects.
func (f *WebSocketFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Error("telemetry websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	status := f.bus.Subscribe(eventbus.TopicModuleStatus)
	sense := f.bus.Subscribe(eventbus.TopicSenseData)
	system := f.bus.Subscribe(eventbus.TopicSystemStatusUpdate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-status:
			if !ok {
				return
			}
			f.send(conn, evt)
		case evt, ok := <-sense:
			if !ok {
				return
			}
			f.send(conn, evt)
		case evt, ok := <-system:
			if !ok {
				return
			}
			f.send(conn, evt)
		}
	}
}

func (f *WebSocketFeed) send(conn *websocket.Conn, evt eventbus.Event) {
	payload, err := json.Marshal(struct {
		Topic string `json:"topic"`
		Data  any    `json:"data"`
	}{Topic: evt.Topic, Data: evt.Data})
	if err != nil {
		f.logger.Warn("telemetry websocket marshal failed", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		f.logger.Debug("telemetry websocket write error", "error", err)
	}
}
