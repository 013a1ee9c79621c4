// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dmx-gateway/internal/eventbus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestWebSocketFeedForwardsModuleStatus(t *testing.T) {
	bus := eventbus.New(testLogger())
	feed := NewWebSocketFeed(bus, testLogger())

	srv := httptest.NewServer(feed)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	time.Sleep(20 * time.Millisecond) // let the subscribe happen before publish
	bus.Publish(eventbus.TopicModuleStatus, map[string]string{"name": "scheduler"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a forwarded message, got error: %v", err)
	}

	var decoded struct {
		Topic string `json:"topic"`
	}
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("invalid JSON forwarded: %v", err)
	}
	if decoded.Topic != eventbus.TopicModuleStatus {
		t.Errorf("expected topic %q, got %q", eventbus.TopicModuleStatus, decoded.Topic)
	}
}
