// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package udpserver

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/sensorcache"
)

func testServer() (*Server, *sensorcache.Cache, *eventbus.Bus) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cache := sensorcache.New()
	bus := eventbus.New(logger)
	return New(cache, bus, logger), cache, bus
}

func TestHandleDatagramValidSensorPacket(t *testing.T) {
	s, cache, bus := testServer()
	sub := bus.Subscribe(eventbus.TopicSenseData)

	raw := []byte(`{"TYPE":1,"ID":7,"NAME":"hall","VERSION":1,"PACKET_NO":42,"DATA":"1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0"}`)
	s.handleDatagram(raw)

	ports := cache.GetPortData(7)
	if !ports[0] || ports[1] || !ports[2] {
		t.Errorf("unexpected port state: %v", ports)
	}

	select {
	case evt := <-sub:
		sd := evt.Data.(SenseData)
		if sd.ID != 7 || sd.Name != "hall" {
			t.Errorf("unexpected senseData event: %+v", sd)
		}
	case <-time.After(time.Second):
		t.Fatal("expected senseData event")
	}
}

func TestHandleDatagramRejectsBadData(t *testing.T) {
	s, cache, _ := testServer()

	raw := []byte(`{"TYPE":1,"ID":7,"NAME":"hall","VERSION":1,"PACKET_NO":42,"DATA":"2,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0"}`)
	s.handleDatagram(raw)

	got := cache.GetPortData(7)
	want := [sensorcache.PortCount]bool{}
	if got != want {
		t.Errorf("expected cache untouched for invalid DATA, got %v", got)
	}
}

func TestHandleDatagramRejectsMissingFields(t *testing.T) {
	s, cache, _ := testServer()

	raw := []byte(`{"TYPE":1,"NAME":"hall","DATA":"1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0"}`)
	s.handleDatagram(raw)

	got := cache.GetPortData(0)
	want := [sensorcache.PortCount]bool{}
	if got != want {
		t.Errorf("expected no update without ID, got %v", got)
	}
}

func TestHandleDatagramIgnoresNonSensorType(t *testing.T) {
	s, cache, bus := testServer()
	sub := bus.Subscribe(eventbus.TopicSenseData)

	raw := []byte(`{"TYPE":2,"ID":1,"NAME":"x","VERSION":1,"PACKET_NO":1,"DATA":"0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0"}`)
	s.handleDatagram(raw)

	select {
	case <-sub:
		t.Fatal("did not expect senseData event for TYPE=2")
	case <-time.After(50 * time.Millisecond):
	}

	got := cache.GetPortData(1)
	want := [sensorcache.PortCount]bool{}
	if got != want {
		t.Error("TYPE=2 packet should not update sensor cache")
	}
}
