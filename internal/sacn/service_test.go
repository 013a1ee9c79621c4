// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sacn

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/supervisor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func testService() *Service {
	return New("127.0.0.1:5568", nil, testLogger())
}

func TestSetWritesSlot(t *testing.T) {
	s := testService()
	s.Set(1, 5, 200)

	snap := s.Snapshot(1)
	if snap[4] != 200 {
		t.Fatalf("expected slot 5 (index 4) == 200, got %d", snap[4])
	}
}

func TestSetOutOfRangeIsIgnored(t *testing.T) {
	s := testService()
	s.Set(1, 0, 10)
	s.Set(1, 513, 10)

	snap := s.Snapshot(1)
	for i, v := range snap {
		if v != 0 {
			t.Fatalf("expected untouched buffer, slot %d = %d", i, v)
		}
	}
}

func TestSetRejectsOutOfRangeUniverse(t *testing.T) {
	s := testService()
	s.Set(0, 1, 10)
	s.Set(-1, 1, 10)
	s.Set(MaxUniverse+1, 1, 10)

	for _, u := range []int{0, -1, MaxUniverse + 1} {
		snap := s.Snapshot(u)
		for i, v := range snap {
			if v != 0 {
				t.Fatalf("expected rejected universe %d to stay unallocated, slot %d = %d", u, i, v)
			}
		}
	}
}

func TestSetAllUniversesWritesEveryKnownUniverse(t *testing.T) {
	s := testService()
	s.Set(1, 1, 1)
	s.Set(2, 1, 1)

	s.SetAllUniverses(255)

	for _, u := range []int{1, 2} {
		snap := s.Snapshot(u)
		for _, v := range snap {
			if v != 255 {
				t.Fatalf("expected universe %d fully set to 255", u)
			}
		}
	}
}

func TestSnapshotUnknownUniverseIsZero(t *testing.T) {
	s := testService()
	snap := s.Snapshot(9)
	for _, v := range snap {
		if v != 0 {
			t.Fatal("expected zero buffer for unknown universe")
		}
	}
}

func TestSendAllPublishesOperationalOnSuccess(t *testing.T) {
	bus := eventbus.New(testLogger())
	sub := bus.Subscribe(eventbus.TopicModuleStatus)

	s := New("127.0.0.1:5568", bus, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	defer s.Stop()

	s.Set(1, 1, 1)
	s.sendAll()

	select {
	case evt := <-sub:
		report := evt.Data.(supervisor.Report)
		if report.Name != supervisor.ModuleSACN {
			t.Fatalf("expected ModuleSACN, got %v", report.Name)
		}
		if report.Status != supervisor.StatusOperational {
			t.Fatalf("expected operational status, got %v", report.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a moduleStatus report")
	}
}

func TestSendAllPublishesErroredOnWriteFailure(t *testing.T) {
	bus := eventbus.New(testLogger())
	sub := bus.Subscribe(eventbus.TopicModuleStatus)

	s := New("127.0.0.1:5568", bus, testLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	defer s.Stop()
	s.Set(1, 1, 1)
	// Close the underlying socket up front so the transmit write fails,
	// forcing sendAll into its faulted path without real network-level
	// fault injection.
	_ = s.conn.Close()

	s.sendAll()

	select {
	case evt := <-sub:
		report := evt.Data.(supervisor.Report)
		if report.Name != supervisor.ModuleSACN {
			t.Fatalf("expected ModuleSACN, got %v", report.Name)
		}
		if report.Status != supervisor.StatusErrored {
			t.Fatalf("expected errored status on write failure, got %v", report.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a moduleStatus report")
	}
}
