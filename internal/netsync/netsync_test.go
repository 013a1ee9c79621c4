// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package netsync

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/supervisor"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(os.Stderr, nil)) }

func drainModuleStatus(bus *eventbus.Bus) <-chan eventbus.Event {
	return bus.Subscribe(eventbus.TopicModuleStatus)
}

func TestTaskPublishesOnlineWhenCheckerSucceeds(t *testing.T) {
	bus := eventbus.New(testLogger())
	sub := drainModuleStatus(bus)
	task := NewWithChecker(bus, testLogger(), func() bool { return true })

	task.tick()

	select {
	case evt := <-sub:
		report, ok := evt.Data.(supervisor.Report)
		if !ok {
			t.Fatalf("expected supervisor.Report, got %T", evt.Data)
		}
		if report.Name != supervisor.ModuleNetwork {
			t.Fatalf("expected ModuleNetwork, got %v", report.Name)
		}
		if report.Status != supervisor.StatusOnline {
			t.Fatalf("expected online, got %v", report.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a moduleStatus report")
	}
}

func TestTaskPublishesOfflineWhenCheckerFails(t *testing.T) {
	bus := eventbus.New(testLogger())
	sub := drainModuleStatus(bus)
	task := NewWithChecker(bus, testLogger(), func() bool { return false })

	task.tick()

	select {
	case evt := <-sub:
		report := evt.Data.(supervisor.Report)
		if report.Status != supervisor.StatusOffline {
			t.Fatalf("expected offline, got %v", report.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a moduleStatus report")
	}
}

func TestStartStopDoesNotPanic(t *testing.T) {
	bus := eventbus.New(testLogger())
	task := NewWithChecker(bus, testLogger(), func() bool { return true })
	task.Start()
	task.Stop()
}
