// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package netsync is the network-sync-stub periodic task named in
// spec.md's concurrency model. It carries no cloud-sync payload in this
// repo (that surface is out of scope per spec.md §1) but still owns the
// one duty the Supervisor depends on it for: publishing ModuleNetwork
// online/offline reports so the Supervisor's rules 4/5 are reachable.
package netsync

import (
	"log/slog"
	"net"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/supervisor"
)

// checkInterval is the network-reachability poll cadence.
const checkInterval = 5 * time.Second

// Checker reports whether the device currently has outbound network
// reachability. The default implementation probes for a usable local
// route without sending any traffic (a UDP "connect" only consults the
// routing table).
type Checker func() bool

// Task is the network-sync-stub: polls reachability on a fixed cadence
// and publishes moduleStatus for ModuleNetwork.
type Task struct {
	bus    *eventbus.Bus
	logger *slog.Logger
	check  Checker

	done chan struct{}
}

// New constructs a Task using the default route-probe Checker.
func New(bus *eventbus.Bus, logger *slog.Logger) *Task {
	return NewWithChecker(bus, logger, DefaultChecker)
}

// NewWithChecker constructs a Task with a caller-supplied Checker, for
// tests or for swapping in a real cloud-reachability probe later.
func NewWithChecker(bus *eventbus.Bus, logger *slog.Logger, check Checker) *Task {
	return &Task{bus: bus, logger: logger, check: check, done: make(chan struct{})}
}

// Start begins the poll loop in a background goroutine.
func (t *Task) Start() {
	go t.loop()
	t.logger.Info("network-sync stub started")
}

// Stop halts the poll loop.
func (t *Task) Stop() {
	close(t.done)
}

func (t *Task) loop() {
	t.tick()
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

func (t *Task) tick() {
	status := supervisor.StatusOffline
	if t.check() {
		status = supervisor.StatusOnline
	}
	t.bus.Publish(eventbus.TopicModuleStatus, supervisor.Report{
		Name:      supervisor.ModuleNetwork,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// DefaultChecker reports reachability by opening (and immediately
// closing) a UDP socket toward a well-known external address. UDP
// "dialing" never puts a packet on the wire; it only resolves whether the
// kernel has a route, which is exactly the depth of check a stub owes.
func DefaultChecker() bool {
	conn, err := net.DialTimeout("udp4", "1.1.1.1:53", 2*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
