// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package ledpanel

import (
	"log/slog"
	"os"
	"testing"

	"dmx-gateway/internal/supervisor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestNewFallsBackToSimulationWhenPortUnavailable(t *testing.T) {
	w := New(DefaultConfig("/dev/nonexistent-led-panel"), testLogger())
	if w.port != nil {
		t.Fatal("expected simulation mode when serial port cannot be opened")
	}
}

func TestWriteInSimulationModeNeverErrors(t *testing.T) {
	w := New(DefaultConfig("/dev/nonexistent-led-panel"), testLogger())
	if err := w.Write(supervisor.LEDRainbow); err != nil {
		t.Fatalf("expected simulated write to succeed, got %v", err)
	}
}

func TestCloseOnSimulatedWriterIsNoop(t *testing.T) {
	w := New(DefaultConfig("/dev/nonexistent-led-panel"), testLogger())
	if err := w.Close(); err != nil {
		t.Fatalf("expected no-op close, got %v", err)
	}
}
