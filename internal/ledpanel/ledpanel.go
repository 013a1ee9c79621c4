// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package ledpanel drives the front-panel LED indicator over a serial
// link: a single byte per write, one of the color tokens the Supervisor
// decides on. Writes are not repeated here; the Supervisor writes once per
// 2s aggregation tick.
package ledpanel

import (
	"io"
	"log/slog"
	"sync"

	"github.com/goburrow/serial"

	"dmx-gateway/internal/supervisor"
)

// Config holds the serial port parameters for the LED panel link.
type Config struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// DefaultConfig returns the panel's expected serial settings.
func DefaultConfig(address string) Config {
	return Config{
		Address:  address,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
	}
}

// Writer drives the panel over a serial.Port. If the port cannot be
// opened it runs in simulation mode, logging writes instead of sending
// them — matching the teacher's DMX client's fallback.
type Writer struct {
	mu     sync.Mutex
	port   io.ReadWriteCloser
	logger *slog.Logger
}

// New opens the serial port described by cfg. On failure it returns a
// Writer running in simulation mode rather than an error, since a missing
// LED panel must never prevent the rest of the device from starting.
func New(cfg Config, logger *slog.Logger) *Writer {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
	})
	if err != nil {
		logger.Warn("LED panel serial port unavailable, running in simulation mode", "address", cfg.Address, "error", err)
		return &Writer{logger: logger}
	}
	return &Writer{port: port, logger: logger}
}

// Write sends a single color token byte to the panel.
func (w *Writer) Write(color supervisor.LEDColor) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.port == nil {
		w.logger.Debug("LED panel write (simulated)", "color", string(color))
		return nil
	}

	_, err := w.port.Write([]byte{byte(color)})
	return err
}

// Close releases the serial port, if open.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.port == nil {
		return nil
	}
	return w.port.Close()
}
