// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package modbus exposes a read-only Modbus TCP telemetry surface: one
// universe's current DMX channel values as holding registers, and overall
// system status as coils. Like internal/telemetry, this never accepts
// inbound control — register/coil writes are not registered.
package modbus

import (
	"encoding/binary"
	"log/slog"

	"github.com/tbrandon/mbserver"

	"dmx-gateway/internal/sacn"
	"dmx-gateway/internal/supervisor"
)

// Config configures the Modbus TCP listener.
type Config struct {
	Port     string `yaml:"port"` // ":502" or ":5020"
	Universe int    `yaml:"universe"`
}

// StatusSource reports the supervisor's current aggregate state.
type StatusSource interface {
	Overall() (supervisor.OverallStatus, supervisor.LEDColor)
}

// Server is the read-only Modbus TCP telemetry server.
//
// Register mapping:
//   - Holding registers 0-511 = DMX channels 1-512 of cfg.Universe (0-255)
//   - Coil 0 = overall status online
//   - Coil 1 = white-backup failsafe armed
type Server struct {
	cfg    *Config
	sacn   *sacn.Service
	status StatusSource
	logger *slog.Logger
	mb     *mbserver.Server
}

// NewServer creates a Modbus TCP telemetry server.
func NewServer(cfg *Config, svc *sacn.Service, status StatusSource, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, sacn: svc, status: status, logger: logger}
}

// Start starts the Modbus TCP server.
func (s *Server) Start() error {
	s.mb = mbserver.NewServer()

	s.mb.RegisterFunctionHandler(3, s.handleReadHoldingRegisters) // FC03
	s.mb.RegisterFunctionHandler(1, s.handleReadCoils)             // FC01

	addr := s.cfg.Port
	if addr == "" {
		addr = ":502"
	}

	s.logger.Info("modbus telemetry server starting", "addr", addr, "universe", s.cfg.Universe)

	go func() {
		if err := s.mb.ListenTCP(addr); err != nil {
			s.logger.Error("modbus TCP server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the Modbus TCP server.
func (s *Server) Stop() {
	if s.mb != nil {
		s.mb.Close()
		s.logger.Info("modbus telemetry server stopped")
	}
}

// handleReadHoldingRegisters serves FC03, one register per DMX slot.
func (s *Server) handleReadHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])

	if uint32(startAddr)+uint32(quantity) > sacn.UniverseSize {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	slots := s.sacn.Snapshot(s.cfg.Universe)

	resp := make([]byte, 1+quantity*2)
	resp[0] = byte(quantity * 2)

	for i := uint16(0); i < quantity; i++ {
		val := uint16(slots[startAddr+i])
		binary.BigEndian.PutUint16(resp[1+i*2:], val)
	}

	return resp, &mbserver.Success
}

// handleReadCoils serves FC01: coil 0 online, coil 1 white-backup armed.
func (s *Server) handleReadCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])

	if startAddr+quantity > 2 {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	overall, _ := s.status.Overall()

	var coils byte
	if overall == supervisor.OverallOnline {
		coils |= 0x01
	}
	if overall == supervisor.OverallWhite {
		coils |= 0x02
	}

	return []byte{1, coils}, &mbserver.Success
}
