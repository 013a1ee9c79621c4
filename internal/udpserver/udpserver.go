// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package udpserver is the inbound sensor ingest endpoint: a non-blocking
// UDP listener on port 6455 that decodes JSON sensor packets, validates
// them, updates the Sensor Cache, and fans out senseData / receivedUDP
// events.
package udpserver

import (
	"encoding/json"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/sensorcache"
)

// Port is the fixed UDP listen port for sensor ingest, per spec.md §6.
const Port = 6455

// dataPattern validates a sensor packet's DATA field: 16 comma-joined
// 0/1 digits.
var dataPattern = regexp.MustCompile(`^([01],){15}[01]$`)

// packet is the on-wire JSON shape. VERSION and PACKET_NO are accepted as
// raw JSON so any scalar type satisfies "present".
type packet struct {
	Type      int             `json:"TYPE"`
	ID        *int            `json:"ID"`
	Name      *string         `json:"NAME"`
	Version   json.RawMessage `json:"VERSION"`
	PacketNo  json.RawMessage `json:"PACKET_NO"`
	Data      *string         `json:"DATA"`
}

// SenseData is the payload fanned out on eventbus.TopicSenseData.
type SenseData struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Type      int       `json:"type"`
	ID        int       `json:"id"`
	Version   string    `json:"version"`
	PacketNo  string    `json:"packet_no"`
	Data      [sensorcache.PortCount]bool `json:"data"`
}

// Server is the UDP sensor listener.
type Server struct {
	cache  *sensorcache.Cache
	bus    *eventbus.Bus
	logger *slog.Logger

	conn *net.UDPConn
	done chan struct{}
}

// New creates a Server. Call Start to bind and begin reading.
func New(cache *sensorcache.Cache, bus *eventbus.Bus, logger *slog.Logger) *Server {
	return &Server{cache: cache, bus: bus, logger: logger, done: make(chan struct{})}
}

// Start binds the UDP socket and begins reading in a background goroutine.
func (s *Server) Start() error {
	addr := &net.UDPAddr{Port: Port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return err
	}
	s.conn = conn

	go s.readLoop()
	s.logger.Info("sensor UDP listener started", "port", Port)
	return nil
}

// Stop closes the socket and stops the read goroutine.
func (s *Server) Stop() {
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Server) readLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("sensor UDP read error", "error", err)
				continue
			}
		}

		s.handleDatagram(buf[:n])
	}
}

func (s *Server) handleDatagram(raw []byte) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		s.logger.Warn("sensor UDP: invalid JSON, skipping", "error", err)
		metrics.SensorPacketsRejectedTotal.Inc()
		return
	}
	s.bus.Publish(eventbus.TopicReceivedUDP, obj)

	var p packet
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("sensor UDP: invalid packet shape, skipping", "error", err)
		metrics.SensorPacketsRejectedTotal.Inc()
		return
	}
	if p.Type != 1 {
		return // only TYPE=1 (sensor) is decoded here; TYPE=2 (emit) passes through receivedUDP only
	}
	if p.ID == nil || p.Name == nil || len(p.Version) == 0 || len(p.PacketNo) == 0 || p.Data == nil {
		s.logger.Warn("sensor UDP: missing required field, skipping")
		metrics.SensorPacketsRejectedTotal.Inc()
		return
	}
	if !dataPattern.MatchString(*p.Data) {
		s.logger.Warn("sensor UDP: DATA does not match expected shape, skipping", "data", *p.Data)
		metrics.SensorPacketsRejectedTotal.Inc()
		return
	}

	ports, err := parseData(*p.Data)
	if err != nil {
		s.logger.Warn("sensor UDP: failed to parse DATA", "error", err)
		metrics.SensorPacketsRejectedTotal.Inc()
		return
	}

	metrics.SensorPacketsTotal.Inc()
	s.cache.Update(*p.ID, ports)

	s.bus.Publish(eventbus.TopicSenseData, SenseData{
		Timestamp: time.Now(),
		Name:      *p.Name,
		Type:      p.Type,
		ID:        *p.ID,
		Version:   string(p.Version),
		PacketNo:  string(p.PacketNo),
		Data:      ports,
	})
}

func parseData(data string) ([sensorcache.PortCount]bool, error) {
	var out [sensorcache.PortCount]bool
	parts := strings.Split(data, ",")
	for i, part := range parts {
		if i >= sensorcache.PortCount {
			break
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return out, err
		}
		out[i] = v == 1
	}
	return out, nil
}
