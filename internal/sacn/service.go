// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sacn

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/supervisor"
)

// SendInterval is the fixed, unconditional sACN transmit cadence.
const SendInterval = 24 * time.Millisecond

// Service owns one 512-slot buffer per universe and transmits them
// unconditionally every SendInterval, regardless of whether a frame
// changed.
type Service struct {
	mu sync.Mutex

	id         cid
	universes  map[int]*universe
	whiteBackup bool

	destAddr string
	conn     *net.UDPConn
	bus      *eventbus.Bus
	logger   *slog.Logger

	done chan struct{}
}

type universe struct {
	slots    [UniverseSize]byte
	sequence uint8
}

// New constructs a Service. destAddr is the unicast or broadcast UDP
// destination (host:port) packets are sent to. bus may be nil, in which
// case moduleStatus reports are not published (used by tests).
func New(destAddr string, bus *eventbus.Bus, logger *slog.Logger) *Service {
	return &Service{
		id:        randomCID(),
		universes: make(map[int]*universe),
		destAddr:  destAddr,
		bus:       bus,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

func randomCID() cid {
	var c cid
	_, _ = rand.Read(c[:])
	return c
}

// Start opens the UDP socket and begins the transmit loop.
func (s *Service) Start() error {
	addr, err := net.ResolveUDPAddr("udp4", s.destAddr)
	if err != nil {
		return fmt.Errorf("resolve sacn destination: %w", err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("dial sacn destination: %w", err)
	}
	s.conn = conn

	s.logger.Info("sacn service started", "destination", s.destAddr)
	go s.transmitLoop()
	return nil
}

// Stop halts the transmit loop and closes the socket.
func (s *Service) Stop() {
	close(s.done)
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Service) transmitLoop() {
	ticker := time.NewTicker(SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sendAll()
		}
	}
}

func (s *Service) sendAll() {
	s.mu.Lock()
	var faulted bool
	for num, u := range s.universes {
		slots := u.slots
		if s.whiteBackup {
			for i := range slots {
				slots[i] = 255
			}
		}
		u.sequence++
		packet := BuildPacket(s.id, num, u.sequence, slots[:], false)
		universeLabel := strconv.Itoa(num)
		if _, err := s.conn.Write(packet); err != nil {
			s.logger.Warn("sacn send failed", "universe", num, "error", err)
			metrics.SACNSendErrorsTotal.WithLabelValues(universeLabel).Inc()
			faulted = true
			continue
		}
		metrics.SACNFramesTotal.WithLabelValues(universeLabel).Inc()
	}
	s.mu.Unlock()

	s.reportStatus(faulted)
}

// reportStatus publishes the sACN transmitter's moduleStatus: errored when
// the last transmit round dropped at least one universe's packet, per
// spec.md §4.8 rule 1 (sACN errored forces the overall status red).
func (s *Service) reportStatus(faulted bool) {
	if s.bus == nil {
		return
	}
	status := supervisor.StatusOperational
	if faulted {
		status = supervisor.StatusErrored
	}
	s.bus.Publish(eventbus.TopicModuleStatus, supervisor.Report{
		Name:      supervisor.ModuleSACN,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// Set writes one DMX slot. universeNum is 1-based within [1,MaxUniverse],
// channel is 1-based within [1,UniverseSize]. Out-of-range writes are
// dropped silently, matching a torn/ignored write on real hardware.
func (s *Service) Set(universeNum, channel int, value byte) {
	if universeNum < 1 || universeNum > MaxUniverse {
		return
	}
	if channel < 1 || channel > UniverseSize {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.universeFor(universeNum)
	u.slots[channel-1] = value
}

// SetAllUniverses writes value to every slot of every known universe, used
// for the unassigned-device failsafe and the Supervisor's white-backup
// arm.
func (s *Service) SetAllUniverses(value byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.universes {
		for i := range u.slots {
			u.slots[i] = value
		}
	}
}

// SetWhiteBackupMode arms or disarms the Supervisor's failsafe: while
// armed, every outgoing packet forces all slots to 255 regardless of the
// underlying buffer contents.
func (s *Service) SetWhiteBackupMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whiteBackup = on
}

func (s *Service) universeFor(num int) *universe {
	u, ok := s.universes[num]
	if !ok {
		u = &universe{}
		s.universes[num] = u
	}
	return u
}

// Snapshot returns a copy of a universe's current slot values, for
// telemetry and the Modbus bridge.
func (s *Service) Snapshot(universeNum int) [UniverseSize]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.universes[universeNum]
	if !ok {
		return [UniverseSize]byte{}
	}
	return u.slots
}
