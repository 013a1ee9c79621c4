// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package supervisor

import (
	"log/slog"
	"sync"
	"time"

	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/metrics"
)

// WhiteBackupArmer arms or disarms the sACN white-backup failsafe.
type WhiteBackupArmer interface {
	SetWhiteBackupMode(on bool)
}

// LEDWriter writes the current summary color to the front-panel LED.
type LEDWriter interface {
	Write(color LEDColor) error
}

// trackedModule holds the last-seen report and the sticky-dwell deadline
// for one module.
type trackedModule struct {
	report      Report
	stickyUntil time.Time
}

// Supervisor aggregates module status reports into an overall status and
// LED color on a fixed cadence.
type Supervisor struct {
	mu      sync.Mutex
	modules map[Module]*trackedModule

	bus    *eventbus.Bus
	dmx    WhiteBackupArmer
	led    LEDWriter
	logger *slog.Logger

	overall  OverallStatus
	ledColor LEDColor

	done chan struct{}
}

// New constructs a Supervisor subscribed to the bus's moduleStatus topic.
func New(bus *eventbus.Bus, dmx WhiteBackupArmer, led LEDWriter, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		modules: make(map[Module]*trackedModule),
		bus:     bus,
		dmx:     dmx,
		led:     led,
		logger:  logger,
		overall: OverallUnknown,
		done:    make(chan struct{}),
	}
}

// Start subscribes to moduleStatus events and begins the 2s aggregation
// tick.
func (s *Supervisor) Start() {
	sub := s.bus.Subscribe(eventbus.TopicModuleStatus)
	go s.consumeReports(sub)
	go s.tickLoop()
}

// Stop halts the tick loop.
func (s *Supervisor) Stop() {
	close(s.done)
}

func (s *Supervisor) consumeReports(sub <-chan eventbus.Event) {
	for {
		select {
		case <-s.done:
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			report, ok := evt.Data.(Report)
			if !ok {
				continue
			}
			s.record(report)
		}
	}
}

func (s *Supervisor) record(report Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.modules[report.Name]
	if ok && report.Status == StatusOperational && now().Before(existing.stickyUntil) {
		s.logger.Debug("ignoring operational report during sticky window", "module", report.Name)
		return
	}

	tm := &trackedModule{report: report}
	if report.Status == StatusErrored || report.Status == StatusDegraded {
		tm.stickyUntil = now().Add(stickyWindow)
	}
	s.modules[report.Name] = tm

	operational := 0.0
	if report.Status == StatusOperational || report.Status == StatusOnline {
		operational = 1.0
	}
	metrics.ModuleStatus.WithLabelValues(string(report.Name)).Set(operational)
}

func (s *Supervisor) tickLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick marks unresponsive modules, applies the cascading decision rules,
// and writes the LED.
func (s *Supervisor) tick() {
	s.mu.Lock()
	s.markUnresponsive()
	overall, color, armWhiteBackup := decide(s.modules)
	s.overall = overall
	s.ledColor = color
	s.mu.Unlock()

	s.dmx.SetWhiteBackupMode(armWhiteBackup)
	armedValue := 0.0
	if armWhiteBackup {
		armedValue = 1.0
	}
	metrics.WhiteBackupArmed.Set(armedValue)
	if err := s.led.Write(color); err != nil {
		s.logger.Warn("led write failed", "error", err)
	}
	s.bus.Publish(eventbus.TopicSystemStatusUpdate, overall)
}

func (s *Supervisor) markUnresponsive() {
	cutoff := now().Add(-unresponsiveAfter)
	for name, tm := range s.modules {
		if tm.report.OneShot {
			continue
		}
		if tm.report.Timestamp.Before(cutoff) && tm.report.Status != StatusUnresponsive {
			tm.report.Status = StatusUnresponsive
			s.modules[name] = tm
		}
	}
}

// decide implements the cascading first-match-wins rules of spec.md §4.8.
func decide(modules map[Module]*trackedModule) (OverallStatus, LEDColor, bool) {
	statusOf := func(m Module) Status {
		tm, ok := modules[m]
		if !ok {
			return ""
		}
		return tm.report.Status
	}

	if statusOf(ModuleSACN) == StatusErrored {
		return OverallErrored, LEDRed, false
	}

	if statusOf(ModuleScheduler) == StatusErrored || statusOf(ModuleFixturePatch) == StatusErrored {
		return OverallWhite, LEDCyan, true
	}

	if statusOf(ModuleScheduler) == StatusDegraded || statusOf(ModuleFixturePatch) == StatusDegraded ||
		statusOf(ModuleConfigManager) == StatusErrored || statusOf(ModuleSupervisor) == StatusErrored ||
		statusOf(ModuleNetwork) == StatusErrored {
		return OverallDegraded, LEDBlue, false
	}

	if statusOf(ModuleNetwork) == StatusOnline {
		return OverallOnline, LEDRainbow, false
	}

	if statusOf(ModuleNetwork) == StatusOffline {
		return OverallOffline, LEDPurple, false
	}

	return OverallUnknown, LEDRainbow, false
}

// Overall returns the current aggregate status and LED color.
func (s *Supervisor) Overall() (OverallStatus, LEDColor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overall, s.ledColor
}

var now = time.Now
