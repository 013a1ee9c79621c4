// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package scheduler layers the weekly timetable, date-windowed custom
// blocks, sensor-driven overrides, and operator web overrides into the
// final per-zone show assignment, on a 1s cadence plus every senseData
// event.
package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"dmx-gateway/internal/clock"
	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/metrics"
	"dmx-gateway/internal/model"
	"dmx-gateway/internal/supervisor"
)

// Configuration is the read-only subset the Scheduler needs.
type Configuration interface {
	ScheduleBlocks() []model.ScheduleBlock
	EventBlocks() []model.EventBlock
	CustomBlocks() []model.CustomBlock
	Overrides() []model.Override
	WebOverrides() []model.WebOverride
	AttitudeSenses() []model.SensorConfig
}

// ConfigSource returns the current configuration snapshot.
type ConfigSource func() Configuration

// SensorCache resolves a sensor's cached 16-port state.
type SensorCache interface {
	GetPortData(id int) [16]bool
}

// ClockSource returns the current wall-clock snapshot in the device's
// configured timezone.
type ClockSource func() clock.Snapshot

// Scheduler computes the composited final show-id vector.
type Scheduler struct {
	cfg    ConfigSource
	cache  SensorCache
	now    ClockSource
	bus    *eventbus.Bus
	logger *slog.Logger

	mu     sync.Mutex
	pulses map[[2]int]*model.PulseTimer

	resultMu sync.RWMutex
	result   model.ShowIDVector
	degraded bool

	stopChan chan struct{}
	running  bool
}

// New constructs a Scheduler.
func New(cfg ConfigSource, cache SensorCache, now ClockSource, bus *eventbus.Bus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		cache:    cache,
		now:      now,
		bus:      bus,
		logger:   logger,
		pulses:   make(map[[2]int]*model.PulseTimer),
		stopChan: make(chan struct{}),
	}
}

// Start begins the 1s tick loop and the senseData-triggered extra tick.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	sense := s.bus.Subscribe(eventbus.TopicSenseData)
	go s.loop(sense)
	s.logger.Info("scheduler started")
}

// Stop halts the tick loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(sense <-chan eventbus.Event) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Tick()
		case _, ok := <-sense:
			if !ok {
				return
			}
			s.Tick()
		}
	}
}

// Result returns the most recently computed final show-id vector.
func (s *Scheduler) Result() model.ShowIDVector {
	s.resultMu.RLock()
	defer s.resultMu.RUnlock()
	return s.result
}

// Degraded reports whether the most recent tick had to fall back any
// layer to all-zeros.
func (s *Scheduler) Degraded() bool {
	s.resultMu.RLock()
	defer s.resultMu.RUnlock()
	return s.degraded
}

// Tick recomputes the final vector from the current configuration
// snapshot and sensor cache, publishing a moduleStatus report describing
// the outcome.
func (s *Scheduler) Tick() {
	cfg := s.cfg()
	now := s.now()

	weekly, weeklyErr := s.weeklyLayer(cfg, now)
	custom, customErr := s.customLayer(cfg, now)
	sensor, sensorErr := s.sensorOverrideLayer(cfg)
	web, webErr := s.webOverrideLayer(cfg)

	// A layer that errored is reset to all-zeros (transparent) rather than
	// contributing whatever it managed to compose before failing, per
	// spec.md §4.3.
	if weeklyErr != nil {
		weekly = model.ShowIDVector{}
	}
	if customErr != nil {
		custom = model.ShowIDVector{}
	}
	if sensorErr != nil {
		sensor = model.ShowIDVector{}
	}
	if webErr != nil {
		web = model.ShowIDVector{}
	}

	result := model.Layer(weekly, custom)
	result = model.Layer(result, sensor)
	result = model.Layer(result, web)

	// customLayer structurally never fails (it only skips invalid blocks),
	// so "every layer that can fail has failed" is judged over the other
	// three.
	fallible := [...]error{weeklyErr, sensorErr, webErr}
	failedLayers := 0
	for _, err := range fallible {
		if err != nil {
			failedLayers++
			s.logger.Warn("scheduler layer degraded", "error", err)
		}
	}
	degraded := failedLayers > 0 || customErr != nil

	s.resultMu.Lock()
	s.result = result
	s.degraded = degraded
	s.resultMu.Unlock()

	s.mu.Lock()
	pulseCount := len(s.pulses)
	s.mu.Unlock()
	metrics.PulseTimerCount.Set(float64(pulseCount))

	// Every fallible layer failing means the tick produced no real output
	// at all (an all-zero vector), not merely a degraded composite: report
	// it as errored so the Supervisor's rule 2 (arm white-backup) can fire.
	status := supervisor.StatusOperational
	switch {
	case failedLayers == len(fallible):
		status = supervisor.StatusErrored
	case degraded:
		status = supervisor.StatusDegraded
	}
	s.bus.Publish(eventbus.TopicModuleStatus, supervisor.Report{
		Name:      supervisor.ModuleScheduler,
		Status:    status,
		Timestamp: time.Now(),
	})
}

// weeklyLayer finds the unique ScheduleBlock covering now and copies its
// EventBlock's showdata, or an all-zero vector if none covers it.
func (s *Scheduler) weeklyLayer(cfg Configuration, now clock.Snapshot) (model.ShowIDVector, error) {
	for _, block := range cfg.ScheduleBlocks() {
		if !block.Active(now.Weekday, now.Hour) {
			continue
		}
		for _, eb := range cfg.EventBlocks() {
			if eb.ID == block.EventBlockID {
				return eb.ShowData, nil
			}
		}
		return model.ShowIDVector{}, fmt.Errorf("weekly: event block %d not found", block.EventBlockID)
	}
	return model.ShowIDVector{}, nil
}

// customLayer composes every currently-active CustomBlock, later blocks
// overriding earlier ones.
func (s *Scheduler) customLayer(cfg Configuration, now clock.Snapshot) (model.ShowIDVector, error) {
	curMD := now.MonthDay()
	nowMinutes := now.MinuteOfDay()

	var out model.ShowIDVector
	for _, block := range cfg.CustomBlocks() {
		if block.Legacy {
			s.logger.Warn("skipping legacy-shape custom block", "name", block.Name)
			continue
		}
		if !block.InDateRange(curMD) {
			continue
		}
		if !block.InTimeWindow(nowMinutes) {
			continue
		}
		out = model.Layer(out, block.ShowData)
	}
	return out, nil
}

type rankedPort struct {
	index    int
	cfg      model.SensorPortConfig
	asserted bool
}

// sensorOverrideLayer processes every configured sensor's ports in
// ascending-priority order (ties broken by descending original index),
// handling toggle and pulse modes per spec.md §4.3.
func (s *Scheduler) sensorOverrideLayer(cfg Configuration) (model.ShowIDVector, error) {
	var out model.ShowIDVector
	var firstErr error
	nowUnix := time.Now().Unix()

	for _, sense := range cfg.AttitudeSenses() {
		ports := s.cache.GetPortData(sense.ID)

		for _, p := range rankPorts(sense, ports) {
			if p.cfg.OverrideID <= 0 {
				continue
			}
			key := [2]int{sense.ID, p.cfg.PortNumber}

			switch p.cfg.Mode {
			case model.PortToggle:
				if !p.asserted {
					continue
				}
				vec, err := lookupOverride(cfg, p.cfg.OverrideID)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				out = model.Layer(out, vec)

			case model.PortPulse:
				if p.asserted {
					dur, err := pulseDuration(p.cfg.TimeLength, p.cfg.TimeMode)
					if err != nil {
						if firstErr == nil {
							firstErr = err
						}
					} else {
						s.mu.Lock()
						s.pulses[key] = &model.PulseTimer{
							SenseID:     sense.ID,
							PortNumber:  p.cfg.PortNumber,
							ActiveUntil: nowUnix + int64(dur.Seconds()),
						}
						s.mu.Unlock()
					}
				}

				s.mu.Lock()
				timer, ok := s.pulses[key]
				s.mu.Unlock()
				if !ok {
					continue
				}
				if nowUnix >= timer.ActiveUntil {
					s.mu.Lock()
					delete(s.pulses, key)
					s.mu.Unlock()
					continue
				}
				vec, err := lookupOverride(cfg, p.cfg.OverrideID)
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				out = model.Layer(out, vec)
			}
		}
	}

	return out, firstErr
}

func rankPorts(sense model.SensorConfig, ports [16]bool) []rankedPort {
	ranked := make([]rankedPort, len(sense.Data))
	for i, cfg := range sense.Data {
		asserted := i < len(ports) && ports[i]
		cfg.PortNumber = i + 1
		ranked[i] = rankedPort{index: i, cfg: cfg, asserted: asserted}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := priorityOf(ranked[a].cfg), priorityOf(ranked[b].cfg)
		if pa != pb {
			return pa < pb
		}
		return ranked[a].index > ranked[b].index
	})
	return ranked
}

const maxPriority = int(^uint(0) >> 1)

func priorityOf(cfg model.SensorPortConfig) int {
	if cfg.Priority == nil {
		return maxPriority
	}
	return *cfg.Priority
}

func pulseDuration(length int, unit model.TimeUnit) (time.Duration, error) {
	if length <= 0 {
		return 0, fmt.Errorf("invalid pulse timeLength %d", length)
	}
	switch unit {
	case model.TimeSec:
		return time.Duration(length) * time.Second, nil
	case model.TimeMin:
		return time.Duration(length) * time.Minute, nil
	case model.TimeHour:
		return time.Duration(length) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid pulse timeMode %q", unit)
	}
}

// webOverrideLayer walks configured WebOverrides in reverse order, per
// spec.md §4.3.
func (s *Scheduler) webOverrideLayer(cfg Configuration) (model.ShowIDVector, error) {
	var out model.ShowIDVector
	var firstErr error
	overrides := cfg.WebOverrides()

	for i := len(overrides) - 1; i >= 0; i-- {
		wo := overrides[i]
		if !wo.Active || wo.OverrideID <= 0 {
			continue
		}
		vec, err := lookupOverride(cfg, wo.OverrideID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = model.Layer(out, vec)
	}
	return out, firstErr
}

func lookupOverride(cfg Configuration, id int) (model.ShowIDVector, error) {
	for _, o := range cfg.Overrides() {
		if o.ID == id {
			return model.ParseShowsData(o.ShowsData)
		}
	}
	return model.ShowIDVector{}, fmt.Errorf("override %d not found", id)
}
