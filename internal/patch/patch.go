// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package patch runs the fixture-patch tick: it maps the Scheduler's final
// show-id vector through the engine pool and fixture configuration into
// DMX slot writes, per spec.md §4.6.
package patch

import (
	"log/slog"
	"time"

	"dmx-gateway/internal/enginepool"
	"dmx-gateway/internal/eventbus"
	"dmx-gateway/internal/model"
	"dmx-gateway/internal/supervisor"
)

// DMXWriter receives one slot write. Implemented by the sACN universe
// buffers.
type DMXWriter interface {
	Set(universe, channel int, value uint8)
	SetAllUniverses(value uint8)
}

// Configuration is the read-only subset the patch tick needs.
type Configuration interface {
	Zones() []model.Zone
	Fixtures() []model.Fixture
	FixtureTypes() []model.FixtureType
	AssignedToLocation() bool
}

// Patch runs the fixture-expansion and DMX-write tick.
type Patch struct {
	cfg    Configuration
	pool   *enginepool.Pool
	dmx    DMXWriter
	bus    *eventbus.Bus
	logger *slog.Logger
}

// New constructs a Patch. bus may be nil, in which case moduleStatus
// reports are not published (used by tests).
func New(cfg Configuration, pool *enginepool.Pool, dmx DMXWriter, bus *eventbus.Bus, logger *slog.Logger) *Patch {
	return &Patch{cfg: cfg, pool: pool, dmx: dmx, bus: bus, logger: logger}
}

// Run executes one 25ms fixture tick against the given final show-id
// vector. If the device is unassigned to a location it writes the
// all-255 failsafe and returns.
func (p *Patch) Run(shows model.ShowIDVector) {
	if !p.cfg.AssignedToLocation() {
		p.dmx.SetAllUniverses(255)
		return
	}

	fixturesByZoneGroup := indexFixtures(p.cfg.Fixtures())
	types := indexTypes(p.cfg.FixtureTypes())

	var faulted bool
	for _, zone := range p.cfg.Zones() {
		if zone.Number < 1 || zone.Number > model.MaxZones {
			continue
		}
		slot := shows[zone.Number-1]
		if p.renderZone(zone, slot, fixturesByZoneGroup, types) {
			faulted = true
		}
	}

	p.reportStatus(faulted)
}

func (p *Patch) renderZone(zone model.Zone, slot model.ShowSlot, fixturesByZoneGroup map[[2]int][]model.Fixture, types map[int]model.FixtureType) bool {
	grouped := slot.Groups != nil && len(zone.Groups) > 0
	if grouped {
		var faulted bool
		for g, showID := range slot.Groups {
			groupNum := g + 1
			if p.renderFixtureSet(fixturesByZoneGroup[[2]int{zone.Number, groupNum}], showID, types) {
				faulted = true
			}
		}
		return faulted
	}

	showID := slot.ScalarOrGroup0()
	// Ungrouped zone: every fixture regardless of group number.
	var faulted bool
	for key, fixtures := range fixturesByZoneGroup {
		if key[0] == zone.Number {
			if p.renderFixtureSet(fixtures, showID, types) {
				faulted = true
			}
		}
	}
	return faulted
}

func (p *Patch) renderFixtureSet(fixtures []model.Fixture, showID int, types map[int]model.FixtureType) bool {
	var faulted bool
	for _, f := range fixtures {
		ft, ok := types[f.Type]
		if !ok {
			p.logger.Warn("unknown fixture type, skipping", "type", f.Type)
			faulted = true
			continue
		}
		segments := ExpandSegments(f, ft)

		var engColors func(i int) model.Color
		if showID == 0 {
			engColors = func(i int) model.Color { return model.Color{} }
		} else {
			e := p.pool.Get(showID)
			if e == nil {
				engColors = func(i int) model.Color { return model.Color{} }
			} else {
				e.SetFixtureCount(len(segments))
				engColors = e.GetFixtureColor
			}
		}

		for i, seg := range segments {
			c := engColors(i)
			if err := writeSegment(p.dmx, seg, c); err != nil {
				p.logger.Warn("degraded zone: unsupported color mode", "zone", f.ZoneNumber, "error", err)
				faulted = true
			}
		}
	}
	return faulted
}

// reportStatus publishes the fixture-patch tick's moduleStatus: errored
// when any fixture this tick hit an unknown type or unsupported color
// mode, per spec.md §4.8 rule 2 (fixture-patch errored arms white-backup).
func (p *Patch) reportStatus(faulted bool) {
	if p.bus == nil {
		return
	}
	status := supervisor.StatusOperational
	if faulted {
		status = supervisor.StatusErrored
	}
	p.bus.Publish(eventbus.TopicModuleStatus, supervisor.Report{
		Name:      supervisor.ModuleFixturePatch,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func writeSegment(dmx DMXWriter, seg model.DMXSegment, c model.Color) error {
	switch seg.ColorMode {
	case model.ColorRGB:
		dmx.Set(seg.Universe, seg.StartAddress, c.R)
		dmx.Set(seg.Universe, seg.StartAddress+1, c.G)
		dmx.Set(seg.Universe, seg.StartAddress+2, c.B)
	case model.ColorRGBW:
		dmx.Set(seg.Universe, seg.StartAddress, c.R)
		dmx.Set(seg.Universe, seg.StartAddress+1, c.G)
		dmx.Set(seg.Universe, seg.StartAddress+2, c.B)
		dmx.Set(seg.Universe, seg.StartAddress+3, c.White())
	default:
		return errUnsupportedColorMode(seg.ColorMode)
	}
	return nil
}

type errUnsupportedColorMode model.ColorSpace

func (e errUnsupportedColorMode) Error() string {
	return "unsupported color mode: " + string(e)
}

// ExpandSegments expands one fixture into its DMX segments, per spec.md
// §4.6's multicountonefixture / segments>1 / single-segment rules.
func ExpandSegments(f model.Fixture, ft model.FixtureType) []model.DMXSegment {
	offset := ft.Channels / maxInt(ft.Segments, 1)

	var count int
	switch {
	case ft.MultiCountOneFixture:
		count = f.Quantity
	case ft.Segments > 1:
		count = ft.Segments
	default:
		count = 1
	}
	if count < 1 {
		count = 1
	}

	segments := make([]model.DMXSegment, count)
	for i := 0; i < count; i++ {
		segments[i] = model.DMXSegment{
			Universe:     f.Universe,
			StartAddress: f.StartAddress + i*offset,
			ColorMode:    ft.Color,
		}
	}
	return segments
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func indexFixtures(fixtures []model.Fixture) map[[2]int][]model.Fixture {
	out := make(map[[2]int][]model.Fixture)
	for _, f := range fixtures {
		key := [2]int{f.ZoneNumber, f.GroupNumber}
		out[key] = append(out[key], f)
	}
	return out
}

func indexTypes(types []model.FixtureType) map[int]model.FixtureType {
	out := make(map[int]model.FixtureType, len(types))
	for _, t := range types {
		out[t.ID] = t
	}
	return out
}
