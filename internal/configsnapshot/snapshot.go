// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package configsnapshot

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"dmx-gateway/internal/model"
)

// Snapshot is an immutable, atomically-swappable view of the device's
// configuration document. A fresh load never mutates one already in use
// by a running tick — callers always read a Snapshot through the pointer
// returned by Store.Get(), which requires no further locking.
type Snapshot struct {
	doc Document

	showsByID map[int]model.Show
}

func newSnapshot(doc Document) *Snapshot {
	s := &Snapshot{doc: doc, showsByID: make(map[int]model.Show, len(doc.Shows))}
	for _, show := range doc.Shows {
		s.showsByID[show.ID] = show
	}
	for i := range s.doc.AttitudeSenses {
		sense := &s.doc.AttitudeSenses[i]
		for p := range sense.Data {
			sense.Data[p].PortNumber = p + 1
		}
	}
	return s
}

// Zones implements patch.Configuration and scheduler.Configuration.
func (s *Snapshot) Zones() []model.Zone { return s.doc.Zones }

// Fixtures implements patch.Configuration.
func (s *Snapshot) Fixtures() []model.Fixture { return s.doc.Fixtures }

// FixtureTypes implements patch.Configuration.
func (s *Snapshot) FixtureTypes() []model.FixtureType { return s.doc.FixtureTypes }

// AssignedToLocation implements patch.Configuration.
func (s *Snapshot) AssignedToLocation() bool { return s.doc.AssignedToLocation }

// DeviceTimezone is the IANA timezone name this device's clock resolves.
func (s *Snapshot) DeviceTimezone() string { return s.doc.DeviceTimezone }

// CheckLogLevel returns the configured minimum log level name.
func (s *Snapshot) CheckLogLevel() string { return s.doc.LogLevel }

// ScheduleBlocks returns the weekly timetable.
func (s *Snapshot) ScheduleBlocks() []model.ScheduleBlock { return s.doc.ScheduleBlocks }

// EventBlocks returns the named ShowIDVectors referenced by ScheduleBlocks.
func (s *Snapshot) EventBlocks() []model.EventBlock { return s.doc.EventBlocks }

// CustomBlocks returns the date-windowed overrides.
func (s *Snapshot) CustomBlocks() []model.CustomBlock { return s.doc.CustomBlocks }

// Overrides returns the named ShowIDVectors referenced by sensor ports and
// web overrides.
func (s *Snapshot) Overrides() []model.Override { return s.doc.Overrides }

// WebOverrides returns operator-facing override toggles.
func (s *Snapshot) WebOverrides() []model.WebOverride { return s.doc.WebOverrides }

// AttitudeSenses returns the configured sensor port mappings.
func (s *Snapshot) AttitudeSenses() []model.SensorConfig { return s.doc.AttitudeSenses }

// Show resolves a show id to its configuration, for enginepool.ShowLookup.
func (s *Snapshot) Show(id int) (model.Show, bool) {
	show, ok := s.showsByID[id]
	return show, ok
}

// Store holds the current Snapshot and swaps it atomically on reload.
type Store struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore loads path once and returns a Store serving that snapshot.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	st := &Store{path: path, logger: logger}
	if err := st.Reload(); err != nil {
		return nil, err
	}
	return st, nil
}

// Reload re-reads the configuration file from disk and swaps it in
// atomically. A parse failure leaves the previous snapshot in place.
func (st *Store) Reload() error {
	data, err := os.ReadFile(st.path)
	if err != nil {
		return fmt.Errorf("read configuration file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse configuration: %w", err)
	}

	st.current.Store(newSnapshot(doc))
	if st.logger != nil {
		st.logger.Info("configuration snapshot loaded", "path", st.path, "zones", len(doc.Zones), "shows", len(doc.Shows))
	}
	return nil
}

// Get returns the currently active Snapshot.
func (st *Store) Get() *Snapshot {
	return st.current.Load()
}
