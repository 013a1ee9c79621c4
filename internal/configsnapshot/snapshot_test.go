// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package configsnapshot

import (
	"os"
	"path/filepath"
	"testing"
)

const testDoc = `
device_timezone: "America/Chicago"
assigned_to_location: true
log_level: "info"
zones:
  - number: 1
    groups: ["a", "b"]
shows:
  - id: 7
    engine_version: "2A"
    show_type: "static"
    direction: "lr"
    speed: 60
    size: 50
    splits: 1
    transition: "both"
    colors:
      - r: 10
        g: 20
        b: 30
attitude_senses:
  - id: 3
    data:
      - mode: "toggle"
        override_id: 1
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testDoc), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestNewStoreLoadsDocument(t *testing.T) {
	path := writeTestConfig(t)
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	snap := store.Get()
	if snap.DeviceTimezone() != "America/Chicago" {
		t.Errorf("unexpected timezone: %s", snap.DeviceTimezone())
	}
	if !snap.AssignedToLocation() {
		t.Error("expected assigned_to_location=true")
	}
	if len(snap.Zones()) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(snap.Zones()))
	}
}

func TestSnapshotShowLookup(t *testing.T) {
	path := writeTestConfig(t)
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	snap := store.Get()

	show, ok := snap.Show(7)
	if !ok {
		t.Fatal("expected show id 7 to resolve")
	}
	if show.Colors[0].R != 10 {
		t.Errorf("unexpected show data: %+v", show)
	}

	if _, ok := snap.Show(999); ok {
		t.Error("expected unknown show id to miss")
	}
}

func TestSnapshotAssignsSensorPortNumbers(t *testing.T) {
	path := writeTestConfig(t)
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	snap := store.Get()

	senses := snap.AttitudeSenses()
	if len(senses) != 1 || len(senses[0].Data) != 1 {
		t.Fatalf("unexpected sensor config: %+v", senses)
	}
	if senses[0].Data[0].PortNumber != 1 {
		t.Errorf("expected port 1, got %d", senses[0].Data[0].PortNumber)
	}
}

func TestReloadSwapsSnapshotAtomically(t *testing.T) {
	path := writeTestConfig(t)
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	first := store.Get()

	if err := os.WriteFile(path, []byte(testDoc+"\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	second := store.Get()
	if first == second {
		t.Error("expected Reload to produce a new Snapshot instance")
	}
}

func TestReloadKeepsPreviousSnapshotOnParseError(t *testing.T) {
	path := writeTestConfig(t)
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	first := store.Get()

	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	if err := store.Reload(); err == nil {
		t.Fatal("expected Reload to fail on invalid YAML")
	}

	if store.Get() != first {
		t.Error("expected snapshot to remain unchanged after failed reload")
	}
}
