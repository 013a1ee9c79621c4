// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package enginepool

import (
	"log/slog"
	"os"
	"testing"

	"dmx-gateway/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func lookupFixed(shows map[int]model.Show) ShowLookup {
	return func(id int) (model.Show, bool) {
		s, ok := shows[id]
		return s, ok
	}
}

func TestReconcileCreatesMissingEngines(t *testing.T) {
	p := New(testLogger(), 1)
	gray := model.DefaultGray()
	gray.ID = 5
	shows := map[int]model.Show{5: gray}

	p.Reconcile([]int{5}, lookupFixed(shows))

	if p.Size() != 1 {
		t.Fatalf("expected 1 engine, got %d", p.Size())
	}
	if p.Get(5) == nil {
		t.Fatal("expected engine for id 5")
	}
}

func TestReconcileRemovesStaleEngines(t *testing.T) {
	p := New(testLogger(), 1)
	shows := map[int]model.Show{5: model.DefaultGray(), 6: model.DefaultGray()}

	p.Reconcile([]int{5, 6}, lookupFixed(shows))
	if p.Size() != 2 {
		t.Fatalf("expected 2 engines, got %d", p.Size())
	}

	p.Reconcile([]int{5}, lookupFixed(shows))
	if p.Size() != 1 {
		t.Fatalf("expected 1 engine after reconcile, got %d", p.Size())
	}
	if p.Get(6) != nil {
		t.Fatal("expected id 6 engine to be removed")
	}
}

func TestReconcileUnknownShowFallsBackToGray(t *testing.T) {
	p := New(testLogger(), 1)
	p.Reconcile([]int{42}, lookupFixed(nil))

	if p.Size() != 1 {
		t.Fatalf("expected fallback engine to be created, got %d engines", p.Size())
	}
}

func TestReconcileIgnoresZeroID(t *testing.T) {
	p := New(testLogger(), 1)
	p.Reconcile([]int{0}, lookupFixed(nil))
	if p.Size() != 0 {
		t.Fatalf("expected no engine for id 0, got %d", p.Size())
	}
}
