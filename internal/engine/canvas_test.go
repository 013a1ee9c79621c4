// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package engine

import (
	"testing"

	"dmx-gateway/internal/model"
)

func TestExpandOrTrimTilesShortSource(t *testing.T) {
	src := []model.Color{{R: 1}, {R: 2}, {R: 3}}
	out := expandOrTrim(src, 7)
	want := []uint8{1, 2, 3, 1, 2, 3, 1}
	for i, w := range want {
		if out[i].R != w {
			t.Errorf("index %d: got %d, want %d", i, out[i].R, w)
		}
	}
}

func TestExpandOrTrimTruncatesLongSource(t *testing.T) {
	src := make([]model.Color, 10)
	for i := range src {
		src[i] = model.Color{R: uint8(i)}
	}
	out := expandOrTrim(src, 4)
	if len(out) != 4 || out[3].R != 3 {
		t.Fatalf("unexpected truncation result: %+v", out)
	}
}

func TestReverseInvertsOrder(t *testing.T) {
	src := []model.Color{{R: 1}, {R: 2}, {R: 3}}
	out := reverse(src)
	if out[0].R != 3 || out[2].R != 1 {
		t.Errorf("unexpected reverse result: %+v", out)
	}
}

func TestCirculateShiftsCyclically(t *testing.T) {
	src := []model.Color{{R: 0}, {R: 1}, {R: 2}, {R: 3}}
	out := circulate(src, 1)
	want := []uint8{3, 0, 1, 2}
	for i, w := range want {
		if out[i].R != w {
			t.Errorf("index %d: got %d, want %d", i, out[i].R, w)
		}
	}
}

func TestFadesAtBothAlwaysTrue(t *testing.T) {
	cfg := model.Show{Transition: model.TransBoth}
	if !fadesAt(0, 4, cfg) || !fadesAt(3, 4, cfg) {
		t.Error("transition=both should fade every boundary")
	}
}

func TestFadesAtLeadingPattern(t *testing.T) {
	cfg := model.Show{Transition: model.TransLeading}
	if fadesAt(0, 4, cfg) {
		t.Error("boundary 0 should not fade under leading")
	}
	if !fadesAt(1, 4, cfg) {
		t.Error("boundary 1 should fade under leading")
	}
	if !fadesAt(3, 4, cfg) {
		t.Error("last boundary should always fade under leading")
	}
}

func TestFadesAtTrailingPattern(t *testing.T) {
	cfg := model.Show{Transition: model.TransTrailing}
	if !fadesAt(0, 4, cfg) {
		t.Error("boundary 0 should fade under trailing")
	}
	if fadesAt(1, 4, cfg) {
		t.Error("boundary 1 should not fade under trailing")
	}
	if fadesAt(3, 4, cfg) {
		t.Error("last boundary should never fade under trailing")
	}
}

func TestApplyDirectionLR(t *testing.T) {
	src := []model.Color{{R: 1}, {R: 2}}
	out := applyDirection(src, model.DirLR, nil)
	if out[0].R != 1 || out[1].R != 2 {
		t.Errorf("lr should be identity, got %+v", out)
	}
}

func TestApplyDirectionMidEnd(t *testing.T) {
	src := []model.Color{{R: 1}, {R: 2}, {R: 3}, {R: 4}}
	out := applyDirection(src, model.DirMidEnd, nil)
	if len(out) != 4 {
		t.Fatalf("expected reverse(sample)+sample length 4, got %d", len(out))
	}
}

func TestValidateRejectsOutOfRangeSpeed(t *testing.T) {
	cfg := model.Show{
		ShowType: model.ShowStatic, Direction: model.DirLR,
		Speed: 5, Size: 10, Splits: 1,
		Transition: model.TransBoth, Colors: []model.Color{{}},
	}
	if err := Validate(cfg); err == nil {
		t.Error("expected error for speed below range")
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	cfg := chaseConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}
