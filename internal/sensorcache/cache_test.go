// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sensorcache

import "testing"

func TestGetPortDataUnknownIsZero(t *testing.T) {
	c := New()
	got := c.GetPortData(99)
	for i, v := range got {
		if v {
			t.Errorf("port %d = true, want false for unknown sensor", i)
		}
	}
}

func TestUpdateReplacesWholly(t *testing.T) {
	c := New()
	var first [PortCount]bool
	first[0] = true
	c.Update(1, first)

	var second [PortCount]bool
	second[5] = true
	c.Update(1, second)

	got := c.GetPortData(1)
	if got[0] {
		t.Error("expected port 0 to be cleared by whole-record replace")
	}
	if !got[5] {
		t.Error("expected port 5 to be set")
	}
}
