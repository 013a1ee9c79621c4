// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package model

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON emits either a bare int or an array of ints per slot, matching
// the on-wire ShowIdVector shape: `[ showId | [showId × groups] ] × 10`.
func (v ShowIDVector) MarshalJSON() ([]byte, error) {
	raw := make([]interface{}, MaxZones)
	for i, slot := range v {
		if slot.Groups != nil {
			raw[i] = slot.Groups
		} else {
			raw[i] = slot.Scalar
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts a (possibly short) array mixing bare ints and
// sub-arrays, right-padding missing trailing slots with zero.
func (v *ShowIDVector) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("showid vector: %w", err)
	}
	if len(raw) > MaxZones {
		raw = raw[:MaxZones]
	}

	var out ShowIDVector
	for i, item := range raw {
		var scalar int
		if err := json.Unmarshal(item, &scalar); err == nil {
			out[i] = ShowSlot{Scalar: scalar}
			continue
		}
		var group []int
		if err := json.Unmarshal(item, &group); err == nil {
			out[i] = ShowSlot{Groups: group}
			continue
		}
		return fmt.Errorf("showid vector: slot %d is neither int nor []int", i)
	}
	*v = out
	return nil
}

// ParseShowsData parses an Override's double-encoded ShowsData string into
// a structured vector.
func ParseShowsData(raw string) (ShowIDVector, error) {
	var v ShowIDVector
	if raw == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("parse showsdata: %w", err)
	}
	return v, nil
}

// Layer composites top over base per zone, implementing spec.md §4.3's
// layer(base, top) rule:
//   - a grouped top slot is merged group-by-group against base (scalarized
//     by broadcast if base is itself scalar)
//   - a non-zero scalar top replaces base outright
//   - a zero/absent top slot keeps base (transparency)
func Layer(base, top ShowIDVector) ShowIDVector {
	var out ShowIDVector
	for z := 0; z < MaxZones; z++ {
		out[z] = layerSlot(base[z], top[z])
	}
	return out
}

func layerSlot(base, top ShowSlot) ShowSlot {
	if top.Groups != nil {
		n := len(top.Groups)
		merged := make([]int, n)
		for g := 0; g < n; g++ {
			if top.Groups[g] > 0 {
				merged[g] = top.Groups[g]
				continue
			}
			if base.Groups != nil && g < len(base.Groups) {
				merged[g] = base.Groups[g]
			} else {
				merged[g] = base.ScalarOrGroup0()
			}
		}
		return ShowSlot{Groups: merged}
	}
	if top.Scalar > 0 {
		return ShowSlot{Scalar: top.Scalar, Groups: nil}
	}
	return base
}

// NonZeroIDs collects the set of distinct non-zero show ids referenced
// anywhere in the vector (flattening grouped slots).
func (v ShowIDVector) NonZeroIDs() []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, slot := range v {
		for _, id := range slot.NonZeroIDs(nil) {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}
