// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package model

// ShowType enumerates the engine's render pipelines.
type ShowType string

const (
	ShowStatic ShowType = "static"
	ShowAll    ShowType = "all"
	ShowChase  ShowType = "chase"
	ShowPulse  ShowType = "pulse"
)

// Direction enumerates pixel-walk directions.
type Direction string

const (
	DirLR     Direction = "lr"
	DirRL     Direction = "rl"
	DirMidEnd Direction = "mid-end"
	DirEndMid Direction = "end-mid"
	DirRandom Direction = "random"
)

// Transition enumerates which color-segment boundaries get a fade.
type Transition string

const (
	TransBoth     Transition = "both"
	TransLeading  Transition = "leading"
	TransTrailing Transition = "trailing"
)

// EngineVersion distinguishes the current show schema from legacy ones that
// require translation before use.
type EngineVersion string

const EngineVersion2A EngineVersion = "2A"

// Show is a full effect configuration.
type Show struct {
	ID              int           `yaml:"id" json:"id"`
	EngineVersion   EngineVersion `yaml:"engine_version" json:"engine_version"`
	ShowType        ShowType      `yaml:"show_type" json:"show_type"`
	Direction       Direction     `yaml:"direction" json:"direction"`
	Speed           int           `yaml:"speed" json:"speed"` // bpm, 10..180
	Size            int           `yaml:"size" json:"size"`   // 1..200
	Splits          int           `yaml:"splits" json:"splits"` // 1..10
	Transition      Transition    `yaml:"transition" json:"transition"`
	TransitionWidth float64       `yaml:"transition_width" json:"transition_width"` // 0.0..1.0
	Bounce          bool          `yaml:"bounce" json:"bounce"`
	Colors          []Color       `yaml:"colors" json:"colors"` // 1..25

	// Legacy-only fields, present when EngineVersion != "2A".
	LegacyShowType   int     `yaml:"legacy_show_type,omitempty" json:"legacy_show_type,omitempty"`
	LegacyDirection  int     `yaml:"legacy_direction,omitempty" json:"legacy_direction,omitempty"`
	LegacySpeed      int     `yaml:"legacy_speed,omitempty" json:"legacy_speed,omitempty"`
	LegacySize       int     `yaml:"legacy_size,omitempty" json:"legacy_size,omitempty"`
	LegacyColors     []Color `yaml:"legacy_colors,omitempty" json:"legacy_colors,omitempty"`
}

// DefaultGray is the fallback configuration used by the Engine Pool and by
// untranslatable legacy shows.
func DefaultGray() Show {
	return Show{
		EngineVersion:   EngineVersion2A,
		ShowType:        ShowStatic,
		Direction:       DirLR,
		Speed:           60,
		Size:            50,
		Splits:          1,
		Transition:      TransBoth,
		TransitionWidth: 0,
		Colors:          []Color{{R: 128, G: 128, B: 128}},
	}
}
