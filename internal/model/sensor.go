// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package model

// SensorPortMode distinguishes toggle and pulse sensor ports.
type SensorPortMode string

const (
	PortToggle SensorPortMode = "toggle"
	PortPulse  SensorPortMode = "pulse"
)

// TimeUnit enumerates pulse-duration units.
type TimeUnit string

const (
	TimeSec  TimeUnit = "sec"
	TimeMin  TimeUnit = "min"
	TimeHour TimeUnit = "hour"
)

// SensorPortConfig configures one of a sensor's 16 ports.
type SensorPortConfig struct {
	PortNumber int            `yaml:"-" json:"port_number"` // 1-based, derived from index+1
	Mode       SensorPortMode `yaml:"mode" json:"mode"`
	OverrideID int            `yaml:"override_id" json:"override_id"`
	Priority   *int           `yaml:"priority,omitempty" json:"priority,omitempty"` // nil = +Inf
	TimeLength int            `yaml:"time_length,omitempty" json:"time_length,omitempty"`
	TimeMode   TimeUnit       `yaml:"time_mode,omitempty" json:"time_mode,omitempty"`
}

// SensorConfig is a configured "Attitude Sense" device: up to 16 ports.
type SensorConfig struct {
	ID   int                `yaml:"id" json:"id"`
	Data []SensorPortConfig `yaml:"data" json:"data"`
}

// PulseTimer tracks one sensor port's pulse-mode re-assertion window.
type PulseTimer struct {
	SenseID     int
	PortNumber  int
	ActiveUntil int64 // unix seconds
}

// Key identifies the (sense, port) pair this timer belongs to.
func (p PulseTimer) Key() [2]int { return [2]int{p.SenseID, p.PortNumber} }
