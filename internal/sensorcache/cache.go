// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package sensorcache holds the most-recently-seen 16-port state per sensor
// id, updated by the UDP ingest goroutine and read by the Scheduler.
package sensorcache

import "sync"

// PortCount is the fixed number of ports reported by an Attitude Sense
// packet's DATA field.
const PortCount = 16

// Reading is one sensor's most-recent 16-port boolean state.
type Reading struct {
	ID    int
	Ports [PortCount]bool
}

// Cache is a single-writer-per-id map from sensor id to its latest Reading.
// Updates replace wholly, per spec.md §3's invariant.
type Cache struct {
	mu       sync.RWMutex
	readings map[int]Reading
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{readings: make(map[int]Reading)}
}

// Update replaces the cached reading for id.
func (c *Cache) Update(id int, ports [PortCount]bool) {
	c.mu.Lock()
	c.readings[id] = Reading{ID: id, Ports: ports}
	c.mu.Unlock()
}

// GetPortData returns the cached 16-vector for id, or all-false when the id
// has never been seen.
func (c *Cache) GetPortData(id int) [PortCount]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.readings[id]; ok {
		return r.Ports
	}
	return [PortCount]bool{}
}
