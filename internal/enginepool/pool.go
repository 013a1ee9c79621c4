// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package enginepool keeps one engine.Engine alive per active show id,
// reconciling membership against the Scheduler's output on every fixture
// tick.
package enginepool

import (
	"log/slog"
	"sync"

	"dmx-gateway/internal/engine"
	"dmx-gateway/internal/model"
)

// ShowLookup resolves a show id to its configuration. Implemented by the
// configuration snapshot.
type ShowLookup func(id int) (model.Show, bool)

// Pool owns a set of engine.Engine instances keyed by show id.
type Pool struct {
	mu      sync.Mutex
	logger  *slog.Logger
	engines map[int]*engine.Engine
	seed    int64 // fixed for the process lifetime; every engine shares it
}

// New constructs an empty Pool. seed fixes the DirRandom permutation used
// by every engine the pool creates.
func New(logger *slog.Logger, seed int64) *Pool {
	return &Pool{
		logger:  logger,
		engines: make(map[int]*engine.Engine),
		seed:    seed,
	}
}

// Reconcile drops engines whose show id is no longer present in ids and
// creates engines for ids missing from the pool, using lookup to resolve
// each id's configuration (falling back to model.DefaultGray when lookup
// fails or the show is untranslatable).
func (p *Pool) Reconcile(ids []int, lookup ShowLookup) {
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		want[id] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.engines {
		if _, ok := want[id]; !ok {
			delete(p.engines, id)
		}
	}

	for id := range want {
		if _, ok := p.engines[id]; ok {
			continue
		}
		cfg, ok := lookup(id)
		if !ok {
			p.logger.Warn("unknown show id, using default gray", "show_id", id)
			cfg = model.DefaultGray()
			cfg.ID = id
		}
		if cfg.EngineVersion != model.EngineVersion2A {
			translated, degraded := engine.Translate(cfg)
			if degraded {
				p.logger.Warn("legacy show untranslatable, using gray", "show_id", id)
			}
			cfg = translated
		}
		if err := engine.Validate(cfg); err != nil {
			p.logger.Warn("invalid show configuration, using default gray", "show_id", id, "error", err)
			cfg = model.DefaultGray()
			cfg.ID = id
		}
		p.engines[id] = engine.New(cfg, p.seed)
	}
}

// Run advances every engine in the pool by one frame.
func (p *Pool) Run() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.engines {
		e.Run()
	}
}

// Get returns the engine for id, or nil if no engine is assigned to it.
func (p *Pool) Get(id int) *engine.Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engines[id]
}

// Size reports the current number of live engines, for metrics.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.engines)
}
