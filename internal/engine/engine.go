// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package engine is the deterministic per-frame pixel renderer: given a
// Show configuration and a sequence of Run() ticks, it produces a 5000-slot
// virtual canvas sampled by the Fixture Patch at however many segments a
// fixture set needs.
package engine

import (
	"math"
	"math/rand"

	"dmx-gateway/internal/model"
)

// Engine renders one Show configuration. It holds no wall-clock state —
// advancing happens only via Run(), which is what makes its output
// reproducible given identical construction and an identical call count.
type Engine struct {
	cfg     model.Show
	frame   int // 1..framesPerBeat
	beat    int // 1..len(colors)
	beatDir int // +1 or -1

	framesPerBeat int
	perm          []int // fixed permutation for DirRandom, seeded at construction

	fixtureCount int
	canvas       []model.Color
}

// New constructs an Engine for cfg. seed fixes the DirRandom permutation so
// the engine's output sequence is reproducible across runs with the same
// seed, per spec.md §9's determinism note.
func New(cfg model.Show, seed int64) *Engine {
	e := &Engine{
		cfg:           cfg,
		frame:         1,
		beat:          1,
		beatDir:       1,
		framesPerBeat: framesPerBeat(cfg.Speed),
	}
	if cfg.Direction == model.DirRandom {
		e.perm = fixedPermutation(CanvasSize, seed)
	}
	e.render()
	return e
}

// framesPerBeat computes the fixed 25ms-frame-period beat length for a bpm
// speed: round(1000/(speed/60)/25) == round(2400/speed).
func framesPerBeat(speedBPM int) int {
	fpb := int(math.Round(2400.0 / float64(speedBPM)))
	if fpb < 1 {
		fpb = 1
	}
	return fpb
}

// Run advances the engine by one 25ms frame and re-renders the canvas.
func (e *Engine) Run() {
	e.advanceFrame()
	e.render()
}

func (e *Engine) advanceFrame() {
	n := len(e.cfg.Colors)
	if n == 0 {
		return
	}

	if e.beatDir >= 0 {
		e.frame++
		if e.frame > e.framesPerBeat {
			e.advanceBeat(n)
		}
	} else {
		e.frame--
		if e.frame < 1 {
			e.advanceBeat(n)
		}
	}
}

func (e *Engine) advanceBeat(n int) {
	e.beat += e.beatDir
	if e.beat > n || e.beat < 1 {
		if e.cfg.Bounce {
			e.beatDir = -e.beatDir
			if e.beat > n {
				e.beat = n
			} else {
				e.beat = 1
			}
		} else if e.beat > n {
			e.beat = 1
		} else {
			e.beat = n
		}
	}
	if e.beatDir >= 0 {
		e.frame = 1
	} else {
		e.frame = e.framesPerBeat
	}
}

// render rebuilds the 5000-pixel canvas for the engine's current
// beat/frame position, following the per-showType pipeline of spec.md
// §4.4.
func (e *Engine) render() {
	cfg := e.cfg
	var out []model.Color

	switch cfg.ShowType {
	case model.ShowStatic:
		out = buildColorBase(cfg)
		out = expandOrTrim(out, CanvasSize)
		out = applyDirection(out, cfg.Direction, e.perm)
		out = applySplits(out, cfg.Splits)

	case model.ShowAll:
		out = buildColorBase(cfg)
		out = expandOrTrim(out, CanvasSize)
		out = reverse(out)
		out = circulate(out, e.shift())
		out = reduceToSplitColors(out, cfg.Splits)

	case model.ShowChase:
		out = buildColorBase(cfg)
		out = expandOrTrim(out, CanvasSize)
		out = reverse(out)
		out = circulate(out, e.shift())
		out = applyDirection(out, cfg.Direction, e.perm)
		out = applySplits(out, cfg.Splits)

	case model.ShowPulse:
		out = buildPulseBase(cfg)
		out = expandOrTrim(out, CanvasSize)
		out = reverse(out)
		out = circulate(out, e.shift())
		out = applyDirection(out, cfg.Direction, e.perm)
		out = applySplits(out, cfg.Splits)

	default:
		out = make([]model.Color, CanvasSize)
	}

	e.canvas = out
}

// shift computes the circulation offset for "all"/"chase"/"pulse" shows:
// round(pixelsPerColor/framesPerBeat*frame + pixelsPerColor*(beat-1)).
func (e *Engine) shift() int {
	ppc := float64(pixelsPerColor(e.cfg))
	v := ppc/float64(e.framesPerBeat)*float64(e.frame) + ppc*float64(e.beat-1)
	return int(math.Round(v))
}

// reduceToSplitColors is the "all" show's splits step: sample every
// 5000/splits pixels and broadcast each sample across its whole split
// width, per spec.md §4.4.
func reduceToSplitColors(pixels []model.Color, splits int) []model.Color {
	if splits <= 0 {
		splits = 1
	}
	n := len(pixels)
	stride := n / splits
	if stride == 0 {
		stride = 1
	}
	out := make([]model.Color, n)
	for s := 0; s < splits; s++ {
		idx := s * stride
		if idx >= n {
			idx = n - 1
		}
		c := pixels[idx]
		for i := s * stride; i < (s+1)*stride && i < n; i++ {
			out[i] = c
		}
	}
	return out
}

// SetFixtureCount configures how many evenly-strided samples
// GetFixtureColor will serve from the canvas.
func (e *Engine) SetFixtureCount(n int) {
	e.fixtureCount = n
}

// GetFixtureColor returns the ith evenly-strided sample of the canvas, per
// spec.md §4.4's sampling API: stride = floor(5000/n).
func (e *Engine) GetFixtureColor(i int) model.Color {
	if e.fixtureCount <= 0 || len(e.canvas) == 0 {
		return model.Color{}
	}
	stride := CanvasSize / e.fixtureCount
	if stride == 0 {
		stride = 1
	}
	idx := i * stride
	if idx >= len(e.canvas) {
		idx = len(e.canvas) - 1
	}
	return e.canvas[idx]
}

// fixedPermutation produces a stable Fisher-Yates shuffle of [0,n) seeded
// by seed, used for the "random" direction. Stable across the engine's
// lifetime because it is computed once at construction, never reseeded.
func fixedPermutation(n int, seed int64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	r := rand.New(rand.NewSource(seed))
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}
