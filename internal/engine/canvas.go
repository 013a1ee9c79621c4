// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package engine

import (
	"math"

	"dmx-gateway/internal/model"
)

// CanvasSize is the virtual pixel canvas every show renders onto before
// fixture sampling reduces it to however many segments a patch needs.
const CanvasSize = 5000

// pixelsPerColor returns the flat-color run length for one color segment.
func pixelsPerColor(cfg model.Show) int {
	if cfg.ShowType == model.ShowStatic {
		return CanvasSize / len(cfg.Colors)
	}
	return int(math.Ceil(CanvasSize / (100.0 / float64(cfg.Size))))
}

// pixelsToFade returns the length of the run that follows a color
// segment's flat run: round(ppc × TransitionWidth). Whether that run is
// interpolated on a given boundary is decided by fadesAt.
func pixelsToFade(ppc int, cfg model.Show) int {
	return int(math.Round(float64(ppc) * cfg.TransitionWidth))
}

// fadesAt reports whether boundary i (0-based, the boundary following
// color i) gets a fade, given n total color boundaries (== len(colors)).
// Reproduces the exact predicates from spec.md §9's open question.
func fadesAt(i, n int, cfg model.Show) bool {
	switch cfg.Transition {
	case model.TransBoth:
		return true
	case model.TransLeading:
		return i%2 == 1 || i == n-1
	case model.TransTrailing:
		return i%2 == 0 && i != n-1
	default:
		return true
	}
}

// lerpChannel linearly interpolates one 8-bit channel over S steps, step k.
func lerpChannel(c1, c2 uint8, k, steps int) uint8 {
	if steps == 0 {
		return c2
	}
	v := float64(c2)/float64(steps)*float64(k) + float64(c1)/float64(steps)*float64(steps-k)
	return clamp8(math.Round(v))
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func lerpColor(c1, c2 model.Color, k, steps int) model.Color {
	return model.Color{
		R: lerpChannel(c1.R, c2.R, k, steps),
		G: lerpChannel(c1.G, c2.G, k, steps),
		B: lerpChannel(c1.B, c2.B, k, steps),
	}
}

// buildColorBase lays out the flat + fade segments for a static/all/chase
// show: each of the n colors contributes ppc pixels, a flat run of ppc
// minus the fade length followed by a fade-length run that interpolates
// toward the next color when fadesAt calls for it and holds the color
// otherwise.
func buildColorBase(cfg model.Show) []model.Color {
	n := len(cfg.Colors)
	ppc := pixelsPerColor(cfg)
	fadeLen := pixelsToFade(ppc, cfg)
	flatLen := ppc - fadeLen
	if flatLen < 0 {
		flatLen = 0
	}

	var out []model.Color
	for i := 0; i < n; i++ {
		c := cfg.Colors[i]
		for k := 0; k < flatLen; k++ {
			out = append(out, c)
		}
		if fadesAt(i, n, cfg) {
			next := cfg.Colors[(i+1)%n]
			for k := 1; k <= fadeLen; k++ {
				out = append(out, lerpColor(c, next, k, fadeLen))
			}
		} else {
			for k := 0; k < fadeLen; k++ {
				out = append(out, c)
			}
		}
	}
	return out
}

// buildPulseBase lays out the pulse show type's per-color pulse: a fade-in
// from the base color (transition both or leading), the color's flat run,
// a fade-out back to the base color (transition both or trailing), then
// CanvasSize base-color pixels before the
// next pulse — except for color index 0, which IS the base/background
// color and contributes no pulse of its own.
func buildPulseBase(cfg model.Show) []model.Color {
	n := len(cfg.Colors)
	if n == 0 {
		return nil
	}
	base := cfg.Colors[0]
	ppc := pixelsPerColor(cfg)
	fadeLen := pixelsToFade(ppc, cfg)
	flatLen := ppc - fadeLen
	if flatLen < 0 {
		flatLen = 0
	}

	fadeIn := cfg.Transition == model.TransBoth || cfg.Transition == model.TransLeading
	fadeOut := cfg.Transition == model.TransBoth || cfg.Transition == model.TransTrailing

	var out []model.Color
	for i := 1; i < n; i++ {
		c := cfg.Colors[i]
		if fadeIn {
			for k := 1; k <= fadeLen; k++ {
				out = append(out, lerpColor(base, c, k, fadeLen))
			}
		}
		for k := 0; k < flatLen; k++ {
			out = append(out, c)
		}
		if fadeOut {
			for k := 1; k <= fadeLen; k++ {
				out = append(out, lerpColor(c, base, k, fadeLen))
			}
		}
		for k := 0; k < CanvasSize; k++ {
			out = append(out, base)
		}
	}
	return out
}

// expandOrTrim tiles src cyclically until it reaches target length,
// trimming the final repetition if it overshoots, or truncates src when it
// is already longer than target. This single routine backs both the
// initial canvas fit-to-5000 step and the splits down/up-sample step.
func expandOrTrim(src []model.Color, target int) []model.Color {
	if len(src) == 0 {
		return make([]model.Color, target)
	}
	if len(src) >= target {
		return append([]model.Color(nil), src[:target]...)
	}
	out := make([]model.Color, target)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}

// reverse returns a reversed copy of pixels.
func reverse(pixels []model.Color) []model.Color {
	out := make([]model.Color, len(pixels))
	n := len(pixels)
	for i, c := range pixels {
		out[n-1-i] = c
	}
	return out
}

// circulate cyclically right-shifts pixels by shift positions: output[i] =
// pixels[(i-shift) mod len].
func circulate(pixels []model.Color, shift int) []model.Color {
	n := len(pixels)
	if n == 0 {
		return pixels
	}
	shift = ((shift % n) + n) % n
	out := make([]model.Color, n)
	for i := range out {
		src := (i - shift + n) % n
		out[i] = pixels[src]
	}
	return out
}

// applyDirection permutes pixels according to dir. perm is used only for
// DirRandom and must be stable across the engine's lifetime.
func applyDirection(pixels []model.Color, dir model.Direction, perm []int) []model.Color {
	switch dir {
	case model.DirLR:
		return pixels
	case model.DirRL:
		return reverse(pixels)
	case model.DirMidEnd, model.DirEndMid:
		sample := everyOther(pixels)
		if dir == model.DirMidEnd {
			return append(reverse(sample), sample...)
		}
		return append(append([]model.Color{}, sample...), reverse(sample)...)
	case model.DirRandom:
		return applyPermutation(pixels, perm)
	default:
		return pixels
	}
}

func everyOther(pixels []model.Color) []model.Color {
	var out []model.Color
	for i := 0; i < len(pixels); i += 2 {
		out = append(out, pixels[i])
	}
	return out
}

func applyPermutation(pixels []model.Color, perm []int) []model.Color {
	out := make([]model.Color, len(pixels))
	for i, p := range perm {
		if i < len(out) && p < len(pixels) {
			out[i] = pixels[p]
		}
	}
	return out
}

// applySplits samples pixels every len(pixels)/splits positions and tiles
// those samples cyclically back to the full length via expandOrTrim, so the
// output repeats the short run of samples pixel by pixel. When splits is not
// below len(pixels), pixels is returned unchanged.
func applySplits(pixels []model.Color, splits int) []model.Color {
	if splits <= 0 {
		splits = 1
	}
	n := len(pixels)
	if n == 0 || splits >= n {
		return pixels
	}
	stride := n / splits
	if stride == 0 {
		stride = 1
	}
	var sampled []model.Color
	for i := 0; i < n; i += stride {
		sampled = append(sampled, pixels[i])
	}
	return expandOrTrim(sampled, n)
}
