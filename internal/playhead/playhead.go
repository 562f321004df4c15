// Package playhead owns the mapping between the timeline surface and the
// shared cursor: ruler pixels to seconds, and the coarse playback clock that
// advances the cursor while playing.
package playhead

import "time"

// TickQuantum is how far the cursor advances per clock tick. The clock is a
// coarse approximation of wall time, not the renderer's own clock; drift is
// bounded by the renderer resync threshold.
const TickQuantum = 100 * time.Millisecond

// Advance returns the cursor after one quantum. Pure; the play/pause gate
// lives with the caller.
func Advance(t float64, quantum time.Duration) float64 {
	return t + quantum.Seconds()
}

// TimeAtPixel maps a ruler pixel offset to a timeline time using the shared
// linear scale, clamped to zero on the left edge.
func TimeAtPixel(px, pixelsPerSecond float64) float64 {
	t := px / pixelsPerSecond
	if t < 0 {
		return 0
	}
	return t
}
