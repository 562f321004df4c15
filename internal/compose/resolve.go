// Package compose resolves the declarative clip set into the playback
// signal for a single timeline instant: at most one video layer plus the
// full set of mixed audio layers.
package compose

import (
	"github.com/Munykin/simple-video-editor/internal/timeline"
)

// ResyncThreshold is the drift, in seconds, beyond which the renderer should
// force a seek. Below it, letting the renderer free-run avoids seek stutter.
// A tunable, not a hard contract.
const ResyncThreshold = 0.3

// Layer is one renderer instruction: play this source at this offset with
// this gain. SourceTime must be recomputed whenever the timeline cursor
// moves.
type Layer struct {
	ClipID       string  `json:"clip_id"`
	SourceHandle string  `json:"source_handle"`
	SourceTime   float64 `json:"source_time"`
	Volume       float64 `json:"volume"`
	Muted        bool    `json:"muted"`
}

// Composition is the resolved signal at one instant. A nil Video or empty
// Audio set means "no signal" for that pool, which is a defined state rather
// than an error.
type Composition struct {
	Video *Layer  `json:"video,omitempty"`
	Audio []Layer `json:"audio"`
}

// Resolve computes the playback signal at t.
//
// Video: among active video clips the highest track wins (higher lane is the
// foreground layer). Equal tracks are broken by most-recently-created, then
// by id, so the selection is total and deterministic.
//
// Audio: every active audio clip contributes a layer; there is no occlusion
// between audio lanes.
func Resolve(clips []*timeline.Clip, t float64) Composition {
	var comp Composition
	var topVideo *timeline.Clip

	for _, c := range clips {
		if !c.ActiveAt(t) {
			continue
		}
		switch c.Kind {
		case timeline.KindVideo:
			if topVideo == nil || videoWins(c, topVideo) {
				topVideo = c
			}
		case timeline.KindAudio:
			comp.Audio = append(comp.Audio, layerFor(c, t))
		}
	}

	if topVideo != nil {
		l := layerFor(topVideo, t)
		comp.Video = &l
	}
	return comp
}

// videoWins reports whether candidate takes precedence over current.
func videoWins(candidate, current *timeline.Clip) bool {
	if candidate.Track != current.Track {
		return candidate.Track > current.Track
	}
	if !candidate.CreatedAt.Equal(current.CreatedAt) {
		return candidate.CreatedAt.After(current.CreatedAt)
	}
	return candidate.ID > current.ID
}

func layerFor(c *timeline.Clip, t float64) Layer {
	return Layer{
		ClipID:       c.ID,
		SourceHandle: c.SourceHandle,
		SourceTime:   c.SourceTimeAt(t),
		Volume:       c.Volume,
		Muted:        c.Muted,
	}
}

// NeedsResync reports whether the renderer's current position has drifted
// far enough from the wanted source time to justify a seek.
func NeedsResync(rendererPos, sourceTime float64) bool {
	drift := rendererPos - sourceTime
	if drift < 0 {
		drift = -drift
	}
	return drift > ResyncThreshold
}
