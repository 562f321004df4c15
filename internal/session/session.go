// Package session models one in-flight pointer-driven clip manipulation.
// A session is a transient overlay: it snapshots the target clip at
// pointer-down, recomputes a live snapshot on every pointer move, and only
// on pointer-up produces the partial update the committed store applies.
// The store is never touched mid-drag, so discarding a session is a free
// rollback.
package session

import (
	"errors"
	"math"

	"github.com/Munykin/simple-video-editor/internal/timeline"
)

// Timeline surface scale. Horizontal pixels map linearly to seconds and
// vertical pixels to lane slots across the whole timeline.
const (
	PixelsPerSecond = 50.0
	LaneHeight      = 64.0
)

type Mode string

const (
	ModeMove        Mode = "move"
	ModeResizeLeft  Mode = "resize-left"
	ModeResizeRight Mode = "resize-right"
)

var ErrNotActive = errors.New("no active edit session")

// Session is the state machine for a single drag. The zero value is Idle;
// Begin moves it to Active; Commit (pointer-up) returns it to Idle. There is
// no separate cancel transition: every pointer-up commits the live values.
type Session struct {
	mode     Mode
	clipID   string
	startX   float64
	startY   float64
	initial  timeline.Clip
	live     timeline.Clip
	active   bool
}

// Begin starts a drag over the given clip. The clip is copied; later store
// mutations do not leak into the session.
func (s *Session) Begin(clip timeline.Clip, mode Mode, pointerX, pointerY float64) {
	s.mode = mode
	s.clipID = clip.ID
	s.startX = pointerX
	s.startY = pointerY
	s.initial = clip
	s.live = clip
	s.active = true
}

func (s *Session) Active() bool { return s.active }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) ClipID() string { return s.clipID }

// Live returns the current live snapshot. Valid only while Active.
func (s *Session) Live() timeline.Clip { return s.live }

// Update recomputes the live snapshot from the initial snapshot and the
// pointer's total displacement since Begin. Each call starts from the
// initial values, so updates are idempotent per pointer position and can
// arrive at any rate.
func (s *Session) Update(pointerX, pointerY float64) timeline.Clip {
	if !s.active {
		return timeline.Clip{}
	}

	dt := (pointerX - s.startX) / PixelsPerSecond
	live := s.initial

	switch s.mode {
	case ModeMove:
		live.TimelineStart = math.Max(0, s.initial.TimelineStart+dt)
		laneDelta := int(math.Round((pointerY - s.startY) / LaneHeight))
		live.Track = timeline.ClampTrack(s.initial.Track + laneDelta)

	case ModeResizeLeft:
		// The lower bound is the source head or, for a clip placed closer to
		// the timeline origin than its trim offset, the point where the
		// lockstep placement shift would push TimelineStart below zero.
		lo := math.Max(0, s.initial.TrimStart-s.initial.TimelineStart)
		trimStart := clamp(s.initial.TrimStart+dt, lo, s.initial.TrimEnd-timeline.MinClipDuration)
		// Shift the placement by the delta that actually applied so the
		// untrimmed tail stays anchored in timeline space.
		applied := trimStart - s.initial.TrimStart
		live.TrimStart = trimStart
		live.TimelineStart = s.initial.TimelineStart + applied

	case ModeResizeRight:
		live.TrimEnd = clamp(s.initial.TrimEnd+dt,
			s.initial.TrimStart+timeline.MinClipDuration, s.initial.SourceDuration)
	}

	s.live = live
	return live
}

// Commit ends the session and returns the partial update for the fields the
// mode touches. Fields the mode never moved are left out of the update so a
// commit cannot stomp anything it didn't own.
func (s *Session) Commit() (string, timeline.ClipUpdate, error) {
	if !s.active {
		return "", timeline.ClipUpdate{}, ErrNotActive
	}

	// Copy the live values out before the reset below; the update must not
	// point into session memory that is about to be zeroed.
	var update timeline.ClipUpdate
	switch s.mode {
	case ModeMove:
		start, track := s.live.TimelineStart, s.live.Track
		update.TimelineStart = &start
		update.Track = &track
	case ModeResizeLeft:
		trimStart, start := s.live.TrimStart, s.live.TimelineStart
		update.TrimStart = &trimStart
		update.TimelineStart = &start
	case ModeResizeRight:
		trimEnd := s.live.TrimEnd
		update.TrimEnd = &trimEnd
	}

	clipID := s.clipID
	*s = Session{}
	return clipID, update, nil
}

// Overlay returns the clip set with the live snapshot substituted for the
// dragged clip. The committed clips are not modified; this is the read-side
// view the preview renders from while a drag is in flight.
func (s *Session) Overlay(clips []*timeline.Clip) []*timeline.Clip {
	if !s.active {
		return clips
	}
	out := make([]*timeline.Clip, len(clips))
	for i, c := range clips {
		if c.ID == s.clipID {
			live := s.live
			out[i] = &live
		} else {
			out[i] = c
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
