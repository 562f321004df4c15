// Package editor owns the single-writer editing state: the committed clip
// store, the shared cursor, the transport flag, the selection, and the
// in-flight drag session. Every mutation flows through Service under one
// lock, which gives the same single-writer model a browser event loop would.
//
// User-gesture failures (invalid ranges, stale ids) follow a fail-closed
// no-op policy: the store is left untouched, a warning is logged, and no
// error propagates. Infrastructure failures (the store itself erroring) do
// propagate.
package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Munykin/simple-video-editor/internal/compose"
	"github.com/Munykin/simple-video-editor/internal/playhead"
	"github.com/Munykin/simple-video-editor/internal/render"
	"github.com/Munykin/simple-video-editor/internal/session"
	"github.com/Munykin/simple-video-editor/internal/timeline"
)

// TrimStep is the fixed increment for keyboard/button trim nudges.
const TrimStep = 0.1

type Service struct {
	repo   timeline.Repository
	recon  *render.Reconciler
	logger *slog.Logger

	mu       sync.Mutex
	cursor   float64
	playing  bool
	selected string
	drag     session.Session
}

func NewService(repo timeline.Repository, recon *render.Reconciler, logger *slog.Logger) *Service {
	return &Service{repo: repo, recon: recon, logger: logger}
}

// ImportClip places a finished media handle on the timeline at the cursor.
// Both file import and generation completion land here: a fresh id, the full
// source untrimmed, lane 0, full volume.
func (s *Service) ImportClip(ctx context.Context, sourceHandle, kind, displayName string, duration float64) (*timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip := &timeline.Clip{
		ID:             timeline.NewID(),
		SourceHandle:   sourceHandle,
		Kind:           kind,
		DisplayName:    displayName,
		SourceDuration: duration,
		TimelineStart:  s.cursor,
		Track:          0,
		TrimStart:      0,
		TrimEnd:        duration,
		Volume:         1,
		Muted:          false,
		CreatedAt:      time.Now(),
	}
	if err := clip.Validate(); err != nil {
		s.warn("rejecting import", "error", err)
		return nil, err
	}

	if err := s.repo.CreateClip(ctx, clip); err != nil {
		return nil, err
	}
	s.selected = clip.ID

	s.info("clip placed", "clip_id", clip.ID, "kind", kind, "at", clip.TimelineStart, "duration", duration)
	s.syncRenderer(ctx)
	return clip, nil
}

// Clips returns the committed clip set with the live drag overlay applied,
// which is what the preview should render from.
func (s *Service) Clips(ctx context.Context) ([]*timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlaidClips(ctx)
}

func (s *Service) overlaidClips(ctx context.Context) ([]*timeline.Clip, error) {
	clips, err := s.repo.ListClips(ctx)
	if err != nil {
		return nil, err
	}
	return s.drag.Overlay(clips), nil
}

// UpdateClip applies a partial update after checking that the merged clip
// still satisfies the invariants. An invalid merge or a stale id is a
// logged no-op; the store is never left half-mutated.
func (s *Service) UpdateClip(ctx context.Context, id string, update timeline.ClipUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateClipLocked(ctx, id, update)
}

func (s *Service) updateClipLocked(ctx context.Context, id string, update timeline.ClipUpdate) error {
	if update.IsZero() {
		return nil
	}

	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return err
	}
	if clip == nil {
		s.warn("update for unknown clip", "clip_id", id)
		return nil
	}

	merged := clip.Apply(update)
	if err := merged.Validate(); err != nil {
		s.warn("rejecting clip update", "clip_id", id, "error", err)
		return nil
	}

	if err := s.repo.UpdateClip(ctx, id, update); err != nil {
		return err
	}
	s.syncRenderer(ctx)
	return nil
}

// DeleteClip removes a clip; a stale id is a no-op. Deleting the selected
// clip clears the selection.
func (s *Service) DeleteClip(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteClip(ctx, id); err != nil {
		return err
	}
	if s.selected == id {
		s.selected = ""
	}
	s.info("clip deleted", "clip_id", id)
	s.syncRenderer(ctx)
	return nil
}

// Select marks a clip as the target for discrete edit actions. Selection is
// editor state, not store state.
func (s *Service) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

func (s *Service) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SplitAt cuts a clip in two at timeline time t. The cut point must fall
// strictly inside the active interval; a cut exactly at either edge is a
// no-op (returns nil, nil). The first half keeps the original id and loses
// its tail; the second half is a fresh clip starting at t, and becomes the
// selection.
func (s *Service) SplitAt(ctx context.Context, id string, t float64) (*timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		s.warn("split for unknown clip", "clip_id", id)
		return nil, nil
	}

	if t <= clip.TimelineStart || t >= clip.End() {
		s.warn("split point outside clip", "clip_id", id, "at", t)
		return nil, nil
	}

	sourceSplit := clip.SourceTimeAt(t)

	second := *clip
	second.ID = timeline.NewID()
	second.TimelineStart = t
	second.TrimStart = sourceSplit
	second.CreatedAt = time.Now()

	// Shrink the original before creating the second half so the store never
	// holds both halves overlapping. If the insert fails, restore the tail.
	originalTrimEnd := clip.TrimEnd
	if err := s.repo.UpdateClip(ctx, id, timeline.ClipUpdate{TrimEnd: &sourceSplit}); err != nil {
		return nil, err
	}
	if err := s.repo.CreateClip(ctx, &second); err != nil {
		if rbErr := s.repo.UpdateClip(ctx, id, timeline.ClipUpdate{TrimEnd: &originalTrimEnd}); rbErr != nil {
			s.warn("split restore failed", "clip_id", id, "error", rbErr)
		}
		return nil, err
	}

	s.selected = second.ID
	s.info("clip split", "clip_id", id, "new_clip_id", second.ID, "at", t)
	s.syncRenderer(ctx)
	return &second, nil
}

// SeparateAudio detaches the audio of a video clip: the video keeps playing
// in place but muted, and a new audio clip carrying the pre-mute field
// values lands on audio lane 0 with the same placement and trim.
func (s *Service) SeparateAudio(ctx context.Context, id string) (*timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		s.warn("separate-audio for unknown clip", "clip_id", id)
		return nil, nil
	}
	if clip.Kind != timeline.KindVideo {
		s.warn("separate-audio on non-video clip", "clip_id", id, "kind", clip.Kind)
		return nil, nil
	}

	audio := *clip
	audio.ID = timeline.NewID()
	audio.Kind = timeline.KindAudio
	audio.Track = 0
	audio.Muted = false
	audio.CreatedAt = time.Now()

	// Mute the video first; if the audio insert fails, unmute it again so the
	// store never holds a muted video without its detached audio.
	muted := true
	if err := s.repo.UpdateClip(ctx, id, timeline.ClipUpdate{Muted: &muted}); err != nil {
		return nil, err
	}
	if err := s.repo.CreateClip(ctx, &audio); err != nil {
		unmuted := false
		if rbErr := s.repo.UpdateClip(ctx, id, timeline.ClipUpdate{Muted: &unmuted}); rbErr != nil {
			s.warn("separate-audio restore failed", "clip_id", id, "error", rbErr)
		}
		return nil, err
	}

	s.info("audio separated", "clip_id", id, "audio_clip_id", audio.ID)
	s.syncRenderer(ctx)
	return &audio, nil
}

// NudgeTrim moves one trim edge by delta seconds with the same clamps the
// resize gestures use. Out-of-range results are clamped, not rejected.
func (s *Service) NudgeTrim(ctx context.Context, id, edge string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return err
	}
	if clip == nil {
		s.warn("trim nudge for unknown clip", "clip_id", id)
		return nil
	}

	var update timeline.ClipUpdate
	switch edge {
	case "start":
		v := clampFloat(clip.TrimStart+delta, 0, clip.TrimEnd-timeline.MinClipDuration)
		update.TrimStart = &v
	case "end":
		v := clampFloat(clip.TrimEnd+delta, clip.TrimStart+timeline.MinClipDuration, clip.SourceDuration)
		update.TrimEnd = &v
	default:
		s.warn("trim nudge with unknown edge", "clip_id", id, "edge", edge)
		return nil
	}

	return s.updateClipLocked(ctx, id, update)
}

// BeginDrag starts an edit session over a clip. A drag already in flight is
// replaced; its uncommitted live values are discarded.
func (s *Service) BeginDrag(ctx context.Context, id string, mode session.Mode, pointerX, pointerY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clip, err := s.repo.GetClip(ctx, id)
	if err != nil {
		return err
	}
	if clip == nil {
		s.warn("drag on unknown clip", "clip_id", id)
		return nil
	}

	s.drag.Begin(*clip, mode, pointerX, pointerY)
	s.selected = id
	return nil
}

// DragTo feeds a pointer-move into the active session and returns the live
// snapshot. The committed store is untouched.
func (s *Service) DragTo(pointerX, pointerY float64) (timeline.Clip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.drag.Active() {
		return timeline.Clip{}, false
	}
	return s.drag.Update(pointerX, pointerY), true
}

// EndDrag commits the live snapshot's mode-relevant fields. Pointer-up with
// no session in flight is a no-op.
func (s *Service) EndDrag(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, update, err := s.drag.Commit()
	if err != nil {
		return nil
	}
	return s.updateClipLocked(ctx, id, update)
}

func (s *Service) DragActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Active()
}

// Seek moves the cursor to an absolute time, clamped at zero.
func (s *Service) Seek(ctx context.Context, t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < 0 {
		t = 0
	}
	s.cursor = t
	s.syncRenderer(ctx)
}

// ScrubToPixel maps a ruler pixel position to a time and seeks there.
// Idempotent, safe at pointer-move rate.
func (s *Service) ScrubToPixel(ctx context.Context, px float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = playhead.TimeAtPixel(px, session.PixelsPerSecond)
	s.syncRenderer(ctx)
	return s.cursor
}

// SeekToEnd jumps the cursor to the end of the last clip.
func (s *Service) SeekToEnd(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clips, err := s.repo.ListClips(ctx)
	if err != nil {
		return 0, err
	}
	end := 0.0
	for _, c := range clips {
		if c.End() > end {
			end = c.End()
		}
	}
	s.cursor = end
	s.syncRenderer(ctx)
	return end, nil
}

func (s *Service) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Service) SetPlaying(ctx context.Context, playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
	if s.recon != nil {
		s.recon.SetPlaying(playing)
	}
	s.syncRenderer(ctx)
}

func (s *Service) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Composition resolves the playback signal at t with the drag overlay
// applied, so a drag previews before it commits.
func (s *Service) Composition(ctx context.Context, t float64) (compose.Composition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clips, err := s.overlaidClips(ctx)
	if err != nil {
		return compose.Composition{}, err
	}
	return compose.Resolve(clips, t), nil
}

// CompositionAtCursor resolves the signal for the current cursor.
func (s *Service) CompositionAtCursor(ctx context.Context) (float64, compose.Composition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clips, err := s.overlaidClips(ctx)
	if err != nil {
		return 0, compose.Composition{}, err
	}
	return s.cursor, compose.Resolve(clips, s.cursor), nil
}

// Tick advances the cursor by one clock quantum when playing and refreshes
// the renderer. Paused ticks only refresh.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playing {
		s.cursor = playhead.Advance(s.cursor, playhead.TickQuantum)
	}
	s.syncRenderer(ctx)
}

// RunClock drives the playback clock until the context ends.
func (s *Service) RunClock(ctx context.Context) {
	ticker := time.NewTicker(playhead.TickQuantum)
	defer ticker.Stop()

	s.info("playback clock started", "quantum", playhead.TickQuantum)
	for {
		select {
		case <-ctx.Done():
			s.info("playback clock stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// syncRenderer recomputes the composition for the current cursor and hands
// it to the reconciler. Called with s.mu held.
func (s *Service) syncRenderer(ctx context.Context) {
	if s.recon == nil {
		return
	}
	clips, err := s.overlaidClips(ctx)
	if err != nil {
		s.warn("renderer sync skipped", "error", err)
		return
	}
	s.recon.Apply(compose.Resolve(clips, s.cursor))
}

func (s *Service) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
