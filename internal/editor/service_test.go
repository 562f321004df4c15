package editor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Munykin/simple-video-editor/internal/db"
	"github.com/Munykin/simple-video-editor/internal/render"
	"github.com/Munykin/simple-video-editor/internal/session"
	"github.com/Munykin/simple-video-editor/internal/timeline"
)

func setupService(t *testing.T) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := timeline.NewRepository(database.Conn())
	return NewService(repo, nil, nil)
}

func importTestClip(t *testing.T, svc *Service, kind string, duration float64) *timeline.Clip {
	t.Helper()

	clip, err := svc.ImportClip(context.Background(), "media/src.mp4", kind, "src", duration)
	if err != nil {
		t.Fatalf("ImportClip() error = %v", err)
	}
	return clip
}

func TestService_ImportClip(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	svc.Seek(ctx, 3)
	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	if clip.TimelineStart != 3 {
		t.Errorf("TimelineStart = %g, want the cursor position 3", clip.TimelineStart)
	}
	if clip.TrimStart != 0 || clip.TrimEnd != 8 {
		t.Errorf("trim range [%g, %g], want the full source", clip.TrimStart, clip.TrimEnd)
	}
	if clip.Track != 0 || clip.Volume != 1 || clip.Muted {
		t.Errorf("defaults wrong: %+v", clip)
	}
	if svc.Selected() != clip.ID {
		t.Error("imported clip not selected")
	}
}

func TestService_ImportClip_Invalid(t *testing.T) {
	svc := setupService(t)

	_, err := svc.ImportClip(context.Background(), "media/x.mp4", timeline.KindVideo, "x", 0)
	if err == nil {
		t.Error("ImportClip() with zero duration should fail")
	}

	clips, _ := svc.Clips(context.Background())
	if len(clips) != 0 {
		t.Error("failed import left a clip behind")
	}
}

func TestService_UpdateClip_InvalidIsNoOp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	// A trim range past the source must leave the store untouched.
	bad := 20.0
	if err := svc.UpdateClip(ctx, clip.ID, timeline.ClipUpdate{TrimEnd: &bad}); err != nil {
		t.Fatalf("UpdateClip() error = %v, invalid gesture should not error", err)
	}

	got, _ := svc.repo.GetClip(ctx, clip.ID)
	if got.TrimEnd != 8 {
		t.Errorf("TrimEnd = %g, want untouched 8", got.TrimEnd)
	}
}

func TestService_UpdateClip_UnknownIDIsNoOp(t *testing.T) {
	svc := setupService(t)

	v := 0.5
	if err := svc.UpdateClip(context.Background(), "nope", timeline.ClipUpdate{Volume: &v}); err != nil {
		t.Errorf("UpdateClip() on unknown id error = %v, want nil", err)
	}
}

func TestService_DeleteClip_ClearsSelection(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	if err := svc.DeleteClip(ctx, clip.ID); err != nil {
		t.Fatalf("DeleteClip() error = %v", err)
	}
	if svc.Selected() != "" {
		t.Error("selection not cleared after deleting selected clip")
	}

	clips, _ := svc.Clips(ctx)
	if len(clips) != 0 {
		t.Error("clip still listed after delete")
	}
}

func TestService_SplitAt(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	svc.Seek(ctx, 2)
	clip := importTestClip(t, svc, timeline.KindVideo, 8)
	// Trim to [1, 7) so the source offset matters: active over [2, 8).
	one, seven := 1.0, 7.0
	if err := svc.UpdateClip(ctx, clip.ID, timeline.ClipUpdate{TrimStart: &one, TrimEnd: &seven}); err != nil {
		t.Fatalf("UpdateClip() error = %v", err)
	}

	second, err := svc.SplitAt(ctx, clip.ID, 4)
	if err != nil {
		t.Fatalf("SplitAt() error = %v", err)
	}
	if second == nil {
		t.Fatal("SplitAt() returned nil for an interior cut")
	}

	first, _ := svc.repo.GetClip(ctx, clip.ID)
	if first.TimelineStart != 2 || first.TrimStart != 1 || first.TrimEnd != 3 {
		t.Errorf("first half = start %g trim [%g, %g], want 2 [1, 3]", first.TimelineStart, first.TrimStart, first.TrimEnd)
	}
	if second.TimelineStart != 4 || second.TrimStart != 3 || second.TrimEnd != 7 {
		t.Errorf("second half = start %g trim [%g, %g], want 4 [3, 7]", second.TimelineStart, second.TrimStart, second.TrimEnd)
	}
	if second.ID == clip.ID {
		t.Error("second half reused the original id")
	}
	if second.SourceHandle != clip.SourceHandle || second.Track != first.Track {
		t.Error("second half lost source or lane")
	}
	if svc.Selected() != second.ID {
		t.Error("second half not selected after split")
	}

	// The seam is seamless: first ends exactly where the second begins.
	if first.End() != second.TimelineStart {
		t.Errorf("gap at seam: first ends %g, second starts %g", first.End(), second.TimelineStart)
	}
}

func TestService_SplitAt_BoundaryIsNoOp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 6) // active [0, 6)

	for _, at := range []float64{0, 6, -1, 9} {
		second, err := svc.SplitAt(ctx, clip.ID, at)
		if err != nil {
			t.Fatalf("SplitAt(%g) error = %v", at, err)
		}
		if second != nil {
			t.Errorf("SplitAt(%g) = %+v, want nil no-op", at, second)
		}
	}

	clips, _ := svc.Clips(ctx)
	if len(clips) != 1 {
		t.Errorf("boundary splits changed the clip count to %d", len(clips))
	}
}

func TestService_SplitAt_UnknownID(t *testing.T) {
	svc := setupService(t)

	second, err := svc.SplitAt(context.Background(), "nope", 1)
	if err != nil || second != nil {
		t.Errorf("SplitAt() on unknown id = (%+v, %v), want (nil, nil)", second, err)
	}
}

// failingCreateRepo passes everything through until failCreate is set, then
// refuses inserts. Stands in for the store erroring mid-mutation.
type failingCreateRepo struct {
	timeline.Repository
	failCreate bool
}

func (r *failingCreateRepo) CreateClip(ctx context.Context, clip *timeline.Clip) error {
	if r.failCreate {
		return errors.New("disk full")
	}
	return r.Repository.CreateClip(ctx, clip)
}

func TestService_SplitAt_RestoresOnInsertFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := &failingCreateRepo{Repository: timeline.NewRepository(database.Conn())}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	clip, err := svc.ImportClip(ctx, "media/src.mp4", timeline.KindVideo, "src", 6)
	if err != nil {
		t.Fatalf("ImportClip() error = %v", err)
	}

	repo.failCreate = true
	if _, err := svc.SplitAt(ctx, clip.ID, 3); err == nil {
		t.Fatal("SplitAt() should surface the insert failure")
	}

	// The original keeps its full tail and no second half exists.
	stored, _ := repo.GetClip(ctx, clip.ID)
	if stored.TrimEnd != 6 {
		t.Errorf("TrimEnd = %g, want 6 restored after failed split", stored.TrimEnd)
	}
	if n, _ := repo.CountClips(ctx); n != 1 {
		t.Errorf("clip count = %d, want 1", n)
	}
}

func TestService_SeparateAudio_RestoresOnInsertFailure(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := &failingCreateRepo{Repository: timeline.NewRepository(database.Conn())}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	clip, err := svc.ImportClip(ctx, "media/src.mp4", timeline.KindVideo, "src", 6)
	if err != nil {
		t.Fatalf("ImportClip() error = %v", err)
	}

	repo.failCreate = true
	if _, err := svc.SeparateAudio(ctx, clip.ID); err == nil {
		t.Fatal("SeparateAudio() should surface the insert failure")
	}

	stored, _ := repo.GetClip(ctx, clip.ID)
	if stored.Muted {
		t.Error("video left muted after failed audio insert")
	}
	if n, _ := repo.CountClips(ctx); n != 1 {
		t.Errorf("clip count = %d, want 1", n)
	}
}

func TestService_SeparateAudio(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	svc.Seek(ctx, 1)
	clip := importTestClip(t, svc, timeline.KindVideo, 8)
	// Give the video a distinctive gain and lane first.
	vol, track := 0.7, 2
	if err := svc.UpdateClip(ctx, clip.ID, timeline.ClipUpdate{Volume: &vol, Track: &track}); err != nil {
		t.Fatalf("UpdateClip() error = %v", err)
	}

	audio, err := svc.SeparateAudio(ctx, clip.ID)
	if err != nil {
		t.Fatalf("SeparateAudio() error = %v", err)
	}
	if audio == nil {
		t.Fatal("SeparateAudio() returned nil for a video clip")
	}

	if audio.Kind != timeline.KindAudio {
		t.Errorf("audio.Kind = %s, want audio", audio.Kind)
	}
	if audio.Track != 0 {
		t.Errorf("audio.Track = %d, want lane 0", audio.Track)
	}
	if audio.Muted {
		t.Error("separated audio must start unmuted")
	}
	// Placement, trim and gain carry over from the pre-mute video.
	if audio.TimelineStart != 1 || audio.TrimStart != 0 || audio.TrimEnd != 8 || audio.Volume != 0.7 {
		t.Errorf("audio clip lost pre-mute values: %+v", audio)
	}
	if audio.SourceHandle != clip.SourceHandle {
		t.Error("audio clip points at a different source")
	}

	video, _ := svc.repo.GetClip(ctx, clip.ID)
	if !video.Muted {
		t.Error("original video not muted")
	}
	if video.Volume != 0.7 {
		t.Error("original video volume changed; mute alone should silence it")
	}
}

func TestService_SeparateAudio_NonVideoIsNoOp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindAudio, 5)

	audio, err := svc.SeparateAudio(ctx, clip.ID)
	if err != nil || audio != nil {
		t.Errorf("SeparateAudio() on audio clip = (%+v, %v), want (nil, nil)", audio, err)
	}

	clips, _ := svc.Clips(ctx)
	if len(clips) != 1 {
		t.Error("no-op separate-audio changed the clip count")
	}
}

func TestService_NudgeTrim(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	if err := svc.NudgeTrim(ctx, clip.ID, "start", TrimStep); err != nil {
		t.Fatalf("NudgeTrim() error = %v", err)
	}
	got, _ := svc.repo.GetClip(ctx, clip.ID)
	if math.Abs(got.TrimStart-TrimStep) > 1e-9 {
		t.Errorf("TrimStart = %g, want %g", got.TrimStart, TrimStep)
	}

	// Nudging past the floor clamps instead of failing.
	if err := svc.NudgeTrim(ctx, clip.ID, "end", -100); err != nil {
		t.Fatalf("NudgeTrim() error = %v", err)
	}
	got, _ = svc.repo.GetClip(ctx, clip.ID)
	if math.Abs(got.TrimEnd-(got.TrimStart+timeline.MinClipDuration)) > 1e-9 {
		t.Errorf("TrimEnd = %g, want clamped to min duration above %g", got.TrimEnd, got.TrimStart)
	}

	// Unknown edge is a logged no-op.
	if err := svc.NudgeTrim(ctx, clip.ID, "middle", 1); err != nil {
		t.Errorf("NudgeTrim() with unknown edge error = %v, want nil", err)
	}
}

func TestService_DragLifecycle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	if err := svc.BeginDrag(ctx, clip.ID, session.ModeMove, 100, 0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	if !svc.DragActive() {
		t.Fatal("drag not active after BeginDrag")
	}

	live, ok := svc.DragTo(200, 0)
	if !ok {
		t.Fatal("DragTo() reported no active drag")
	}
	if live.TimelineStart != 2 {
		t.Errorf("live TimelineStart = %g, want 2", live.TimelineStart)
	}

	// Mid-drag the committed store is untouched, but reads see the overlay.
	stored, _ := svc.repo.GetClip(ctx, clip.ID)
	if stored.TimelineStart != 0 {
		t.Error("drag leaked into the store before commit")
	}
	view, _ := svc.Clips(ctx)
	if view[0].TimelineStart != 2 {
		t.Error("Clips() does not reflect the live overlay")
	}

	if err := svc.EndDrag(ctx); err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}
	if svc.DragActive() {
		t.Error("drag still active after EndDrag")
	}

	stored, _ = svc.repo.GetClip(ctx, clip.ID)
	if stored.TimelineStart != 2 {
		t.Errorf("committed TimelineStart = %g, want 2", stored.TimelineStart)
	}
}

func TestService_DragResizeLeftNearOrigin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	// Place the clip closer to the origin than its trim offset, then drag the
	// left edge well past the origin. The clamped result must land in the
	// store, not be dropped by validation.
	clip := importTestClip(t, svc, timeline.KindVideo, 10)
	start, trimStart, trimEnd := 1.0, 3.0, 9.0
	if err := svc.UpdateClip(ctx, clip.ID, timeline.ClipUpdate{
		TimelineStart: &start, TrimStart: &trimStart, TrimEnd: &trimEnd,
	}); err != nil {
		t.Fatalf("UpdateClip() error = %v", err)
	}

	if err := svc.BeginDrag(ctx, clip.ID, session.ModeResizeLeft, 0, 0); err != nil {
		t.Fatalf("BeginDrag() error = %v", err)
	}
	svc.DragTo(-500, 0)
	if err := svc.EndDrag(ctx); err != nil {
		t.Fatalf("EndDrag() error = %v", err)
	}

	stored, _ := svc.repo.GetClip(ctx, clip.ID)
	if stored.TimelineStart != 0 {
		t.Errorf("committed TimelineStart = %g, want 0", stored.TimelineStart)
	}
	if stored.TrimStart != 2 {
		t.Errorf("committed TrimStart = %g, want 2", stored.TrimStart)
	}
}

func TestService_EndDrag_WithoutSession(t *testing.T) {
	svc := setupService(t)

	if err := svc.EndDrag(context.Background()); err != nil {
		t.Errorf("EndDrag() with no session error = %v, want nil", err)
	}
}

func TestService_DragTo_WithoutSession(t *testing.T) {
	svc := setupService(t)

	if _, ok := svc.DragTo(10, 10); ok {
		t.Error("DragTo() with no session reported an active drag")
	}
}

func TestService_BeginDrag_ReplacesInFlight(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 8)

	svc.BeginDrag(ctx, clip.ID, session.ModeMove, 0, 0)
	svc.DragTo(500, 0)

	// A fresh pointer-down discards the in-flight values.
	svc.BeginDrag(ctx, clip.ID, session.ModeMove, 0, 0)
	svc.EndDrag(ctx)

	stored, _ := svc.repo.GetClip(ctx, clip.ID)
	if stored.TimelineStart != 0 {
		t.Errorf("TimelineStart = %g, discarded drag leaked into commit", stored.TimelineStart)
	}
}

func TestService_SeekAndScrub(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	svc.Seek(ctx, -5)
	if svc.Cursor() != 0 {
		t.Errorf("Cursor() = %g, want clamped 0", svc.Cursor())
	}

	got := svc.ScrubToPixel(ctx, 250)
	if got != 5 {
		t.Errorf("ScrubToPixel(250) = %g, want 5", got)
	}
	if svc.Cursor() != 5 {
		t.Errorf("Cursor() = %g after scrub, want 5", svc.Cursor())
	}
}

func TestService_SeekToEnd(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	end, err := svc.SeekToEnd(ctx)
	if err != nil {
		t.Fatalf("SeekToEnd() error = %v", err)
	}
	if end != 0 {
		t.Errorf("SeekToEnd() on empty timeline = %g, want 0", end)
	}

	importTestClip(t, svc, timeline.KindVideo, 4)
	svc.Seek(ctx, 10)
	importTestClip(t, svc, timeline.KindVideo, 2) // ends at 12

	end, err = svc.SeekToEnd(ctx)
	if err != nil {
		t.Fatalf("SeekToEnd() error = %v", err)
	}
	if end != 12 {
		t.Errorf("SeekToEnd() = %g, want 12", end)
	}
}

func TestService_TickAdvancesOnlyWhilePlaying(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	svc.Tick(ctx)
	if svc.Cursor() != 0 {
		t.Errorf("paused Tick moved the cursor to %g", svc.Cursor())
	}

	svc.SetPlaying(ctx, true)
	svc.Tick(ctx)
	svc.Tick(ctx)
	if math.Abs(svc.Cursor()-0.2) > 1e-9 {
		t.Errorf("Cursor() = %g after two ticks, want 0.2", svc.Cursor())
	}

	svc.SetPlaying(ctx, false)
	before := svc.Cursor()
	svc.Tick(ctx)
	if svc.Cursor() != before {
		t.Error("Tick moved the cursor while paused")
	}
}

func TestService_Composition(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	video := importTestClip(t, svc, timeline.KindVideo, 8)
	audio := importTestClip(t, svc, timeline.KindAudio, 8)

	comp, err := svc.Composition(ctx, 3)
	if err != nil {
		t.Fatalf("Composition() error = %v", err)
	}
	if comp.Video == nil || comp.Video.ClipID != video.ID {
		t.Errorf("Composition().Video = %+v, want clip %s", comp.Video, video.ID)
	}
	if len(comp.Audio) != 1 || comp.Audio[0].ClipID != audio.ID {
		t.Errorf("Composition().Audio = %+v, want clip %s", comp.Audio, audio.ID)
	}

	comp, err = svc.Composition(ctx, 100)
	if err != nil {
		t.Fatalf("Composition() error = %v", err)
	}
	if comp.Video != nil || len(comp.Audio) != 0 {
		t.Error("Composition() past the end should be empty")
	}
}

func TestService_CompositionSeesDragOverlay(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	clip := importTestClip(t, svc, timeline.KindVideo, 4) // active [0, 4)

	svc.BeginDrag(ctx, clip.ID, session.ModeMove, 0, 0)
	svc.DragTo(500, 0) // live start 10, active [10, 14)

	comp, err := svc.Composition(ctx, 12)
	if err != nil {
		t.Fatalf("Composition() error = %v", err)
	}
	if comp.Video == nil || comp.Video.ClipID != clip.ID {
		t.Error("composition does not preview the dragged position")
	}

	comp, _ = svc.Composition(ctx, 1)
	if comp.Video != nil {
		t.Error("composition still shows the committed position mid-drag")
	}
}

func TestService_RendererFollowsEdits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer database.Close()

	recon := render.NewReconciler(func() render.Renderer {
		return render.NewLogRenderer(nil)
	}, nil)
	svc := NewService(timeline.NewRepository(database.Conn()), recon, nil)
	ctx := context.Background()

	importTestClip(t, svc, timeline.KindAudio, 6)
	if recon.ActiveAudioCount() != 1 {
		t.Errorf("active audio = %d after import at cursor, want 1", recon.ActiveAudioCount())
	}

	svc.Seek(ctx, 50)
	if recon.ActiveAudioCount() != 0 {
		t.Errorf("active audio = %d after seeking past the clip, want 0", recon.ActiveAudioCount())
	}
}
