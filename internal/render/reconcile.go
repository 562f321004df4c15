package render

import (
	"log/slog"

	"github.com/Munykin/simple-video-editor/internal/compose"
)

// Reconciler diffs each resolved composition against the renderer resources
// it holds: clips leaving the active set release their resource, clips
// entering it get a fresh one, surviving clips get their position and gain
// refreshed. The video pool holds at most one resource (only one video layer
// is ever active); the audio pool holds one per active layer. The two pools
// are independent of each other.
type Reconciler struct {
	factory RendererFactory
	logger  *slog.Logger

	video       Renderer
	videoClipID string
	audio       map[string]Renderer

	playing bool
}

func NewReconciler(factory RendererFactory, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		factory: factory,
		logger:  logger,
		audio:   make(map[string]Renderer),
	}
}

// Apply pushes one resolved composition to the renderer resources.
// Teardown for vanished clips happens before allocation for new ones so a
// recomputation can never leak resources.
func (rc *Reconciler) Apply(comp compose.Composition) {
	rc.applyVideo(comp.Video)
	rc.applyAudio(comp.Audio)
}

func (rc *Reconciler) applyVideo(layer *compose.Layer) {
	if layer == nil {
		if rc.video != nil {
			rc.video.Release()
			rc.video = nil
			rc.videoClipID = ""
		}
		return
	}

	// The single video element survives topmost-clip changes; only its
	// source is swapped.
	if rc.video == nil {
		rc.video = rc.factory()
	}

	swapped := rc.videoClipID != layer.ClipID
	rc.videoClipID = layer.ClipID

	if swapped || compose.NeedsResync(rc.video.Position(), layer.SourceTime) {
		if err := rc.video.LoadAndSeek(layer.SourceHandle, layer.SourceTime); err != nil && rc.logger != nil {
			rc.logger.Warn("video load failed", "clip_id", layer.ClipID, "error", err)
		}
	}
	rc.video.SetVolume(layer.Volume)
	rc.video.SetMuted(layer.Muted)
	rc.video.SetPlaying(rc.playing)
}

func (rc *Reconciler) applyAudio(layers []compose.Layer) {
	want := make(map[string]compose.Layer, len(layers))
	for _, l := range layers {
		want[l.ClipID] = l
	}

	for id, r := range rc.audio {
		if _, ok := want[id]; !ok {
			r.Release()
			delete(rc.audio, id)
		}
	}

	for id, l := range want {
		r, ok := rc.audio[id]
		if !ok {
			r = rc.factory()
			rc.audio[id] = r
			if err := r.LoadAndSeek(l.SourceHandle, l.SourceTime); err != nil && rc.logger != nil {
				rc.logger.Warn("audio load failed", "clip_id", id, "error", err)
			}
		} else if compose.NeedsResync(r.Position(), l.SourceTime) {
			if err := r.LoadAndSeek(l.SourceHandle, l.SourceTime); err != nil && rc.logger != nil {
				rc.logger.Warn("audio resync failed", "clip_id", id, "error", err)
			}
		}
		r.SetVolume(l.Volume)
		r.SetMuted(l.Muted)
		r.SetPlaying(rc.playing)
	}
}

// SetPlaying propagates the transport state to every live resource.
func (rc *Reconciler) SetPlaying(playing bool) {
	rc.playing = playing
	if rc.video != nil {
		rc.video.SetPlaying(playing)
	}
	for _, r := range rc.audio {
		r.SetPlaying(playing)
	}
}

// Close releases everything. Used at shutdown.
func (rc *Reconciler) Close() {
	if rc.video != nil {
		rc.video.Release()
		rc.video = nil
		rc.videoClipID = ""
	}
	for id, r := range rc.audio {
		r.Release()
		delete(rc.audio, id)
	}
}

// ActiveAudioCount reports how many audio resources are live. Test hook.
func (rc *Reconciler) ActiveAudioCount() int {
	return len(rc.audio)
}
