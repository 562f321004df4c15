package render

import (
	"log/slog"
	"sync"
)

// Renderer is the capability boundary to whatever actually decodes and
// plays media. The core only tells it which source to show, at what offset,
// with what gain; it never touches frames or samples.
type Renderer interface {
	// LoadAndSeek binds the resource to a source and positions it. Calling it
	// with a new handle swaps the source.
	LoadAndSeek(handle string, sourceTime float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetPlaying(playing bool) error
	// Position reports the renderer's own playback position within the
	// current source, used for drift comparison.
	Position() float64
	// Release tears the resource down. The resource must not be used after.
	Release()
}

// RendererFactory allocates one playback resource per active layer.
type RendererFactory func() Renderer

// LogRenderer is a renderer that only records what it was told. It stands in
// for a real player in headless runs and in tests.
type LogRenderer struct {
	logger *slog.Logger

	mu      sync.Mutex
	handle  string
	pos     float64
	volume  float64
	muted   bool
	playing bool
	released bool
}

func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	return &LogRenderer{logger: logger, volume: 1}
}

func (r *LogRenderer) LoadAndSeek(handle string, sourceTime float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = handle
	r.pos = sourceTime
	if r.logger != nil {
		r.logger.Debug("renderer load+seek", "handle", handle, "source_time", sourceTime)
	}
	return nil
}

func (r *LogRenderer) SetVolume(volume float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.volume = volume
	return nil
}

func (r *LogRenderer) SetMuted(muted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = muted
	return nil
}

func (r *LogRenderer) SetPlaying(playing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = playing
	return nil
}

func (r *LogRenderer) Position() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

func (r *LogRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
	if r.logger != nil {
		r.logger.Debug("renderer released", "handle", r.handle)
	}
}

// Released reports whether Release was called. Test hook.
func (r *LogRenderer) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Handle reports the currently bound source. Test hook.
func (r *LogRenderer) Handle() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}
