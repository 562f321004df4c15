package timeline

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Kind identifies what a clip's source decodes to.
const (
	KindVideo = "video"
	KindAudio = "audio"
	KindImage = "image" // declared for importers, no playback behavior yet
)

const (
	// MinClipDuration is the floor for trimEnd-trimStart. Resizes and nudges
	// clamp against it so a clip can never collapse to zero length.
	MinClipDuration = 0.5

	// TrackCount is the number of lanes per media kind. Video and audio lane
	// groups are independent.
	TrackCount = 3
	MaxTrack   = TrackCount - 1
)

// Clip is one placed reference to a trimmed sub-range of a media source.
// TimelineStart, TrimStart and TrimEnd are seconds. The sub-range
// [TrimStart, TrimEnd) of the source plays over the timeline interval
// [TimelineStart, TimelineStart+Duration()).
type Clip struct {
	ID             string    `json:"id"`
	SourceHandle   string    `json:"source_handle"`
	Kind           string    `json:"kind"`
	DisplayName    string    `json:"display_name"`
	SourceDuration float64   `json:"source_duration"`
	TimelineStart  float64   `json:"timeline_start"`
	Track          int       `json:"track"`
	TrimStart      float64   `json:"trim_start"`
	TrimEnd        float64   `json:"trim_end"`
	Volume         float64   `json:"volume"`
	Muted          bool      `json:"muted"`
	CreatedAt      time.Time `json:"created_at"`
}

// Duration is the effective played length, always > 0 for a valid clip.
func (c *Clip) Duration() float64 {
	return c.TrimEnd - c.TrimStart
}

// End is the first timeline instant at which the clip is no longer active.
func (c *Clip) End() float64 {
	return c.TimelineStart + c.Duration()
}

// ActiveAt reports whether t falls inside the clip's half-open active
// interval. The end instant is excluded so back-to-back clips never
// double-activate at the seam.
func (c *Clip) ActiveAt(t float64) bool {
	return t >= c.TimelineStart && t < c.End()
}

// SourceTimeAt maps a timeline instant to the position within the source.
// Only meaningful while ActiveAt(t) holds.
func (c *Clip) SourceTimeAt(t float64) float64 {
	return c.TrimStart + (t - c.TimelineStart)
}

// Validate checks the clip invariants: positive effective duration, trim
// range inside the source, non-negative placement, track within the lane
// range.
func (c *Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip has no id")
	}
	if c.Kind != KindVideo && c.Kind != KindAudio && c.Kind != KindImage {
		return fmt.Errorf("unknown clip kind %q", c.Kind)
	}
	if c.TrimStart < 0 || c.TrimEnd > c.SourceDuration {
		return fmt.Errorf("trim range [%g, %g] outside source duration %g", c.TrimStart, c.TrimEnd, c.SourceDuration)
	}
	if c.TrimStart >= c.TrimEnd {
		return fmt.Errorf("trim range [%g, %g] has no duration", c.TrimStart, c.TrimEnd)
	}
	if c.TimelineStart < 0 {
		return fmt.Errorf("timeline start %g is negative", c.TimelineStart)
	}
	if c.Track < 0 || c.Track > MaxTrack {
		return fmt.Errorf("track %d outside [0, %d]", c.Track, MaxTrack)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume %g outside [0, 1]", c.Volume)
	}
	return nil
}

// ClipUpdate is a partial mutation: only non-nil fields are applied. ID,
// Kind, SourceHandle and SourceDuration are immutable after creation and
// deliberately absent.
type ClipUpdate struct {
	DisplayName   *string
	TimelineStart *float64
	Track         *int
	TrimStart     *float64
	TrimEnd       *float64
	Volume        *float64
	Muted         *bool
}

// IsZero reports whether the update carries no fields.
func (u ClipUpdate) IsZero() bool {
	return u.DisplayName == nil && u.TimelineStart == nil && u.Track == nil &&
		u.TrimStart == nil && u.TrimEnd == nil && u.Volume == nil && u.Muted == nil
}

// Apply returns a copy of c with the update's fields merged in. It does not
// validate; callers check the result before committing it.
func (c Clip) Apply(u ClipUpdate) Clip {
	if u.DisplayName != nil {
		c.DisplayName = *u.DisplayName
	}
	if u.TimelineStart != nil {
		c.TimelineStart = *u.TimelineStart
	}
	if u.Track != nil {
		c.Track = *u.Track
	}
	if u.TrimStart != nil {
		c.TrimStart = *u.TrimStart
	}
	if u.TrimEnd != nil {
		c.TrimEnd = *u.TrimEnd
	}
	if u.Volume != nil {
		c.Volume = *u.Volume
	}
	if u.Muted != nil {
		c.Muted = *u.Muted
	}
	return c
}

// ClampTrack forces a lane index into the valid range.
func ClampTrack(track int) int {
	if track < 0 {
		return 0
	}
	if track > MaxTrack {
		return MaxTrack
	}
	return track
}

func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
