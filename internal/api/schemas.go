package api

import (
	"time"

	"github.com/Munykin/simple-video-editor/internal/compose"
	"github.com/Munykin/simple-video-editor/internal/generate"
	"github.com/Munykin/simple-video-editor/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type ClipResponse struct {
	ID             string  `json:"id"`
	SourceHandle   string  `json:"source_handle"`
	Kind           string  `json:"kind"`
	DisplayName    string  `json:"display_name"`
	SourceDuration float64 `json:"source_duration"`
	TimelineStart  float64 `json:"timeline_start"`
	Track          int     `json:"track"`
	TrimStart      float64 `json:"trim_start"`
	TrimEnd        float64 `json:"trim_end"`
	Volume         float64 `json:"volume"`
	Muted          bool    `json:"muted"`
	CreatedAt      string  `json:"created_at"`
}

type StateResponse struct {
	Clips      []ClipResponse `json:"clips"`
	Cursor     float64        `json:"cursor"`
	Playing    bool           `json:"playing"`
	SelectedID string         `json:"selected_id,omitempty"`
	DragActive bool           `json:"drag_active"`
}

type CreateClipRequest struct {
	SourceHandle string  `json:"source_handle"`
	Kind         string  `json:"kind"`
	DisplayName  string  `json:"display_name,omitempty"`
	Duration     float64 `json:"duration"`
}

// UpdateClipRequest carries only the fields the caller wants changed;
// absent fields are left alone.
type UpdateClipRequest struct {
	DisplayName   *string  `json:"display_name,omitempty"`
	TimelineStart *float64 `json:"timeline_start,omitempty"`
	Track         *int     `json:"track,omitempty"`
	TrimStart     *float64 `json:"trim_start,omitempty"`
	TrimEnd       *float64 `json:"trim_end,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	Muted         *bool    `json:"muted,omitempty"`
}

type SplitRequest struct {
	At *float64 `json:"at,omitempty"` // defaults to the cursor
}

type TrimNudgeRequest struct {
	Edge  string   `json:"edge"` // "start" or "end"
	Delta *float64 `json:"delta,omitempty"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
}

type BeginSessionRequest struct {
	ClipID   string  `json:"clip_id"`
	Mode     string  `json:"mode"`
	PointerX float64 `json:"pointer_x"`
	PointerY float64 `json:"pointer_y"`
}

type PointerRequest struct {
	PointerX float64 `json:"pointer_x"`
	PointerY float64 `json:"pointer_y"`
}

type PlayheadRequest struct {
	Time  *float64 `json:"time,omitempty"`
	Pixel *float64 `json:"pixel,omitempty"`
	ToEnd bool     `json:"to_end,omitempty"`
}

type PlayheadResponse struct {
	Cursor float64 `json:"cursor"`
}

type TransportRequest struct {
	Playing bool `json:"playing"`
}

type ComposeResponse struct {
	Time        float64        `json:"time"`
	Video       *compose.Layer `json:"video,omitempty"`
	Audio       []compose.Layer `json:"audio"`
	ResyncLimit float64        `json:"resync_limit"`
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Kind   string `json:"kind"`
}

type GenerateResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID           string  `json:"id"`
	Prompt       string  `json:"prompt"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	SourceHandle string  `json:"source_handle,omitempty"`
	Duration     float64 `json:"duration,omitempty"`
	ClipID       string  `json:"clip_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c *timeline.Clip) ClipResponse {
	return ClipResponse{
		ID:             c.ID,
		SourceHandle:   c.SourceHandle,
		Kind:           c.Kind,
		DisplayName:    c.DisplayName,
		SourceDuration: c.SourceDuration,
		TimelineStart:  c.TimelineStart,
		Track:          c.Track,
		TrimStart:      c.TrimStart,
		TrimEnd:        c.TrimEnd,
		Volume:         c.Volume,
		Muted:          c.Muted,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

func (r UpdateClipRequest) ToUpdate() timeline.ClipUpdate {
	return timeline.ClipUpdate{
		DisplayName:   r.DisplayName,
		TimelineStart: r.TimelineStart,
		Track:         r.Track,
		TrimStart:     r.TrimStart,
		TrimEnd:       r.TrimEnd,
		Volume:        r.Volume,
		Muted:         r.Muted,
	}
}

func JobToResponse(j *generate.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		Prompt:       j.Prompt,
		Kind:         j.Kind,
		Status:       j.Status,
		Error:        j.Error,
		SourceHandle: j.SourceHandle,
		Duration:     j.Duration,
		ClipID:       j.ClipID,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.Format(time.RFC3339),
	}
}
