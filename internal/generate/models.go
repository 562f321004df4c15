package generate

import "time"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one generation request. It lives in the store so an in-flight
// request survives a restart (interrupted jobs are marked failed on boot).
// A completed job records the handle and duration it produced plus the clip
// that was placed from it.
type Job struct {
	ID           string    `json:"id"`
	Prompt       string    `json:"prompt"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	SourceHandle string    `json:"source_handle,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	ClipID       string    `json:"clip_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Result is what a finished generation hands back to the editor: a
// resolvable media handle and its native duration. Nothing else crosses the
// boundary.
type Result struct {
	SourceHandle string
	Duration     float64
}
