package generate

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Munykin/simple-video-editor/internal/timeline"
)

const maxPromptName = 40

// ClipPlacer turns a finished generation into a clip at the current cursor.
// Satisfied by the editor service.
type ClipPlacer interface {
	ImportClip(ctx context.Context, sourceHandle, kind, displayName string, duration float64) (*timeline.Clip, error)
}

// Runner drains pending generation jobs one at a time. Generation can take
// minutes; editing continues while a job is in flight, and a failure only
// marks the job failed — no clip appears.
type Runner struct {
	repo         Repository
	client       Client
	placer       ClipPlacer
	logger       *slog.Logger
	pollInterval time.Duration
	jobTimeout   time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, client Client, placer ClipPlacer, jobTimeout time.Duration, logger *slog.Logger) *Runner {
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Runner{
		repo:         repo,
		client:       client,
		placer:       placer,
		logger:       logger,
		pollInterval: 5 * time.Second,
		jobTimeout:   jobTimeout,
	}
}

// Submit queues a generation request and returns immediately.
func (r *Runner) Submit(ctx context.Context, prompt, kind string) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:        timeline.NewID(),
		Prompt:    prompt,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	r.logger.Info("generation job queued", "job_id", job.ID, "kind", kind)
	return job, nil
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("generation runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("generation runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("generation runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("generation runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending generation jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing generation job", "job_id", job.ID, "kind", job.Kind)
	r.repo.UpdateJobStatus(ctx, job.ID, StatusRunning, "")

	genCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()

	result, err := r.client.Generate(genCtx, job.Prompt, job.Kind)
	if err != nil {
		r.logger.Warn("generation failed", "job_id", job.ID, "error", err)
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, err.Error())
		return
	}

	clip, err := r.placer.ImportClip(ctx, result.SourceHandle, job.Kind, promptName(job.Prompt), result.Duration)
	if err != nil {
		r.logger.Error("failed to place generated clip", "job_id", job.ID, "error", err)
		r.repo.UpdateJobStatus(ctx, job.ID, StatusFailed, "placing clip: "+err.Error())
		return
	}

	if err := r.repo.CompleteJob(ctx, job.ID, result.SourceHandle, result.Duration, clip.ID); err != nil {
		r.logger.Error("failed to record completed job", "job_id", job.ID, "error", err)
		return
	}

	r.logger.Info("generation job completed", "job_id", job.ID, "clip_id", clip.ID, "duration", result.Duration)
}

func promptName(prompt string) string {
	if len(prompt) <= maxPromptName {
		return prompt
	}
	return prompt[:maxPromptName]
}
