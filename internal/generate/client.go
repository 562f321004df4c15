package generate

import (
	"context"
	"errors"
	"log/slog"
)

// Client is the boundary to a generative-AI backend. Generate blocks until
// the backend produces media or fails; it may take minutes, so callers pass
// a deadline context. The editor never sees prompts after submission — only
// the finished handle and duration.
type Client interface {
	Generate(ctx context.Context, prompt, kind string) (Result, error)
}

var ErrNoBackend = errors.New("no generation backend configured")

// StubClient is used when no backend is configured. Every request fails
// terminally, which surfaces in the job status rather than blocking the
// editor.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Generate(ctx context.Context, prompt, kind string) (Result, error) {
	if c.logger != nil {
		c.logger.Info("generation stub: request rejected", "kind", kind)
	}
	return Result{}, ErrNoBackend
}
