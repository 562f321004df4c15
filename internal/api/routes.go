package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Munykin/simple-video-editor/internal/compose"
	"github.com/Munykin/simple-video-editor/internal/config"
	"github.com/Munykin/simple-video-editor/internal/editor"
	"github.com/Munykin/simple-video-editor/internal/session"
	"github.com/Munykin/simple-video-editor/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/state", stateHandler(cfg))

		r.Get("/clips", listClipsHandler(cfg))
		r.Post("/clips", createClipHandler(cfg))
		r.Patch("/clips/{id}", updateClipHandler(cfg))
		r.Delete("/clips/{id}", deleteClipHandler(cfg))
		r.Post("/clips/{id}/split", splitHandler(cfg))
		r.Post("/clips/{id}/separate-audio", separateAudioHandler(cfg))
		r.Post("/clips/{id}/trim", trimNudgeHandler(cfg))
		r.Post("/select", selectHandler(cfg))

		r.Post("/session", beginSessionHandler(cfg))
		r.Patch("/session", updateSessionHandler(cfg))
		r.Post("/session/commit", commitSessionHandler(cfg))

		r.Post("/playhead", playheadHandler(cfg))
		r.Post("/transport", transportHandler(cfg))
		r.Get("/compose", composeHandler(cfg))

		r.Post("/generate", generateHandler(cfg))
		r.Get("/generate/jobs", listJobsHandler(cfg))
		r.Get("/generate/jobs/{id}", getJobHandler(cfg))

		r.Get("/media", mediaHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := cfg.Editor.Clips(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}

		resp := StateResponse{
			Clips:      make([]ClipResponse, len(clips)),
			Cursor:     cfg.Editor.Cursor(),
			Playing:    cfg.Editor.Playing(),
			SelectedID: cfg.Editor.Selected(),
			DragActive: cfg.Editor.DragActive(),
		}
		for i, c := range clips {
			resp.Clips[i] = ClipToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := cfg.Editor.Clips(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}

		resp := make([]ClipResponse, len(clips))
		for i, c := range clips {
			resp[i] = ClipToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.SourceHandle == "" {
			WriteError(w, http.StatusBadRequest, "source_handle is required", "BAD_REQUEST")
			return
		}
		if req.Duration <= 0 {
			WriteError(w, http.StatusBadRequest, "duration must be positive", "BAD_REQUEST")
			return
		}

		name := req.DisplayName
		if name == "" {
			name = req.SourceHandle
		}

		clip, err := cfg.Editor.ImportClip(r.Context(), req.SourceHandle, req.Kind, name, req.Duration)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ClipToResponse(clip))
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.UpdateClip(r.Context(), id, req.ToUpdate()); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.DeleteClip(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func splitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		var req SplitRequest
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}

		at := cfg.Editor.Cursor()
		if req.At != nil {
			at = *req.At
		}

		second, err := cfg.Editor.SplitAt(r.Context(), id, at)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if second == nil {
			// Boundary or stale id: defined no-op.
			w.WriteHeader(http.StatusNoContent)
			return
		}

		WriteJSON(w, http.StatusCreated, ClipToResponse(second))
	}
}

func separateAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		audio, err := cfg.Editor.SeparateAudio(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if audio == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		WriteJSON(w, http.StatusCreated, ClipToResponse(audio))
	}
}

func trimNudgeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		var req TrimNudgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Edge != "start" && req.Edge != "end" {
			WriteError(w, http.StatusBadRequest, "edge must be start or end", "BAD_REQUEST")
			return
		}

		delta := editor.TrimStep
		if req.Delta != nil {
			delta = *req.Delta
		}

		if err := cfg.Editor.NudgeTrim(r.Context(), id, req.Edge, delta); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Editor.Select(req.ClipID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func beginSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BeginSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		mode := session.Mode(req.Mode)
		if mode != session.ModeMove && mode != session.ModeResizeLeft && mode != session.ModeResizeRight {
			WriteError(w, http.StatusBadRequest, "unknown session mode", "BAD_REQUEST")
			return
		}
		if req.ClipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.BeginDrag(r.Context(), req.ClipID, mode, req.PointerX, req.PointerY); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func updateSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PointerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		live, ok := cfg.Editor.DragTo(req.PointerX, req.PointerY)
		if !ok {
			// Pointer-move with no drag in flight: benign.
			w.WriteHeader(http.StatusNoContent)
			return
		}

		WriteJSON(w, http.StatusOK, ClipToResponse(&live))
	}
}

func commitSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.EndDrag(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func playheadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlayheadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		switch {
		case req.ToEnd:
			cursor, err := cfg.Editor.SeekToEnd(r.Context())
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			WriteJSON(w, http.StatusOK, PlayheadResponse{Cursor: cursor})
		case req.Pixel != nil:
			cursor := cfg.Editor.ScrubToPixel(r.Context(), *req.Pixel)
			WriteJSON(w, http.StatusOK, PlayheadResponse{Cursor: cursor})
		case req.Time != nil:
			cfg.Editor.Seek(r.Context(), *req.Time)
			WriteJSON(w, http.StatusOK, PlayheadResponse{Cursor: cfg.Editor.Cursor()})
		default:
			WriteError(w, http.StatusBadRequest, "time, pixel or to_end required", "BAD_REQUEST")
		}
	}
}

func transportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TransportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Editor.SetPlaying(r.Context(), req.Playing)
		w.WriteHeader(http.StatusNoContent)
	}
}

func composeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("t")

		if raw == "" {
			cursor, resolved, err := cfg.Editor.CompositionAtCursor(r.Context())
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			WriteJSON(w, http.StatusOK, composeResponse(cursor, resolved))
			return
		}

		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid t", "BAD_REQUEST")
			return
		}

		resolved, err := cfg.Editor.Composition(r.Context(), t)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, composeResponse(t, resolved))
	}
}

func composeResponse(t float64, c compose.Composition) ComposeResponse {
	audio := c.Audio
	if audio == nil {
		audio = []compose.Layer{}
	}
	return ComposeResponse{
		Time:        t,
		Video:       c.Video,
		Audio:       audio,
		ResyncLimit: compose.ResyncThreshold,
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if strings.TrimSpace(req.Prompt) == "" {
			WriteError(w, http.StatusBadRequest, "prompt is required", "BAD_REQUEST")
			return
		}
		if req.Kind != timeline.KindVideo && req.Kind != timeline.KindAudio {
			WriteError(w, http.StatusBadRequest, "kind must be video or audio", "BAD_REQUEST")
			return
		}

		job, err := cfg.GenRunner.Submit(r.Context(), req.Prompt, req.Kind)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, GenerateResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Jobs.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Jobs.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clipID := r.URL.Query().Get("clip_id")
		if clipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Repository.GetClip(r.Context(), clipID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		if strings.HasPrefix(clip.SourceHandle, "http://") || strings.HasPrefix(clip.SourceHandle, "https://") {
			http.Redirect(w, r, clip.SourceHandle, http.StatusFound)
			return
		}

		if err := cfg.MediaServer.ServeHandle(w, r, clip.SourceHandle); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "clip_id", clipID)
		}
	}
}
