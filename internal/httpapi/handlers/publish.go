package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"menuforge/internal/auth"
	"menuforge/internal/export"
	"menuforge/internal/httpkit"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/ports"
	"menuforge/internal/worker/queue"
)

// PublishRequest is the body of POST /menus/{id}/publish.
type PublishRequest struct {
	Format      string `json:"format"`
	Template    string `json:"template,omitempty"`
	VisibleOnly bool   `json:"visibleOnly,omitempty"`
}

func (h *Handler) requireQueue() error {
	if h.queue == nil {
		return apperrors.Unavailable("publish queue")
	}
	return nil
}

// Publish handles POST /menus/{id}/publish: a job is queued for the worker
// and 202 is returned right away.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) error {
	if err := h.requireQueue(); err != nil {
		return err
	}
	id, err := caller(r)
	if err != nil {
		return err
	}
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	var req PublishRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil || format == export.FormatHTML {
		return apperrors.ValidationFields("invalid publish request", map[string]string{"format": "format must be json or php"})
	}

	job := models.PublishJob{
		ID:          h.newID(),
		MenuID:      m.ID,
		UserID:      id.UserID,
		Format:      string(format),
		Template:    strings.TrimSpace(req.Template),
		VisibleOnly: req.VisibleOnly,
		Status:      models.PublishQueued,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		return apperrors.Wrap(err, "publish.enqueue", "failed to queue publish job")
	}

	h.log.FromContext(r.Context()).WithMenuID(m.ID).WithJobID(job.ID).Info("publish job queued", "format", job.Format)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{"job": job})
	return nil
}

// loadJob fetches {jobId}. Jobs of other users are reported as missing
// unless the caller is the admin.
func (h *Handler) loadJob(r *http.Request) (models.PublishJob, auth.Identity, error) {
	if err := h.requireQueue(); err != nil {
		return models.PublishJob{}, auth.Identity{}, err
	}
	id, err := caller(r)
	if err != nil {
		return models.PublishJob{}, auth.Identity{}, err
	}
	jobID := chi.URLParam(r, "jobId")
	job, err := h.queue.Get(r.Context(), jobID)
	if errors.Is(err, queue.ErrJobNotFound) || (err == nil && !id.IsAdmin() && job.UserID != id.UserID) {
		return models.PublishJob{}, id, apperrors.NotFound("publish job", jobID)
	}
	if err != nil {
		return models.PublishJob{}, id, apperrors.Wrap(err, "publish.get", "failed to load publish job")
	}
	return job, id, nil
}

// GetPublishJob handles GET /publish/{jobId}.
func (h *Handler) GetPublishJob(w http.ResponseWriter, r *http.Request) error {
	job, _, err := h.loadJob(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"job": job})
	return nil
}

// GetPublishArtifact handles GET /publish/{jobId}/artifact by streaming the
// stored object.
func (h *Handler) GetPublishArtifact(w http.ResponseWriter, r *http.Request) error {
	job, _, err := h.loadJob(r)
	if err != nil {
		return err
	}
	if job.Status != models.PublishDone || job.ObjectKey == "" {
		return apperrors.New(apperrors.CodeFailedPrecond, "publish job has no artifact yet").
			WithField("status", string(job.Status))
	}
	if h.sp == nil {
		return apperrors.Unavailable("artifact storage")
	}

	rc, ct, size, err := h.sp.GetObject(r.Context(), job.ObjectKey)
	if errors.Is(err, ports.ErrObjectNotFound) {
		return apperrors.NotFound("artifact", job.ObjectKey)
	}
	if err != nil {
		return apperrors.Wrap(err, "publish.artifact", "failed to read artifact")
	}
	defer rc.Close()

	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
	return nil
}

// DeletePublishJob handles DELETE /publish/{jobId}: the artifact, if any,
// and the job record are removed.
func (h *Handler) DeletePublishJob(w http.ResponseWriter, r *http.Request) error {
	job, _, err := h.loadJob(r)
	if err != nil {
		return err
	}
	if job.ObjectKey != "" && h.sp != nil {
		if err := h.sp.DeleteObject(r.Context(), job.ObjectKey); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			return apperrors.Wrap(err, "publish.delete", "failed to delete artifact")
		}
	}
	if err := h.queue.Delete(r.Context(), job.ID); err != nil {
		return apperrors.Wrap(err, "publish.delete", "failed to delete publish job")
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
