// Package handlers implements the REST endpoints. Every handler returns an
// error that the router's ErrorWriter turns into a JSON response.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"menuforge/internal/auth"
	"menuforge/internal/importer"
	"menuforge/internal/menutree"
	"menuforge/internal/metrics"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/ports"
)

// PublishQueue is the job side of the publish worker. A nil queue disables
// publishing.
type PublishQueue interface {
	Enqueue(ctx context.Context, job models.PublishJob) error
	Get(ctx context.Context, id string) (models.PublishJob, error)
	Delete(ctx context.Context, id string) error
}

// HealthCheck probes one dependency for GET /health?deep=true.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Store    ports.Store
	Auth     *auth.Service
	Importer *importer.Importer
	Queue    PublishQueue
	SP       ports.StorageProvider
	Metrics  *metrics.Metrics
	Log      *logger.Logger
	// Checks are extra named probes (redis, storage) run by the deep health check.
	Checks map[string]HealthCheck
	NewID  menutree.IDFunc
	Now    func() time.Time
}

type Handler struct {
	store    ports.Store
	auth     *auth.Service
	importer *importer.Importer
	queue    PublishQueue
	sp       ports.StorageProvider
	metrics  *metrics.Metrics
	log      *logger.Logger
	checks   map[string]HealthCheck
	newID    menutree.IDFunc
	now      func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		store:    d.Store,
		auth:     d.Auth,
		importer: d.Importer,
		queue:    d.Queue,
		sp:       d.SP,
		metrics:  d.Metrics,
		log:      d.Log,
		checks:   d.Checks,
		newID:    d.NewID,
		now:      d.Now,
	}
	if h.log == nil {
		h.log = logger.NewDefault()
	}
	if h.importer == nil {
		h.importer = importer.New()
	}
	if h.newID == nil {
		h.newID = menutree.NewID
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// caller returns the identity attached by auth.RequireAuth.
func caller(r *http.Request) (auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, apperrors.Unauthorized("authorization required")
	}
	return id, nil
}

// ownerScope is the owner argument for store calls: the caller's id, or
// empty (any owner) for the admin.
func ownerScope(id auth.Identity) string {
	if id.IsAdmin() {
		return ""
	}
	return id.UserID
}

// storeErr maps persistence sentinels onto coded errors.
func storeErr(err error, op, what, id string) error {
	switch {
	case errors.Is(err, ports.ErrMenuNotFound):
		return apperrors.NotFound("menu", id)
	case errors.Is(err, ports.ErrMenuExists):
		return apperrors.AlreadyExists("menu", id)
	case errors.Is(err, ports.ErrUserNotFound):
		return apperrors.NotFound("user", id)
	case errors.Is(err, ports.ErrUserExists):
		return apperrors.AlreadyExists("user", id)
	default:
		return apperrors.Wrap(err, op, "failed to "+what)
	}
}

func (h *Handler) countMutation(op string) {
	if h.metrics != nil {
		h.metrics.TreeMutations.Increment(op)
	}
}

func (h *Handler) countExport(f string) {
	if h.metrics != nil {
		h.metrics.Exports.Increment(f)
	}
}
