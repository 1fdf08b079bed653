// Package httpapi wires the REST API: middleware chain, auth guards and
// routes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"menuforge/internal/auth"
	"menuforge/internal/httpapi/handlers"
	"menuforge/internal/httpkit"
	"menuforge/internal/importer"
	"menuforge/internal/menutree"
	"menuforge/internal/metrics"
	"menuforge/internal/models"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/pkg/middleware"
	"menuforge/internal/ports"
)

// DefaultAllowedOrigins are used when no CORS origins are configured.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:8081",
}

type Deps struct {
	Store    ports.Store
	Auth     *auth.Service
	Importer *importer.Importer
	// Queue is nil when Redis is not configured; publish routes answer 503.
	Queue   handlers.PublishQueue
	SP      ports.StorageProvider
	Metrics *metrics.Metrics
	Log     *logger.Logger
	Checks  map[string]handlers.HealthCheck
	// NewID overrides item and menu id generation.
	NewID menutree.IDFunc

	AllowedOrigins []string
	RequestTimeout time.Duration
	// ExposeStack adds stack traces to error bodies (never in production).
	ExposeStack bool
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	allowedOrigins := d.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	ew := middleware.ErrorWriter{Log: log, ExposeStack: d.ExposeStack}
	h := handlers.New(handlers.Deps{
		Store:    d.Store,
		Auth:     d.Auth,
		Importer: d.Importer,
		Queue:    d.Queue,
		SP:       d.SP,
		Metrics:  d.Metrics,
		Log:      log,
		Checks:   d.Checks,
		NewID:    d.NewID,
	})

	// ---- HEALTH / METRICS ----
	r.Get("/health", ew.Wrap(h.Health))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}

		// ---- AUTH ----
		r.Post("/auth/register", ew.Wrap(h.Register))
		r.Post("/auth/login", ew.Wrap(h.Login))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Auth.Tokens(), ew))

			r.Get("/me", ew.Wrap(h.Me))
			r.With(auth.RequireRole(models.RoleAdmin, ew)).Get("/users", ew.Wrap(h.ListUsers))

			// ---- MENUS ----
			r.Get("/menus", ew.Wrap(h.ListMenus))
			r.Post("/menus", ew.Wrap(h.CreateMenu))
			r.Post("/menus/import", ew.Wrap(h.ImportMenu))
			r.Route("/menus/{id}", func(r chi.Router) {
				r.Use(menuContext)

				r.Get("/", ew.Wrap(h.GetMenu))
				r.Put("/", ew.Wrap(h.ReplaceMenu))
				r.Delete("/", ew.Wrap(h.DeleteMenu))

				r.Post("/ops", ew.Wrap(h.ApplyOp))
				r.Get("/items", ew.Wrap(h.Items))
				r.Get("/ids", ew.Wrap(h.IDs))

				r.Get("/export.json", ew.Wrap(h.ExportJSON))
				r.Get("/export.php", ew.Wrap(h.ExportPHP))
				r.Get("/preview.html", ew.Wrap(h.Preview))

				r.Post("/publish", ew.Wrap(h.Publish))
			})

			// ---- PUBLISH ----
			r.Get("/publish/{jobId}", ew.Wrap(h.GetPublishJob))
			r.Get("/publish/{jobId}/artifact", ew.Wrap(h.GetPublishArtifact))
			r.Delete("/publish/{jobId}", ew.Wrap(h.DeletePublishJob))

			// ---- TEMPLATES ----
			r.Get("/templates", ew.Wrap(h.ListTemplates))
			r.Post("/templates/bulk", ew.Wrap(h.BulkTemplates))
			r.Delete("/templates/{name}", ew.Wrap(h.DeleteTemplate))
		})
	})

	return r
}

// menuContext tags request logs with the menu id from the path.
func menuContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.ContextWithMenuID(r.Context(), chi.URLParam(r, "id"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
