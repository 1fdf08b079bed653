package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"menuforge/internal/export"
	"menuforge/internal/httpkit"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/templates"
)

func visibleOnlyParam(r *http.Request) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("visibleOnly"))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.ValidationFields("invalid query", map[string]string{"visibleOnly": "visibleOnly must be true or false"})
	}
	return v, nil
}

func (h *Handler) render(w http.ResponseWriter, m models.Menu, f export.Format, opts export.Options) error {
	art, err := export.Render(m.Name, m.Items, f, opts)
	if err != nil {
		return apperrors.Wrap(err, "export.render", "failed to render export")
	}
	h.countExport(string(f))
	if f == export.FormatHTML {
		w.Header().Set("Content-Type", art.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Body)
		return nil
	}
	httpkit.WriteAttachment(w, art.Filename, art.ContentType, art.Body)
	return nil
}

// ExportJSON handles GET /menus/{id}/export.json.
func (h *Handler) ExportJSON(w http.ResponseWriter, r *http.Request) error {
	visibleOnly, err := visibleOnlyParam(r)
	if err != nil {
		return err
	}
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	return h.render(w, m, export.FormatJSON, export.Options{VisibleOnly: visibleOnly})
}

// ExportPHP handles GET /menus/{id}/export.php?template=. Unknown or empty
// templates fall back to the default body.
func (h *Handler) ExportPHP(w http.ResponseWriter, r *http.Request) error {
	visibleOnly, err := visibleOnlyParam(r)
	if err != nil {
		return err
	}
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	list, err := h.store.ListTemplates(r.Context())
	if err != nil {
		return apperrors.Wrap(err, "templates.list", "failed to load templates")
	}
	return h.render(w, m, export.FormatPHP, export.Options{
		Template:    templates.Lookup(list, r.URL.Query().Get("template")),
		VisibleOnly: visibleOnly,
	})
}

// Preview handles GET /menus/{id}/preview.html?hidden=include|exclude.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) error {
	hidden := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hidden")))
	switch hidden {
	case "", "exclude", "include":
	default:
		return apperrors.ValidationFields("invalid query", map[string]string{"hidden": "hidden must be include or exclude"})
	}
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	return h.render(w, m, export.FormatHTML, export.Options{VisibleOnly: hidden != "include"})
}
