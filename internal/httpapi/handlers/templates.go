package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"menuforge/internal/httpkit"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/templates"
)

// BulkTemplatesRequest is the body of POST /templates/bulk.
type BulkTemplatesRequest struct {
	Templates []models.Template `json:"templates"`
}

// ListTemplates handles GET /templates. A stored registry that breaks the
// default invariant is normalized and written back before it is returned.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) error {
	list, err := h.healTemplates(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, list)
	return nil
}

func (h *Handler) healTemplates(r *http.Request) ([]models.Template, error) {
	current, err := h.store.ListTemplates(r.Context())
	if err != nil {
		return nil, apperrors.Wrap(err, "templates.list", "failed to load templates")
	}
	normalized := templates.EnsureDefault(current)
	if templates.Equal(current, normalized) {
		return normalized, nil
	}
	if err := h.store.ReplaceTemplates(r.Context(), normalized); err != nil {
		return nil, apperrors.Wrap(err, "templates.heal", "failed to repair templates")
	}
	h.log.FromContext(r.Context()).Info("template registry repaired", "count", len(normalized))
	return normalized, nil
}

// BulkTemplates handles POST /templates/bulk: the registry is validated and
// replaced as a whole.
func (h *Handler) BulkTemplates(w http.ResponseWriter, r *http.Request) error {
	var req BulkTemplatesRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	normalized, err := templates.Validate(req.Templates)
	if err != nil {
		var verr *templates.ValidationError
		if errors.As(err, &verr) {
			return apperrors.ValidationList("invalid templates", verr.Messages)
		}
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, "templates.bulk", "invalid templates")
	}
	if err := h.store.ReplaceTemplates(r.Context(), normalized); err != nil {
		return apperrors.Wrap(err, "templates.bulk", "failed to save templates")
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "templates": normalized})
	return nil
}

// DeleteTemplate handles DELETE /templates/{name}. The default template can
// never be deleted.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")
	if err := templates.CheckDeletable(name); err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, "templates.delete", err.Error())
	}
	if err := h.store.DeleteTemplate(r.Context(), name); err != nil {
		return apperrors.Wrap(err, "templates.delete", "failed to delete template")
	}
	if _, err := h.healTemplates(r); err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	return nil
}
