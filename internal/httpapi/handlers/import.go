package handlers

import (
	"errors"
	"net/http"
	"strings"

	"menuforge/internal/httpkit"
	"menuforge/internal/importer"
	"menuforge/internal/menutree"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
)

// ImportRequest is the body of POST /menus/import.
type ImportRequest struct {
	Name    string `json:"name,omitempty"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ImportMenu handles POST /menus/import: the source is parsed into a fresh
// tree and saved as a new menu owned by the caller.
func (h *Handler) ImportMenu(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	var req ImportRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	format := importer.Format(strings.ToLower(strings.TrimSpace(req.Format)))
	fieldErrors := map[string]string{}
	switch format {
	case importer.FormatJSON, importer.FormatCSV:
		if strings.TrimSpace(req.Content) == "" {
			fieldErrors["content"] = "content is required"
		}
	case importer.FormatSheet:
		if strings.TrimSpace(req.URL) == "" {
			fieldErrors["url"] = "url is required"
		}
	default:
		fieldErrors["format"] = "format must be json, csv or sheet"
	}
	if len(fieldErrors) > 0 {
		return apperrors.ValidationFields("invalid import", fieldErrors)
	}

	items, err := h.importer.Import(r.Context(), importer.Request{
		Format:  format,
		Content: req.Content,
		URL:     strings.TrimSpace(req.URL),
	})
	switch {
	case errors.Is(err, importer.ErrInvalidInput):
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, "menus.import", err.Error())
	case errors.Is(err, importer.ErrFetch):
		return apperrors.WrapWithCode(err, apperrors.CodeBadRequest, "menus.import", "could not fetch import source")
	case err != nil:
		return apperrors.Wrap(err, "menus.import", "import failed")
	}
	if items == nil {
		items = []menutree.Item{}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = importer.DefaultName
	}
	now := h.now().UTC()
	m := models.Menu{
		ID:        h.newID(),
		UserID:    id.UserID,
		Name:      name,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateMenu(r.Context(), m); err != nil {
		return storeErr(err, "menus.import", "save imported menu", m.ID)
	}

	h.log.FromContext(r.Context()).WithMenuID(m.ID).Info("menu imported",
		"format", string(format),
		"items", menutree.Count(items),
	)
	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{"id": m.ID, "name": m.Name, "items": m.Items})
	return nil
}
