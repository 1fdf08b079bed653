package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"menuforge/internal/httpkit"
	"menuforge/internal/menutree"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
)

// MenuRequest is the body of POST /menus and PUT /menus/{id}.
type MenuRequest struct {
	Name  string          `json:"name"`
	Items []menutree.Item `json:"items"`
}

func (req MenuRequest) validate() (MenuRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, apperrors.ValidationFields("invalid menu", map[string]string{"name": "name is required"})
	}
	if req.Items == nil {
		req.Items = []menutree.Item{}
	}
	if err := validateItems(req.Items); err != nil {
		return req, err
	}
	return req, nil
}

// validateItems rejects trees with empty or repeated ids.
func validateItems(items []menutree.Item) error {
	err := menutree.Validate(items)
	if err == nil {
		return nil
	}
	return apperrors.ValidationList("invalid menu items", strings.Split(err.Error(), "\n"))
}

// ListMenus handles GET /menus?userId=&name=&sort=. Regular users only see
// their own menus; the admin may filter by owner.
func (h *Handler) ListMenus(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()

	f := models.MenuFilter{
		OwnerID: id.UserID,
		Name:    strings.TrimSpace(q.Get("name")),
		Sort:    strings.TrimSpace(q.Get("sort")),
	}
	if f.Name == "" {
		f.Name = strings.TrimSpace(q.Get("q"))
	}
	if id.IsAdmin() {
		f.OwnerID = strings.TrimSpace(q.Get("userId"))
	}
	switch f.Sort {
	case "", models.SortCreatedDesc, models.SortNameAsc:
	default:
		return apperrors.ValidationFields("invalid query", map[string]string{
			"sort": "sort must be " + models.SortCreatedDesc + " or " + models.SortNameAsc,
		})
	}

	list, err := h.store.ListMenus(r.Context(), f)
	if err != nil {
		return apperrors.Wrap(err, "menus.list", "failed to list menus")
	}
	out := make([]models.MenuSummary, 0, len(list))
	for _, m := range list {
		out = append(out, m.Summary())
	}
	httpkit.WriteJSON(w, http.StatusOK, out)
	return nil
}

// loadMenu fetches {id} within the caller's scope.
func (h *Handler) loadMenu(r *http.Request) (models.Menu, error) {
	id, err := caller(r)
	if err != nil {
		return models.Menu{}, err
	}
	menuID := chi.URLParam(r, "id")
	m, err := h.store.GetMenu(r.Context(), menuID, ownerScope(id))
	if err != nil {
		return models.Menu{}, storeErr(err, "menus.get", "load menu", menuID)
	}
	return m, nil
}

// GetMenu handles GET /menus/{id}.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) error {
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, m.Summary())
	return nil
}

// CreateMenu handles POST /menus.
func (h *Handler) CreateMenu(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	var req MenuRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req, err = req.validate(); err != nil {
		return err
	}

	now := h.now().UTC()
	m := models.Menu{
		ID:        h.newID(),
		UserID:    id.UserID,
		Name:      req.Name,
		Items:     req.Items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateMenu(r.Context(), m); err != nil {
		return storeErr(err, "menus.create", "create menu", m.ID)
	}

	h.log.FromContext(r.Context()).WithMenuID(m.ID).Info("menu created", "items", menutree.Count(m.Items))
	httpkit.WriteJSON(w, http.StatusCreated, map[string]any{"id": m.ID, "name": m.Name})
	return nil
}

// ReplaceMenu handles PUT /menus/{id}: the whole tree is overwritten, and a
// missing menu is created for the caller. Concurrent writers are
// last-write-wins.
func (h *Handler) ReplaceMenu(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	var req MenuRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req, err = req.validate(); err != nil {
		return err
	}

	menuID := chi.URLParam(r, "id")
	stored, err := h.store.ReplaceMenu(r.Context(), models.Menu{
		ID:     menuID,
		UserID: id.UserID,
		Name:   req.Name,
		Items:  req.Items,
	}, ownerScope(id))
	if err != nil {
		return storeErr(err, "menus.replace", "save menu", menuID)
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "menu": stored.Summary()})
	return nil
}

// DeleteMenu handles DELETE /menus/{id}.
func (h *Handler) DeleteMenu(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	menuID := chi.URLParam(r, "id")
	if err := h.store.DeleteMenu(r.Context(), menuID, ownerScope(id)); err != nil {
		return storeErr(err, "menus.delete", "delete menu", menuID)
	}
	h.log.FromContext(r.Context()).WithMenuID(menuID).Info("menu deleted")
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	return nil
}
