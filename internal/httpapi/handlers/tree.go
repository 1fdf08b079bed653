package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"menuforge/internal/httpkit"
	"menuforge/internal/menutree"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
)

// Tree operations accepted by POST /menus/{id}/ops.
const (
	OpInsert        = "insert"
	OpDelete        = "delete"
	OpEdit          = "edit"
	OpMove          = "move"
	OpDuplicate     = "duplicate"
	OpBulkEdit      = "bulkEdit"
	OpBulkDelete    = "bulkDelete"
	OpToggleVisible = "toggleVisible"
)

// OpRequest is one tree operation. Only the members its op needs are read.
type OpRequest struct {
	Op       string          `json:"op"`
	ParentID string          `json:"parentId,omitempty"`
	ID       string          `json:"id,omitempty"`
	IDs      []string        `json:"ids,omitempty"`
	DragID   string          `json:"dragId,omitempty"`
	HoverID  string          `json:"hoverId,omitempty"`
	Item     *menutree.Item  `json:"item,omitempty"`
	Fields   menutree.Fields `json:"fields"`
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.ValidationFields("invalid operation", map[string]string{name: name + " is required"})
	}
	return nil
}

// apply runs req against items.
func (h *Handler) apply(items []menutree.Item, req OpRequest) ([]menutree.Item, error) {
	switch req.Op {
	case OpInsert:
		item := menutree.NewItem("")
		if req.Item != nil {
			item = *req.Item
			if strings.TrimSpace(item.Text) == "" {
				item.Text = menutree.DefaultText
			}
		}
		if req.Item == nil || item.ID == "" {
			item.ID = h.newID()
		}
		if _, exists := menutree.Find(items, item.ID); exists {
			return nil, apperrors.ValidationFields("invalid operation", map[string]string{"item.id": "id already used in this menu"})
		}
		if err := validateItems([]menutree.Item{item}); err != nil {
			return nil, err
		}
		out, err := menutree.Insert(items, req.ParentID, item)
		if err != nil {
			return nil, err
		}
		// Descendant ids of the new item must not collide with the rest of the tree.
		if err := validateItems(out); err != nil {
			return nil, err
		}
		return out, nil
	case OpDelete:
		if err := requireField("id", req.ID); err != nil {
			return nil, err
		}
		return menutree.Delete(items, req.ID), nil
	case OpEdit:
		if err := requireField("id", req.ID); err != nil {
			return nil, err
		}
		return menutree.Edit(items, req.ID, req.Fields), nil
	case OpMove:
		if err := requireField("dragId", req.DragID); err != nil {
			return nil, err
		}
		if err := requireField("hoverId", req.HoverID); err != nil {
			return nil, err
		}
		return menutree.Move(items, req.DragID, req.HoverID)
	case OpDuplicate:
		if err := requireField("id", req.ID); err != nil {
			return nil, err
		}
		return menutree.Duplicate(items, req.ID, h.newID)
	case OpBulkEdit:
		return menutree.BulkEdit(items, req.IDs, req.Fields), nil
	case OpBulkDelete:
		return menutree.BulkDelete(items, req.IDs), nil
	case OpToggleVisible:
		if err := requireField("id", req.ID); err != nil {
			return nil, err
		}
		return menutree.ToggleVisible(items, req.ID), nil
	default:
		return nil, apperrors.ValidationFields("invalid operation", map[string]string{"op": "unknown operation " + strconv.Quote(req.Op)})
	}
}

// treeErr maps tree model failures onto coded errors.
func treeErr(err error) error {
	switch {
	case errors.Is(err, menutree.ErrItemNotFound):
		return apperrors.WrapWithCode(err, apperrors.CodeNotFound, "tree.apply", err.Error())
	case errors.Is(err, menutree.ErrParentNotFound), errors.Is(err, menutree.ErrInvalidMove):
		return apperrors.WrapWithCode(err, apperrors.CodeValidation, "tree.apply", err.Error())
	default:
		return err
	}
}

// ApplyOp handles POST /menus/{id}/ops: one tree operation applied to the
// stored tree and saved wholesale.
func (h *Handler) ApplyOp(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	var req OpRequest
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	items, err := h.apply(m.Items, req)
	if err != nil {
		return treeErr(err)
	}

	stored, err := h.store.ReplaceMenu(r.Context(), models.Menu{
		ID:     m.ID,
		UserID: m.UserID,
		Name:   m.Name,
		Items:  items,
	}, ownerScope(id))
	if err != nil {
		return storeErr(err, "menus.ops", "save menu", m.ID)
	}
	h.countMutation(req.Op)

	h.log.FromContext(r.Context()).WithMenuID(m.ID).Debug("tree operation applied", "op", req.Op)
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"items": stored.Summary().Items})
	return nil
}

func parseOptionalBool(q map[string][]string, key string, fieldErrors map[string]string) *bool {
	vals := q[key]
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(vals[0]))
	if err != nil {
		fieldErrors[key] = key + " must be true or false"
		return nil
	}
	return &b
}

// Items handles GET /menus/{id}/items?q=&hasChildren=&hasIcon=&visibleOnly=.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) error {
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()
	fieldErrors := map[string]string{}
	query := menutree.Query{
		Text:        q.Get("q"),
		HasChildren: parseOptionalBool(q, "hasChildren", fieldErrors),
		HasIcon:     parseOptionalBool(q, "hasIcon", fieldErrors),
	}
	visibleOnly := parseOptionalBool(q, "visibleOnly", fieldErrors)
	if len(fieldErrors) > 0 {
		return apperrors.ValidationFields("invalid query", fieldErrors)
	}

	items := m.Items
	if visibleOnly != nil && *visibleOnly {
		items = menutree.PruneInvisible(items)
	}
	if !query.IsZero() {
		items = menutree.Filter(items, query.Predicate())
	}
	if items == nil {
		items = []menutree.Item{}
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
	return nil
}

// IDs handles GET /menus/{id}/ids.
func (h *Handler) IDs(w http.ResponseWriter, r *http.Request) error {
	m, err := h.loadMenu(r)
	if err != nil {
		return err
	}
	ids := menutree.CollectIDs(m.Items)
	if ids == nil {
		ids = []string{}
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{"ids": ids})
	return nil
}
