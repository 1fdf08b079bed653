package menutree

import (
	"errors"
	"fmt"
)

var (
	// ErrParentNotFound is returned by Insert when the parent id is absent.
	ErrParentNotFound = errors.New("parent item not found")
	// ErrItemNotFound is returned when a referenced item id is absent.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidMove is returned when an item would be moved into its own subtree.
	ErrInvalidMove = errors.New("invalid move: item cannot be placed inside its own subtree")
	// ErrDuplicateID is reported by Validate for ids that occur more than once.
	ErrDuplicateID = errors.New("duplicate item id")
	// ErrEmptyID is reported by Validate for items without an id.
	ErrEmptyID = errors.New("item id is empty")
)

// Insert appends item to the children of the node parentID. An empty
// parentID appends to the root sequence. When the parent does not exist the
// input is returned unchanged together with ErrParentNotFound.
func Insert(items []Item, parentID string, item Item) ([]Item, error) {
	if parentID == "" {
		out := make([]Item, len(items), len(items)+1)
		copy(out, items)
		return append(out, item), nil
	}

	out, ok := mapFirst(items, parentID, func(parent Item) Item {
		children := make([]Item, len(parent.Children), len(parent.Children)+1)
		copy(children, parent.Children)
		parent.Children = append(children, item)
		return parent
	})
	if !ok {
		return items, fmt.Errorf("%w: %s", ErrParentNotFound, parentID)
	}
	return out, nil
}

// Delete removes the node id, with its subtree, wherever it is nested.
func Delete(items []Item, id string) []Item {
	return BulkDelete(items, []string{id})
}

// BulkDelete removes every node whose id is in ids, wherever nested.
func BulkDelete(items []Item, ids []string) []Item {
	set := toSet(ids)
	if len(set) == 0 {
		return items
	}
	out, _ := removeWhere(items, func(it Item) bool {
		_, hit := set[it.ID]
		return hit
	})
	return out
}

// Edit merges fields into the node id. Missing ids are a no-op.
func Edit(items []Item, id string, fields Fields) []Item {
	return BulkEdit(items, []string{id}, fields)
}

// BulkEdit merges fields into every node whose id is in ids, wherever nested.
func BulkEdit(items []Item, ids []string, fields Fields) []Item {
	set := toSet(ids)
	if len(set) == 0 || fields.IsZero() {
		return items
	}
	out, _ := mapWhere(items, func(it Item) (Item, bool) {
		if _, hit := set[it.ID]; !hit {
			return it, false
		}
		return fields.Apply(it), true
	})
	return out
}

// ToggleVisible flips the visibility of node id. Missing ids are a no-op.
func ToggleVisible(items []Item, id string) []Item {
	out, _ := mapFirst(items, id, func(it Item) Item {
		v := !it.IsVisible()
		it.Visible = &v
		return it
	})
	return out
}

// Move detaches dragID and reinserts it immediately before hoverID in
// hoverID's sibling sequence. Moving an item onto itself is a no-op; moving
// it before one of its own descendants fails with ErrInvalidMove.
func Move(items []Item, dragID, hoverID string) ([]Item, error) {
	if dragID == hoverID {
		return items, nil
	}
	drag, ok := Find(items, dragID)
	if !ok {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, dragID)
	}
	if _, ok := Find(items, hoverID); !ok {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, hoverID)
	}
	if _, inside := Find(drag.Children, hoverID); inside {
		return items, fmt.Errorf("%w: %s into %s", ErrInvalidMove, dragID, hoverID)
	}

	detached := Delete(items, dragID)
	out, _ := insertBefore(detached, hoverID, drag)
	return out, nil
}

// Duplicate clones node id with its whole subtree, assigns fresh ids to
// every cloned node and places the clone right after the original.
func Duplicate(items []Item, id string, newID IDFunc) ([]Item, error) {
	if newID == nil {
		newID = NewID
	}
	out, ok := duplicateIn(items, id, newID)
	if !ok {
		return items, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return out, nil
}

// Find returns the first node with the given id in depth-first order.
func Find(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
		if found, ok := Find(it.Children, id); ok {
			return found, true
		}
	}
	return Item{}, false
}

// CollectIDs returns every id in the tree in depth-first pre-order.
func CollectIDs(items []Item) []string {
	var ids []string
	Walk(items, func(it Item, _ int) {
		ids = append(ids, it.ID)
	})
	return ids
}

// Count returns the total number of nodes.
func Count(items []Item) int {
	n := 0
	Walk(items, func(Item, int) { n++ })
	return n
}

// Walk visits every node in depth-first pre-order with its depth (roots are 0).
func Walk(items []Item, fn func(it Item, depth int)) {
	walk(items, 0, fn)
}

func walk(items []Item, depth int, fn func(Item, int)) {
	for _, it := range items {
		fn(it, depth)
		walk(it.Children, depth+1, fn)
	}
}

// PruneInvisible drops every node whose visible flag is false, with its subtree.
func PruneInvisible(items []Item) []Item {
	out, _ := removeWhere(items, func(it Item) bool { return !it.IsVisible() })
	return out
}

// Validate reports empty and duplicated ids. The returned error joins one
// error per offending id.
func Validate(items []Item) error {
	seen := make(map[string]struct{})
	var errs []error
	Walk(items, func(it Item, _ int) {
		if it.ID == "" {
			errs = append(errs, fmt.Errorf("%w: %q", ErrEmptyID, it.Text))
			return
		}
		if _, dup := seen[it.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateID, it.ID))
			return
		}
		seen[it.ID] = struct{}{}
	})
	return errors.Join(errs...)
}

// ReassignIDs returns a deep copy of the tree with every id replaced.
func ReassignIDs(items []Item, newID IDFunc) []Item {
	if items == nil {
		return nil
	}
	if newID == nil {
		newID = NewID
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = cloneWithNewIDs(it, newID)
	}
	return out
}

func cloneWithNewIDs(it Item, newID IDFunc) Item {
	it.ID = newID()
	if it.Visible != nil {
		v := *it.Visible
		it.Visible = &v
	}
	it.Children = ReassignIDs(it.Children, newID)
	return it
}

// mapFirst replaces the first node with the given id by fn(node). Only the
// path from the root to that node is copied.
func mapFirst(items []Item, id string, fn func(Item) Item) ([]Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := cloneSlice(items)
			out[i] = fn(it)
			return out, true
		}
		if children, ok := mapFirst(it.Children, id, fn); ok {
			out := cloneSlice(items)
			out[i].Children = children
			return out, true
		}
	}
	return items, false
}

// mapWhere applies fn to every node, recursing into all children. Unchanged
// subtrees are shared with the input.
func mapWhere(items []Item, fn func(Item) (Item, bool)) ([]Item, bool) {
	var out []Item
	for i, it := range items {
		next, changed := fn(it)
		children, childChanged := mapWhere(it.Children, fn)
		if childChanged {
			next.Children = children
			changed = true
		}
		if !changed {
			continue
		}
		if out == nil {
			out = cloneSlice(items)
		}
		out[i] = next
	}
	if out == nil {
		return items, false
	}
	return out, true
}

// removeWhere drops every node for which drop returns true, recursively.
func removeWhere(items []Item, drop func(Item) bool) ([]Item, bool) {
	changed := false
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if drop(it) {
			changed = true
			continue
		}
		if children, ok := removeWhere(it.Children, drop); ok {
			it.Children = children
			changed = true
		}
		kept = append(kept, it)
	}
	if !changed {
		return items, false
	}
	return kept, true
}

func insertBefore(items []Item, hoverID string, moved Item) ([]Item, bool) {
	for i, it := range items {
		if it.ID == hoverID {
			out := make([]Item, 0, len(items)+1)
			out = append(out, items[:i]...)
			out = append(out, moved)
			out = append(out, items[i:]...)
			return out, true
		}
		if children, ok := insertBefore(it.Children, hoverID, moved); ok {
			out := cloneSlice(items)
			out[i].Children = children
			return out, true
		}
	}
	return items, false
}

func duplicateIn(items []Item, id string, newID IDFunc) ([]Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := make([]Item, 0, len(items)+1)
			out = append(out, items[:i+1]...)
			out = append(out, cloneWithNewIDs(it, newID))
			out = append(out, items[i+1:]...)
			return out, true
		}
		if children, ok := duplicateIn(it.Children, id, newID); ok {
			out := cloneSlice(items)
			out[i].Children = children
			return out, true
		}
	}
	return items, false
}

func cloneSlice(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
