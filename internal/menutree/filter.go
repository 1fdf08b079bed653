package menutree

import "strings"

// Predicate selects items for Filter.
type Predicate func(Item) bool

// Query is the composable editor filter. All set criteria must hold.
type Query struct {
	// Text is matched case-insensitively as a substring of text, uri and className.
	Text string
	// HasChildren, when set, requires the item to have (or lack) children.
	HasChildren *bool
	// HasIcon, when set, requires the item to have (or lack) an icon.
	HasIcon *bool
}

// IsZero reports whether the query matches everything.
func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Text) == "" && q.HasChildren == nil && q.HasIcon == nil
}

// Match reports whether it satisfies every criterion of q.
func (q Query) Match(it Item) bool {
	if s := strings.ToLower(strings.TrimSpace(q.Text)); s != "" {
		if !containsFold(it.Text, s) && !containsFold(it.URI, s) && !containsFold(it.ClassName, s) {
			return false
		}
	}
	if q.HasChildren != nil && it.HasChildren() != *q.HasChildren {
		return false
	}
	if q.HasIcon != nil && (it.Icon != "") != *q.HasIcon {
		return false
	}
	return true
}

// Predicate returns q as a Predicate.
func (q Query) Predicate() Predicate {
	return q.Match
}

// All composes predicates with AND.
func All(preds ...Predicate) Predicate {
	return func(it Item) bool {
		for _, p := range preds {
			if p != nil && !p(it) {
				return false
			}
		}
		return true
	}
}

// Filter keeps every node that matches pred or has a matching descendant.
// Ancestors of matches are kept even when they do not match themselves.
// Order is preserved and children that were absent stay absent.
func Filter(items []Item, pred Predicate) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		var children []Item
		if it.Children != nil {
			children = Filter(it.Children, pred)
		}
		if !pred(it) && len(children) == 0 {
			continue
		}
		it.Children = children
		out = append(out, it)
	}
	return out
}

func containsFold(field, lowerNeedle string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerNeedle)
}
