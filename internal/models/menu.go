package models

import (
	"time"

	"menuforge/internal/menutree"
)

// Menu is a named, owned, persisted tree of items.
type Menu struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Items     []menutree.Item `json:"items"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// MenuSummary is the listing shape returned to clients.
type MenuSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []menutree.Item `json:"items"`
}

// Summary drops owner and timestamps.
func (m Menu) Summary() MenuSummary {
	items := m.Items
	if items == nil {
		items = []menutree.Item{}
	}
	return MenuSummary{ID: m.ID, Name: m.Name, Items: items}
}

// MenuFilter scopes List calls. An empty OwnerID lists every owner.
type MenuFilter struct {
	OwnerID string
	// Name is matched case-insensitively as a substring.
	Name string
	// Sort is SortCreatedDesc (default) or SortNameAsc.
	Sort string
}

// Sort orders supported by menu listings.
const (
	SortCreatedDesc = "created_desc"
	SortNameAsc     = "name_asc"
)
