package ports

import (
	"context"
	"errors"

	"menuforge/internal/models"
)

var (
	ErrMenuNotFound = errors.New("menu not found")
	ErrMenuExists   = errors.New("menu id already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// MenuStore persists menus. An empty owner argument means "any owner" and is
// only passed for callers holding the admin role.
type MenuStore interface {
	// ListMenus returns menus ordered by MenuFilter.Sort (newest first by default).
	ListMenus(ctx context.Context, f models.MenuFilter) ([]models.Menu, error)
	GetMenu(ctx context.Context, id, owner string) (models.Menu, error)
	CreateMenu(ctx context.Context, m models.Menu) error
	// ReplaceMenu overwrites name and items of menu m.ID, creating it for
	// m.UserID when absent. A menu that exists under a different owner than
	// owner yields ErrMenuNotFound. The stored menu is returned.
	ReplaceMenu(ctx context.Context, m models.Menu, owner string) (models.Menu, error)
	DeleteMenu(ctx context.Context, id, owner string) error
}

// TemplateStore persists the template registry as one ordered list.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]models.Template, error)
	// ReplaceTemplates swaps the whole list atomically.
	ReplaceTemplates(ctx context.Context, list []models.Template) error
	// DeleteTemplate removes name. Missing names are not an error.
	DeleteTemplate(ctx context.Context, name string) error
}

// UserStore persists accounts.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	// CreateUser fails with ErrUserExists on a duplicate username and with
	// models.ErrAdminRoleReserved when the admin role is given to anyone but "admin".
	CreateUser(ctx context.Context, u models.User) error
	UpdateUser(ctx context.Context, u models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Store is one persistence backend.
type Store interface {
	MenuStore
	TemplateStore
	UserStore

	// Backend names the implementation ("postgres" or "jsonfile").
	Backend() string
	Ping(ctx context.Context) error
	Close()
}
