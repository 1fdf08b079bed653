// Package jsonfile is the flat-file backend: menus, templates and users are
// each kept in one JSON array file that is read and rewritten whole on every
// operation.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"menuforge/internal/menutree"
	"menuforge/internal/models"
	"menuforge/internal/ports"
	"menuforge/internal/templates"
)

const (
	menusFile     = "menus.json"
	templatesFile = "templates.json"
	usersFile     = "users.json"
)

// Store implements ports.Store on top of a data directory.
type Store struct {
	dir string
	// mu serializes read-modify-write cycles within this process.
	mu  sync.Mutex
	now func() time.Time
}

var _ ports.Store = (*Store)(nil)

// Open creates dir and seeds missing files: an empty menu list, an empty
// user list and a template list holding only the default entry.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir, now: func() time.Time { return time.Now().UTC() }}

	seeds := map[string]any{
		menusFile:     []models.Menu{},
		usersFile:     []models.User{},
		templatesFile: templates.EnsureDefault(nil),
	}
	for name, seed := range seeds {
		if _, err := os.Stat(s.path(name)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := s.write(name, seed); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Backend() string { return "jsonfile" }

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *Store) Close() {}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) read(name string, v any) error {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write replaces the file atomically: readers see either the old or the new
// content, never a partial one.
func (s *Store) write(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path(name))
}

// ---- menus ----

func (s *Store) loadMenus() ([]models.Menu, error) {
	var list []models.Menu
	if err := s.read(menusFile, &list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = withItems(list[i])
	}
	return list, nil
}

// withItems replaces a nil tree with an empty one.
func withItems(m models.Menu) models.Menu {
	if m.Items == nil {
		m.Items = []menutree.Item{}
	}
	return m
}

func (s *Store) ListMenus(_ context.Context, f models.MenuFilter) ([]models.Menu, error) {
	s.mu.Lock()
	list, err := s.loadMenus()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(strings.TrimSpace(f.Name))
	out := make([]models.Menu, 0, len(list))
	for _, m := range list {
		if f.OwnerID != "" && m.UserID != f.OwnerID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(m.Name), name) {
			continue
		}
		out = append(out, m)
	}

	if f.Sort == models.SortNameAsc {
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out, nil
}

func (s *Store) GetMenu(_ context.Context, id, owner string) (models.Menu, error) {
	s.mu.Lock()
	list, err := s.loadMenus()
	s.mu.Unlock()
	if err != nil {
		return models.Menu{}, err
	}
	for _, m := range list {
		if m.ID == id && (owner == "" || m.UserID == owner) {
			return m, nil
		}
	}
	return models.Menu{}, ports.ErrMenuNotFound
}

func (s *Store) CreateMenu(_ context.Context, m models.Menu) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadMenus()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.ID == m.ID {
			return ports.ErrMenuExists
		}
	}
	m = withItems(m)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	m.UpdatedAt = m.CreatedAt
	return s.write(menusFile, append([]models.Menu{m}, list...))
}

func (s *Store) ReplaceMenu(_ context.Context, m models.Menu, owner string) (models.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadMenus()
	if err != nil {
		return models.Menu{}, err
	}

	m = withItems(m)
	now := s.now()
	for i, existing := range list {
		if existing.ID != m.ID {
			continue
		}
		if owner != "" && existing.UserID != owner {
			return models.Menu{}, ports.ErrMenuNotFound
		}
		existing.Name = m.Name
		existing.Items = m.Items
		existing.UpdatedAt = now
		list[i] = existing
		return existing, s.write(menusFile, list)
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	return m, s.write(menusFile, append([]models.Menu{m}, list...))
}

func (s *Store) DeleteMenu(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadMenus()
	if err != nil {
		return err
	}
	next := list[:0:0]
	for _, m := range list {
		if m.ID == id && (owner == "" || m.UserID == owner) {
			continue
		}
		next = append(next, m)
	}
	if len(next) == len(list) {
		return ports.ErrMenuNotFound
	}
	return s.write(menusFile, next)
}

// ---- templates ----

func (s *Store) ListTemplates(_ context.Context) ([]models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []models.Template
	if err := s.read(templatesFile, &list); err != nil {
		return nil, err
	}
	out := make([]models.Template, 0, len(list))
	for _, t := range list {
		if t.Name != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ReplaceTemplates(_ context.Context, list []models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list == nil {
		list = []models.Template{}
	}
	return s.write(templatesFile, list)
}

func (s *Store) DeleteTemplate(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []models.Template
	if err := s.read(templatesFile, &list); err != nil {
		return err
	}
	next := make([]models.Template, 0, len(list))
	for _, t := range list {
		if t.Name != name {
			next = append(next, t)
		}
	}
	if len(next) == len(list) {
		return nil
	}
	return s.write(templatesFile, next)
}

// ---- users ----

func (s *Store) loadUsers() ([]models.User, error) {
	var list []models.User
	if err := s.read(usersFile, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	list, err := s.loadUsers()
	s.mu.Unlock()
	if err != nil {
		return models.User{}, err
	}
	for _, u := range list {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ports.ErrUserNotFound
}

func (s *Store) CreateUser(_ context.Context, u models.User) error {
	if err := u.CheckRole(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadUsers()
	if err != nil {
		return err
	}
	for _, existing := range list {
		if existing.Username == u.Username || existing.ID == u.ID {
			return ports.ErrUserExists
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	return s.write(usersFile, append(list, u))
}

func (s *Store) UpdateUser(_ context.Context, u models.User) error {
	if err := u.CheckRole(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadUsers()
	if err != nil {
		return err
	}
	for i, existing := range list {
		if existing.ID == u.ID {
			u.CreatedAt = existing.CreatedAt
			list[i] = u
			return s.write(usersFile, list)
		}
	}
	return ports.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsers()
}
