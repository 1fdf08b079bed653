// Package storetest holds the behavioral contract every ports.Store backend
// must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuforge/internal/menutree"
	"menuforge/internal/models"
	"menuforge/internal/ports"
	"menuforge/internal/templates"
)

// Factory returns an empty, freshly opened store.
type Factory func(t *testing.T) ports.Store

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("menus", func(t *testing.T) {
		t.Run("create and get", func(t *testing.T) { testCreateGet(t, newStore(t)) })
		t.Run("owner scoping", func(t *testing.T) { testOwnerScoping(t, newStore(t)) })
		t.Run("list filter and sort", func(t *testing.T) { testListMenus(t, newStore(t)) })
		t.Run("replace upserts", func(t *testing.T) { testReplace(t, newStore(t)) })
		t.Run("delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	})
	t.Run("templates", func(t *testing.T) {
		t.Run("seeded with default", func(t *testing.T) { testTemplateSeed(t, newStore(t)) })
		t.Run("replace and delete", func(t *testing.T) { testTemplates(t, newStore(t)) })
	})
	t.Run("users", func(t *testing.T) {
		t.Run("create get update", func(t *testing.T) { testUsers(t, newStore(t)) })
		t.Run("admin role reserved", func(t *testing.T) { testAdminReserved(t, newStore(t)) })
	})
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func menu(id, owner, name string, minute int) models.Menu {
	return models.Menu{
		ID:        id,
		UserID:    owner,
		Name:      name,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
		Items: []menutree.Item{
			{ID: id + "-root", Text: "Root", URI: "/", Children: []menutree.Item{
				{ID: id + "-leaf", Text: "Leaf", Icon: "star"},
			}},
		},
	}
}

func ids(list []models.Menu) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}

func testCreateGet(t *testing.T, s ports.Store) {
	ctx := context.Background()
	want := menu("m1", "alice", "Main", 0)
	require.NoError(t, s.CreateMenu(ctx, want))

	got, err := s.GetMenu(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
	assert.Equal(t, "alice", got.UserID)
	if diff := cmp.Diff(want.Items, got.Items); diff != "" {
		t.Errorf("items changed in storage (-want +got):\n%s", diff)
	}

	err = s.CreateMenu(ctx, menu("m1", "bob", "Other", 1))
	assert.ErrorIs(t, err, ports.ErrMenuExists)

	_, err = s.GetMenu(ctx, "missing", "")
	assert.ErrorIs(t, err, ports.ErrMenuNotFound)
}

func testOwnerScoping(t *testing.T, s ports.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateMenu(ctx, menu("m1", "alice", "Main", 0)))

	_, err := s.GetMenu(ctx, "m1", "bob")
	assert.ErrorIs(t, err, ports.ErrMenuNotFound)

	got, err := s.GetMenu(ctx, "m1", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)

	err = s.DeleteMenu(ctx, "m1", "bob")
	assert.ErrorIs(t, err, ports.ErrMenuNotFound)

	_, err = s.ReplaceMenu(ctx, models.Menu{ID: "m1", UserID: "bob", Name: "Hijack"}, "bob")
	assert.ErrorIs(t, err, ports.ErrMenuNotFound)

	got, err = s.GetMenu(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Name)
}

func testListMenus(t *testing.T, s ports.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateMenu(ctx, menu("a", "alice", "footer", 0)))
	require.NoError(t, s.CreateMenu(ctx, menu("b", "alice", "Header", 1)))
	require.NoError(t, s.CreateMenu(ctx, menu("c", "bob", "Main nav", 2)))
	require.NoError(t, s.CreateMenu(ctx, menu("d", "bob", "100%_off", 3)))

	all, err := s.ListMenus(ctx, models.MenuFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(all), "newest first by default")

	mine, err := s.ListMenus(ctx, models.MenuFilter{OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(mine))

	byName, err := s.ListMenus(ctx, models.MenuFilter{Sort: models.SortNameAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids(byName))

	found, err := s.ListMenus(ctx, models.MenuFilter{Name: "HEAD"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(found))

	literal, err := s.ListMenus(ctx, models.MenuFilter{Name: "%_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(literal), "wildcards match literally")

	none, err := s.ListMenus(ctx, models.MenuFilter{OwnerID: "carol"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testReplace(t *testing.T, s ports.Store) {
	ctx := context.Background()

	created, err := s.ReplaceMenu(ctx, models.Menu{ID: "m9", UserID: "alice", Name: "Fresh"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", created.Name)
	assert.NotNil(t, created.Items)

	next := []menutree.Item{{ID: "x", Text: "X"}}
	updated, err := s.ReplaceMenu(ctx, models.Menu{ID: "m9", UserID: "alice", Name: "Renamed", Items: next}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "alice", updated.UserID)

	got, err := s.GetMenu(ctx, "m9", "")
	require.NoError(t, err)
	assert.Equal(t, next, got.Items)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	// admin scope may overwrite anyone's menu
	_, err = s.ReplaceMenu(ctx, models.Menu{ID: "m9", UserID: "admin", Name: "By admin"}, "")
	require.NoError(t, err)
	got, err = s.GetMenu(ctx, "m9", "alice")
	require.NoError(t, err)
	assert.Equal(t, "By admin", got.Name)
}

func testDelete(t *testing.T, s ports.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateMenu(ctx, menu("m1", "alice", "One", 0)))
	require.NoError(t, s.CreateMenu(ctx, menu("m2", "alice", "Two", 1)))

	require.NoError(t, s.DeleteMenu(ctx, "m1", "alice"))
	assert.ErrorIs(t, s.DeleteMenu(ctx, "m1", "alice"), ports.ErrMenuNotFound)

	require.NoError(t, s.DeleteMenu(ctx, "m2", ""), "admin scope deletes any menu")
	list, err := s.ListMenus(ctx, models.MenuFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testTemplateSeed(t *testing.T, s ports.Store) {
	list, err := s.ListTemplates(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(templates.EnsureDefault(nil), list); diff != "" {
		t.Errorf("fresh store templates (-want +got):\n%s", diff)
	}
}

func testTemplates(t *testing.T, s ports.Store) {
	ctx := context.Background()
	next := []models.Template{
		{Name: "default", Value: "<li>{{text}}</li>"},
		{Name: "zeta", Value: "z"},
		{Name: "alpha", Value: "a"},
	}
	require.NoError(t, s.ReplaceTemplates(ctx, next))

	got, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got, "order is preserved")

	require.NoError(t, s.DeleteTemplate(ctx, "zeta"))
	require.NoError(t, s.DeleteTemplate(ctx, "never-existed"))

	got, err = s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "alpha"}, []string{got[0].Name, got[1].Name})

	require.NoError(t, s.ReplaceTemplates(ctx, nil))
	got, err = s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testUsers(t *testing.T, s ports.Store) {
	ctx := context.Background()
	u := models.User{ID: "u1", Username: "alice", PasswordHash: "h1", Role: models.RoleUser, CreatedAt: base}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	if diff := cmp.Diff(u, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("stored user (-want +got):\n%s", diff)
	}

	err = s.CreateUser(ctx, models.User{ID: "u2", Username: "alice", PasswordHash: "h2", Role: models.RoleUser})
	assert.ErrorIs(t, err, ports.ErrUserExists)

	got.PasswordHash = "h3"
	require.NoError(t, s.UpdateUser(ctx, got))
	got, err = s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h3", got.PasswordHash)

	assert.ErrorIs(t, s.UpdateUser(ctx, models.User{ID: "nope", Username: "x", Role: models.RoleUser}), ports.ErrUserNotFound)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ports.ErrUserNotFound)

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "u3", Username: "bob", PasswordHash: "h", Role: models.RoleUser, CreatedAt: base.Add(time.Minute)}))
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
}

func testAdminReserved(t *testing.T, s ports.Store) {
	ctx := context.Background()
	err := s.CreateUser(ctx, models.User{ID: "u1", Username: "mallory", PasswordHash: "h", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, models.ErrAdminRoleReserved)

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "a1", Username: "admin", PasswordHash: "h", Role: models.RoleAdmin}))

	require.NoError(t, s.CreateUser(ctx, models.User{ID: "u2", Username: "eve", PasswordHash: "h", Role: models.RoleUser}))
	eve, err := s.GetUserByUsername(ctx, "eve")
	require.NoError(t, err)
	eve.Role = models.RoleAdmin
	assert.ErrorIs(t, s.UpdateUser(ctx, eve), models.ErrAdminRoleReserved)
}
