package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuforge/internal/auth"
	"menuforge/internal/client"
	"menuforge/internal/httpapi"
	"menuforge/internal/menutree"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/repositories/jsonfile"
)

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path string, items []menutree.Item) {
	t.Helper()
	require.NoError(t, writeItems(path, items))
}

func TestTreeCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "menu.json")
	writeFile(t, file, []menutree.Item{
		{ID: "home", Text: "Home", URI: "/"},
		{ID: "products", Text: "Products", Children: []menutree.Item{
			{ID: "laptops", Text: "Laptops"},
		}},
	})
	a := &app{}

	out, err := run(t, a, "tree", "-f", file, "add", "--parent", "laptops", "--id", "gaming", "--text", "Gaming", "--icon", "pad")
	require.NoError(t, err)
	assert.Equal(t, "gaming\n", out)

	_, err = run(t, a, "tree", "-f", file, "add", "--parent", "missing", "--text", "X")
	assert.ErrorIs(t, err, menutree.ErrParentNotFound)

	_, err = run(t, a, "tree", "-f", file, "mv", "products", "gaming")
	assert.ErrorIs(t, err, menutree.ErrInvalidMove)

	_, err = run(t, a, "tree", "-f", file, "mv", "gaming", "home")
	require.NoError(t, err)

	out, err = run(t, a, "tree", "-f", file, "ids")
	require.NoError(t, err)
	assert.Equal(t, "gaming\nhome\nproducts\nlaptops\n", out)

	_, err = run(t, a, "tree", "-f", file, "edit", "home", "laptops", "--class", "nav")
	require.NoError(t, err)
	_, err = run(t, a, "tree", "-f", file, "toggle", "home")
	require.NoError(t, err)

	out, err = run(t, a, "tree", "-f", file, "filter", "-q", "nav", "--visible-only")
	require.NoError(t, err)
	var filtered []menutree.Item
	require.NoError(t, json.Unmarshal([]byte(out), &filtered))
	assert.Equal(t, []string{"products", "laptops"}, menutree.CollectIDs(filtered))

	_, err = run(t, a, "tree", "-f", file, "filter", "--has-icon", "maybe")
	assert.Error(t, err)

	_, err = run(t, a, "tree", "-f", file, "dup", "products")
	require.NoError(t, err)
	items, err := readItems(file)
	require.NoError(t, err)
	assert.Equal(t, 6, menutree.Count(items))
	assert.Equal(t, "Products", items[3].Text)
	assert.NotEqual(t, "products", items[3].ID)

	out, err = run(t, a, "tree", "-f", file, "rm", "products", "gaming")
	require.NoError(t, err)
	assert.Equal(t, "Removed 3 items\n", out)

	items, err = readItems(file)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "home", items[0].ID)
	assert.False(t, items[0].IsVisible())
}

func TestTreeShow(t *testing.T) {
	file := filepath.Join(t.TempDir(), "menu.json")
	hidden := false
	writeFile(t, file, []menutree.Item{
		{ID: "a", Text: "Home", URI: "/"},
		{ID: "b", Text: "Shop", Children: []menutree.Item{{ID: "c", Text: "Sale", Visible: &hidden}}},
	})

	out, err := run(t, &app{}, "tree", "-f", file, "show")
	require.NoError(t, err)
	want := "├── Home -> / [a]\n" +
		"└── Shop [b]\n" +
		"    └── Sale (hidden) [c]\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("show mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeRejectsInvalidFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"id":"a"},{"id":"a"}]`), 0o644))

	_, err := run(t, &app{}, "tree", "-f", file, "ids")
	assert.ErrorIs(t, err, menutree.ErrDuplicateID)
}

func startServer(t *testing.T) string {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	svc := auth.NewService(store, auth.NewTokens("test-secret", time.Hour), "bootstrap", auth.WithBcryptCost(4))
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{
		Store: store,
		Auth:  svc,
		Log:   logger.New(logger.Config{Output: io.Discard}),
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRemoteCommands(t *testing.T) {
	dir := t.TempDir()
	a := &app{server: startServer(t), sessionPath: filepath.Join(dir, "session.json")}

	out, err := run(t, a, "register", "alice", "-p", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as alice (user)\n", out)

	s, err := loadSession(a.sessionPath)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.Username)

	itemsFile := filepath.Join(dir, "items.json")
	writeFile(t, itemsFile, []menutree.Item{{ID: "home", Text: "Home"}})
	out, err = run(t, a, "menus", "create", "Main", "-f", itemsFile)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, a, "menus", "list")
	require.NoError(t, err)
	assert.Equal(t, id+"\tMain\t1 items\n", out)

	out, err = run(t, a, "export", "json", id, "-o", "-")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"home","text":"Home"}]`, out)

	csv := filepath.Join(dir, "menu.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Shop,,,,\n,Sale,/sale,,\n"), 0o644))
	out, err = run(t, a, "import", "csv", csv, "--name", "Shop")
	require.NoError(t, err)
	assert.Contains(t, out, "\tShop\n")

	_, err = run(t, a, "templates", "delete", "default")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)

	_, err = run(t, a, "publish", id)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.Status)

	_, err = run(t, a, "menus", "delete", id)
	require.NoError(t, err)
	_, err = run(t, a, "menus", "get", id)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestExpiredSessionIsDropped(t *testing.T) {
	dir := t.TempDir()
	a := &app{server: startServer(t), sessionPath: filepath.Join(dir, "session.json")}
	require.NoError(t, saveSession(a.sessionPath, session{Server: a.server, Token: "stale"}))

	_, err := run(t, a, "whoami")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	s, err := loadSession(a.sessionPath)
	require.NoError(t, err)
	assert.Nil(t, s)
}
