package menutree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

// sample builds:
//
//	home
//	products
//	  laptops
//	    gaming
//	  phones
//	about
func sample() []Item {
	return []Item{
		{ID: "home", Text: "Home", URI: "/"},
		{ID: "products", Text: "Products", URI: "/products", Children: []Item{
			{ID: "laptops", Text: "Laptops", URI: "/products/laptops", Icon: "laptop", Children: []Item{
				{ID: "gaming", Text: "Gaming", URI: "/products/laptops/gaming", ClassName: "hot"},
			}},
			{ID: "phones", Text: "Phones", URI: "/products/phones", Children: []Item{}},
		}},
		{ID: "about", Text: "About", URI: "/about"},
	}
}

func sequentialIDs(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func TestInsert(t *testing.T) {
	t.Run("root append", func(t *testing.T) {
		in := sample()
		out, err := Insert(in, "", Item{ID: "contact", Text: "Contact"})
		require.NoError(t, err)
		require.Len(t, out, 4)
		assert.Equal(t, "contact", out[3].ID)
		assert.Len(t, in, 3, "input must not change")
	})

	t.Run("nested append creates children", func(t *testing.T) {
		out, err := Insert(sample(), "gaming", Item{ID: "rtx", Text: "RTX"})
		require.NoError(t, err)
		got, ok := Find(out, "gaming")
		require.True(t, ok)
		require.Len(t, got.Children, 1)
		assert.Equal(t, "rtx", got.Children[0].ID)
	})

	t.Run("appends after existing children", func(t *testing.T) {
		out, err := Insert(sample(), "products", Item{ID: "tablets"})
		require.NoError(t, err)
		got, _ := Find(out, "products")
		assert.Equal(t, []string{"laptops", "phones", "tablets"}, []string{got.Children[0].ID, got.Children[1].ID, got.Children[2].ID})
	})

	t.Run("missing parent leaves tree unchanged", func(t *testing.T) {
		in := sample()
		out, err := Insert(in, "nope", Item{ID: "x"})
		require.ErrorIs(t, err, ErrParentNotFound)
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("tree changed (-want +got):\n%s", diff)
		}
	})

	t.Run("does not mutate shared parent slice", func(t *testing.T) {
		in := sample()
		before := len(in[1].Children)
		_, err := Insert(in, "products", Item{ID: "tablets"})
		require.NoError(t, err)
		assert.Len(t, in[1].Children, before)
	})
}

func TestMissingIDIsNoop(t *testing.T) {
	ops := map[string]func([]Item) []Item{
		"delete":      func(in []Item) []Item { return Delete(in, "missing") },
		"edit":        func(in []Item) []Item { return Edit(in, "missing", Fields{Text: strp("x")}) },
		"bulk edit":   func(in []Item) []Item { return BulkEdit(in, []string{"missing", "other"}, Fields{Icon: strp("i")}) },
		"bulk delete": func(in []Item) []Item { return BulkDelete(in, []string{"missing"}) },
		"toggle":      func(in []Item) []Item { return ToggleVisible(in, "missing") },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			in := sample()
			if diff := cmp.Diff(sample(), op(in)); diff != "" {
				t.Errorf("tree changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	in := sample()
	out := Delete(in, "laptops")

	_, ok := Find(out, "laptops")
	assert.False(t, ok)
	_, ok = Find(out, "gaming")
	assert.False(t, ok, "subtree must go with its root")
	assert.Equal(t, 4, Count(out))
	assert.Equal(t, 6, Count(in), "input must not change")
}

func TestBulkDelete(t *testing.T) {
	out := BulkDelete(sample(), []string{"home", "gaming", "phones"})
	assert.Equal(t, []string{"products", "laptops", "about"}, CollectIDs(out))
}

func TestEdit(t *testing.T) {
	in := sample()
	out := Edit(in, "gaming", Fields{Text: strp("Gaming rigs"), Visible: boolp(false)})

	got, ok := Find(out, "gaming")
	require.True(t, ok)
	assert.Equal(t, "Gaming rigs", got.Text)
	assert.Equal(t, "hot", got.ClassName, "unset fields are kept")
	assert.False(t, got.IsVisible())

	orig, _ := Find(in, "gaming")
	assert.Equal(t, "Gaming", orig.Text)
}

func TestEditKeepsChildren(t *testing.T) {
	out := Edit(sample(), "products", Fields{ClassName: strp("menu")})
	got, _ := Find(out, "products")
	assert.Len(t, got.Children, 2)
	assert.Equal(t, "menu", got.ClassName)
}

func TestBulkEditReachesNestedMatches(t *testing.T) {
	out := BulkEdit(sample(), []string{"products", "gaming"}, Fields{Icon: strp("star")})
	for _, id := range []string{"products", "gaming"} {
		got, _ := Find(out, id)
		assert.Equal(t, "star", got.Icon, id)
	}
	laptops, _ := Find(out, "laptops")
	assert.Equal(t, "laptop", laptops.Icon)
}

func TestToggleVisible(t *testing.T) {
	out := ToggleVisible(sample(), "about")
	got, _ := Find(out, "about")
	assert.False(t, got.IsVisible())

	out = ToggleVisible(out, "about")
	got, _ = Find(out, "about")
	assert.True(t, got.IsVisible())
}

func TestMove(t *testing.T) {
	t.Run("before a sibling", func(t *testing.T) {
		out, err := Move(sample(), "about", "home")
		require.NoError(t, err)
		assert.Equal(t, []string{"about", "home", "products"}, rootIDs(out))
	})

	t.Run("across levels", func(t *testing.T) {
		in := sample()
		out, err := Move(in, "gaming", "phones")
		require.NoError(t, err)
		products, _ := Find(out, "products")
		assert.Equal(t, []string{"laptops", "gaming", "phones"}, rootIDs(products.Children))
		laptops, _ := Find(out, "laptops")
		assert.Empty(t, laptops.Children)
		assert.Equal(t, Count(in), Count(out))
	})

	t.Run("subtree moves with its root", func(t *testing.T) {
		out, err := Move(sample(), "laptops", "home")
		require.NoError(t, err)
		assert.Equal(t, []string{"laptops", "home", "products", "about"}, rootIDs(out))
		laptops, _ := Find(out, "laptops")
		require.Len(t, laptops.Children, 1)
		assert.Equal(t, "gaming", laptops.Children[0].ID)
	})

	t.Run("attributes are preserved", func(t *testing.T) {
		in := sample()
		out, err := Move(in, "gaming", "home")
		require.NoError(t, err)
		before, _ := Find(in, "gaming")
		after, _ := Find(out, "gaming")
		if diff := cmp.Diff(before, after); diff != "" {
			t.Errorf("moved item changed (-want +got):\n%s", diff)
		}
	})

	t.Run("same id is a no-op", func(t *testing.T) {
		in := sample()
		out, err := Move(in, "home", "home")
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(in, out))
	})

	t.Run("into own subtree is rejected", func(t *testing.T) {
		in := sample()
		out, err := Move(in, "products", "gaming")
		require.ErrorIs(t, err, ErrInvalidMove)
		assert.Empty(t, cmp.Diff(sample(), out))
	})

	t.Run("unknown ids", func(t *testing.T) {
		_, err := Move(sample(), "nope", "home")
		assert.ErrorIs(t, err, ErrItemNotFound)
		_, err = Move(sample(), "home", "nope")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestDuplicate(t *testing.T) {
	in := sample()
	out, err := Duplicate(in, "laptops", sequentialIDs("copy"))
	require.NoError(t, err)

	assert.Equal(t, Count(in)+2, Count(out), "laptops has one child, so two nodes are cloned")
	require.NoError(t, Validate(out))

	products, _ := Find(out, "products")
	require.Len(t, products.Children, 3)
	assert.Equal(t, "laptops", products.Children[0].ID)
	clone := products.Children[1]
	assert.Equal(t, "copy-1", clone.ID)
	assert.Equal(t, "copy-2", clone.Children[0].ID)

	orig := products.Children[0]
	ignoreIDs := cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".ID"
	}, cmp.Ignore())
	if diff := cmp.Diff(orig, clone, ignoreIDs); diff != "" {
		t.Errorf("clone differs beyond ids (-orig +clone):\n%s", diff)
	}
}

func TestDuplicateLeaf(t *testing.T) {
	out, err := Duplicate(sample(), "about", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, Count(out))
	require.NoError(t, Validate(out))
	assert.Equal(t, "about", out[2].ID)
	assert.NotEqual(t, "about", out[3].ID)
	assert.Equal(t, "About", out[3].Text)
}

func TestDuplicateMissing(t *testing.T) {
	in := sample()
	out, err := Duplicate(in, "nope", nil)
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, cmp.Diff(sample(), out))
}

func TestCollectIDs(t *testing.T) {
	assert.Equal(t,
		[]string{"home", "products", "laptops", "gaming", "phones", "about"},
		CollectIDs(sample()))
	assert.Empty(t, CollectIDs(nil))
}

func TestPruneInvisible(t *testing.T) {
	in := Edit(sample(), "laptops", Fields{Visible: boolp(false)})
	in = Edit(in, "about", Fields{Visible: boolp(true)})

	out := PruneInvisible(in)
	assert.Equal(t, []string{"home", "products", "phones", "about"}, CollectIDs(out))
	assert.Equal(t, 6, Count(in))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sample()))

	dup := append(sample(), Item{ID: "gaming"}, Item{Text: "no id"})
	err := Validate(dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestReassignIDs(t *testing.T) {
	in := sample()
	out := ReassignIDs(in, sequentialIDs("n"))
	assert.Equal(t, []string{"n-1", "n-2", "n-3", "n-4", "n-5", "n-6"}, CollectIDs(out))
	assert.Equal(t, "home", in[0].ID)
	phones, _ := Find(out, "n-5")
	assert.NotNil(t, phones.Children, "empty children stay empty, not absent")
}

func TestNewItem(t *testing.T) {
	it := NewItem("")
	assert.Equal(t, DefaultText, it.Text)
	assert.NotEmpty(t, it.ID)
	assert.NotEqual(t, it.ID, NewItem("x").ID)
}

func TestMarshalChildren(t *testing.T) {
	b, err := json.Marshal([]Item{
		{ID: "a", Text: "A"},
		{ID: "b", Text: "B", Children: []Item{}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","text":"A"},{"id":"b","text":"B","children":[]}]`, string(b))

	var back []Item
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Nil(t, back[0].Children)
	assert.NotNil(t, back[1].Children)
}

func rootIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestMarshalKeepsHTMLCharacters(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode([]Item{
		{ID: "a", Text: "Home & garden", Children: []Item{{ID: "b", Text: "<b>Sale</b>"}}},
	}))

	assert.Equal(t, `[{"id":"a","text":"Home & garden","children":[{"id":"b","text":"<b>Sale</b>"}]}]`+"\n", buf.String())
}
