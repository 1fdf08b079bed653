package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"menuforge/internal/menutree"
)

// newTreeCmd edits a local JSON array of items, the format produced by
// `menuctl export json` and accepted by `menuctl menus push`.
func newTreeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:     "tree",
		Short:   "Edit a local menu items file",
		GroupID: "local",
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "menu.json", "items file")

	// mutate loads the file, applies fn and writes the result back.
	mutate := func(fn func([]menutree.Item) ([]menutree.Item, error)) error {
		items, err := readItems(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		out, err := fn(items)
		if err != nil {
			return err
		}
		return writeItems(file, out)
	}

	var (
		parent string
		item   menutree.Item
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Append an item under --parent (root when empty)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			it := menutree.NewItem(item.Text)
			if item.ID != "" {
				it.ID = item.ID
			}
			it.URI, it.Icon, it.ClassName = item.URI, item.Icon, item.ClassName
			err := mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				if _, exists := menutree.Find(items, it.ID); exists {
					return nil, fmt.Errorf("id %s already used", it.ID)
				}
				return menutree.Insert(items, parent, it)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), it.ID)
			return nil
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "parent item id")
	add.Flags().StringVar(&item.ID, "id", "", "item id (default: new uuid)")
	add.Flags().StringVar(&item.Text, "text", "", "label (default \""+menutree.DefaultText+"\")")
	add.Flags().StringVar(&item.URI, "uri", "", "link target")
	add.Flags().StringVar(&item.Icon, "icon", "", "icon name")
	add.Flags().StringVar(&item.ClassName, "class", "", "CSS class")

	rm := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove items with their subtrees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed int
			err := mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				out := menutree.BulkDelete(items, args)
				removed = menutree.Count(items) - menutree.Count(out)
				return out, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", removed)
			return nil
		},
	}

	mv := &cobra.Command{
		Use:   "mv <drag-id> <hover-id>",
		Short: "Move an item to just before another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				return menutree.Move(items, args[0], args[1])
			})
		},
	}

	dup := &cobra.Command{
		Use:   "dup <id>",
		Short: "Duplicate an item and its subtree with fresh ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				return menutree.Duplicate(items, args[0], menutree.NewID)
			})
		},
	}

	var fieldFlags fieldValues
	edit := &cobra.Command{
		Use:   "edit <id>...",
		Short: "Set attributes on one or more items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := fieldFlags.fields(cmd)
			if fields.IsZero() {
				return errors.New("nothing to edit: pass at least one attribute flag")
			}
			return mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				return menutree.BulkEdit(items, args, fields), nil
			})
		},
	}
	fieldFlags.register(edit)

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip an item's visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(items []menutree.Item) ([]menutree.Item, error) {
				if _, ok := menutree.Find(items, args[0]); !ok {
					return nil, fmt.Errorf("%w: %s", menutree.ErrItemNotFound, args[0])
				}
				return menutree.ToggleVisible(items, args[0]), nil
			})
		},
	}

	var (
		text                string
		hasChildren, hasIcn string
		visibleOnly         bool
	)
	filter := &cobra.Command{
		Use:   "filter",
		Short: "Print the items matching a query, with their ancestors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(file)
			if err != nil {
				return err
			}
			q := menutree.Query{Text: text}
			if q.HasChildren, err = optionalBool("has-children", hasChildren); err != nil {
				return err
			}
			if q.HasIcon, err = optionalBool("has-icon", hasIcn); err != nil {
				return err
			}
			if visibleOnly {
				items = menutree.PruneInvisible(items)
			}
			if !q.IsZero() {
				items = menutree.Filter(items, q.Predicate())
			}
			if items == nil {
				items = []menutree.Item{}
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	filter.Flags().StringVarP(&text, "query", "q", "", "text matched against text, uri and class")
	filter.Flags().StringVar(&hasChildren, "has-children", "", "true or false")
	filter.Flags().StringVar(&hasIcn, "has-icon", "", "true or false")
	filter.Flags().BoolVar(&visibleOnly, "visible-only", false, "drop hidden items first")

	ids := &cobra.Command{
		Use:   "ids",
		Short: "Print every item id in depth-first order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(file)
			if err != nil {
				return err
			}
			for _, id := range menutree.CollectIDs(items) {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Draw the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(file)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), items, "")
			return nil
		},
	}

	cmd.AddCommand(add, rm, mv, dup, edit, toggle, filter, ids, show)
	return cmd
}

// fieldValues backs the attribute flags of `tree edit`.
type fieldValues struct {
	text       string
	uri        string
	image      string
	icon       string
	class      string
	levelClass string
	svg        string
	visible    bool
}

func (f *fieldValues) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "label")
	cmd.Flags().StringVar(&f.uri, "uri", "", "link target")
	cmd.Flags().StringVar(&f.image, "image", "", "image URL")
	cmd.Flags().StringVar(&f.icon, "icon", "", "icon name")
	cmd.Flags().StringVar(&f.class, "class", "", "CSS class")
	cmd.Flags().StringVar(&f.levelClass, "level-class", "", "CSS class of the child list")
	cmd.Flags().StringVar(&f.svg, "svg", "", "inline SVG")
	cmd.Flags().BoolVar(&f.visible, "visible", true, "visibility")
}

// fields keeps only the flags given on the command line.
func (f *fieldValues) fields(cmd *cobra.Command) menutree.Fields {
	var out menutree.Fields
	set := func(name string, dst **string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = &v
		}
	}
	set("text", &out.Text, f.text)
	set("uri", &out.URI, f.uri)
	set("image", &out.Image, f.image)
	set("icon", &out.Icon, f.icon)
	set("class", &out.ClassName, f.class)
	set("level-class", &out.LevelClassName, f.levelClass)
	set("svg", &out.SVG, f.svg)
	if cmd.Flags().Changed("visible") {
		v := f.visible
		out.Visible = &v
	}
	return out
}

func optionalBool(name, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be true or false", name)
	}
	return &b, nil
}

func printTree(w io.Writer, items []menutree.Item, prefix string) {
	for i, it := range items {
		connector, indent := "├── ", "│   "
		if i == len(items)-1 {
			connector, indent = "└── ", "    "
		}
		label := it.Text
		if it.URI != "" {
			label += " -> " + it.URI
		}
		if !it.IsVisible() {
			label += " (hidden)"
		}
		fmt.Fprintf(w, "%s%s%s [%s]\n", prefix, connector, label, it.ID)
		printTree(w, it.Children, prefix+indent)
	}
}

// readItems loads and validates a JSON array of items.
func readItems(path string) ([]menutree.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []menutree.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := menutree.Validate(items); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

func writeItems(path string, items []menutree.Item) error {
	if items == nil {
		items = []menutree.Item{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
