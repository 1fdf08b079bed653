package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"menuforge/internal/client"
	"menuforge/internal/menutree"
)

func newMenusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "menus",
		Short:   "List, show, create and delete menus",
		GroupID: "remote",
	}

	var q client.MenuQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List menus visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			menus, err := c.ListMenus(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range menus {
				fmt.Fprintf(out, "%s\t%s\t%d items\n", m.ID, m.Name, menutree.Count(m.Items))
			}
			return nil
		},
	}
	list.Flags().StringVar(&q.Name, "name", "", "case-insensitive name filter")
	list.Flags().StringVar(&q.UserID, "user", "", "owner id (admin only)")
	list.Flags().StringVar(&q.Sort, "sort", "", "created_desc or name_asc")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a menu as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			m, err := c.GetMenu(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}

	var itemsFile string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a menu, optionally from a local items file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []menutree.Item
			if itemsFile != "" {
				var err error
				if items, err = readItems(itemsFile); err != nil {
					return err
				}
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			id, err := c.CreateMenu(cmd.Context(), args[0], items)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	create.Flags().StringVarP(&itemsFile, "file", "f", "", "JSON file with an array of items")

	var pushName string
	push := &cobra.Command{
		Use:   "push <id> <items.json>",
		Short: "Replace a menu's tree with a local items file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readItems(args[1])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			name := pushName
			if name == "" {
				current, err := c.GetMenu(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				name = current.Name
			}
			m, err := c.ReplaceMenu(cmd.Context(), args[0], name, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d items)\n", m.ID, menutree.Count(m.Items))
			return nil
		},
	}
	push.Flags().StringVar(&pushName, "name", "", "new menu name (keeps the current one by default)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeleteMenu(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, get, create, push, del)
	return cmd
}
