package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"menuforge/internal/client"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Download a menu as JSON or PHP",
		GroupID: "remote",
	}
	for _, format := range []string{"json", "php"} {
		cmd.AddCommand(newExportFormatCmd(a, format))
	}
	return cmd
}

func newExportFormatCmd(a *app, format string) *cobra.Command {
	var (
		opts   client.ExportOptions
		output string
	)
	cmd := &cobra.Command{
		Use:   format + " <menu-id>",
		Short: "Export a menu as " + format,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			art, err := c.Export(cmd.Context(), args[0], format, opts)
			if err != nil {
				return err
			}
			if output == "-" {
				_, err := cmd.OutOrStdout().Write(art.Body)
				return err
			}
			path := output
			if path == "" {
				path = art.Filename
			}
			if err := os.WriteFile(path, art.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(art.Body))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.VisibleOnly, "visible-only", false, "drop hidden items")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, - for stdout (default: server filename)")
	if format == "php" {
		cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "template name (default template when unknown)")
	}
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Create a menu from CSV, JSON or a Google Sheet",
		GroupID: "remote",
	}
	cmd.PersistentFlags().StringVar(&name, "name", "", "menu name (default \"Imported menu\")")

	run := func(cmd *cobra.Command, req client.ImportRequest) error {
		req.Name = name
		c, err := a.client()
		if err != nil {
			return err
		}
		m, err := c.Import(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.ID, m.Name)
		return nil
	}

	for _, format := range []string{"csv", "json"} {
		cmd.AddCommand(&cobra.Command{
			Use:   format + " <file>",
			Short: "Import a local " + format + " file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				return run(cmd, client.ImportRequest{Format: format, Content: string(data)})
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sheet <url>",
		Short: "Import a Google Sheets document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, client.ImportRequest{Format: "sheet", URL: args[0]})
		},
	})
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		format string
		opts   client.ExportOptions
	)
	cmd := &cobra.Command{
		Use:     "publish <menu-id>",
		Short:   "Queue an export to artifact storage",
		GroupID: "remote",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			job, err := c.Publish(cmd.Context(), args[0], format, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or php")
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "template name for php")
	cmd.Flags().BoolVar(&opts.VisibleOnly, "visible-only", false, "drop hidden items")

	cmd.AddCommand(&cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a publish job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			job, err := c.PublishJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	})
	return cmd
}
