package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pevans/udnfetch/newsfeed"
	"github.com/pevans/udnfetch/runs"
)

func runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage archived runs",
	}

	cmd.AddCommand(runsListCommand())
	cmd.AddCommand(runsShowCommand())
	cmd.AddCommand(runsExportCommand())
	cmd.AddCommand(runsDeleteCommand())
	return cmd
}

func runsListCommand() *cobra.Command {
	var (
		keyword string
		limit   int
		offset  int
		format  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format %q (must be table or json)", format)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			filter := runs.RunFilter{Limit: limit, Offset: offset}
			if keyword != "" {
				filter.Keyword = &keyword
			}
			list, err := store.ListRuns(filter)
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), list)
			}
			printRunsTable(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyword, "keyword", "", "only runs for this keyword")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json)")
	return cmd
}

func runsShowCommand() *cobra.Command {
	var preview int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(id)
			if err != nil {
				return err
			}
			records, err := store.Articles(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRunDetail(out, run)
			if len(records) > 0 {
				fmt.Fprintln(out)
				printPreview(out, records, preview)
				fmt.Fprintln(out)
				printDateCounts(out, newsfeed.CountByDate(records))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&preview, "preview", 10, "number of records to preview")
	return cmd
}

func runsExportCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export the records of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}
			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format %q (must be csv or json)", format)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(id)
			if err != nil {
				return err
			}
			records, err := store.Articles(id)
			if err != nil {
				return err
			}

			if output == "-" {
				if format == "json" {
					return newsfeed.WriteJSON(cmd.OutOrStdout(), records)
				}
				return newsfeed.WriteCSV(cmd.OutOrStdout(), records)
			}

			path := output
			if format == "json" {
				if path == "" {
					path = filepath.Join(cfg.Output.Dir, run.RunID.String()+".json")
				}
				if err := writeJSONFile(path, records); err != nil {
					return err
				}
			} else {
				path = csvPath(output, cfg.Output.Dir, run.Keyword)
				if err := newsfeed.SaveCSV(path, records); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, or - for stdout")
	cmd.Flags().StringVar(&format, "format", "csv", "output format (csv, json)")
	return cmd
}

func runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete an archived run and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run ID: %w", err)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", id)
			return nil
		},
	}
}

func writeJSONFile(path string, records []newsfeed.ArticleRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	if err := newsfeed.WriteJSON(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
