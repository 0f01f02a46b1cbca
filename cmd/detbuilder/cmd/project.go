package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/core/store"
	"github.com/bcchr/detbuilder/internal/types"
)

// projectDocument is an importable project: its data dictionary, events
// and optionally seed records.
type projectDocument struct {
	store.ProjectDefinition `yaml:",inline"`
	Records                 []types.Record `yaml:"records,omitempty"`
}

var (
	logProject string
	logLimit   int
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Create or replace projects from YAML or JSON definitions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			var doc projectDocument
			if err := config.DecodeFile(path, &doc); err != nil {
				return err
			}
			if err := a.store.UpsertProject(ctx, doc.ProjectDefinition); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(out, "project %s: %d fields, %d events\n", doc.ID, len(doc.Fields), max(len(doc.Events), 1))

			if len(doc.Records) == 0 {
				continue
			}
			res, err := a.store.SaveRecords(ctx, doc.ID, doc.Records, types.OverwriteNormal)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(out, "project %s: saved %d records\n", doc.ID, len(res.IDs))
			for _, e := range res.Errors {
				fmt.Fprintf(out, "  error: %s\n", e)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
		}
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.store.ListProjects(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tID FIELD\tLONGITUDINAL")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.ID, p.Title, p.RecordIDField, p.Longitudinal)
		}
		return w.Flush()
	},
}

var projectLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the project's DET audit log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.svc.AuditLog(ctx, types.ProjectID(logProject), logLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tRECORD\tDESCRIPTION\tDETAILS")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt, e.RecordID, e.Description, e.Details)
		}
		return w.Flush()
	},
}

func init() {
	projectLogCmd.Flags().StringVar(&logProject, "project", "", "project id")
	projectLogCmd.Flags().IntVar(&logLimit, "limit", store.DefaultLogLimit, "maximum entries")
	_ = projectLogCmd.MarkFlagRequired("project")
	projectCmd.AddCommand(projectImportCmd, projectListCmd, projectLogCmd)
	rootCmd.AddCommand(projectCmd)
}
