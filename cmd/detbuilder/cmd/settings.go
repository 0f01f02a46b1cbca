package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bcchr/detbuilder/internal/core/api"
	"github.com/bcchr/detbuilder/internal/core/config"
	"github.com/bcchr/detbuilder/internal/types"
)

var settingsProject string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage DET settings",
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Validate and store settings files",
	Long: `Imports DET settings from YAML or JSON files. The project id is the file
name without extension (42.yaml configures project 42) unless --project is
given for a single file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsProject != "" && len(args) > 1 {
			return fmt.Errorf("--project needs exactly one file")
		}
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			project, etag, err := importSettingsFile(ctx, a.svc, path, types.ProjectID(settingsProject))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project %s: %s\n", project, etag)
		}
		return nil
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print stored settings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		if settingsProject == "" {
			return fmt.Errorf("--project is required")
		}
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		s, etag, err := a.svc.GetSettings(ctx, types.ProjectID(settingsProject))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# etag: %s\n", etag)
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(s)
	},
}

// importSettingsFile loads one settings file and stores it. An empty
// project takes the id from the file name.
func importSettingsFile(ctx context.Context, svc *api.Service, path string, project types.ProjectID) (types.ProjectID, string, error) {
	fromFile, s, err := config.LoadSettingsFile(path)
	if err != nil {
		return "", "", err
	}
	if project == "" {
		project = fromFile
	}
	etag, err := svc.PutSettings(ctx, project, s, "")
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", path, err)
	}
	return project, etag, nil
}

// importSettingsDir imports every settings document in dir, logging
// failures and carrying on.
func importSettingsDir(ctx context.Context, svc *api.Service, logger *slog.Logger, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("cannot read settings dir", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() || !config.IsDocument(path) {
			continue
		}
		reloadSettings(ctx, svc, logger, path)
	}
}

func reloadSettings(ctx context.Context, svc *api.Service, logger *slog.Logger, path string) {
	project, etag, err := importSettingsFile(ctx, svc, path, "")
	if err != nil {
		logger.Error("settings import failed", "file", path, "error", err)
		return
	}
	logger.Info("settings imported", "file", path, "project", project, "etag", etag)
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&settingsProject, "project", "", "project id")
	settingsCmd.AddCommand(settingsImportCmd, settingsShowCmd)
	rootCmd.AddCommand(settingsCmd)
}
