package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ipocket/core/config"
	"ipocket/core/database"
	"ipocket/core/logger"
	"ipocket/core/storage"
	"ipocket/feature/exports"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for export bundle command
	exportOut             string
	exportArchive         bool
	exportIncludeArchived bool
	exportAssetType       string
	exportProjectName     string
	exportHostName        string
)

// exportCmd is the parent command for all export operations.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export inventory data",
}

// exportBundleCmd writes a round-trip-safe bundle document.
var exportBundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Export the inventory as a bundle JSON document",
	Long: `Export the inventory as a bundle JSON document.

The bundle re-imports without drift: exporting and importing the same
document is a no-op run.

Examples:
  # Write to stdout
  ipocket export bundle

  # Write to a file, archived assets included
  ipocket export bundle --out inventory.json --include-archived

  # Filter to one project and archive the document to object storage
  ipocket export bundle --project backbone --archive`,
	RunE: runExportBundle,
}

func init() {
	exportCmd.AddCommand(exportBundleCmd)

	exportBundleCmd.Flags().StringVar(&exportOut, "out", "-", "Output file path ('-' for stdout)")
	exportBundleCmd.Flags().BoolVar(&exportArchive, "archive", false, "Also archive the bundle to object storage")
	exportBundleCmd.Flags().BoolVar(&exportIncludeArchived, "include-archived", false, "Include archived IP assets")
	exportBundleCmd.Flags().StringVar(&exportAssetType, "type", "", "Restrict assets to one type (OS, BMC, VM, OTHER)")
	exportBundleCmd.Flags().StringVar(&exportProjectName, "project", "", "Restrict to one project")
	exportBundleCmd.Flags().StringVar(&exportHostName, "host", "", "Restrict to one host")

	RootCmd.AddCommand(exportCmd)
}

func runExportBundle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Storage is only needed for --archive.
	var client storage.Client
	if exportArchive {
		client, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
	}

	svc := exports.NewService(db, client, cfg.Storage.Bucket, l)
	bundle, err := svc.BuildBundle(ctx, exports.Options{
		IncludeArchived: exportIncludeArchived,
		AssetType:       exportAssetType,
		ProjectName:     exportProjectName,
		HostName:        exportHostName,
	})
	if err != nil {
		return fmt.Errorf("failed to build bundle: %w", err)
	}

	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize bundle: %w", err)
	}
	payload = append(payload, '\n')

	if exportOut == "-" {
		if _, err := os.Stdout.Write(payload); err != nil {
			return fmt.Errorf("failed to write bundle: %w", err)
		}
	} else {
		if err := os.WriteFile(exportOut, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write bundle: %w", err)
		}
		l.Info("Bundle written",
			zap.String("path", exportOut),
			zap.Int("assets", len(bundle.Data.IPAssets)),
		)
	}

	if exportArchive {
		objectName, err := svc.Archive(ctx, bundle)
		if err != nil {
			return fmt.Errorf("failed to archive bundle: %w", err)
		}
		l.Info("Bundle archived to storage", zap.String("object", objectName))
	}

	return nil
}
