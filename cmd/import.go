package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"ipocket/core/config"
	"ipocket/core/database"
	"ipocket/core/logger"
	"ipocket/feature/imports"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for import commands
	applyImport bool
	// yesConfirm is shared by every command that mutates the database.
	yesConfirm bool
)

// importCmd is the parent command for all import operations.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import inventory data from a file",
	Long: `Import inventory data from bundle JSON, a CSV pair or an Nmap XML report.

Imports preview by default: the full plan is computed and printed without
touching the database. Pass --apply to commit the plan in one transaction.`,
}

// importBundleCmd imports a bundle JSON document.
var importBundleCmd = &cobra.Command{
	Use:   "bundle <file>",
	Short: "Import a bundle JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			raw, err := readImportFile(args[0])
			if err != nil {
				return nil, err
			}
			return svc.RunBundle(ctx, raw, dryRun)
		})
	},
}

var (
	csvHostsPath  string
	csvAssetsPath string
)

// importCSVCmd imports the hosts.csv / ip-assets.csv pair.
var importCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Import the hosts/ip-assets CSV pair",
	Long: `Import hosts and IP assets from CSV files.

Either file may be omitted; at least one must be given.

Examples:
  # Preview a combined import
  ipocket import csv --hosts hosts.csv --ip-assets ip-assets.csv

  # Commit a hosts-only import
  ipocket import csv --hosts hosts.csv --apply --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if csvHostsPath == "" && csvAssetsPath == "" {
			return fmt.Errorf("at least one of --hosts or --ip-assets is required")
		}
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			var hosts, assets []byte
			var err error
			if csvHostsPath != "" {
				if hosts, err = readImportFile(csvHostsPath); err != nil {
					return nil, err
				}
			}
			if csvAssetsPath != "" {
				if assets, err = readImportFile(csvAssetsPath); err != nil {
					return nil, err
				}
			}
			return svc.RunCSV(ctx, hosts, assets, dryRun)
		})
	},
}

// importNmapCmd imports an Nmap discovery XML report.
var importNmapCmd = &cobra.Command{
	Use:   "nmap <file>",
	Short: "Import an Nmap discovery XML report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			raw, err := readImportFile(args[0])
			if err != nil {
				return nil, err
			}
			return svc.RunNmap(ctx, raw, dryRun)
		})
	},
}

func init() {
	importCmd.AddCommand(importBundleCmd)
	importCmd.AddCommand(importCSVCmd)
	importCmd.AddCommand(importNmapCmd)

	importCmd.PersistentFlags().BoolVar(&applyImport, "apply", false, "Commit the plan instead of previewing")
	importCmd.PersistentFlags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the apply (non-interactive)")

	importCSVCmd.Flags().StringVar(&csvHostsPath, "hosts", "", "Path to hosts.csv")
	importCSVCmd.Flags().StringVar(&csvAssetsPath, "ip-assets", "", "Path to ip-assets.csv")

	RootCmd.AddCommand(importCmd)
}

func runImport(run func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error)) error {
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

	if applyImport && !confirmApply() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	svc := imports.NewService(db, l)
	result, err := run(ctx, svc, !applyImport)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printRunResult(l, result)

	if result.State == imports.StateAborted {
		return fmt.Errorf("import aborted with %d error(s)", len(result.Errors))
	}
	return nil
}

// readImportFile loads one input file through the same size limit the
// HTTP boundary enforces.
func readImportFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	raw, err := imports.ReadUploadLimited(file, imports.UploadMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

// printRunResult prints a formatted run report using logger.
func printRunResult(l *zap.Logger, result *imports.RunResult) {
	total := result.Summary.Total()
	l.Info("Import run report",
		zap.String("state", string(result.State)),
		zap.String("run_id", result.RunID),
		zap.String("source", result.Source),
		zap.Int("created", total.Created),
		zap.Int("updated", total.Updated),
		zap.Int("skipped", total.Skipped),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("errors", len(result.Errors)),
	)

	for _, issue := range result.Warnings {
		l.Warn("Import warning",
			zap.String("location", issue.Location),
			zap.String("message", issue.Message),
		)
	}
	for _, issue := range result.Errors {
		l.Error("Import error",
			zap.String("location", issue.Location),
			zap.String("message", issue.Message),
		)
	}

	// Show sample of changes (max 10 for logger)
	maxShow := 10
	if len(result.Changes) < maxShow {
		maxShow = len(result.Changes)
	}
	for i := 0; i < maxShow; i++ {
		change := result.Changes[i]
		fields := make([]string, 0, len(change.Fields))
		for _, f := range change.Fields {
			fields = append(fields, fmt.Sprintf("%s: %q -> %q", f.Field, f.Before, f.After))
		}
		l.Info("Planned change",
			zap.String("ip", change.IPAddress),
			zap.String("action", string(change.Action)),
			zap.Bool("restored", change.Restored),
			zap.String("fields", strings.Join(fields, "; ")),
		)
	}
	if len(result.Changes) > maxShow {
		l.Info("Additional changes not shown", zap.Int("count", len(result.Changes)-maxShow))
	}
}

// confirmApply prompts the user for confirmation or uses --yes flag.
func confirmApply() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to commit this import: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
