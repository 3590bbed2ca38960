package cmd

import (
	"context"
	"fmt"
	"time"

	"ipocket/feature/connectors"
	"ipocket/feature/imports"

	"github.com/spf13/cobra"
)

var (
	// Flags for connector prometheus command
	promURL         string
	promToken       string
	promInsecure    bool
	promQuery       string
	promIPLabel     string
	promDefaultType string
	promProject     string
	promTags        []string

	// Flags for connector elasticsearch command
	esURL         string
	esUsername    string
	esPassword    string
	esAPIKey      string
	esInsecure    bool
	esDefaultType string
	esProject     string
	esTags        []string
	esNote        string
)

// connectorCmd is the parent command for all connector operations.
// CLI connector runs execute synchronously; the background job table
// is an HTTP concern.
var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Import inventory from external systems",
}

// connectorVCenterCmd imports an exported vCenter inventory document.
var connectorVCenterCmd = &cobra.Command{
	Use:   "vcenter <inventory.json>",
	Short: "Import a vCenter inventory export",
	Long: `Import hosts and VMs from an exported vCenter inventory document.

Re-syncs preserve operator notes and manually corrected asset types.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			raw, err := readImportFile(args[0])
			if err != nil {
				return nil, err
			}
			inputs := map[string][]byte{connectors.InputInventory: raw}
			return svc.Run(ctx, connectors.NewVCenterAdapter(), inputs, dryRun)
		})
	},
}

// connectorPrometheusCmd queries a Prometheus API and imports the
// matching targets.
var connectorPrometheusCmd = &cobra.Command{
	Use:   "prometheus",
	Short: "Import targets from a Prometheus query",
	Long: `Query a Prometheus API and import the matching targets as IP assets.

Repeated runs merge tags instead of replacing them.

Examples:
  # Preview node exporter targets
  ipocket connector prometheus --url http://prom:9090 --query 'up{job="node"}' --ip-label instance

  # Commit with a project and extra tags
  ipocket connector prometheus --url http://prom:9090 --query up --ip-label instance \
    --project backbone --tag monitored --tag prod --apply --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if promURL == "" || promQuery == "" || promIPLabel == "" {
			return fmt.Errorf("--url, --query and --ip-label are required")
		}
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			client := connectors.NewPrometheusClient(30*time.Second, promInsecure)
			payload, err := client.Query(ctx, promURL, promQuery, promToken)
			if err != nil {
				return nil, err
			}
			adapter := connectors.NewPrometheusAdapter(connectors.PrometheusSettings{
				Query:       promQuery,
				IPLabel:     promIPLabel,
				DefaultType: promDefaultType,
				ProjectName: promProject,
				Tags:        promTags,
			})
			inputs := map[string][]byte{connectors.InputSamples: payload}
			return svc.Run(ctx, adapter, inputs, dryRun)
		})
	},
}

// connectorElasticsearchCmd imports the nodes of an Elasticsearch
// cluster.
var connectorElasticsearchCmd = &cobra.Command{
	Use:   "elasticsearch",
	Short: "Import the nodes of an Elasticsearch cluster",
	Long: `Query an Elasticsearch cluster's node info and import each node's
address as an IP asset.

Repeated runs merge tags instead of replacing them.

Examples:
  # Preview cluster nodes with an API key
  ipocket connector elasticsearch --url https://es:9200 --api-key id:key

  # Commit with Basic auth, a project and a note
  ipocket connector elasticsearch --url https://es:9200 --user elastic --password secret \
    --project backbone --note "ES production cluster" --apply --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if esURL == "" {
			return fmt.Errorf("--url is required")
		}
		hasAPIKey := esAPIKey != ""
		hasBasic := esUsername != ""
		if hasAPIKey == hasBasic {
			return fmt.Errorf("either --api-key or --user/--password is required, not both")
		}
		return runImport(func(ctx context.Context, svc *imports.Service, dryRun bool) (*imports.RunResult, error) {
			client := connectors.NewElasticsearchClient(30*time.Second, esInsecure)
			payload, err := client.Nodes(ctx, esURL, esUsername, esPassword, esAPIKey)
			if err != nil {
				return nil, err
			}
			adapter := connectors.NewElasticsearchAdapter(connectors.ElasticsearchSettings{
				DefaultType: esDefaultType,
				ProjectName: esProject,
				Tags:        esTags,
				Note:        esNote,
			})
			inputs := map[string][]byte{connectors.InputNodes: payload}
			return svc.Run(ctx, adapter, inputs, dryRun)
		})
	},
}

func init() {
	connectorCmd.AddCommand(connectorVCenterCmd)
	connectorCmd.AddCommand(connectorPrometheusCmd)
	connectorCmd.AddCommand(connectorElasticsearchCmd)

	connectorCmd.PersistentFlags().BoolVar(&applyImport, "apply", false, "Commit the plan instead of previewing")
	connectorCmd.PersistentFlags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the apply (non-interactive)")

	connectorPrometheusCmd.Flags().StringVar(&promURL, "url", "", "Prometheus base URL")
	connectorPrometheusCmd.Flags().StringVar(&promToken, "token", "", "Auth token (user:pass for Basic, anything else for Bearer)")
	connectorPrometheusCmd.Flags().BoolVar(&promInsecure, "insecure", false, "Skip TLS certificate verification")
	connectorPrometheusCmd.Flags().StringVar(&promQuery, "query", "", "PromQL instant query")
	connectorPrometheusCmd.Flags().StringVar(&promIPLabel, "ip-label", "", "Label carrying the target address")
	connectorPrometheusCmd.Flags().StringVar(&promDefaultType, "type", "", "Asset type for imported targets (default OTHER)")
	connectorPrometheusCmd.Flags().StringVar(&promProject, "project", "", "Project to assign imported targets to")
	connectorPrometheusCmd.Flags().StringArrayVar(&promTags, "tag", nil, "Tag to attach (repeatable)")

	connectorElasticsearchCmd.Flags().StringVar(&esURL, "url", "", "Elasticsearch base URL")
	connectorElasticsearchCmd.Flags().StringVar(&esUsername, "user", "", "Basic auth username")
	connectorElasticsearchCmd.Flags().StringVar(&esPassword, "password", "", "Basic auth password")
	connectorElasticsearchCmd.Flags().StringVar(&esAPIKey, "api-key", "", "API key (id:key or pre-encoded)")
	connectorElasticsearchCmd.Flags().BoolVar(&esInsecure, "insecure", false, "Skip TLS certificate verification")
	connectorElasticsearchCmd.Flags().StringVar(&esDefaultType, "type", "", "Asset type for imported nodes (default OTHER)")
	connectorElasticsearchCmd.Flags().StringVar(&esProject, "project", "", "Project to assign imported nodes to")
	connectorElasticsearchCmd.Flags().StringArrayVar(&esTags, "tag", nil, "Tag to attach (repeatable)")
	connectorElasticsearchCmd.Flags().StringVar(&esNote, "note", "", "Note to set on imported nodes")

	RootCmd.AddCommand(connectorCmd)
}
