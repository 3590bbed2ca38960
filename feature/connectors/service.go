package connectors

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"
)

// Service runs connector imports as background jobs.
type Service struct {
	logger        *zap.Logger
	imports       *imports.Service
	runner        *Runner
	prometheus    *PrometheusClient
	elasticsearch *ElasticsearchClient
}

// NewService creates a connector service.
func NewService(db *gorm.DB, logger *zap.Logger, importService *imports.Service) *Service {
	return &Service{
		logger:        logger,
		imports:       importService,
		runner:        NewRunner(db, logger),
		prometheus:    NewPrometheusClient(0, false),
		elasticsearch: NewElasticsearchClient(0, false),
	}
}

// RunVCenter enqueues an import of an exported vCenter inventory
// document.
func (s *Service) RunVCenter(ctx context.Context, inventory []byte, dryRun bool) (*models.ConnectorJob, error) {
	adapter := NewVCenterAdapter()
	return s.runner.Enqueue(ctx, adapter.Name(), dryRun, func(ctx context.Context) (*imports.RunResult, error) {
		inputs := map[string][]byte{InputInventory: inventory}
		return s.imports.Run(ctx, adapter, inputs, dryRun)
	})
}

// PrometheusParams configures one Prometheus connector run.
type PrometheusParams struct {
	URL         string   `json:"url"`
	Token       string   `json:"token"`
	Insecure    bool     `json:"insecure"`
	Query       string   `json:"query"`
	IPLabel     string   `json:"ip_label"`
	DefaultType string   `json:"default_type"`
	ProjectName string   `json:"project_name"`
	Tags        []string `json:"tags"`
}

// RunPrometheus enqueues a query against a Prometheus API and imports
// the matching targets. The query runs inside the job, not the
// request.
func (s *Service) RunPrometheus(ctx context.Context, params PrometheusParams, dryRun bool) (*models.ConnectorJob, error) {
	adapter := NewPrometheusAdapter(PrometheusSettings{
		Query:       params.Query,
		IPLabel:     params.IPLabel,
		DefaultType: params.DefaultType,
		ProjectName: params.ProjectName,
		Tags:        params.Tags,
	})
	client := s.prometheus
	if params.Insecure {
		client = NewPrometheusClient(0, true)
	}
	return s.runner.Enqueue(ctx, adapter.Name(), dryRun, func(ctx context.Context) (*imports.RunResult, error) {
		payload, err := client.Query(ctx, params.URL, params.Query, params.Token)
		if err != nil {
			return nil, err
		}
		inputs := map[string][]byte{InputSamples: payload}
		return s.imports.Run(ctx, adapter, inputs, dryRun)
	})
}

// ElasticsearchParams configures one Elasticsearch connector run.
type ElasticsearchParams struct {
	URL         string   `json:"url"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	APIKey      string   `json:"api_key"`
	Insecure    bool     `json:"insecure"`
	DefaultType string   `json:"default_type"`
	ProjectName string   `json:"project_name"`
	Tags        []string `json:"tags"`
	Note        string   `json:"note"`
}

// RunElasticsearch enqueues a nodes-info query against an
// Elasticsearch cluster and imports its node addresses. The query runs
// inside the job, not the request.
func (s *Service) RunElasticsearch(ctx context.Context, params ElasticsearchParams, dryRun bool) (*models.ConnectorJob, error) {
	adapter := NewElasticsearchAdapter(ElasticsearchSettings{
		DefaultType: params.DefaultType,
		ProjectName: params.ProjectName,
		Tags:        params.Tags,
		Note:        params.Note,
	})
	client := s.elasticsearch
	if params.Insecure {
		client = NewElasticsearchClient(0, true)
	}
	return s.runner.Enqueue(ctx, adapter.Name(), dryRun, func(ctx context.Context) (*imports.RunResult, error) {
		payload, err := client.Nodes(ctx, params.URL, params.Username, params.Password, params.APIKey)
		if err != nil {
			return nil, err
		}
		inputs := map[string][]byte{InputNodes: payload}
		return s.imports.Run(ctx, adapter, inputs, dryRun)
	})
}

// Job loads a connector job by ID.
func (s *Service) Job(ctx context.Context, id string) (*models.ConnectorJob, error) {
	return s.runner.Job(ctx, id)
}
