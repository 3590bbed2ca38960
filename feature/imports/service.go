package imports

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service exposes the import pipeline to transports. One service
// instance serves all formats; the adapter is selected per call.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	pipeline *Pipeline
}

// NewService creates an import service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		logger:   logger,
		pipeline: NewPipeline(db, logger),
	}
}

// RunBundle imports a JSON bundle document.
func (s *Service) RunBundle(ctx context.Context, raw []byte, dryRun bool) (*RunResult, error) {
	inputs := map[string][]byte{InputBundle: raw}
	return s.pipeline.Run(ctx, NewBundleAdapter(), inputs, dryRun)
}

// RunCSV imports the hosts.csv / ip-assets.csv pair. Either file may
// be nil.
func (s *Service) RunCSV(ctx context.Context, hosts, assets []byte, dryRun bool) (*RunResult, error) {
	inputs := map[string][]byte{}
	if hosts != nil {
		inputs[InputHosts] = hosts
	}
	if assets != nil {
		inputs[InputIPAssets] = assets
	}
	return s.pipeline.Run(ctx, NewCSVAdapter(), inputs, dryRun)
}

// RunNmap imports an Nmap discovery XML report.
func (s *Service) RunNmap(ctx context.Context, raw []byte, dryRun bool) (*RunResult, error) {
	inputs := map[string][]byte{InputNmap: raw}
	return s.pipeline.Run(ctx, NewNmapAdapter(), inputs, dryRun)
}

// Run executes an arbitrary adapter through the pipeline. Connector
// sources use this entry point.
func (s *Service) Run(ctx context.Context, adapter Adapter, inputs map[string][]byte, dryRun bool) (*RunResult, error) {
	return s.pipeline.Run(ctx, adapter, inputs, dryRun)
}
