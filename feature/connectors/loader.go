package connectors

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ipocket/feature/imports"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	db      *gorm.DB
	service *Service
	handler *Handler
}

// NewFeature creates a new connectors feature. It rides on the import
// pipeline, so the imports service is a hard dependency.
func NewFeature(db *gorm.DB, logger *zap.Logger, importService *imports.Service) *Feature {
	svc := NewService(db, logger, importService)
	h := NewHandler(svc)
	return &Feature{db: db, service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "connectors"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.db != nil && f.service.imports != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the feature's service for the CLI.
func (f *Feature) Service() *Service {
	return f.service
}
