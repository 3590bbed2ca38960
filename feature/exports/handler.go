package exports

import (
	"ipocket/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for exports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the export routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/export")
	group.Get("/bundle", h.HandleBundleExport)
}

// HandleBundleExport builds and returns a bundle document. With
// archive=true the bundle is also written to object storage.
func (h *Handler) HandleBundleExport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	opts := Options{
		IncludeArchived: c.Query("include_archived") == "true",
		AssetType:       c.Query("type"),
		ProjectName:     c.Query("project"),
		HostName:        c.Query("host"),
	}

	bundle, err := h.service.BuildBundle(c.Context(), opts)
	if err != nil {
		l.Error("Bundle export failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if c.Query("archive") == "true" {
		objectName, err := h.service.Archive(c.Context(), bundle)
		if err != nil {
			l.Error("Bundle archive failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		l.Info("Bundle exported and archived", zap.String("object", objectName))
		return c.JSON(fiber.Map{"archived": objectName, "bundle": bundle})
	}

	return c.JSON(bundle)
}
