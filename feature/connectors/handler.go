package connectors

import (
	"errors"
	"fmt"
	"strings"

	"ipocket/core/logger"
	"ipocket/feature/imports"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles HTTP requests for the connector boundary.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the connector routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/connectors")
	group.Post("/vcenter/run", h.HandleVCenterRun)
	group.Post("/prometheus/run", h.HandlePrometheusRun)
	group.Post("/elasticsearch/run", h.HandleElasticsearchRun)
	group.Get("/jobs/:id", h.HandleJobStatus)
}

// HandleVCenterRun starts a vCenter inventory import from the
// "inventory" form file. Returns 202 with the job to poll.
func (h *Handler) HandleVCenterRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	header, err := c.FormFile("inventory")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": `missing form file "inventory"`,
		})
	}
	file, err := header.Open()
	if err != nil {
		l.Error("Upload read failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer file.Close()
	inventory, err := imports.ReadUploadLimited(file, imports.UploadMaxBytes)
	if err != nil {
		if errors.Is(err, imports.ErrUploadTooLarge) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": fmt.Sprintf("inventory file exceeds the %s upload limit", imports.DescribeUploadLimit(imports.UploadMaxBytes)),
			})
		}
		l.Error("Upload read failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	job, err := h.service.RunVCenter(c.Context(), inventory, isDryRun(c))
	if err != nil {
		l.Error("Failed to enqueue vCenter job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	l.Info("vCenter connector job enqueued", zap.String("job_id", job.ID))
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandlePrometheusRun starts a Prometheus target import from JSON
// parameters. Returns 202 with the job to poll.
func (h *Handler) HandlePrometheusRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var params PrometheusParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(params.URL) == "" || strings.TrimSpace(params.Query) == "" || strings.TrimSpace(params.IPLabel) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url, query and ip_label are required",
		})
	}

	job, err := h.service.RunPrometheus(c.Context(), params, isDryRun(c))
	if err != nil {
		l.Error("Failed to enqueue Prometheus job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	l.Info("Prometheus connector job enqueued", zap.String("job_id", job.ID))
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandleElasticsearchRun starts an Elasticsearch node import from JSON
// parameters. Returns 202 with the job to poll.
func (h *Handler) HandleElasticsearchRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var params ElasticsearchParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(params.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}
	hasAPIKey := strings.TrimSpace(params.APIKey) != ""
	hasBasic := strings.TrimSpace(params.Username) != ""
	if hasAPIKey == hasBasic {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "either api_key or username/password is required, not both",
		})
	}

	job, err := h.service.RunElasticsearch(c.Context(), params, isDryRun(c))
	if err != nil {
		l.Error("Failed to enqueue Elasticsearch job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	l.Info("Elasticsearch connector job enqueued", zap.String("job_id", job.ID))
	return c.Status(fiber.StatusAccepted).JSON(job)
}

// HandleJobStatus returns the current state of a connector job.
func (h *Handler) HandleJobStatus(c *fiber.Ctx) error {
	job, err := h.service.Job(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
		}
		logger.WithRayID(h.service.logger, c).Error("Failed to load connector job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(job)
}

// isDryRun reads the dry_run query parameter. Connector runs preview
// by default; only an explicit dry_run=0/false commits.
func isDryRun(c *fiber.Ctx) bool {
	switch c.Query("dry_run", "1") {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}
