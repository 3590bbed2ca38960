package imports

import (
	"errors"
	"fmt"
	"mime/multipart"

	"ipocket/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the import boundary.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/import")
	group.Post("/bundle", h.HandleBundleImport)
	group.Post("/csv", h.HandleCSVImport)
	group.Post("/nmap", h.HandleNmapImport)
}

// HandleBundleImport imports a JSON bundle from the "bundle" form file.
// dry_run=0 commits; anything else previews.
func (h *Handler) HandleBundleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	raw, err := h.readFormFile(c, "bundle", true)
	if err != nil {
		return h.uploadError(c, l, "bundle", err)
	}

	result, err := h.service.RunBundle(c.Context(), raw, isDryRun(c))
	if err != nil {
		l.Error("Bundle import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// HandleCSVImport imports the hosts/ip-assets CSV pair. Both form
// files are optional; an empty request is a valid no-op run.
func (h *Handler) HandleCSVImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	hosts, err := h.readFormFile(c, "hosts", false)
	if err != nil {
		return h.uploadError(c, l, "hosts", err)
	}
	assets, err := h.readFormFile(c, "ip_assets", false)
	if err != nil {
		return h.uploadError(c, l, "ip_assets", err)
	}

	result, err := h.service.RunCSV(c.Context(), hosts, assets, isDryRun(c))
	if err != nil {
		l.Error("CSV import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// HandleNmapImport imports an Nmap discovery XML report from the
// "nmap" form file.
func (h *Handler) HandleNmapImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	raw, err := h.readFormFile(c, "nmap", true)
	if err != nil {
		return h.uploadError(c, l, "nmap", err)
	}

	result, err := h.service.RunNmap(c.Context(), raw, isDryRun(c))
	if err != nil {
		l.Error("Nmap import failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

var errMissingFile = errors.New("missing form file")

// readFormFile reads one multipart file through the size-limited
// reader, so oversize input is rejected before any adapter runs.
func (h *Handler) readFormFile(c *fiber.Ctx, field string, required bool) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if required {
			return nil, errMissingFile
		}
		return nil, nil
	}
	return readLimitedHeader(header)
}

func readLimitedHeader(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadUploadLimited(file, UploadMaxBytes)
}

func (h *Handler) uploadError(c *fiber.Ctx, l *zap.Logger, field string, err error) error {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		l.Warn("Upload rejected", zap.String("field", field), zap.Error(err))
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("file %q exceeds the %s upload limit", field, DescribeUploadLimit(UploadMaxBytes)),
		})
	case errors.Is(err, errMissingFile):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("missing form file %q", field),
		})
	default:
		l.Error("Upload read failed", zap.String("field", field), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
}

// isDryRun reads the dry_run query parameter. Imports preview by
// default; only an explicit dry_run=0/false commits.
func isDryRun(c *fiber.Ctx) bool {
	switch c.Query("dry_run", "1") {
	case "0", "false", "no":
		return false
	default:
		return true
	}
}
