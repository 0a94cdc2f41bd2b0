package integrity

import (
	"errors"

	"asset-cache/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/roots", h.HandleRootsCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/packages", h.HandlePackagesCheck)
}

// HandleIntegrityCheck runs every check and combines the reports.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	if st, err := h.service.CheckStorage(ctx); err != nil {
		report["storage"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["storage"] = st
	}

	if missing, err := h.service.CheckRoots(); err != nil {
		report["roots"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["roots"] = fiber.Map{"status": "checked", "missing": missing}
	}

	report["schema"] = h.service.CheckSchema(ctx)

	if plan, err := h.service.CheckPackages(ctx); err != nil {
		report["packages"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["packages"] = plan.Summary
	}

	return c.JSON(report)
}

// HandleStorageCheck checks the bucket and the package prefix.
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckStorage(c.UserContext())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.HasPackages {
		l.Warn("No package archives under prefix", zap.String("prefix", report.Prefix))
	}
	return c.JSON(report)
}

// HandleRootsCheck checks the local file roots.
func (h *Handler) HandleRootsCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	missing, err := h.service.CheckRoots()
	if err != nil {
		l.Error("Roots check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if len(missing) > 0 {
		l.Warn("Missing local roots detected", zap.Strings("missing", missing))
	}
	return c.JSON(fiber.Map{"status": "checked", "missing": missing})
}

// HandleSchemaCheck verifies the manifest tables.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	return c.JSON(h.service.CheckSchema(c.UserContext()))
}

// HandlePackagesCheck reconciles manifests with package archives.
func (h *Handler) HandlePackagesCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	plan, err := h.service.CheckPackages(c.UserContext())
	if errors.Is(err, ErrNoManifests) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Package check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(plan)
}
