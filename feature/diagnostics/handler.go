package diagnostics

import (
	"errors"

	"asset-cache/core/logger"
	"asset-cache/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for cache diagnostics.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the diagnostics routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/cache")
	group.Get("/stats", h.HandleStats)
	group.Get("/snapshot", h.HandleSnapshot)
	group.Get("/leaks", h.HandleLeaks)
	group.Post("/cleanup", h.HandleCleanup)
	group.Post("/preload", h.HandlePreload)
}

// HandleStats returns the table, arena and sweeper counters.
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats())
}

// HandleSnapshot lists the indexed entries, optionally filtered by
// ?category= and capped by ?limit=.
func (h *Handler) HandleSnapshot(c *fiber.Ctx) error {
	entries, err := h.service.Snapshot(c.Query("category"), utils.ToInt(c.Query("limit"), 0))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(entries)
}

// HandleLeaks runs the leak heuristic and returns its report.
func (h *Handler) HandleLeaks(c *fiber.Ctx) error {
	return c.JSON(h.service.Leaks())
}

// HandleCleanup evicts recycled entries without waiting for the sweeper.
// ?force=true skips the cleanup throttle.
func (h *Handler) HandleCleanup(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	force := utils.ToBool(c.Query("force"))
	removed := h.service.Cleanup(force)
	l.Info("Manual cache cleanup", zap.Int("removed", removed), zap.Bool("force", force))
	return c.JSON(fiber.Map{"removed": removed})
}

// HandlePreload loads the resources named in the body.
func (h *Handler) HandlePreload(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req PreloadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.service.Preload(c.UserContext(), req)
	if err != nil {
		if !errors.Is(err, ErrEmptyRequest) {
			l.Warn("Preload rejected", zap.Error(err))
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(result.Errors) > 0 {
		l.Warn("Preload finished with errors", zap.Strings("errors", result.Errors))
		return c.Status(fiber.StatusMultiStatus).JSON(result)
	}
	return c.JSON(result)
}
