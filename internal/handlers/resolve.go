package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"printdesk/internal/resilience"
	"printdesk/internal/resolver"
)

// ResolveHandler exposes the resolution engine to the orchestrating caller.
type ResolveHandler struct {
	resolver *resolver.Resolver
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(r *resolver.Resolver) *ResolveHandler {
	return &ResolveHandler{resolver: r}
}

type resolveRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Language string `json:"language"`
}

// Resolve handles POST /api/resolve. Malformed input is rejected here with
// a corrective message; everything past validation always yields an outcome.
func (h *ResolveHandler) Resolve(c *fiber.Ctx) error {
	var req resolveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}
	if err := h.resolver.ValidateQuery(req.Query, req.Language); err != nil {
		message := "invalid query"
		var rerr *resilience.Error
		if errors.As(err, &rerr) {
			message = rerr.Message
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": message,
		})
	}

	outcome := h.resolver.Resolve(c.Context(), req.UserID, req.Query, req.Language)
	return c.JSON(outcome)
}

// SessionStats handles GET /api/sessions/:userID.
func (h *ResolveHandler) SessionStats(c *fiber.Ctx) error {
	return c.JSON(h.resolver.SessionStats(c.Params("userID")))
}

// ClearSession handles DELETE /api/sessions/:userID.
func (h *ResolveHandler) ClearSession(c *fiber.Ctx) error {
	h.resolver.ClearSession(c.Params("userID"))
	return c.JSON(fiber.Map{"cleared": true})
}

// Health handles GET /api/health with an optional ?window=hours query.
func (h *ResolveHandler) Health(c *fiber.Ctx) error {
	window := c.QueryInt("window", 1)
	report := h.resolver.HealthReport(window)
	return c.JSON(report)
}

// Liveness handles GET /health.
func (h *ResolveHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
