package health

import (
	"time"

	healthsvc "piefolio-backend/internal/health"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers serves the health endpoints. DB and Rdb may be nil; the checks
// degrade to "disconnected" instead of failing.
type Handlers struct {
	Rdb *redis.Client
	DB  healthsvc.DBPinger
	Env string
}

// GET /api/health
func (h *Handlers) Basic(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"version":     healthsvc.Version,
		"environment": h.Env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/health/ready
func (h *Handlers) Ready(c *fiber.Ctx) error {
	dbStatus := "healthy"
	dbMessage := "Connected"
	if h.DB == nil {
		dbStatus = "unhealthy"
		dbMessage = "No database configured"
	} else if err := h.DB.Ping(); err != nil {
		dbStatus = "unhealthy"
		dbMessage = err.Error()
	}

	status := "ready"
	if dbStatus != "healthy" {
		status = "not_ready"
	}
	return c.JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"database": fiber.Map{
				"status":  dbStatus,
				"message": dbMessage,
			},
		},
	})
}

// GET /api/health/live
func (h *Handlers) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// GET /api/health/json — full snapshot with traffic counters.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.CollectHealth(c.Context(), h.Rdb, h.DB)
	return c.JSON(result)
}
