package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis *redis.Client
}

// NewHealthHandler reports database health, plus Redis when a client is
// configured.
func NewHealthHandler(rdb *redis.Client) *HealthHandler {
	return &HealthHandler{redis: rdb}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	}
	if h.redis != nil {
		resp.Redis = "ok"
		if err := h.redis.Ping(c.UserContext()).Err(); err != nil {
			resp.Redis = "unhealthy: " + err.Error()
		}
	}

	return c.JSON(resp)
}
