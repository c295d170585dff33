package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/dto"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	registry *tenant.Registry
	rdb      *redis.Client
	pingDB   func() error
}

func NewHealthHandler(registry *tenant.Registry, rdb *redis.Client, pingDB func() error) *HealthHandler {
	return &HealthHandler{registry: registry, rdb: rdb, pingDB: pingDB}
}

// Check reports "degraded" when either backing store is unreachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "ok"

	dbStatus := "ok"
	if err := h.pingDB(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	redisStatus := "ok"
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Redis:     redisStatus,
		AppCount:  len(h.registry.All()),
	})
}
