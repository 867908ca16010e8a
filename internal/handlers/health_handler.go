package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports liveness together with the active storage backend.
type HealthHandler struct {
	storage string
	broker  func() bool
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. broker reports whether the event
// broker is connected and may be nil when events are disabled.
func NewHealthHandler(storage string, broker func() bool) *HealthHandler {
	return &HealthHandler{storage: storage, broker: broker, now: time.Now}
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	events := "disabled"
	if h.broker != nil {
		events = "disconnected"
		if h.broker() {
			events = "connected"
		}
	}
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    h.now().Format(time.RFC3339),
		"storage": h.storage,
		"events":  events,
	})
}
