package notifications

import (
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Module struct {
	service *Service
	handler *Handler
}

func New(service *Service) *Module {
	return &Module{service: service, handler: NewHandler(service)}
}

func (m *Module) ID() string { return Collection }

func (m *Module) Models() []interface{} {
	return []interface{}{&Notification{}, &Receipt{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, elevated fiber.Handler) {
	router.Get("/notifications", m.handler.List)
	router.Post("/notifications", elevated, m.handler.Create)
	router.Put("/notifications/:id/read", m.handler.MarkRead)
}

func (m *Module) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return m.service.Watch(role, userID)
}

// Service exposes the service to the Kafka ingest consumer.
func (m *Module) Service() *Service { return m.service }
