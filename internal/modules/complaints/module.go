package complaints

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
	return []interface{}{&Complaint{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, elevated fiber.Handler) {
	router.Get("/complaints", m.handler.List)
	router.Post("/complaints", m.handler.Create)
	router.Put("/complaints/:id/status", elevated, m.handler.UpdateStatus)
}

func (m *Module) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return m.service.Watch(role, userID)
}
