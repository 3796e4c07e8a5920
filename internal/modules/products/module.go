package products

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

func New(service *Service, maxUploadBytes int64) *Module {
	return &Module{service: service, handler: NewHandler(service, maxUploadBytes)}
}

func (m *Module) ID() string { return Collection }

func (m *Module) Models() []interface{} {
	return []interface{}{&Product{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, elevated fiber.Handler) {
	router.Get("/products", m.handler.List)
	router.Post("/products", m.handler.Create)
	router.Get("/products/unassigned", elevated, m.handler.Unassigned)
	router.Put("/products/:id/assign", elevated, m.handler.Assign)
}

func (m *Module) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return m.service.Watch(role, userID)
}

// Service exposes the product service to the dashboard.
func (m *Module) Service() *Service { return m.service }
