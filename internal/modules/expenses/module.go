package expenses

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
	return []interface{}{&Expense{}}
}

func (m *Module) RegisterRoutes(router fiber.Router, _ fiber.Handler) {
	router.Get("/expenses", m.handler.List)
	router.Post("/expenses", m.handler.Create)
}

func (m *Module) Watch(role access.Role, userID uuid.UUID) (live.Filter, live.Loader) {
	return m.service.Watch(role, userID)
}

// Service exposes the expense service to the dashboard.
func (m *Module) Service() *Service { return m.service }
