package expenses

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID, role, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	resp, err := h.service.List(c.UserContext(), role, userID)
	if err != nil {
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to load expenses")
	}
	return c.JSON(resp)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	var req CreateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	expense, err := h.service.Create(c.UserContext(), userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			return modules.Fail(c, fiber.StatusBadRequest, err.Error())
		}
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to add expense")
	}
	return c.Status(fiber.StatusCreated).JSON(expense)
}
