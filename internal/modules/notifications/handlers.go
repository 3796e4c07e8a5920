package notifications

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
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
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to load notifications")
	}
	return c.JSON(resp)
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	userID, role, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.service.MarkRead(c.UserContext(), role, userID, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return modules.Fail(c, fiber.StatusNotFound, err.Error())
		}
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to mark notification as read")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	senderID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	var req CreateNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	n, err := h.service.Create(c.UserContext(), &senderID, req)
	if err != nil {
		if errors.Is(err, ErrNoAudience) {
			return modules.Fail(c, fiber.StatusBadRequest, err.Error())
		}
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to send notification")
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}
