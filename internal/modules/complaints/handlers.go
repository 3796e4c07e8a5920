package complaints

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

	items, err := h.service.List(c.UserContext(), role, userID)
	if err != nil {
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to load complaints")
	}
	return c.JSON(ComplaintListResponse{Complaints: items, Total: len(items)})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	userID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	var req CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	complaint, err := h.service.Create(c.UserContext(), userID, req)
	if err != nil {
		return modules.Fail(c, fiber.StatusInternalServerError, "Failed to submit complaint")
	}
	return c.Status(fiber.StatusCreated).JSON(complaint)
}

func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	actorID, _, ok := modules.Principal(c)
	if !ok {
		return nil
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid complaint ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return modules.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	complaint, err := h.service.UpdateStatus(c.UserContext(), actorID, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrComplaintNotFound):
			return modules.Fail(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStatusConflict):
			return modules.Fail(c, fiber.StatusConflict, err.Error())
		default:
			return modules.Fail(c, fiber.StatusInternalServerError, "Failed to update complaint")
		}
	}
	return c.JSON(complaint)
}
