package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	user, err := h.users.Profile(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Profile not found"})
		}
		return internalError(c, "Failed to load profile")
	}
	return c.JSON(services.ToProfileResponse(user))
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.UpdateProfile(c.UserContext(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNothingToUpdate):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Profile not found"})
		default:
			return internalError(c, "Failed to update profile")
		}
	}
	return c.JSON(services.ToProfileResponse(user))
}

type UsersHandler struct {
	users *services.UserService
}

func NewUsersHandler(users *services.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List is the Users screen. Runs behind RequireElevated.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return internalError(c, "Failed to load users")
	}

	out := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		out = append(out, services.ToProfileResponse(&users[i]))
	}
	return c.JSON(dto.UserListResponse{Users: out, Total: len(out)})
}

// Assignable lists who the Assign screen may hand products to.
func (h *UsersHandler) Assignable(c *fiber.Ctx) error {
	users, err := h.users.Assignable(c.UserContext())
	if err != nil {
		return internalError(c, "Failed to load users")
	}

	out := make([]dto.ProfileResponse, 0, len(users))
	for i := range users {
		out = append(out, services.ToProfileResponse(&users[i]))
	}
	return c.JSON(dto.UserListResponse{Users: out, Total: len(out)})
}

func (h *UsersHandler) SetRole(c *fiber.Ctx) error {
	actorID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid user ID")
	}

	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validation.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.users.SetRole(c.UserContext(), actorID, session.GetRole(c), targetID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRoleNotGrantable):
			return forbidden(c)
		case errors.Is(err, services.ErrOwnRoleImmutable), errors.Is(err, services.ErrUnknownRole):
			return badRequest(c, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "User not found"})
		default:
			return internalError(c, "Failed to change role")
		}
	}
	return c.JSON(services.ToProfileResponse(user))
}
