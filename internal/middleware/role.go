package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

// ResolveRole looks up the caller's role once per request, before any
// handler queries a collection. Must run after JWTProtected.
func ResolveRole(resolver *roles.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := session.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		session.SetRole(c, resolver.Resolve(c.UserContext(), userID))
		return c.Next()
	}
}

// RequireSession rejects access tokens issued before the user last signed
// out everywhere. Must run after JWTProtected.
func RequireSession(ledger *session.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := session.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		live, err := ledger.Live(c.UserContext(), userID, session.GetSessionVersion(c))
		if err != nil {
			slog.Error("session check failed", "user_id", userID.String(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
		if !live {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Session ended",
			})
		}
		return c.Next()
	}
}

// RequireElevated admits admins and owners only.
func RequireElevated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !session.GetRole(c).IsElevated() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Access Denied",
			})
		}
		return c.Next()
	}
}
