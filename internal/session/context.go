package session

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	localsToken = "user"
	localsRole  = "role"
)

var ErrNoSession = errors.New("no session in context")

// GetUserID extracts the user UUID from the JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return uuid.Nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// GetEmail returns the email claim, or "" when absent.
func GetEmail(c *fiber.Ctx) string {
	claims, err := claimsFrom(c)
	if err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}

// SetRole stores the resolved role for the rest of the request.
func SetRole(c *fiber.Ctx, role access.Role) {
	c.Locals(localsRole, role)
}

// GetRole returns the role resolved by middleware. Requests that skipped
// resolution get the default role.
func GetRole(c *fiber.Ctx) access.Role {
	if role, ok := c.Locals(localsRole).(access.Role); ok {
		return role
	}
	return access.DefaultRole
}

func claimsFrom(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(localsToken).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
