package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

type ProductCounter interface {
	Count(ctx context.Context, role access.Role, userID uuid.UUID) (int64, error)
}

type SpendingReporter interface {
	CurrentMonthTotal(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type DashboardHandler struct {
	users    UserCounter
	products ProductCounter
	spending SpendingReporter
}

func NewDashboardHandler(users UserCounter, products ProductCounter, spending SpendingReporter) *DashboardHandler {
	return &DashboardHandler{users: users, products: products, spending: spending}
}

// Get summarizes the caller's view. The user count is only computed for
// elevated roles.
func (h *DashboardHandler) Get(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	role := session.GetRole(c)
	ctx := c.UserContext()

	resp := dto.DashboardResponse{Role: role.String()}

	if role.IsElevated() {
		n, err := h.users.Count(ctx)
		if err != nil {
			return internalError(c, "Failed to load dashboard")
		}
		resp.TotalUsers = n
	}

	products, err := h.products.Count(ctx, role, userID)
	if err != nil {
		return internalError(c, "Failed to load dashboard")
	}
	resp.TotalProducts = products

	spent, err := h.spending.CurrentMonthTotal(ctx, userID)
	if err != nil {
		return internalError(c, "Failed to load dashboard")
	}
	resp.MonthlySpending = spent.StringFixed(2)

	return c.JSON(resp)
}
