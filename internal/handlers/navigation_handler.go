package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/access"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

// NavigationResponse is the screen set for the caller. Denied lists the
// reachable screens whose content is withheld for the caller's role.
type NavigationResponse struct {
	access.Navigation
	Role   string          `json:"role,omitempty"`
	Denied []access.Screen `json:"denied,omitempty"`
}

type NavigationHandler struct {
	roles  *roles.Resolver
	ledger *session.Ledger
}

func NewNavigationHandler(resolver *roles.Resolver, ledger *session.Ledger) *NavigationHandler {
	return &NavigationHandler{roles: resolver, ledger: ledger}
}

// Get answers with the unauthenticated screens for anonymous callers and
// the member screens otherwise. A token from an ended session counts as
// anonymous. Runs behind OptionalJWT.
func (h *NavigationHandler) Get(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return c.JSON(NavigationResponse{Navigation: access.SelectNavigation(false)})
	}
	live, err := h.ledger.Live(c.UserContext(), userID, session.GetSessionVersion(c))
	if err != nil {
		slog.Warn("session check failed", "user_id", userID.String(), "error", err)
	}
	if !live {
		return c.JSON(NavigationResponse{Navigation: access.SelectNavigation(false)})
	}

	nav := access.SelectNavigation(true)
	role := h.roles.Resolve(c.UserContext(), userID)

	resp := NavigationResponse{Navigation: nav, Role: role.String()}
	for _, screen := range nav.Tabs {
		if !access.ScreenAllowed(role, screen) {
			resp.Denied = append(resp.Denied, screen)
		}
	}
	return c.JSON(resp)
}
