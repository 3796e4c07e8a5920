package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Handlers groups the top-level handlers mounted outside the modules.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Navigation *handlers.NavigationHandler
	Profile    *handlers.ProfileHandler
	Users      *handlers.UsersHandler
	Dashboard  *handlers.DashboardHandler
	Stream     *handlers.StreamHandler
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	resolver *roles.Resolver,
	ledger *session.Ledger,
	h Handlers,
	mods []modules.Module,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Screen set for the caller; anonymous callers get the public screens.
	api.Get("/navigation", middleware.OptionalJWT(cfg), h.Navigation.Get)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	authLimiter := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
	auth.Post("/register", authLimiter, h.Auth.Register)
	auth.Post("/login", authLimiter, h.Auth.Login)
	auth.Post("/refresh", authLimiter, h.Auth.Refresh)
	auth.Post("/google", authLimiter, h.Auth.GoogleSignIn)

	// Everything below needs a token from a live session and a resolved
	// role. Registered after the public routes so those answer before this
	// group's middleware runs.
	protected := api.Group("", middleware.JWTProtected(cfg), middleware.RequireSession(ledger),
		middleware.ResolveRole(resolver))
	elevated := middleware.RequireElevated()

	protected.Post("/auth/logout", h.Auth.Logout)
	protected.Delete("/auth/account", h.Auth.DeleteAccount)

	protected.Get("/profile", h.Profile.Get)
	protected.Put("/profile", h.Profile.Update)

	protected.Get("/dashboard", h.Dashboard.Get)

	protected.Get("/users", elevated, h.Users.List)
	protected.Get("/users/assignable", elevated, h.Users.Assignable)
	protected.Put("/users/:id/role", elevated, h.Users.SetRole)

	protected.Get("/stream/:collection", h.Stream.Stream)

	for _, m := range mods {
		m.RegisterRoutes(protected, elevated)
	}
}
