package handlers

import (
	"bufio"
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/live"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/modules"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/roles"
	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const keepAliveInterval = 25 * time.Second

// StreamHandler serves live collection snapshots as server-sent events. A
// stream ends when the caller signs out or their role changes; the client
// reconnects to pick up the new visibility.
type StreamHandler struct {
	live      *live.Hub
	sessions  *session.Hub
	roles     *roles.Resolver
	ledger    *session.Ledger
	watchers  map[string]modules.Watcher
	keepAlive time.Duration
}

func NewStreamHandler(hub *live.Hub, sessions *session.Hub, resolver *roles.Resolver, ledger *session.Ledger,
	watchers []modules.Watcher) *StreamHandler {
	byID := make(map[string]modules.Watcher, len(watchers))
	for _, w := range watchers {
		byID[w.ID()] = w
	}
	return &StreamHandler{
		live:      hub,
		sessions:  sessions,
		roles:     resolver,
		ledger:    ledger,
		watchers:  byID,
		keepAlive: keepAliveInterval,
	}
}

func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return unauthorized(c, "Unauthorized")
	}
	collection := c.Params("collection")
	watcher, ok := h.watchers[collection]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Unknown collection"})
	}

	role := session.GetRole(c)
	if g, ok := watcher.(modules.Gated); ok && g.ElevatedOnly() && !role.IsElevated() {
		return forbidden(c)
	}
	filter, load := watcher.Watch(role, userID)
	sub := h.live.NewSubscription(collection, filter, load)
	resolver := session.NewResolver(h.sessions.Source(userID, &session.Session{
		UserID: userID,
		Email:  session.GetEmail(c),
	}))

	// A sign-out between the token check and the subscription above would
	// otherwise go unnoticed.
	if h.ledger != nil {
		valid, err := h.ledger.Live(c.UserContext(), userID, session.GetSessionVersion(c))
		if err != nil || !valid {
			resolver.Stop()
			sub.Stop()
			if err != nil {
				slog.Error("session check failed", "user_id", userID.String(), "error", err)
				return internalError(c, "Failed to open stream")
			}
			return unauthorized(c, "Session ended")
		}
	}
	recheck := func(ctx context.Context) bool {
		return h.roles.Resolve(ctx, userID) == role
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := h.keepAlive
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		defer resolver.Stop()
		defer sub.Stop()

		reason := pump(ctx, w, sub, resolver, recheck, keepAlive)
		slog.Info("stream closed", "user_id", userID.String(), "collection", collection,
			"role", role.String(), "reason", reason)
	}))
	return nil
}

// Reasons a stream ends.
const (
	endClientGone  = "client_gone"
	endSignedOut   = "signed_out"
	endRoleChanged = "role_changed"
	endLoadFailed  = "load_failed"
)

// pump starts sub and copies its snapshots to w until the client leaves,
// the session ends or the role no longer matches.
func pump(ctx context.Context, w *bufio.Writer, sub *live.Subscription, resolver *session.Resolver,
	sameRole func(context.Context) bool, keepAlive time.Duration) string {
	if err := resolver.Wait(ctx); err != nil {
		return endClientGone
	}
	// The first change is the state the stream opened with.
	select {
	case <-resolver.Changes():
	default:
	}
	if resolver.Current() == nil {
		_ = live.WriteEvent(w, endSignedOut, dto.MessageResponse{Message: "Signed out"})
		return endSignedOut
	}

	if err := sub.Start(ctx); err != nil {
		_ = live.WriteEvent(w, "error", dto.ErrorResponse{Error: true, Message: "Failed to load collection"})
		return endLoadFailed
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case snapshot := <-sub.Updates():
			if err := live.WriteEvent(w, "snapshot", snapshot); err != nil {
				return endClientGone
			}
		case s := <-resolver.Changes():
			if s == nil {
				_ = live.WriteEvent(w, endSignedOut, dto.MessageResponse{Message: "Signed out"})
				return endSignedOut
			}
			if !sameRole(ctx) {
				_ = live.WriteEvent(w, endRoleChanged, dto.MessageResponse{Message: "Role changed"})
				return endRoleChanged
			}
		case <-ticker.C:
			if err := live.WriteComment(w, "keep-alive"); err != nil {
				return endClientGone
			}
		case <-sub.Done():
			return endClientGone
		case <-ctx.Done():
			return endClientGone
		}
	}
}

// Watchers lists the streamable modules among mods.
func Watchers(mods []modules.Module) []modules.Watcher {
	out := make([]modules.Watcher, 0, len(mods))
	for _, m := range mods {
		if w, ok := m.(modules.Watchable); ok {
			out = append(out, w)
		}
	}
	return out
}
