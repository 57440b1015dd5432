// package routes contains the message handlers behind the websocket
// endpoint. Every inbound envelope lands in the dispatcher, which
// authorizes it and routes it to the handler owning its type.
package routes

import (
	"database/sql"
	"log/slog"

	"github.com/hubchat/server/internal/auth"
	"github.com/hubchat/server/internal/chat"
	"github.com/hubchat/server/internal/directory"
	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/rtc"
)

// RouteHandler provides the dependencies for any handler, and is the
// receiver of the message handling functions.
type RouteHandler struct {
	db     *sql.DB
	logger *slog.Logger

	hub  *hub.Hub
	auth *auth.Service
	dir  *directory.Service
	chat *chat.Service
	rtc  *rtc.Orchestrator
}

// NewRouteHandler creates the receiver for all message handling functions.
func NewRouteHandler(
	db *sql.DB,
	logger *slog.Logger,
	h *hub.Hub,
	authSvc *auth.Service,
	dirSvc *directory.Service,
	chatSvc *chat.Service,
	orch *rtc.Orchestrator,
) *RouteHandler {
	return &RouteHandler{
		db:     db,
		logger: logger,
		hub:    h,
		auth:   authSvc,
		dir:    dirSvc,
		chat:   chatSvc,
		rtc:    orch,
	}
}
