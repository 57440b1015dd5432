package routes

import (
	"errors"

	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/protocol"
)

// handlerFunc processes one request envelope. A nil return means the
// handler sent its own reply; a *protocol.Failure becomes an error
// envelope; any other error is logged and surfaced as INTERNAL.
type handlerFunc func(r *RouteHandler, c *hub.Client, env *protocol.Envelope) error

// route pairs a handler with its authorization requirements. minState is
// the weakest connection state allowed to send the type; admin routes
// additionally require the bound user to carry the admin role.
type route struct {
	minState hub.State
	admin    bool
	fn       handlerFunc
}

// routeTable is the closed dispatch surface: a type absent here is
// rejected before any handler runs, and the authorization gate lives in
// exactly one place.
var routeTable = map[protocol.Type]route{
	protocol.TypeHello:            {minState: hub.StateConnecting, fn: (*RouteHandler).hello},
	protocol.TypeAuthSignIn:       {minState: hub.StateAnonymous, fn: (*RouteHandler).signIn},
	protocol.TypeAuthInviteRedeem: {minState: hub.StateAnonymous, fn: (*RouteHandler).redeemInvite},

	protocol.TypeAdminInviteCreate: {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).createInvite},

	protocol.TypeHubList:   {minState: hub.StateAuthenticated, fn: (*RouteHandler).listHubs},
	protocol.TypeHubCreate: {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).createHub},
	protocol.TypeHubUpdate: {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).updateHub},
	protocol.TypeHubDelete: {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).deleteHub},

	protocol.TypeChannelList:      {minState: hub.StateAuthenticated, fn: (*RouteHandler).listChannels},
	protocol.TypeChannelCreate:    {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).createChannel},
	protocol.TypeChannelUpdate:    {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).updateChannel},
	protocol.TypeChannelDelete:    {minState: hub.StateAuthenticated, admin: true, fn: (*RouteHandler).deleteChannel},
	protocol.TypeChannelJoin:      {minState: hub.StateAuthenticated, fn: (*RouteHandler).joinChannel},
	protocol.TypeChannelAddMember: {minState: hub.StateAuthenticated, fn: (*RouteHandler).addMember},

	protocol.TypeMsgSend: {minState: hub.StateAuthenticated, fn: (*RouteHandler).sendMessage},
	protocol.TypeMsgList: {minState: hub.StateAuthenticated, fn: (*RouteHandler).listMessages},

	protocol.TypeSearchQuery: {minState: hub.StateAuthenticated, fn: (*RouteHandler).searchMessages},
	protocol.TypeUserSearch:  {minState: hub.StateAuthenticated, fn: (*RouteHandler).searchUsers},

	protocol.TypeRtcCallCreate:    {minState: hub.StateAuthenticated, fn: (*RouteHandler).createCall},
	protocol.TypeRtcJoin:          {minState: hub.StateAuthenticated, fn: (*RouteHandler).joinCall},
	protocol.TypeRtcLeave:         {minState: hub.StateAuthenticated, fn: (*RouteHandler).leaveCall},
	protocol.TypeRtcOffer:         {minState: hub.StateAuthenticated, fn: (*RouteHandler).relaySignal},
	protocol.TypeRtcAnswer:        {minState: hub.StateAuthenticated, fn: (*RouteHandler).relaySignal},
	protocol.TypeRtcIce:           {minState: hub.StateAuthenticated, fn: (*RouteHandler).relayIce},
	protocol.TypeRtcStreamPublish: {minState: hub.StateAuthenticated, fn: (*RouteHandler).publishStream},
}

// Handle is the entry point for every inbound frame. One invalid message
// never kills a connection: malformed input earns an error envelope and
// the read loop continues.
func (r *RouteHandler) Handle(c *hub.Client, raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.Send(protocol.ErrorReply(nil, protocol.Failf(protocol.CodeValidation, "malformed envelope: %s", err.Error())))
		return
	}

	rt, ok := routeTable[env.T]
	if !ok {
		c.Send(protocol.ErrorReply(env, protocol.Failf(protocol.CodeValidation, "unknown message type %q", env.T)))
		return
	}
	if c.State() < rt.minState {
		c.Send(protocol.ErrorReply(env, protocol.Failf(protocol.CodeAuthRequired, "authentication required for %s", env.T)))
		return
	}
	if rt.admin {
		user := c.Identity()
		if user == nil || !user.IsAdmin() {
			c.Send(protocol.ErrorReply(env, protocol.Failf(protocol.CodeForbidden, "admin role required for %s", env.T)))
			return
		}
	}

	if err := r.dispatch(rt, c, env); err != nil {
		var failure *protocol.Failure
		if errors.As(err, &failure) {
			c.Send(protocol.ErrorReply(env, failure))
			return
		}
		r.logger.Error("route.internal_error", "type", string(env.T), "conn_id", c.Id, "err", err)
		c.Send(protocol.ErrorReply(env, protocol.Failf(protocol.CodeInternal, "internal error")))
	}
}

// dispatch runs the handler behind a recover so a panic in one handler
// answers its request instead of tearing down the process.
func (r *RouteHandler) dispatch(rt route, c *hub.Client, env *protocol.Envelope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("route.panic", "type", string(env.T), "conn_id", c.Id, "panic", rec)
			err = protocol.Failf(protocol.CodeInternal, "internal error")
		}
	}()
	return rt.fn(r, c, env)
}
