package routes

import (
	"errors"
	"time"

	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/schemas/public"
)

// hello opens the connection. A resume token that no longer maps to a user
// is not an error; the client just gets an unauthenticated ack and signs
// in normally.
func (r *RouteHandler) hello(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.HelloRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed hello body")
	}
	c.MarkHello()

	ack := public.HelloAck{}
	if token := req.Resume.SessionToken; token != "" {
		user, err := r.auth.Resume(token)
		switch {
		case err == nil:
			r.hub.BindIdentity(c, user, token)
			u := public.FromUser(user)
			ack.Session = public.SessionState{Authenticated: true, User: &u, SessionToken: token}
		case isFailure(err, protocol.CodeInvalidSession):
			// fall through to the unauthenticated ack
		default:
			return err
		}
	}
	r.logger.Debug("hello", "conn_id", c.Id,
		"client", req.Client.Name, "ver", req.Client.Ver, "resumed", ack.Session.Authenticated)
	c.Send(protocol.Reply(env, protocol.TypeHelloAck, ack))
	return nil
}

func (r *RouteHandler) signIn(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.SignInRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed signin body")
	}
	if req.Handle == "" || req.Password == "" {
		return protocol.Failf(protocol.CodeValidation, "handle and password are required")
	}

	user, session, err := r.auth.SignIn(req.Handle, req.Password)
	if err != nil {
		return err
	}
	r.hub.BindIdentity(c, user, session.Token)
	c.Send(protocol.Reply(env, protocol.TypeAuthSession, public.AuthSession{
		User:         public.FromUser(user),
		SessionToken: session.Token,
	}))
	return nil
}

func (r *RouteHandler) redeemInvite(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.InviteRedeemRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed invite_redeem body")
	}
	if req.InviteToken == "" {
		return protocol.Failf(protocol.CodeValidation, "invite_token is required")
	}

	user, session, err := r.auth.RedeemInvite(req.InviteToken, req.Profile.Handle, req.Profile.DisplayName, req.Password)
	if err != nil {
		return err
	}
	r.hub.BindIdentity(c, user, session.Token)
	c.Send(protocol.Reply(env, protocol.TypeAuthSession, public.AuthSession{
		User:         public.FromUser(user),
		SessionToken: session.Token,
	}))
	return nil
}

func (r *RouteHandler) createInvite(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.InviteCreateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed invite_create body")
	}

	inv, err := r.auth.CreateInvite(
		c.Identity().Id,
		time.Duration(req.TtlMs)*time.Millisecond,
		req.MaxUses,
		req.Note,
		false,
	)
	if err != nil {
		return err
	}
	c.Send(protocol.Reply(env, protocol.TypeAdminInvite, public.InviteCreated{
		InviteToken: inv.Token,
		ExpiresAt:   inv.ExpiresAt,
		MaxUses:     inv.MaxUses,
	}))
	return nil
}

func isFailure(err error, code string) bool {
	var f *protocol.Failure
	return errors.As(err, &f) && f.Code == code
}
