package routes

import (
	"github.com/hubchat/server/internal/chat"
	"github.com/hubchat/server/internal/dal"
	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/schemas/public"
)

// sendMessage persists the message, acks the sender with the assigned
// sequence number, and fans a msg.event out to the channel's other
// subscribers. Ack and event carry the same message payload.
func (r *RouteHandler) sendMessage(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.MsgSendRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed msg.send body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	user := c.Identity()
	msg, err := r.chat.Send(req.ChannelId, user.Id, user.Handle, req.ClientMsgId, req.Text)
	if err != nil {
		return err
	}

	wire := public.FromMessage(msg)
	c.Send(protocol.Reply(env, protocol.TypeMsgAck, public.MsgAck{ChannelId: req.ChannelId, Msg: wire}))
	r.hub.Broadcast(req.ChannelId, protocol.Event(protocol.TypeMsgEvent, public.MsgEvent{
		ChannelId: req.ChannelId,
		Msg:       wire,
	}), c.Id)
	return nil
}

func (r *RouteHandler) listMessages(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.MsgListRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed msg.list body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	msgs, err := r.chat.List(req.ChannelId, c.Identity().Id, req.AfterSeq, req.Limit)
	if err != nil {
		return err
	}
	out := make([]public.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, public.FromMessage(&msgs[i]))
	}
	c.Send(protocol.Reply(env, protocol.TypeMsgListResult, public.MsgList{
		ChannelId: req.ChannelId,
		Messages:  out,
	}))
	return nil
}

func (r *RouteHandler) searchMessages(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.SearchRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed search.query body")
	}
	hits, err := r.chat.Search(req.Scope, c.Identity().Id, req.Q, req.Limit)
	if err != nil {
		return err
	}
	out := make([]public.SearchHit, 0, len(hits))
	for i := range hits {
		out = append(out, public.SearchHit{
			Message: public.FromMessage(&hits[i].Message),
			Snippet: hits[i].Snippet,
		})
	}
	c.Send(protocol.Reply(env, protocol.TypeSearchResult, public.SearchResult{Hits: out}))
	return nil
}

func (r *RouteHandler) searchUsers(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.UserSearchRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed user.search body")
	}
	if req.Q == "" {
		return protocol.Failf(protocol.CodeValidation, "empty query")
	}
	limit := req.Limit
	if limit <= 0 || limit > chat.MaxSearchLimit {
		limit = chat.MaxSearchLimit
	}
	users, err := dal.SearchUsers(r.db, req.Q, limit)
	if err != nil {
		return err
	}
	out := make([]public.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, public.UserSummary{
			UserId: users[i].Id,
			Profile: public.Profile{
				Handle:      users[i].Handle,
				DisplayName: users[i].DisplayName,
			},
		})
	}
	c.Send(protocol.Reply(env, protocol.TypeUserSearchResult, public.UserSearchResult{Users: out}))
	return nil
}
