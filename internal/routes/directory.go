package routes

import (
	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/schemas/public"
)

func (r *RouteHandler) listHubs(c *hub.Client, env *protocol.Envelope) error {
	hubs, err := r.dir.ListHubs()
	if err != nil {
		return err
	}
	out := make([]public.Hub, 0, len(hubs))
	for i := range hubs {
		out = append(out, public.FromHub(&hubs[i]))
	}
	c.Send(protocol.Reply(env, protocol.TypeHubListResult, public.HubList{Hubs: out}))
	return nil
}

func (r *RouteHandler) createHub(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.HubCreateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed hub.create body")
	}
	h, err := r.dir.CreateHub(c.Identity().Id, req.Name, req.Description, req.Visibility)
	if err != nil {
		return err
	}
	body := public.HubEvent{Hub: public.FromHub(h)}
	c.Send(protocol.Reply(env, protocol.TypeHubCreated, body))
	r.hub.BroadcastAll(protocol.Event(protocol.TypeHubCreated, body), c.Id)
	return nil
}

func (r *RouteHandler) updateHub(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.HubUpdateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed hub.update body")
	}
	if req.HubId == "" {
		return protocol.Failf(protocol.CodeValidation, "hub_id is required")
	}
	h, err := r.dir.UpdateHub(req.HubId, req.Name, req.Description)
	if err != nil {
		return err
	}
	body := public.HubEvent{Hub: public.FromHub(h)}
	c.Send(protocol.Reply(env, protocol.TypeHubUpdated, body))
	r.hub.BroadcastAll(protocol.Event(protocol.TypeHubUpdated, body), c.Id)
	return nil
}

// deleteHub tears down everything hanging off the hub: live calls end,
// message locks and socket subscriptions for the cascaded channels go away,
// and every client hears about the deletion once.
func (r *RouteHandler) deleteHub(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.HubDeleteRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed hub.delete body")
	}
	if req.HubId == "" {
		return protocol.Failf(protocol.CodeValidation, "hub_id is required")
	}
	channelIds, err := r.dir.DeleteHub(req.HubId)
	if err != nil {
		return err
	}
	r.rtc.EndCallsForChannels(channelIds)
	for _, channelId := range channelIds {
		r.hub.DropChannel(channelId)
		r.chat.ForgetChannel(channelId)
	}
	body := public.HubDeleted{HubId: req.HubId}
	c.Send(protocol.Reply(env, protocol.TypeHubDeleted, body))
	r.hub.BroadcastAll(protocol.Event(protocol.TypeHubDeleted, body), c.Id)
	return nil
}

func (r *RouteHandler) listChannels(c *hub.Client, env *protocol.Envelope) error {
	channels, err := r.dir.ListChannels(c.Identity().Id)
	if err != nil {
		return err
	}
	out := make([]public.Channel, 0, len(channels))
	for i := range channels {
		out = append(out, public.FromChannel(&channels[i]))
	}
	c.Send(protocol.Reply(env, protocol.TypeChannelListResult, public.ChannelList{Channels: out}))
	return nil
}

func (r *RouteHandler) createChannel(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.ChannelCreateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed channel.create body")
	}
	if req.HubId == "" {
		return protocol.Failf(protocol.CodeValidation, "hub_id is required")
	}
	ch, err := r.dir.CreateChannel(req.HubId, req.Kind, req.Name, req.Visibility)
	if err != nil {
		return err
	}
	body := public.ChannelEvent{Channel: public.FromChannel(ch)}
	c.Send(protocol.Reply(env, protocol.TypeChannelCreated, body))
	r.announceChannel(protocol.TypeChannelCreated, ch, body, c.Id)
	return nil
}

// announceChannel fans a channel-level directory event out no wider than
// the list path would show the channel: public channels to every
// authenticated connection, private channels only to the channel's own
// subscribers. Anything broader would leak private channel names that
// channel.list deliberately hides from non-members.
func (r *RouteHandler) announceChannel(t protocol.Type, ch *schemas.Channel, body any, excludeConnId string) {
	payload := protocol.Event(t, body)
	if ch.Visibility == "public" {
		r.hub.BroadcastAll(payload, excludeConnId)
		return
	}
	r.hub.Broadcast(ch.Id, payload, excludeConnId)
}

func (r *RouteHandler) updateChannel(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.ChannelUpdateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed channel.update body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	ch, err := r.dir.UpdateChannel(req.ChannelId, req.Name)
	if err != nil {
		return err
	}
	body := public.ChannelEvent{Channel: public.FromChannel(ch)}
	c.Send(protocol.Reply(env, protocol.TypeChannelUpdated, body))
	r.announceChannel(protocol.TypeChannelUpdated, ch, body, c.Id)
	return nil
}

func (r *RouteHandler) deleteChannel(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.ChannelDeleteRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed channel.delete body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	// Look the channel up first: visibility decides who hears about the
	// deletion, and the row is gone once DeleteChannel returns.
	ch, err := r.dir.GetChannel(req.ChannelId)
	if err != nil {
		return err
	}
	if err := r.dir.DeleteChannel(req.ChannelId); err != nil {
		return err
	}
	r.rtc.EndCallsForChannels([]string{req.ChannelId})

	body := public.ChannelDeleted{ChannelId: req.ChannelId}
	c.Send(protocol.Reply(env, protocol.TypeChannelDeleted, body))
	r.announceChannel(protocol.TypeChannelDeleted, ch, body, c.Id)
	r.hub.DropChannel(req.ChannelId)
	r.chat.ForgetChannel(req.ChannelId)
	return nil
}

// joinChannel both records the membership and subscribes this connection
// to the channel's events. Re-joining is how a reconnecting client
// restores its subscriptions, so the operation is idempotent.
func (r *RouteHandler) joinChannel(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.ChannelJoinRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed channel.join body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	user := c.Identity()
	isNew, err := r.dir.Join(req.ChannelId, user.Id)
	if err != nil {
		return err
	}
	r.hub.Subscribe(c.Id, req.ChannelId)

	body := public.MemberEvent{ChannelId: req.ChannelId, Kind: "join", TargetUserId: user.Id}
	c.Send(protocol.Reply(env, protocol.TypeChannelMemberEvent, body))
	if isNew {
		r.hub.Broadcast(req.ChannelId, protocol.Event(protocol.TypeChannelMemberEvent, body), c.Id)
	}
	return nil
}

// addMember grants another user membership. The target's live connections
// get a channel.added nudge so their clients can join and subscribe.
func (r *RouteHandler) addMember(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.ChannelAddMemberRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed channel.add_member body")
	}
	if req.ChannelId == "" || req.TargetUserId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id and target_user_id are required")
	}
	ch, err := r.dir.AddMember(req.ChannelId, c.Identity().Id, req.TargetUserId)
	if err != nil {
		return err
	}

	body := public.MemberAdded{ChannelId: req.ChannelId, TargetUserId: req.TargetUserId}
	c.Send(protocol.Reply(env, protocol.TypeChannelMemberAdded, body))
	r.hub.Broadcast(req.ChannelId, protocol.Event(protocol.TypeChannelMemberEvent, public.MemberEvent{
		ChannelId:    req.ChannelId,
		Kind:         "join",
		TargetUserId: req.TargetUserId,
	}), c.Id)
	r.hub.UnicastUser(req.TargetUserId, protocol.Event(protocol.TypeChannelAdded, public.ChannelEvent{
		Channel: public.FromChannel(ch),
	}))
	return nil
}
