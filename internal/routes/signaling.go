package routes

import (
	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/schemas/public"
)

// createCall binds a call to the channel, or returns the channel's live
// call so a second caller lands in the same room. Only genuinely new calls
// are announced to the channel.
func (r *RouteHandler) createCall(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.CallCreateRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed rtc.call_create body")
	}
	if req.ChannelId == "" {
		return protocol.Failf(protocol.CodeValidation, "channel_id is required")
	}
	if err := r.requireMember(req.ChannelId, c.Identity().Id); err != nil {
		return err
	}

	call, isNew := r.rtc.CreateOrGet(req.ChannelId, req.Kind)
	c.Send(protocol.Reply(env, protocol.TypeRtcCall, public.CallInfo{
		CallId:    call.Id,
		ChannelId: req.ChannelId,
		Ice:       r.rtc.ICEConfig(),
	}))
	if isNew {
		r.hub.Broadcast(req.ChannelId, protocol.Event(protocol.TypeRtcCallEvent, public.CallEvent{
			ChannelId: req.ChannelId,
			CallId:    call.Id,
			Kind:      call.Kind,
		}), c.Id)
	}
	return nil
}

// joinCall hands back the roster of peers already in the room; those peers
// hear a join event instead. The joiner sends the first offers.
func (r *RouteHandler) joinCall(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.CallJoinRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed rtc.join body")
	}
	if req.CallId == "" {
		return protocol.Failf(protocol.CodeValidation, "call_id is required")
	}
	channelId, ok := r.rtc.CallChannel(req.CallId)
	if !ok {
		return protocol.Failf(protocol.CodeNotFound, "call %s not found", req.CallId)
	}
	if err := r.requireMember(channelId, c.Identity().Id); err != nil {
		return err
	}

	peerId, roster, err := r.rtc.Join(req.CallId, c.Identity().Id, c.Id, req.PeerMeta)
	if err != nil {
		return err
	}
	c.Send(protocol.Reply(env, protocol.TypeRtcParticipants, public.Participants{
		CallId:     req.CallId,
		SelfPeerId: peerId,
		Peers:      roster,
	}))
	return nil
}

// leaveCall is fire-and-forget; the departure surfaces to everyone else as
// a peer_event (or a call_end if the room empties).
func (r *RouteHandler) leaveCall(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.CallLeaveRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed rtc.leave body")
	}
	if ok, err := r.ownsPeer(c, req.CallId, req.PeerId); err != nil || !ok {
		return err
	}
	return r.rtc.Leave(req.CallId, req.PeerId)
}

// relaySignal serves both rtc.offer and rtc.answer; the envelope type
// picks the event the target receives.
func (r *RouteHandler) relaySignal(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.SignalRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed signal body")
	}
	if ok, err := r.ownsPeer(c, req.CallId, req.FromPeerId); err != nil || !ok {
		return err
	}
	return r.rtc.RelaySignal(env.T, &req)
}

func (r *RouteHandler) relayIce(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.IceRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed rtc.ice body")
	}
	if ok, err := r.ownsPeer(c, req.CallId, req.FromPeerId); err != nil || !ok {
		return err
	}
	return r.rtc.RelayIce(&req)
}

func (r *RouteHandler) publishStream(c *hub.Client, env *protocol.Envelope) error {
	var req schemas.StreamPublishRequest
	if err := protocol.DecodeBody(env, &req); err != nil {
		return protocol.Failf(protocol.CodeValidation, "malformed rtc.stream_publish body")
	}
	if ok, err := r.ownsPeer(c, req.CallId, req.PeerId); err != nil || !ok {
		return err
	}
	return r.rtc.PublishStream(req.CallId, req.PeerId, req.Stream)
}

func (r *RouteHandler) requireMember(channelId, userId string) error {
	member, err := r.dir.IsMember(channelId, userId)
	if err != nil {
		return err
	}
	if !member {
		return protocol.NotAMember(channelId)
	}
	return nil
}

// ownsPeer rejects signaling sent on behalf of a peer this connection does
// not own. A peer that already left is not an error: late signaling after
// churn is dropped quietly, matching the relay's drop policy.
func (r *RouteHandler) ownsPeer(c *hub.Client, callId, peerId string) (bool, error) {
	if callId == "" || peerId == "" {
		return false, protocol.Failf(protocol.CodeValidation, "call_id and peer id are required")
	}
	connId, ok := r.rtc.PeerConn(callId, peerId)
	if !ok {
		r.logger.Debug("rtc.stale_signal", "call_id", callId, "peer_id", peerId, "conn_id", c.Id)
		return false, nil
	}
	if connId != c.Id {
		return false, protocol.Failf(protocol.CodeForbidden, "peer %s does not belong to this connection", peerId)
	}
	return true, nil
}
