package rtc

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hubchat/server/internal/crypto"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/schemas/public"
)

// Sender delivers outbound envelopes. Implemented by the connection
// manager; kept as an interface so the orchestrator tests run without a
// transport.
type Sender interface {
	Unicast(connId string, payload []byte)
	Broadcast(channelId string, payload []byte, excludeConnId string)
}

// Orchestrator owns every live call. At most one live call exists per
// channel; creating against a channel that already has one returns the
// existing call.
type Orchestrator struct {
	mu        sync.Mutex
	calls     map[string]*Call  // call id -> call
	byChannel map[string]string // channel id -> live call id

	sender Sender
	ice    schemas.ICEConfig
	logger *slog.Logger
}

func NewOrchestrator(sender Sender, ice schemas.ICEConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		calls:     make(map[string]*Call),
		byChannel: make(map[string]string),
		sender:    sender,
		ice:       ice,
		logger:    logger,
	}
}

// ICEConfig returns the STUN/TURN endpoints handed to joining peers.
func (o *Orchestrator) ICEConfig() schemas.ICEConfig {
	return o.ice
}

// CreateOrGet returns the live call bound to the channel, creating one if
// none exists. The bool reports whether the call is new.
func (o *Orchestrator) CreateOrGet(channelId, kind string) (*Call, bool) {
	if kind == "" {
		kind = "mesh"
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if id, ok := o.byChannel[channelId]; ok {
		return o.calls[id], false
	}
	call := &Call{
		Id:        "call_" + uuid.New().String(),
		ChannelId: channelId,
		Kind:      kind,
		Status:    StatusCreated,
		CreatedAt: time.Now(),
		peers:     make(map[string]*Peer),
	}
	o.calls[call.Id] = call
	o.byChannel[channelId] = call.Id
	o.logger.Info("rtc.call_create", "call_id", call.Id, "channel_id", channelId, "kind", kind)
	return call, true
}

// Join registers a peer and returns its id plus the roster of peers already
// present. Existing peers get a join event; the joiner does not — it learns
// the roster from the return value and is the only side that initiates
// offers, which avoids duplicate-offer races.
func (o *Orchestrator) Join(callId, userId, connId string, meta schemas.PeerMeta) (string, []public.Peer, error) {
	o.mu.Lock()
	call, ok := o.calls[callId]
	if !ok {
		o.mu.Unlock()
		return "", nil, protocol.Failf(protocol.CodeNotFound, "call %s not found", callId)
	}

	// a user holds at most one peer per call; a re-join (say, after a
	// reconnect) displaces the stale peer
	if stale := call.peerByUser(userId); stale != nil {
		delete(call.peers, stale.Id)
		o.notifyPeerGone(call, stale)
	}

	peer := newPeer(crypto.NewPeerId(), userId, connId, meta)
	call.peers[peer.Id] = peer
	call.Status = StatusActive

	// events go out under the lock (the sender never blocks), so the
	// roster handed back can never contradict the broadcast order
	roster := make([]public.Peer, 0, len(call.peers)-1)
	joined := protocol.Event(protocol.TypeRtcPeerEvent, public.PeerEvent{
		CallId: callId,
		Kind:   "join",
		Peer:   public.Peer{PeerId: peer.Id, UserId: userId},
	})
	for _, p := range call.othersThan(peer.Id) {
		roster = append(roster, public.Peer{PeerId: p.Id, UserId: p.UserId})
		o.sender.Unicast(p.ConnId, joined)
	}
	o.mu.Unlock()

	o.logger.Info("rtc.join", "call_id", callId, "peer_id", peer.Id, "user_id", userId)
	return peer.Id, roster, nil
}

// Leave removes a peer and tells the rest. When the last peer leaves, the
// call ends and the whole channel hears about it, since non-participant
// members display call availability.
func (o *Orchestrator) Leave(callId, peerId string) error {
	o.mu.Lock()
	call, ok := o.calls[callId]
	if !ok {
		o.mu.Unlock()
		return protocol.Failf(protocol.CodeNotFound, "call %s not found", callId)
	}
	peer, ok := call.peers[peerId]
	if !ok {
		o.mu.Unlock()
		return protocol.Failf(protocol.CodeNotFound, "peer %s not in call %s", peerId, callId)
	}
	delete(call.peers, peerId)
	o.notifyPeerGone(call, peer)
	o.endIfEmptyLocked(call)
	o.mu.Unlock()

	o.logger.Info("rtc.leave", "call_id", callId, "peer_id", peerId)
	return nil
}

// RelaySignal forwards an offer or answer to the addressed peer and flushes
// any ICE candidates from the sender that arrived ahead of the description.
// The payload is opaque beyond "non-empty string".
func (o *Orchestrator) RelaySignal(t protocol.Type, req *schemas.SignalRequest) error {
	if req.Sdp == "" {
		return protocol.Failf(protocol.CodeValidation, "empty sdp")
	}
	var eventType protocol.Type
	switch t {
	case protocol.TypeRtcOffer:
		eventType = protocol.TypeRtcOfferEvent
	case protocol.TypeRtcAnswer:
		eventType = protocol.TypeRtcAnswerEvent
	default:
		return protocol.Failf(protocol.CodeValidation, "unsupported signal type %s", t)
	}

	o.mu.Lock()
	target, _, ok := o.resolvePairLocked(req.CallId, req.FromPeerId, req.ToPeerId)
	if !ok {
		o.mu.Unlock()
		// late signaling after a peer left is normal churn, not an error
		o.logger.Warn("rtc.relay_drop", "type", string(t), "call_id", req.CallId, "from", req.FromPeerId, "to", req.ToPeerId)
		return nil
	}

	// the description and the flush stay under the lock so no concurrent
	// candidate can slip out ahead of them
	target.describedBy[req.FromPeerId] = true
	queued := target.pendingIce[req.FromPeerId]
	delete(target.pendingIce, req.FromPeerId)

	o.sender.Unicast(target.ConnId, protocol.Event(eventType, public.SignalEvent{
		CallId:     req.CallId,
		FromPeerId: req.FromPeerId,
		Sdp:        req.Sdp,
	}))
	for _, candidate := range queued {
		o.sender.Unicast(target.ConnId, protocol.Event(protocol.TypeRtcIceEvent, public.IceEvent{
			CallId:     req.CallId,
			FromPeerId: req.FromPeerId,
			Candidate:  candidate,
		}))
	}
	o.mu.Unlock()
	return nil
}

// RelayIce forwards one trickled candidate. Candidates that outrun the
// sender's offer/answer are buffered on the target and delivered by
// RelaySignal; candidates aimed at a departed peer are dropped.
func (o *Orchestrator) RelayIce(req *schemas.IceRequest) error {
	if req.Candidate.Candidate == "" {
		// end-of-candidates marker; nothing to relay
		return nil
	}

	o.mu.Lock()
	target, _, ok := o.resolvePairLocked(req.CallId, req.FromPeerId, req.ToPeerId)
	if !ok {
		o.mu.Unlock()
		o.logger.Warn("rtc.relay_drop", "type", "ice", "call_id", req.CallId, "from", req.FromPeerId, "to", req.ToPeerId)
		return nil
	}
	if !target.describedBy[req.FromPeerId] {
		target.pendingIce[req.FromPeerId] = append(target.pendingIce[req.FromPeerId], req.Candidate)
		o.mu.Unlock()
		return nil
	}
	o.sender.Unicast(target.ConnId, protocol.Event(protocol.TypeRtcIceEvent, public.IceEvent{
		CallId:     req.CallId,
		FromPeerId: req.FromPeerId,
		Candidate:  req.Candidate,
	}))
	o.mu.Unlock()
	return nil
}

// PublishStream broadcasts stream metadata to the other peers in the call.
// Purely informational; no media obligation follows.
func (o *Orchestrator) PublishStream(callId, peerId string, stream schemas.StreamMeta) error {
	o.mu.Lock()
	call, ok := o.calls[callId]
	if !ok {
		o.mu.Unlock()
		return protocol.Failf(protocol.CodeNotFound, "call %s not found", callId)
	}
	if _, ok := call.peers[peerId]; !ok {
		o.mu.Unlock()
		return protocol.Failf(protocol.CodeNotFound, "peer %s not in call %s", peerId, callId)
	}
	others := call.othersThan(peerId)
	o.mu.Unlock()

	payload := protocol.Event(protocol.TypeRtcStreamEvent, public.StreamEvent{
		CallId:     callId,
		FromPeerId: peerId,
		Stream:     stream,
	})
	for _, p := range others {
		o.sender.Unicast(p.ConnId, payload)
	}
	return nil
}

// DropConnection removes every peer owned by a closed connection, as if
// each had sent rtc.leave. Memberships are untouched; only call state goes.
func (o *Orchestrator) DropConnection(connId string) {
	o.mu.Lock()
	var dropped []*Call
	for _, call := range o.calls {
		for _, peer := range call.peers {
			if peer.ConnId != connId {
				continue
			}
			delete(call.peers, peer.Id)
			o.notifyPeerGone(call, peer)
			dropped = append(dropped, call)
		}
	}
	for _, call := range dropped {
		o.endIfEmptyLocked(call)
	}
	o.mu.Unlock()
}

// EndCallsForChannels tears down any live call bound to the given channels.
// Used by the directory cascade on channel and hub deletion.
func (o *Orchestrator) EndCallsForChannels(channelIds []string) {
	o.mu.Lock()
	var ended []*Call
	for _, channelId := range channelIds {
		if id, ok := o.byChannel[channelId]; ok {
			call := o.calls[id]
			call.peers = make(map[string]*Peer)
			o.endLocked(call)
			ended = append(ended, call)
		}
	}
	o.mu.Unlock()
	for _, call := range ended {
		o.logger.Info("rtc.call_end", "call_id", call.Id, "channel_id", call.ChannelId, "reason", "channel_deleted")
	}
}

// LiveCall returns the id of the channel's live call, if any.
func (o *Orchestrator) LiveCall(channelId string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.byChannel[channelId]
	return id, ok
}

// PeerConn resolves a peer to its owning connection, for handlers that need
// to verify a request's origin.
func (o *Orchestrator) PeerConn(callId, peerId string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	call, ok := o.calls[callId]
	if !ok {
		return "", false
	}
	peer, ok := call.peers[peerId]
	if !ok {
		return "", false
	}
	return peer.ConnId, true
}

// CallChannel resolves a call id to the channel it is bound to.
func (o *Orchestrator) CallChannel(callId string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	call, ok := o.calls[callId]
	if !ok {
		return "", false
	}
	return call.ChannelId, true
}

// resolvePairLocked validates that both peer ids belong to the call and
// returns the target peer.
func (o *Orchestrator) resolvePairLocked(callId, fromPeerId, toPeerId string) (target, from *Peer, ok bool) {
	call, exists := o.calls[callId]
	if !exists {
		return nil, nil, false
	}
	from, fromOk := call.peers[fromPeerId]
	target, toOk := call.peers[toPeerId]
	if !fromOk || !toOk {
		return nil, nil, false
	}
	return target, from, true
}

func (o *Orchestrator) notifyPeerGone(call *Call, peer *Peer) {
	payload := protocol.Event(protocol.TypeRtcPeerEvent, public.PeerEvent{
		CallId: call.Id,
		Kind:   "leave",
		Peer:   public.Peer{PeerId: peer.Id, UserId: peer.UserId},
	})
	for _, p := range call.peers {
		o.sender.Unicast(p.ConnId, payload)
	}
}

func (o *Orchestrator) endIfEmptyLocked(call *Call) {
	if len(call.peers) > 0 {
		return
	}
	o.endLocked(call)
	o.logger.Info("rtc.call_end", "call_id", call.Id, "channel_id", call.ChannelId, "reason", "last_peer_left")
}

// endLocked transitions the call to Ended, unbinds its channel, and tells
// the whole channel. A call with zero peers never lingers.
func (o *Orchestrator) endLocked(call *Call) {
	call.Status = StatusEnded
	delete(o.calls, call.Id)
	delete(o.byChannel, call.ChannelId)
	o.sender.Broadcast(call.ChannelId, protocol.Event(protocol.TypeRtcCallEnd, public.CallEnd{
		ChannelId: call.ChannelId,
		CallId:    call.Id,
	}), "")
}
