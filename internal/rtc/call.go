// Package rtc coordinates mesh calls: the per-call state machine, the peer
// registry, and the offer/answer/ICE relay. The server never touches media
// bytes; it only routes opaque payloads between named peers.
package rtc

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/hubchat/server/internal/schemas"
)

// Call status values. A call is created on demand, active while it has
// peers, and ended when the last peer leaves. An ended call's id is never
// reused; the registry drops the entry entirely.
const (
	StatusCreated = "created"
	StatusActive  = "active"
	StatusEnded   = "ended"
)

// Peer is one participant in a call, identified by an opaque id scoped to
// the call and distinct from the user account.
type Peer struct {
	Id       string
	UserId   string
	ConnId   string
	Meta     schemas.PeerMeta
	JoinedAt time.Time

	// describedBy marks remote peers whose offer or answer this peer has
	// already received; ICE from anyone else buffers in pendingIce until
	// the description is relayed, then flushes in arrival order exactly
	// once.
	describedBy map[string]bool
	pendingIce  map[string][]webrtc.ICECandidateInit
}

func newPeer(id, userId, connId string, meta schemas.PeerMeta) *Peer {
	return &Peer{
		Id:          id,
		UserId:      userId,
		ConnId:      connId,
		Meta:        meta,
		JoinedAt:    time.Now(),
		describedBy: make(map[string]bool),
		pendingIce:  make(map[string][]webrtc.ICECandidateInit),
	}
}

// Call holds the in-memory state of one mesh call. All mutation happens
// under the orchestrator's lock for the call, so peer join/leave events can
// never interleave into a roster inconsistent with broadcast order.
type Call struct {
	Id        string
	ChannelId string
	Kind      string
	Status    string
	CreatedAt time.Time

	peers map[string]*Peer
}

func (c *Call) peerByUser(userId string) *Peer {
	for _, p := range c.peers {
		if p.UserId == userId {
			return p
		}
	}
	return nil
}

func (c *Call) othersThan(peerId string) []*Peer {
	others := make([]*Peer, 0, len(c.peers))
	for _, p := range c.peers {
		if p.Id != peerId {
			others = append(others, p)
		}
	}
	return others
}
