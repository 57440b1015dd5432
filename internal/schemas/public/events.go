package public

import (
	"github.com/pion/webrtc/v4"

	"github.com/hubchat/server/internal/schemas"
)

// SessionState is nested in hello_ack. Authenticated is false when the
// resume token was absent or unknown; that is not an error.
type SessionState struct {
	Authenticated bool   `json:"authenticated"`
	User          *User  `json:"user,omitempty"`
	SessionToken  string `json:"session_token,omitempty"`
}

type HelloAck struct {
	Session SessionState `json:"session"`
}

type AuthSession struct {
	User         User   `json:"user"`
	SessionToken string `json:"session_token"`
}

type InviteCreated struct {
	InviteToken string `json:"invite_token"`
	ExpiresAt   int64  `json:"expires_at"`
	MaxUses     int    `json:"max_uses"`
}

type HubList struct {
	Hubs []Hub `json:"hubs"`
}

type HubEvent struct {
	Hub Hub `json:"hub"`
}

type HubDeleted struct {
	HubId string `json:"hub_id"`
}

type ChannelList struct {
	Channels []Channel `json:"channels"`
}

type ChannelEvent struct {
	Channel Channel `json:"channel"`
}

type ChannelDeleted struct {
	ChannelId string `json:"channel_id"`
}

// MemberEvent announces a join or removal on a channel. Kind is "join" or
// "leave".
type MemberEvent struct {
	ChannelId    string `json:"channel_id"`
	Kind         string `json:"kind"`
	TargetUserId string `json:"target_user_id"`
}

type MemberAdded struct {
	ChannelId    string `json:"channel_id"`
	TargetUserId string `json:"target_user_id"`
}

type MsgAck struct {
	ChannelId string  `json:"channel_id"`
	Msg       Message `json:"msg"`
}

type MsgEvent struct {
	ChannelId string  `json:"channel_id"`
	Msg       Message `json:"msg"`
}

type MsgList struct {
	ChannelId string    `json:"channel_id"`
	Messages  []Message `json:"messages"`
}

type SearchResult struct {
	Hits []SearchHit `json:"hits"`
}

type UserSearchResult struct {
	Users []UserSummary `json:"users"`
}

type CallInfo struct {
	CallId    string            `json:"call_id"`
	ChannelId string            `json:"channel_id"`
	Ice       schemas.ICEConfig `json:"ice"`
}

// CallEvent tells channel members a call exists on a channel so clients can
// surface "join voice" affordances.
type CallEvent struct {
	ChannelId string `json:"channel_id"`
	CallId    string `json:"call_id"`
	Kind      string `json:"kind"`
}

type Participants struct {
	CallId     string `json:"call_id"`
	SelfPeerId string `json:"self_peer_id"`
	Peers      []Peer `json:"peers"`
}

// PeerEvent announces a peer joining or leaving a call. The joining peer
// never receives its own join event; it learns existing peers from the
// Participants roster, so only the newcomer initiates offers.
type PeerEvent struct {
	CallId string `json:"call_id"`
	Kind   string `json:"kind"`
	Peer   Peer   `json:"peer"`
}

type SignalEvent struct {
	CallId     string `json:"call_id"`
	FromPeerId string `json:"from_peer_id"`
	Sdp        string `json:"sdp"`
}

type IceEvent struct {
	CallId     string                  `json:"call_id"`
	FromPeerId string                  `json:"from_peer_id"`
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
}

type StreamEvent struct {
	CallId     string             `json:"call_id"`
	FromPeerId string             `json:"from_peer_id"`
	Stream     schemas.StreamMeta `json:"stream"`
}

type CallEnd struct {
	ChannelId string `json:"channel_id"`
	CallId    string `json:"call_id"`
}
