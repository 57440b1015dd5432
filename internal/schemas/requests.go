package schemas

import (
	"github.com/pion/webrtc/v4"
)

// HelloRequest opens every connection. Resume is optional; an unknown or
// empty token still gets an unauthenticated hello_ack.
type HelloRequest struct {
	Client struct {
		Name     string `json:"name"`
		Ver      string `json:"ver"`
		Platform string `json:"platform"`
	} `json:"client"`
	Resume struct {
		SessionToken string `json:"session_token"`
	} `json:"resume"`
}

type SignInRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type InviteRedeemRequest struct {
	InviteToken string `json:"invite_token"`
	Profile     struct {
		Handle      string `json:"handle"`
		DisplayName string `json:"display_name"`
	} `json:"profile"`
	Password string `json:"password"`
}

type InviteCreateRequest struct {
	TtlMs   int64  `json:"ttl_ms"`
	MaxUses int    `json:"max_uses"`
	Note    string `json:"note"`
}

type HubCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

type HubUpdateRequest struct {
	HubId       string  `json:"hub_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type HubDeleteRequest struct {
	HubId string `json:"hub_id"`
}

type ChannelCreateRequest struct {
	HubId      string `json:"hub_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
}

type ChannelUpdateRequest struct {
	ChannelId string  `json:"channel_id"`
	Name      *string `json:"name"`
}

type ChannelDeleteRequest struct {
	ChannelId string `json:"channel_id"`
}

type ChannelJoinRequest struct {
	ChannelId string `json:"channel_id"`
}

type ChannelAddMemberRequest struct {
	ChannelId    string `json:"channel_id"`
	TargetUserId string `json:"target_user_id"`
}

type MsgSendRequest struct {
	ChannelId   string `json:"channel_id"`
	ClientMsgId string `json:"client_msg_id"`
	Text        string `json:"text"`
}

type MsgListRequest struct {
	ChannelId string `json:"channel_id"`
	AfterSeq  int64  `json:"after_seq"`
	Limit     int    `json:"limit"`
}

// SearchScope currently only supports kind "channel"; broader scopes are a
// wire-compatible extension.
type SearchScope struct {
	Kind      string `json:"kind"`
	ChannelId string `json:"channel_id"`
}

type SearchRequest struct {
	Scope SearchScope `json:"scope"`
	Q     string      `json:"q"`
	Limit int         `json:"limit"`
}

type UserSearchRequest struct {
	Q     string `json:"q"`
	Limit int    `json:"limit"`
}

// PeerMeta is declared by a joining peer and echoed to others verbatim.
type PeerMeta struct {
	Device       string          `json:"device"`
	Capabilities map[string]bool `json:"capabilities"`
}

type CallCreateRequest struct {
	ChannelId string `json:"channel_id"`
	Kind      string `json:"kind"`
	Media     struct {
		Audio bool `json:"audio"`
		Video bool `json:"video"`
	} `json:"media"`
}

type CallJoinRequest struct {
	CallId   string   `json:"call_id"`
	PeerMeta PeerMeta `json:"peer_meta"`
}

type CallLeaveRequest struct {
	CallId string `json:"call_id"`
	PeerId string `json:"peer_id"`
}

// SignalRequest covers rtc.offer and rtc.answer. The server validates only
// that the SDP is a non-empty string; session-description correctness is a
// client concern.
type SignalRequest struct {
	CallId     string `json:"call_id"`
	ToPeerId   string `json:"to_peer_id"`
	FromPeerId string `json:"from_peer_id"`
	Sdp        string `json:"sdp"`
}

// IceRequest relays one trickled candidate between peers.
type IceRequest struct {
	CallId     string                  `json:"call_id"`
	ToPeerId   string                  `json:"to_peer_id"`
	FromPeerId string                  `json:"from_peer_id"`
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
}

// StreamMeta describes a published media stream. Informational only; the
// server takes on no media obligation by relaying it.
type StreamMeta struct {
	StreamId string `json:"stream_id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Tracks   struct {
		Audio bool `json:"audio"`
		Video bool `json:"video"`
	} `json:"tracks"`
}

type StreamPublishRequest struct {
	CallId string     `json:"call_id"`
	PeerId string     `json:"peer_id"`
	Stream StreamMeta `json:"stream"`
}
