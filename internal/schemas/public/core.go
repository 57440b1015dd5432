// Package public contains the structs sent to hubchat clients. These never
// carry private information such as password digests. Structs representing
// database records embed or convert to these before hitting the wire.
package public

import "github.com/hubchat/server/internal/schemas"

// User is the client-visible account shape carried in auth replies.
type User struct {
	UserId      string   `json:"user_id"`
	Handle      string   `json:"handle"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// Profile is the nested shape used by user.search_result.
type Profile struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
}

// UserSummary is a search hit in user.search_result.
type UserSummary struct {
	UserId  string  `json:"user_id"`
	Profile Profile `json:"profile"`
}

// Hub mirrors the hubs table minus server-internal fields.
type Hub struct {
	HubId       string `json:"hub_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	CreatedAt   int64  `json:"created_at"`
}

// Channel mirrors the channels table. The sequence counter stays private.
type Channel struct {
	ChannelId  string `json:"channel_id"`
	HubId      string `json:"hub_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Visibility string `json:"visibility"`
	CreatedAt  int64  `json:"created_at"`
}

// Message is the wire shape of a persisted message. ClientMsgId is echoed
// so clients can dedup redeliveries across reconnects.
type Message struct {
	MsgId       string `json:"msg_id"`
	ChannelId   string `json:"channel_id"`
	UserId      string `json:"user_id"`
	UserHandle  string `json:"user_handle"`
	Text        string `json:"text"`
	ClientMsgId string `json:"client_msg_id"`
	Seq         int64  `json:"seq"`
	Ts          int64  `json:"ts"`
}

// SearchHit carries a matched message plus a snippet highlighting the match.
type SearchHit struct {
	Message
	Snippet string `json:"snippet"`
}

// Peer is a call participant as seen by other participants.
type Peer struct {
	PeerId string `json:"peer_id"`
	UserId string `json:"user_id"`
}

func FromUser(u *schemas.User) User {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return User{UserId: u.Id, Handle: u.Handle, DisplayName: u.DisplayName, Roles: roles}
}

func FromHub(h *schemas.Hub) Hub {
	return Hub{HubId: h.Id, Name: h.Name, Description: h.Description, Visibility: h.Visibility, CreatedAt: h.CreatedAt}
}

func FromChannel(c *schemas.Channel) Channel {
	return Channel{ChannelId: c.Id, HubId: c.HubId, Kind: c.Kind, Name: c.Name, Visibility: c.Visibility, CreatedAt: c.CreatedAt}
}

func FromMessage(m *schemas.Message) Message {
	return Message{
		MsgId:       m.Id,
		ChannelId:   m.ChannelId,
		UserId:      m.UserId,
		UserHandle:  m.UserHandle,
		Text:        m.Text,
		ClientMsgId: m.ClientMsgId,
		Seq:         m.Seq,
		Ts:          m.Ts,
	}
}
