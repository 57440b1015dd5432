package protocol

import (
	"fmt"
	"sync/atomic"
)

// Type is a wire message type. The catalog below is closed: the dispatcher
// only routes types registered against these constants, so adding one is a
// compile-visible change rather than a stray string.
type Type string

// Requests.
const (
	TypeHello             Type = "hello"
	TypeAuthSignIn        Type = "auth.signin"
	TypeAuthInviteRedeem  Type = "auth.invite_redeem"
	TypeAdminInviteCreate Type = "admin.invite_create"

	TypeHubList   Type = "hub.list"
	TypeHubCreate Type = "hub.create"
	TypeHubUpdate Type = "hub.update"
	TypeHubDelete Type = "hub.delete"

	TypeChannelList      Type = "channel.list"
	TypeChannelCreate    Type = "channel.create"
	TypeChannelUpdate    Type = "channel.update"
	TypeChannelDelete    Type = "channel.delete"
	TypeChannelJoin      Type = "channel.join"
	TypeChannelAddMember Type = "channel.add_member"

	TypeMsgSend Type = "msg.send"
	TypeMsgList Type = "msg.list"

	TypeSearchQuery Type = "search.query"
	TypeUserSearch  Type = "user.search"

	TypeRtcCallCreate    Type = "rtc.call_create"
	TypeRtcJoin          Type = "rtc.join"
	TypeRtcLeave         Type = "rtc.leave"
	TypeRtcOffer         Type = "rtc.offer"
	TypeRtcAnswer        Type = "rtc.answer"
	TypeRtcIce           Type = "rtc.ice"
	TypeRtcStreamPublish Type = "rtc.stream_publish"
)

// Replies and events.
const (
	TypeHelloAck    Type = "hello_ack"
	TypeAuthSession Type = "auth.session"
	TypeAdminInvite Type = "admin.invite"

	TypeHubListResult Type = "hub.list_result"
	TypeHubCreated    Type = "hub.created"
	TypeHubUpdated    Type = "hub.updated"
	TypeHubDeleted    Type = "hub.deleted"

	TypeChannelListResult  Type = "channel.list_result"
	TypeChannelCreated     Type = "channel.created"
	TypeChannelUpdated     Type = "channel.updated"
	TypeChannelDeleted     Type = "channel.deleted"
	TypeChannelMemberEvent Type = "channel.member_event"
	TypeChannelMemberAdded Type = "channel.member_added"
	TypeChannelAdded       Type = "channel.added"

	TypeMsgAck        Type = "msg.ack"
	TypeMsgEvent      Type = "msg.event"
	TypeMsgListResult Type = "msg.list_result"

	TypeSearchResult     Type = "search.result"
	TypeUserSearchResult Type = "user.search_result"

	TypeRtcCall         Type = "rtc.call"
	TypeRtcCallEvent    Type = "rtc.call_event"
	TypeRtcParticipants Type = "rtc.participants"
	TypeRtcPeerEvent    Type = "rtc.peer_event"
	TypeRtcOfferEvent   Type = "rtc.offer_event"
	TypeRtcAnswerEvent  Type = "rtc.answer_event"
	TypeRtcIceEvent     Type = "rtc.ice_event"
	TypeRtcStreamEvent  Type = "rtc.stream_event"
	TypeRtcCallEnd      Type = "rtc.call_end"

	TypeError Type = "error"
)

var idCounter atomic.Uint64

// newId produces a server-side envelope id. Clients only ever echo these in
// reply_to, so uniqueness within the process is all that matters.
func newId(t Type) string {
	return fmt.Sprintf("%s-%d", t, idCounter.Add(1))
}
