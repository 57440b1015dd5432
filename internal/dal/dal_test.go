package dal

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/hubchat/server/internal/db"
	"github.com/hubchat/server/internal/schemas"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func seedUser(t *testing.T, conn *sql.DB, id, handle string, roles []string) {
	t.Helper()
	rolesJson, _ := json.Marshal(roles)
	_, err := conn.Exec(
		"INSERT INTO users (user_id, handle, display_name, roles_json, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, handle, handle, string(rolesJson), "x", time.Now().UnixMilli(),
	)
	if err != nil {
		t.Fatalf("seeding user %s: %v", handle, err)
	}
}

func seedHub(t *testing.T, conn *sql.DB, id, name string) {
	t.Helper()
	err := AddHub(conn, &schemas.Hub{
		Id: id, Name: name, Visibility: "public", CreatedByUserId: "u_seed", CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seeding hub %s: %v", name, err)
	}
}

func seedChannel(t *testing.T, conn *sql.DB, id, hubId, name string) {
	t.Helper()
	err := AddChannel(conn, &schemas.Channel{
		Id: id, HubId: hubId, Kind: "text", Name: name, Visibility: "public", CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seeding channel %s: %v", name, err)
	}
}

func seedInvite(t *testing.T, conn *sql.DB, token string, maxUses int, expiresAt int64, grantsAdmin bool) {
	t.Helper()
	err := AddInvite(conn, &schemas.Invite{
		Token: token, CreatedByUserId: "u_seed", MaxUses: maxUses, RemainingUses: maxUses,
		ExpiresAt: expiresAt, GrantsAdmin: grantsAdmin, CreatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatalf("seeding invite %s: %v", token, err)
	}
}

func TestRedeemInvite(t *testing.T) {
	conn := openTestDB(t)
	future := time.Now().Add(time.Hour).UnixMilli()
	seedInvite(t, conn, "inv_ok", 2, future, false)

	user, err := RedeemInvite(conn, "inv_ok", "alice", "Alice", "hash")
	if err != nil {
		t.Fatalf("redeeming: %v", err)
	}
	if user.Handle != "alice" || user.IsAdmin() {
		t.Errorf("unexpected user: %+v", user)
	}

	inv, err := GetInvite(conn, "inv_ok")
	if err != nil {
		t.Fatalf("fetching invite: %v", err)
	}
	if inv.RemainingUses != 1 {
		t.Errorf("remaining uses = %d, want 1", inv.RemainingUses)
	}
}

func TestRedeemInviteExhaustion(t *testing.T) {
	conn := openTestDB(t)
	future := time.Now().Add(time.Hour).UnixMilli()
	seedInvite(t, conn, "inv_two", 2, future, false)

	for i, handle := range []string{"u1", "u2"} {
		if _, err := RedeemInvite(conn, "inv_two", handle, handle, "hash"); err != nil {
			t.Fatalf("redemption %d: %v", i+1, err)
		}
	}
	if _, err := RedeemInvite(conn, "inv_two", "u3", "u3", "hash"); err != ErrInviteExhausted {
		t.Errorf("third redemption err = %v, want ErrInviteExhausted", err)
	}
	if _, err := GetUserByHandle(conn, "u3"); err != ErrNotFound {
		t.Errorf("failed redemption left a user behind: err = %v", err)
	}
}

func TestRedeemInviteExpired(t *testing.T) {
	conn := openTestDB(t)
	past := time.Now().Add(-time.Minute).UnixMilli()
	seedInvite(t, conn, "inv_old", 5, past, false)

	if _, err := RedeemInvite(conn, "inv_old", "late", "late", "hash"); err != ErrInviteExhausted {
		t.Errorf("expired redemption err = %v, want ErrInviteExhausted", err)
	}
}

func TestRedeemInviteUnknownToken(t *testing.T) {
	conn := openTestDB(t)
	if _, err := RedeemInvite(conn, "inv_nope", "a", "a", "hash"); err != ErrNotFound {
		t.Errorf("unknown token err = %v, want ErrNotFound", err)
	}
}

func TestRedeemInviteHandleTaken(t *testing.T) {
	conn := openTestDB(t)
	future := time.Now().Add(time.Hour).UnixMilli()
	seedInvite(t, conn, "inv_dup", 5, future, false)

	if _, err := RedeemInvite(conn, "inv_dup", "bob", "Bob", "hash"); err != nil {
		t.Fatalf("first redemption: %v", err)
	}
	if _, err := RedeemInvite(conn, "inv_dup", "bob", "Bob 2", "hash"); err != ErrHandleTaken {
		t.Fatalf("duplicate handle err = %v, want ErrHandleTaken", err)
	}

	// the failed attempt must not consume a use
	inv, err := GetInvite(conn, "inv_dup")
	if err != nil {
		t.Fatal(err)
	}
	if inv.RemainingUses != 4 {
		t.Errorf("remaining uses = %d, want 4", inv.RemainingUses)
	}
}

func TestRedeemInviteGrantsAdmin(t *testing.T) {
	conn := openTestDB(t)
	future := time.Now().Add(time.Hour).UnixMilli()
	seedInvite(t, conn, "inv_root", 1, future, true)

	user, err := RedeemInvite(conn, "inv_root", "root", "Root", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if !user.IsAdmin() {
		t.Error("admin invite produced a non-admin user")
	}
	persisted, err := GetUserById(conn, user.Id)
	if err != nil {
		t.Fatal(err)
	}
	if !persisted.IsAdmin() {
		t.Error("admin role not persisted")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	seedUser(t, conn, "u_1", "alice", nil)

	if err := AddSession(conn, &schemas.Session{Token: "sess_abc", UserId: "u_1", CreatedAt: 1}); err != nil {
		t.Fatal(err)
	}
	user, err := GetSessionUser(conn, "sess_abc")
	if err != nil {
		t.Fatal(err)
	}
	if user.Id != "u_1" {
		t.Errorf("session resolved to %s, want u_1", user.Id)
	}
	if _, err := GetSessionUser(conn, "sess_unknown"); err != ErrNotFound {
		t.Errorf("unknown session err = %v, want ErrNotFound", err)
	}
}

func TestMembership(t *testing.T) {
	conn := openTestDB(t)
	seedUser(t, conn, "u_1", "alice", nil)
	seedHub(t, conn, "h_1", "Lobby")
	seedChannel(t, conn, "c_1", "h_1", "general")

	isNew, err := AddMembership(conn, "c_1", "u_1", 1)
	if err != nil || !isNew {
		t.Fatalf("first join: isNew=%v err=%v", isNew, err)
	}
	isNew, err = AddMembership(conn, "c_1", "u_1", 2)
	if err != nil || isNew {
		t.Fatalf("repeat join: isNew=%v err=%v", isNew, err)
	}

	member, err := IsMember(conn, "c_1", "u_1")
	if err != nil || !member {
		t.Fatalf("IsMember = %v, %v", member, err)
	}
	member, err = IsMember(conn, "c_1", "u_ghost")
	if err != nil || member {
		t.Fatalf("IsMember for stranger = %v, %v", member, err)
	}

	ids, err := ListMemberIds(conn, "c_1")
	if err != nil || len(ids) != 1 || ids[0] != "u_1" {
		t.Fatalf("ListMemberIds = %v, %v", ids, err)
	}
}

func TestListChannelsForUserVisibility(t *testing.T) {
	conn := openTestDB(t)
	seedUser(t, conn, "u_1", "alice", nil)
	seedHub(t, conn, "h_1", "Lobby")
	seedChannel(t, conn, "c_pub", "h_1", "general")
	if err := AddChannel(conn, &schemas.Channel{
		Id: "c_priv", HubId: "h_1", Kind: "text", Name: "staff", Visibility: "private", CreatedAt: 1,
	}); err != nil {
		t.Fatal(err)
	}

	channels, err := ListChannelsForUser(conn, "u_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 1 || channels[0].Id != "c_pub" {
		t.Fatalf("non-member sees %v, want only c_pub", channelIds(channels))
	}

	if _, err := AddMembership(conn, "c_priv", "u_1", 1); err != nil {
		t.Fatal(err)
	}
	channels, err = ListChannelsForUser(conn, "u_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 2 {
		t.Fatalf("member sees %v, want both channels", channelIds(channels))
	}
}

func channelIds(channels []schemas.Channel) []string {
	ids := make([]string, len(channels))
	for i := range channels {
		ids[i] = channels[i].Id
	}
	return ids
}

func TestInsertMessageSequencing(t *testing.T) {
	conn := openTestDB(t)
	seedHub(t, conn, "h_1", "Lobby")
	seedChannel(t, conn, "c_1", "h_1", "general")

	for want := int64(1); want <= 3; want++ {
		msg, err := InsertMessage(conn, "c_1", "u_1", "alice", "", "hello", want)
		if err != nil {
			t.Fatalf("insert %d: %v", want, err)
		}
		if msg.Seq != want {
			t.Errorf("seq = %d, want %d", msg.Seq, want)
		}
	}

	// sequence survives a reload of the channel row
	ch, err := GetChannel(conn, "c_1")
	if err != nil {
		t.Fatal(err)
	}
	if ch.LastSeq != 3 {
		t.Errorf("persisted last_seq = %d, want 3", ch.LastSeq)
	}

	msgs, err := ListMessages(conn, "c_1", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Seq != 2 || msgs[1].Seq != 3 {
		t.Errorf("ListMessages after seq 1 returned %d messages", len(msgs))
	}
}

func TestInsertMessageUnknownChannel(t *testing.T) {
	conn := openTestDB(t)
	if _, err := InsertMessage(conn, "c_ghost", "u_1", "alice", "", "hi", 1); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchMessages(t *testing.T) {
	conn := openTestDB(t)
	seedHub(t, conn, "h_1", "Lobby")
	seedChannel(t, conn, "c_1", "h_1", "general")
	seedChannel(t, conn, "c_2", "h_1", "random")

	texts := []string{"deploy finished", "the deploy broke prod", "lunch plans"}
	for i, text := range texts {
		if _, err := InsertMessage(conn, "c_1", "u_1", "alice", "", text, int64(i)); err != nil {
			t.Fatal(err)
		}
	}
	// same word in another channel must not leak into c_1 results
	if _, err := InsertMessage(conn, "c_2", "u_1", "alice", "", "deploy elsewhere", 9); err != nil {
		t.Fatal(err)
	}

	hits, err := SearchMessages(conn, "c_1", "deploy", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	for _, h := range hits {
		if h.Message.ChannelId != "c_1" {
			t.Errorf("hit from wrong channel: %s", h.Message.ChannelId)
		}
		if h.Snippet == "" {
			t.Error("empty snippet")
		}
	}

	// quote characters must not be interpreted as FTS5 syntax
	if _, err := SearchMessages(conn, "c_1", `dep"loy AND (`, 10); err != nil {
		t.Errorf("quoted query errored: %v", err)
	}
}

func TestDeleteHubCascade(t *testing.T) {
	conn := openTestDB(t)
	seedUser(t, conn, "u_1", "alice", nil)
	seedHub(t, conn, "h_1", "Lobby")
	seedChannel(t, conn, "c_1", "h_1", "general")
	seedChannel(t, conn, "c_2", "h_1", "random")
	if _, err := AddMembership(conn, "c_1", "u_1", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := InsertMessage(conn, "c_1", "u_1", "alice", "", "doomed text", 1); err != nil {
		t.Fatal(err)
	}

	channelIds, err := DeleteHub(conn, "h_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(channelIds) != 2 {
		t.Fatalf("cascade returned %v, want both channel ids", channelIds)
	}

	if _, err := GetChannel(conn, "c_1"); err != ErrNotFound {
		t.Errorf("channel survived hub deletion: %v", err)
	}
	member, err := IsMember(conn, "c_1", "u_1")
	if err != nil || member {
		t.Errorf("membership survived hub deletion")
	}
	msgs, err := ListMessages(conn, "c_1", 0, 10)
	if err != nil || len(msgs) != 0 {
		t.Errorf("messages survived hub deletion: %d", len(msgs))
	}

	var ftsRows int
	if err := conn.QueryRow("SELECT count(*) FROM messages_fts WHERE channel_id = 'c_1'").Scan(&ftsRows); err != nil {
		t.Fatal(err)
	}
	if ftsRows != 0 {
		t.Errorf("%d fts rows survived hub deletion", ftsRows)
	}
}

func TestUpdateHubPartialFields(t *testing.T) {
	conn := openTestDB(t)
	seedHub(t, conn, "h_1", "Lobby")

	name := "Renamed"
	hub, err := UpdateHub(conn, "h_1", &name, nil)
	if err != nil {
		t.Fatal(err)
	}
	if hub.Name != "Renamed" {
		t.Errorf("name = %q", hub.Name)
	}
	if _, err := UpdateHub(conn, "h_ghost", &name, nil); err != ErrNotFound {
		t.Errorf("unknown hub err = %v, want ErrNotFound", err)
	}
}

func TestSearchUsers(t *testing.T) {
	conn := openTestDB(t)
	seedUser(t, conn, "u_1", "alice", nil)
	seedUser(t, conn, "u_2", "alicia", nil)
	seedUser(t, conn, "u_3", "bob", nil)

	users, err := SearchUsers(conn, "ali", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
}
