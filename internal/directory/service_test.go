package directory

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hubchat/server/internal/db"
	"github.com/hubchat/server/internal/protocol"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(conn, logger), conn
}

func seedUser(t *testing.T, conn *sql.DB, id, handle string) {
	t.Helper()
	_, err := conn.Exec(
		"INSERT INTO users (user_id, handle, display_name, roles_json, password_hash, created_at) VALUES (?, ?, ?, '[]', 'x', 0)",
		id, handle, handle,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func code(err error) string {
	var f *protocol.Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

func TestHubLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	hub, err := svc.CreateHub("u_admin", "Lobby", "the first hub", "public")
	if err != nil {
		t.Fatal(err)
	}

	hubs, err := svc.ListHubs()
	if err != nil || len(hubs) != 1 {
		t.Fatalf("ListHubs = %v, %v", hubs, err)
	}

	name := "Main"
	updated, err := svc.UpdateHub(hub.Id, &name, nil)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Main" || updated.Description != "the first hub" {
		t.Errorf("partial update produced %+v", updated)
	}

	if _, err := svc.DeleteHub(hub.Id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DeleteHub(hub.Id); code(err) != protocol.CodeNotFound {
		t.Errorf("double delete err = %v, want NOT_FOUND", err)
	}
}

func TestCreateChannelValidation(t *testing.T) {
	svc, _ := newTestService(t)
	hub, err := svc.CreateHub("u_admin", "Lobby", "", "public")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreateChannel(hub.Id, "video", "bad", "public"); code(err) != protocol.CodeValidation {
		t.Errorf("bad kind err = %v, want VALIDATION", err)
	}
	if _, err := svc.CreateChannel(hub.Id, "text", "", "public"); code(err) != protocol.CodeValidation {
		t.Errorf("empty name err = %v, want VALIDATION", err)
	}
	if _, err := svc.CreateChannel("h_ghost", "text", "orphan", "public"); code(err) != protocol.CodeNotFound {
		t.Errorf("unknown hub err = %v, want NOT_FOUND", err)
	}

	ch, err := svc.CreateChannel(hub.Id, "voice", "standup", "public")
	if err != nil {
		t.Fatal(err)
	}
	if ch.Kind != "voice" {
		t.Errorf("kind = %q", ch.Kind)
	}
}

func TestJoinIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	seedUser(t, conn, "u_1", "alice")
	hub, _ := svc.CreateHub("u_admin", "Lobby", "", "public")
	ch, err := svc.CreateChannel(hub.Id, "text", "general", "public")
	if err != nil {
		t.Fatal(err)
	}

	isNew, err := svc.Join(ch.Id, "u_1")
	if err != nil || !isNew {
		t.Fatalf("first join: isNew=%v err=%v", isNew, err)
	}
	isNew, err = svc.Join(ch.Id, "u_1")
	if err != nil || isNew {
		t.Fatalf("repeat join: isNew=%v err=%v", isNew, err)
	}

	if _, err := svc.Join("c_ghost", "u_1"); code(err) != protocol.CodeNotFound {
		t.Errorf("join unknown channel err = %v, want NOT_FOUND", err)
	}
}

func TestAddMemberRequiresActorMembership(t *testing.T) {
	svc, conn := newTestService(t)
	seedUser(t, conn, "u_actor", "actor")
	seedUser(t, conn, "u_target", "target")
	hub, _ := svc.CreateHub("u_admin", "Lobby", "", "public")
	ch, err := svc.CreateChannel(hub.Id, "text", "general", "public")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddMember(ch.Id, "u_actor", "u_target"); code(err) != protocol.CodeNotAMember {
		t.Errorf("non-member actor err = %v, want NOT_A_MEMBER", err)
	}

	if _, err := svc.Join(ch.Id, "u_actor"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddMember(ch.Id, "u_actor", "u_ghost"); code(err) != protocol.CodeNotFound {
		t.Errorf("unknown target err = %v, want NOT_FOUND", err)
	}
	if _, err := svc.AddMember(ch.Id, "u_actor", "u_target"); err != nil {
		t.Fatalf("valid add: %v", err)
	}

	member, err := svc.IsMember(ch.Id, "u_target")
	if err != nil || !member {
		t.Fatalf("target not a member after add: %v %v", member, err)
	}
}
