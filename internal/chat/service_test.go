package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hubchat/server/internal/db"
	"github.com/hubchat/server/internal/directory"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
)

type fixture struct {
	svc       *Service
	dir       *directory.Service
	channelId string
	userId    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dirSvc := directory.NewService(conn, logger)
	hub, err := dirSvc.CreateHub("u_admin", "Lobby", "", "public")
	if err != nil {
		t.Fatal(err)
	}
	ch, err := dirSvc.CreateChannel(hub.Id, "text", "general", "public")
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		svc:       NewService(conn, dirSvc, logger),
		dir:       dirSvc,
		channelId: ch.Id,
		userId:    "u_member",
	}
	seedMember(t, conn, f.userId, "member")
	if _, err := dirSvc.Join(ch.Id, f.userId); err != nil {
		t.Fatal(err)
	}
	return f
}

func seedMember(t *testing.T, conn *sql.DB, id, handle string) {
	t.Helper()
	_, err := conn.Exec(
		"INSERT INTO users (user_id, handle, display_name, roles_json, password_hash, created_at) VALUES (?, ?, ?, '[]', 'x', 0)",
		id, handle, handle,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestSendAssignsSequence(t *testing.T) {
	f := newFixture(t)
	for want := int64(1); want <= 3; want++ {
		msg, err := f.svc.Send(f.channelId, f.userId, "member", "", fmt.Sprintf("msg %d", want))
		if err != nil {
			t.Fatalf("send %d: %v", want, err)
		}
		if msg.Seq != want {
			t.Errorf("seq = %d, want %d", msg.Seq, want)
		}
	}
}

// Concurrent senders must draw unique, gapless sequence numbers.
func TestConcurrentSendsGapless(t *testing.T) {
	f := newFixture(t)
	const senders = 16
	const perSender = 5

	var wg sync.WaitGroup
	errs := make(chan error, senders*perSender)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if _, err := f.svc.Send(f.channelId, f.userId, "member", "", fmt.Sprintf("s%d-%d", n, j)); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent send: %v", err)
	}

	msgs, err := f.svc.List(f.channelId, f.userId, 0, MaxListLimit)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != senders*perSender {
		t.Fatalf("persisted %d messages, want %d", len(msgs), senders*perSender)
	}
	for i, m := range msgs {
		if m.Seq != int64(i+1) {
			t.Fatalf("gap in sequence: position %d has seq %d", i, m.Seq)
		}
	}
}

func TestSendRequiresMembership(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(f.channelId, "u_stranger", "stranger", "", "hi")
	var failure *protocol.Failure
	if !errors.As(err, &failure) || failure.Code != protocol.CodeNotAMember {
		t.Fatalf("err = %v, want NOT_A_MEMBER", err)
	}
	// clients string-match this wording to trigger an automatic rejoin
	if !strings.Contains(failure.Message, "Not a member") {
		t.Errorf("message %q must contain %q", failure.Message, "Not a member")
	}
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Send(f.channelId, f.userId, "member", "", ""); !isValidation(err) {
		t.Errorf("empty text err = %v", err)
	}
	long := strings.Repeat("a", MaxMessageLen+1)
	if _, err := f.svc.Send(f.channelId, f.userId, "member", "", long); !isValidation(err) {
		t.Errorf("oversized text err = %v", err)
	}
}

func isValidation(err error) bool {
	var f *protocol.Failure
	return errors.As(err, &f) && f.Code == protocol.CodeValidation
}

func TestListPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		if _, err := f.svc.Send(f.channelId, f.userId, "member", "", fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := f.svc.List(f.channelId, f.userId, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Seq != 3 || msgs[1].Seq != 4 {
		t.Fatalf("page after seq 2 = %+v", msgs)
	}

	// membership gates reads the same as writes
	if _, err := f.svc.List(f.channelId, "u_stranger", 0, 10); err == nil {
		t.Error("stranger could list messages")
	}
}

func TestSearchScoping(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Send(f.channelId, f.userId, "member", "", "the quarterly report is ready"); err != nil {
		t.Fatal(err)
	}

	scope := schemas.SearchScope{Kind: "channel", ChannelId: f.channelId}
	hits, err := f.svc.Search(scope, f.userId, "quarterly", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if !strings.Contains(hits[0].Snippet, "[quarterly]") {
		t.Errorf("snippet %q does not highlight the match", hits[0].Snippet)
	}

	if _, err := f.svc.Search(scope, "u_stranger", "quarterly", 10); err == nil {
		t.Error("stranger could search the channel")
	}
	bad := scope
	bad.Kind = "global"
	if _, err := f.svc.Search(bad, f.userId, "quarterly", 10); !isValidation(err) {
		t.Errorf("unsupported scope err = %v", err)
	}
}
