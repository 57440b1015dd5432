package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func openFileDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "pool.sqlite"))
	if err != nil {
		t.Fatalf("opening file-backed db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// Pragmas must hold on every connection the pool opens, not just the first.
// A file-backed database is required here: ":memory:" pins the pool to a
// single connection and would never exercise the second one.
func TestPragmasHoldOnEveryPooledConnection(t *testing.T) {
	conn := openFileDB(t)
	ctx := context.Background()

	c1, err := conn.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	c2, err := conn.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	for i, c := range []*sql.Conn{c1, c2} {
		var fk int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatal(err)
		}
		if fk != 1 {
			t.Errorf("connection %d: foreign_keys = %d, want 1", i+1, fk)
		}
		var timeout int
		if err := c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatal(err)
		}
		if timeout != 5000 {
			t.Errorf("connection %d: busy_timeout = %d, want 5000", i+1, timeout)
		}
	}
}

// A hub deletion served by a pooled connection other than the first must
// still cascade to channels, memberships and messages.
func TestCascadeHoldsOnSecondPooledConnection(t *testing.T) {
	conn := openFileDB(t)
	ctx := context.Background()

	if _, err := conn.ExecContext(ctx,
		`INSERT INTO users (user_id, handle, display_name, password_hash, created_at) VALUES ('u_1', 'alice', 'Alice', 'x', 0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO hubs (hub_id, name, created_by_user_id, created_at) VALUES ('h_1', 'Lobby', 'u_1', 0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO channels (channel_id, hub_id, name, created_at) VALUES ('c_1', 'h_1', 'general', 0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO memberships (channel_id, user_id, joined_at) VALUES ('c_1', 'u_1', 0)`); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO messages (msg_id, channel_id, user_id, user_handle, text, seq, ts) VALUES ('m_1', 'c_1', 'u_1', 'alice', 'doomed', 1, 0)`); err != nil {
		t.Fatal(err)
	}

	// pin one connection so the delete below is forced onto a second one
	pinned, err := conn.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer pinned.Close()

	second, err := conn.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if _, err := second.ExecContext(ctx, "DELETE FROM hubs WHERE hub_id = 'h_1'"); err != nil {
		t.Fatal(err)
	}

	for _, q := range []struct{ table, query string }{
		{"channels", "SELECT count(*) FROM channels WHERE hub_id = 'h_1'"},
		{"memberships", "SELECT count(*) FROM memberships WHERE channel_id = 'c_1'"},
		{"messages", "SELECT count(*) FROM messages WHERE channel_id = 'c_1'"},
	} {
		var n int
		if err := conn.QueryRowContext(ctx, q.query).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%d %s rows survived hub deletion on the second connection", n, q.table)
		}
	}
}
