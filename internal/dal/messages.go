package dal

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hubchat/server/internal/schemas"
)

// InsertMessage assigns the next sequence number for the channel and
// persists the message plus its full-text index row in one transaction.
// The read-and-increment runs against the channel row, so restarts keep the
// sequence gapless; callers must serialize sends to the same channel.
func InsertMessage(db *sql.DB, channelId, userId, userHandle, clientMsgId, text string, ts int64) (*schemas.Message, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRow(
		"UPDATE channels SET last_seq = last_seq + 1 WHERE channel_id = ? RETURNING last_seq",
		channelId,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error advancing sequence for channel %s: %w", channelId, err)
	}

	msg := &schemas.Message{
		Id:          "m_" + uuid.New().String(),
		ChannelId:   channelId,
		UserId:      userId,
		UserHandle:  userHandle,
		Text:        text,
		ClientMsgId: clientMsgId,
		Seq:         seq,
		Ts:          ts,
	}

	_, err = tx.Exec(
		"INSERT INTO messages (msg_id, channel_id, user_id, user_handle, text, client_msg_id, seq, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		msg.Id, msg.ChannelId, msg.UserId, msg.UserHandle, msg.Text, msg.ClientMsgId, msg.Seq, msg.Ts,
	)
	if err != nil {
		return nil, fmt.Errorf("error inserting message: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO messages_fts (text, msg_id, channel_id) VALUES (?, ?, ?)",
		msg.Text, msg.Id, msg.ChannelId,
	)
	if err != nil {
		return nil, fmt.Errorf("error indexing message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

const messageColumns = "msg_id, channel_id, user_id, user_handle, text, client_msg_id, seq, ts"

// ListMessages returns messages with seq > afterSeq in ascending sequence
// order.
func ListMessages(db *sql.DB, channelId string, afterSeq int64, limit int) ([]schemas.Message, error) {
	rows, err := db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE channel_id = ? AND seq > ? ORDER BY seq LIMIT ?",
		channelId, afterSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []schemas.Message
	for rows.Next() {
		var m schemas.Message
		if err := rows.Scan(&m.Id, &m.ChannelId, &m.UserId, &m.UserHandle, &m.Text, &m.ClientMsgId, &m.Seq, &m.Ts); err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SearchMessages runs a full-text query scoped to one channel, best match
// first, with a snippet highlighting the matched terms. Reads go against
// the index as-is; visibility of in-flight sends is eventual.
func SearchMessages(db *sql.DB, channelId, q string, limit int) ([]schemas.SearchHit, error) {
	rows, err := db.Query(
		`SELECT m.msg_id, m.channel_id, m.user_id, m.user_handle, m.text, m.client_msg_id, m.seq, m.ts,
		        snippet(messages_fts, 0, '[', ']', '…', 8)
		 FROM messages_fts
		 JOIN messages m ON m.msg_id = messages_fts.msg_id
		 WHERE messages_fts MATCH ? AND messages_fts.channel_id = ?
		 ORDER BY rank LIMIT ?`,
		ftsQuote(q), channelId, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error searching messages: %w", err)
	}
	defer rows.Close()

	var hits []schemas.SearchHit
	for rows.Next() {
		var h schemas.SearchHit
		m := &h.Message
		if err := rows.Scan(&m.Id, &m.ChannelId, &m.UserId, &m.UserHandle, &m.Text, &m.ClientMsgId, &m.Seq, &m.Ts, &h.Snippet); err != nil {
			return nil, fmt.Errorf("error scanning search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuote wraps the user's query so FTS5 treats it as a phrase instead of
// query syntax.
func ftsQuote(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
