package dal

import (
	"database/sql"
	"fmt"

	"github.com/hubchat/server/internal/schemas"
)

const channelColumns = "channel_id, hub_id, kind, name, visibility, last_seq, created_at"

func scanChannel(scan func(dest ...any) error) (*schemas.Channel, error) {
	var c schemas.Channel
	err := scan(&c.Id, &c.HubId, &c.Kind, &c.Name, &c.Visibility, &c.LastSeq, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying channel: %w", err)
	}
	return &c, nil
}

func AddChannel(db *sql.DB, c *schemas.Channel) error {
	_, err := db.Exec(
		"INSERT INTO channels ("+channelColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.Id, c.HubId, c.Kind, c.Name, c.Visibility, c.LastSeq, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting channel: %w", err)
	}
	return nil
}

func GetChannel(db *sql.DB, id string) (*schemas.Channel, error) {
	row := db.QueryRow("SELECT "+channelColumns+" FROM channels WHERE channel_id = ?", id)
	return scanChannel(row.Scan)
}

// ListChannelsForUser returns every public channel plus the private ones the
// user belongs to.
func ListChannelsForUser(db *sql.DB, userId string) ([]schemas.Channel, error) {
	rows, err := db.Query(
		`SELECT `+channelColumns+` FROM channels
		 WHERE visibility = 'public'
		    OR channel_id IN (SELECT channel_id FROM memberships WHERE user_id = ?)
		 ORDER BY created_at`, userId,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing channels: %w", err)
	}
	defer rows.Close()

	var channels []schemas.Channel
	for rows.Next() {
		var c schemas.Channel
		if err := rows.Scan(&c.Id, &c.HubId, &c.Kind, &c.Name, &c.Visibility, &c.LastSeq, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning channel: %w", err)
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func UpdateChannel(db *sql.DB, id string, name *string) (*schemas.Channel, error) {
	if name != nil {
		if _, err := db.Exec("UPDATE channels SET name = ? WHERE channel_id = ?", *name, id); err != nil {
			return nil, fmt.Errorf("error updating channel: %w", err)
		}
	}
	return GetChannel(db, id)
}

// DeleteChannel removes the channel; memberships and messages cascade via
// foreign keys, the FTS rows explicitly.
func DeleteChannel(db *sql.DB, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages_fts WHERE channel_id = ?", id); err != nil {
		return fmt.Errorf("error clearing message index: %w", err)
	}
	result, err := tx.Exec("DELETE FROM channels WHERE channel_id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// AddMembership is idempotent: joining a channel twice is a no-op success.
// The bool reports whether the membership is new.
func AddMembership(db *sql.DB, channelId, userId string, joinedAt int64) (bool, error) {
	result, err := db.Exec(
		"INSERT OR IGNORE INTO memberships (channel_id, user_id, joined_at) VALUES (?, ?, ?)",
		channelId, userId, joinedAt,
	)
	if err != nil {
		return false, fmt.Errorf("error inserting membership: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func IsMember(db *sql.DB, channelId, userId string) (bool, error) {
	var one int
	err := db.QueryRow(
		"SELECT 1 FROM memberships WHERE channel_id = ? AND user_id = ?",
		channelId, userId,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error querying membership: %w", err)
	}
	return true, nil
}

func ListMemberIds(db *sql.DB, channelId string) ([]string, error) {
	rows, err := db.Query("SELECT user_id FROM memberships WHERE channel_id = ?", channelId)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
