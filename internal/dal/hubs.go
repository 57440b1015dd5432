package dal

import (
	"database/sql"
	"fmt"

	"github.com/hubchat/server/internal/schemas"
)

const hubColumns = "hub_id, name, description, visibility, created_by_user_id, created_at"

func scanHub(scan func(dest ...any) error) (*schemas.Hub, error) {
	var h schemas.Hub
	err := scan(&h.Id, &h.Name, &h.Description, &h.Visibility, &h.CreatedByUserId, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying hub: %w", err)
	}
	return &h, nil
}

func AddHub(db *sql.DB, h *schemas.Hub) error {
	_, err := db.Exec(
		"INSERT INTO hubs ("+hubColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		h.Id, h.Name, h.Description, h.Visibility, h.CreatedByUserId, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting hub: %w", err)
	}
	return nil
}

func GetHub(db *sql.DB, id string) (*schemas.Hub, error) {
	row := db.QueryRow("SELECT "+hubColumns+" FROM hubs WHERE hub_id = ?", id)
	return scanHub(row.Scan)
}

func ListHubs(db *sql.DB) ([]schemas.Hub, error) {
	rows, err := db.Query("SELECT " + hubColumns + " FROM hubs ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("error listing hubs: %w", err)
	}
	defer rows.Close()

	var hubs []schemas.Hub
	for rows.Next() {
		var h schemas.Hub
		if err := rows.Scan(&h.Id, &h.Name, &h.Description, &h.Visibility, &h.CreatedByUserId, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning hub: %w", err)
		}
		hubs = append(hubs, h)
	}
	return hubs, rows.Err()
}

// UpdateHub applies non-nil fields and returns the stored row.
func UpdateHub(db *sql.DB, id string, name, description *string) (*schemas.Hub, error) {
	if name != nil {
		if _, err := db.Exec("UPDATE hubs SET name = ? WHERE hub_id = ?", *name, id); err != nil {
			return nil, fmt.Errorf("error updating hub name: %w", err)
		}
	}
	if description != nil {
		if _, err := db.Exec("UPDATE hubs SET description = ? WHERE hub_id = ?", *description, id); err != nil {
			return nil, fmt.Errorf("error updating hub description: %w", err)
		}
	}
	return GetHub(db, id)
}

// DeleteHub removes the hub and, through foreign keys, its channels,
// memberships and messages. The FTS index has no foreign keys, so its rows
// for the cascading channels go in the same transaction. Returns the ids of
// the deleted channels so callers can tear down live state bound to them.
func DeleteHub(db *sql.DB, id string) ([]string, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query("SELECT channel_id FROM channels WHERE hub_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("error listing hub channels: %w", err)
	}
	var channelIds []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning channel id: %w", err)
		}
		channelIds = append(channelIds, cid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, cid := range channelIds {
		if _, err := tx.Exec("DELETE FROM messages_fts WHERE channel_id = ?", cid); err != nil {
			return nil, fmt.Errorf("error clearing message index: %w", err)
		}
	}

	result, err := tx.Exec("DELETE FROM hubs WHERE hub_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("error deleting hub: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return channelIds, nil
}
