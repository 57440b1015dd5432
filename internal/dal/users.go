package dal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hubchat/server/internal/schemas"
)

const userColumns = "user_id, handle, display_name, roles_json, password_hash, created_at"

func scanUser(row *sql.Row) (*schemas.User, error) {
	var u schemas.User
	var rolesJson string
	err := row.Scan(&u.Id, &u.Handle, &u.DisplayName, &rolesJson, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	if err := json.Unmarshal([]byte(rolesJson), &u.Roles); err != nil {
		return nil, fmt.Errorf("error parsing roles for user %s: %w", u.Id, err)
	}
	return &u, nil
}

func GetUserByHandle(db *sql.DB, handle string) (*schemas.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE handle = ?"
	return scanUser(db.QueryRow(query, handle))
}

func GetUserById(db *sql.DB, id string) (*schemas.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE user_id = ?"
	return scanUser(db.QueryRow(query, id))
}

// SearchUsers matches handles and display names by substring, most recent
// accounts first.
func SearchUsers(db *sql.DB, q string, limit int) ([]schemas.User, error) {
	pattern := "%" + q + "%"
	rows, err := db.Query(
		"SELECT "+userColumns+" FROM users WHERE handle LIKE ? OR display_name LIKE ? ORDER BY created_at DESC LIMIT ?",
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error searching users: %w", err)
	}
	defer rows.Close()

	var users []schemas.User
	for rows.Next() {
		var u schemas.User
		var rolesJson string
		if err := rows.Scan(&u.Id, &u.Handle, &u.DisplayName, &rolesJson, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		if err := json.Unmarshal([]byte(rolesJson), &u.Roles); err != nil {
			return nil, fmt.Errorf("error parsing roles for user %s: %w", u.Id, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
