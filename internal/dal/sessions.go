package dal

import (
	"database/sql"
	"fmt"

	"github.com/hubchat/server/internal/schemas"
)

func AddSession(db *sql.DB, s *schemas.Session) error {
	_, err := db.Exec(
		"INSERT INTO sessions (session_token, user_id, created_at) VALUES (?, ?, ?)",
		s.Token, s.UserId, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting session: %w", err)
	}
	return nil
}

// GetSessionUser resolves a presented token to its account. Sessions do not
// expire server-side; an unknown token is the only failure mode.
func GetSessionUser(db *sql.DB, token string) (*schemas.User, error) {
	query := `SELECT u.user_id, u.handle, u.display_name, u.roles_json, u.password_hash, u.created_at
		FROM sessions s JOIN users u ON u.user_id = s.user_id
		WHERE s.session_token = ?`
	return scanUser(db.QueryRow(query, token))
}
