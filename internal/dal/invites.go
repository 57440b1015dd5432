package dal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hubchat/server/internal/schemas"
)

func AddInvite(db *sql.DB, inv *schemas.Invite) error {
	_, err := db.Exec(
		`INSERT INTO invites (invite_token, created_by_user_id, max_uses, remaining_uses, expires_at, note, grants_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Token, inv.CreatedByUserId, inv.MaxUses, inv.RemainingUses, inv.ExpiresAt, inv.Note, inv.GrantsAdmin, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting invite: %w", err)
	}
	return nil
}

func GetInvite(db *sql.DB, token string) (*schemas.Invite, error) {
	var inv schemas.Invite
	err := db.QueryRow(
		`SELECT invite_token, created_by_user_id, max_uses, remaining_uses, expires_at, note, grants_admin, created_at
		 FROM invites WHERE invite_token = ?`, token,
	).Scan(&inv.Token, &inv.CreatedByUserId, &inv.MaxUses, &inv.RemainingUses, &inv.ExpiresAt, &inv.Note, &inv.GrantsAdmin, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying invite: %w", err)
	}
	return &inv, nil
}

// RedeemInvite creates the user and decrements the invite's remaining uses
// in one transaction; both succeed or both fail, so a crash can never leave
// an orphaned decrement.
func RedeemInvite(db *sql.DB, token, handle, displayName, passwordHash string) (*schemas.User, error) {
	inv, err := GetInvite(db, token)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	if inv.ExpiresAt <= now || inv.RemainingUses <= 0 {
		return nil, ErrInviteExhausted
	}

	roles := []string{}
	if inv.GrantsAdmin {
		roles = append(roles, "admin")
	}
	rolesJson, _ := json.Marshal(roles)

	user := &schemas.User{
		Id:           "u_" + uuid.New().String(),
		Handle:       handle,
		DisplayName:  displayName,
		Roles:        roles,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	tx, tErr := db.Begin()
	if tErr != nil {
		return nil, tErr
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO users (user_id, handle, display_name, roles_json, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.Id, user.Handle, user.DisplayName, string(rolesJson), user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrHandleTaken
		}
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	result, err := tx.Exec(
		"UPDATE invites SET remaining_uses = remaining_uses - 1 WHERE invite_token = ? AND remaining_uses > 0 AND expires_at > ?",
		token, now,
	)
	if err != nil {
		return nil, fmt.Errorf("error updating invite: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// lost a race with a concurrent redemption
		return nil, ErrInviteExhausted
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return user, nil
}
