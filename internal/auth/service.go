// Package auth issues and validates session tokens, authenticates sign-in,
// and redeems invites.
package auth

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/hubchat/server/internal/crypto"
	"github.com/hubchat/server/internal/dal"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
	"github.com/hubchat/server/internal/validation"
)

const (
	DefaultInviteTTL     = 24 * time.Hour
	DefaultInviteMaxUses = 1
)

type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// SignIn authenticates handle/password and mints a fresh session. A missing
// account and a wrong password are indistinguishable to the client.
func (s *Service) SignIn(handle, password string) (*schemas.User, *schemas.Session, error) {
	user, err := dal.GetUserByHandle(s.db, handle)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, nil, protocol.Failf(protocol.CodeInvalidCredentials, "invalid handle or password")
		}
		return nil, nil, err
	}
	if crypto.CompareHashAndPassword(user.PasswordHash, password) != nil {
		return nil, nil, protocol.Failf(protocol.CodeInvalidCredentials, "invalid handle or password")
	}

	session, err := s.newSession(user.Id)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("auth.signin", "user_id", user.Id, "handle", user.Handle)
	return user, session, nil
}

// RedeemInvite creates an account from an invite and signs it in. The user
// insert and the remaining-uses decrement commit together.
func (s *Service) RedeemInvite(token, handle, displayName, password string) (*schemas.User, *schemas.Session, error) {
	if displayName == "" {
		displayName = handle
	}
	if err := validation.CheckRegistration(handle, displayName, password); err != nil {
		return nil, nil, protocol.Failf(protocol.CodeValidation, "%s", err.Error())
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user, err := dal.RedeemInvite(s.db, token, handle, displayName, hashed)
	if err != nil {
		switch {
		case errors.Is(err, dal.ErrNotFound):
			return nil, nil, protocol.Failf(protocol.CodeInvalidInvite, "unknown invite token")
		case errors.Is(err, dal.ErrInviteExhausted):
			return nil, nil, protocol.Failf(protocol.CodeInviteExhausted, "invite expired or has no uses left")
		case errors.Is(err, dal.ErrHandleTaken):
			return nil, nil, protocol.Failf(protocol.CodeHandleTaken, "handle %q is taken", handle)
		}
		return nil, nil, err
	}

	session, err := s.newSession(user.Id)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("auth.invite_redeem", "user_id", user.Id, "handle", user.Handle, "invite", token)
	return user, session, nil
}

// Resume maps a previously issued session token back to its user so a
// reconnecting client skips credentials.
func (s *Service) Resume(token string) (*schemas.User, error) {
	user, err := dal.GetSessionUser(s.db, token)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeInvalidSession, "unknown session token")
		}
		return nil, err
	}
	return user, nil
}

// CreateInvite mints an invite. Role enforcement happens in the dispatcher;
// the CLI calls this directly during bootstrap with a synthetic creator.
func (s *Service) CreateInvite(creatorUserId string, ttl time.Duration, maxUses int, note string, grantsAdmin bool) (*schemas.Invite, error) {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	if maxUses <= 0 {
		maxUses = DefaultInviteMaxUses
	}
	now := time.Now()
	inv := &schemas.Invite{
		Token:           crypto.NewInviteToken(),
		CreatedByUserId: creatorUserId,
		MaxUses:         maxUses,
		RemainingUses:   maxUses,
		ExpiresAt:       now.Add(ttl).UnixMilli(),
		Note:            note,
		GrantsAdmin:     grantsAdmin,
		CreatedAt:       now.UnixMilli(),
	}
	if err := dal.AddInvite(s.db, inv); err != nil {
		return nil, err
	}
	s.logger.Info("auth.invite_create", "invite", inv.Token, "creator", creatorUserId, "max_uses", maxUses)
	return inv, nil
}

func (s *Service) newSession(userId string) (*schemas.Session, error) {
	session := &schemas.Session{
		Token:     crypto.NewSessionToken(),
		UserId:    userId,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := dal.AddSession(s.db, session); err != nil {
		return nil, err
	}
	return session, nil
}
