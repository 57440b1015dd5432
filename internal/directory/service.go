// Package directory owns hubs, channels and memberships: CRUD, membership
// checks, and the cascade discipline on deletion. Broadcasting the derived
// events is the dispatcher's job.
package directory

import (
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hubchat/server/internal/dal"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
)

type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) ListHubs() ([]schemas.Hub, error) {
	return dal.ListHubs(s.db)
}

func (s *Service) CreateHub(creatorUserId, name, description, visibility string) (*schemas.Hub, error) {
	if name == "" {
		return nil, protocol.Failf(protocol.CodeValidation, "hub name is required")
	}
	if visibility == "" {
		visibility = "public"
	}
	hub := &schemas.Hub{
		Id:              "h_" + uuid.New().String(),
		Name:            name,
		Description:     description,
		Visibility:      visibility,
		CreatedByUserId: creatorUserId,
		CreatedAt:       time.Now().UnixMilli(),
	}
	if err := dal.AddHub(s.db, hub); err != nil {
		return nil, err
	}
	s.logger.Info("hub.create", "hub_id", hub.Id, "name", hub.Name, "creator", creatorUserId)
	return hub, nil
}

func (s *Service) UpdateHub(id string, name, description *string) (*schemas.Hub, error) {
	hub, err := dal.UpdateHub(s.db, id, name, description)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "hub %s not found", id)
		}
		return nil, err
	}
	return hub, nil
}

// DeleteHub cascades to the hub's channels, their memberships, messages and
// search index. Returns the deleted channel ids so the caller can tear down
// live calls and subscriptions bound to them.
func (s *Service) DeleteHub(id string) ([]string, error) {
	channelIds, err := dal.DeleteHub(s.db, id)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "hub %s not found", id)
		}
		return nil, err
	}
	s.logger.Info("hub.delete", "hub_id", id, "channels", len(channelIds))
	return channelIds, nil
}

func (s *Service) ListChannels(userId string) ([]schemas.Channel, error) {
	return dal.ListChannelsForUser(s.db, userId)
}

func (s *Service) GetChannel(id string) (*schemas.Channel, error) {
	ch, err := dal.GetChannel(s.db, id)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "channel %s not found", id)
		}
		return nil, err
	}
	return ch, nil
}

func (s *Service) CreateChannel(hubId, kind, name, visibility string) (*schemas.Channel, error) {
	if name == "" {
		return nil, protocol.Failf(protocol.CodeValidation, "channel name is required")
	}
	if kind != "text" && kind != "voice" {
		return nil, protocol.Failf(protocol.CodeValidation, "channel kind must be text or voice")
	}
	if visibility == "" {
		visibility = "public"
	}
	if _, err := dal.GetHub(s.db, hubId); err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "hub %s not found", hubId)
		}
		return nil, err
	}
	ch := &schemas.Channel{
		Id:         "c_" + uuid.New().String(),
		HubId:      hubId,
		Kind:       kind,
		Name:       name,
		Visibility: visibility,
		CreatedAt:  time.Now().UnixMilli(),
	}
	if err := dal.AddChannel(s.db, ch); err != nil {
		return nil, err
	}
	s.logger.Info("channel.create", "channel_id", ch.Id, "hub_id", hubId, "name", name, "kind", kind)
	return ch, nil
}

func (s *Service) UpdateChannel(id string, name *string) (*schemas.Channel, error) {
	ch, err := dal.UpdateChannel(s.db, id, name)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "channel %s not found", id)
		}
		return nil, err
	}
	return ch, nil
}

func (s *Service) DeleteChannel(id string) error {
	if err := dal.DeleteChannel(s.db, id); err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return protocol.Failf(protocol.CodeNotFound, "channel %s not found", id)
		}
		return err
	}
	s.logger.Info("channel.delete", "channel_id", id)
	return nil
}

// Join adds the user to the channel. Idempotent; the bool reports whether
// the membership is new.
func (s *Service) Join(channelId, userId string) (bool, error) {
	if _, err := s.GetChannel(channelId); err != nil {
		return false, err
	}
	return dal.AddMembership(s.db, channelId, userId, time.Now().UnixMilli())
}

// AddMember is the privileged variant: the acting user must already belong
// to the channel, the target must exist.
func (s *Service) AddMember(channelId, actorUserId, targetUserId string) (*schemas.Channel, error) {
	ch, err := s.GetChannel(channelId)
	if err != nil {
		return nil, err
	}
	actorIsMember, err := dal.IsMember(s.db, channelId, actorUserId)
	if err != nil {
		return nil, err
	}
	if !actorIsMember {
		return nil, protocol.NotAMember(channelId)
	}
	if _, err := dal.GetUserById(s.db, targetUserId); err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			return nil, protocol.Failf(protocol.CodeNotFound, "user %s not found", targetUserId)
		}
		return nil, err
	}
	if _, err := dal.AddMembership(s.db, channelId, targetUserId, time.Now().UnixMilli()); err != nil {
		return nil, err
	}
	s.logger.Info("channel.add_member", "channel_id", channelId, "actor", actorUserId, "target", targetUserId)
	return ch, nil
}

// IsMember is the authorization gate used by the message service and the
// call orchestrator.
func (s *Service) IsMember(channelId, userId string) (bool, error) {
	return dal.IsMember(s.db, channelId, userId)
}
