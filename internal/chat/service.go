// Package chat persists messages with gapless per-channel sequence numbers
// and answers history and full-text queries.
package chat

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/hubchat/server/internal/dal"
	"github.com/hubchat/server/internal/directory"
	"github.com/hubchat/server/internal/protocol"
	"github.com/hubchat/server/internal/schemas"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	MaxSearchLimit   = 50
	MaxMessageLen    = 4000
)

type Service struct {
	db     *sql.DB
	dir    *directory.Service
	logger *slog.Logger

	// one lock per channel so two concurrent sends to the same channel
	// can never draw the same sequence number, while sends to different
	// channels proceed without contention
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(db *sql.DB, dir *directory.Service, logger *slog.Logger) *Service {
	return &Service{db: db, dir: dir, logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (s *Service) channelLock(channelId string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channelId]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelId] = l
	}
	return l
}

// ForgetChannel drops the lock entry for a deleted channel.
func (s *Service) ForgetChannel(channelId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, channelId)
}

// Send persists a message for a member of the channel, assigning the next
// sequence number under the channel's lock.
func (s *Service) Send(channelId, userId, userHandle, clientMsgId, text string) (*schemas.Message, error) {
	if text == "" {
		return nil, protocol.Failf(protocol.CodeValidation, "empty message text")
	}
	if len(text) > MaxMessageLen {
		return nil, protocol.Failf(protocol.CodeValidation, "message too long")
	}
	member, err := s.dir.IsMember(channelId, userId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, protocol.NotAMember(channelId)
	}

	l := s.channelLock(channelId)
	l.Lock()
	defer l.Unlock()

	msg, err := dal.InsertMessage(s.db, channelId, userId, userHandle, clientMsgId, text, time.Now().UnixMilli())
	if err == dal.ErrNotFound {
		return nil, protocol.Failf(protocol.CodeNotFound, "channel %s not found", channelId)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// List returns messages after afterSeq in ascending sequence order.
// Requires membership.
func (s *Service) List(channelId, userId string, afterSeq int64, limit int) ([]schemas.Message, error) {
	member, err := s.dir.IsMember(channelId, userId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, protocol.NotAMember(channelId)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return dal.ListMessages(s.db, channelId, afterSeq, limit)
}

// Search runs a full-text query over a channel the user belongs to. The
// index trails in-flight sends by at most one commit; that is acceptable
// for a search path.
func (s *Service) Search(scope schemas.SearchScope, userId, q string, limit int) ([]schemas.SearchHit, error) {
	if scope.Kind != "channel" || scope.ChannelId == "" {
		return nil, protocol.Failf(protocol.CodeValidation, "search scope must name a channel")
	}
	if q == "" {
		return nil, protocol.Failf(protocol.CodeValidation, "empty query")
	}
	member, err := s.dir.IsMember(scope.ChannelId, userId)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, protocol.NotAMember(scope.ChannelId)
	}
	if limit <= 0 || limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	hits, err := dal.SearchMessages(s.db, scope.ChannelId, q, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search.query", "channel_id", scope.ChannelId, "q", q, "hits", len(hits))
	return hits, nil
}
