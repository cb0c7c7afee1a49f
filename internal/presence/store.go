// Package presence records which admins currently hold a live notification
// session, so the back office can show who is online. State lives in Redis
// with a TTL; a crashed session ages out on its own.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	prefix string
}

type sessionMeta struct {
	SessionID   string `json:"session_id"`
	ConnectedAt int64  `json:"connected_at"`
}

func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) sessionsKey(adminID string) string {
	return fmt.Sprintf("%s:sessions:%s", s.prefix, adminID)
}

func (s *Store) onlineKey() string {
	return fmt.Sprintf("%s:online", s.prefix)
}

// AddSession registers a live session for an admin and marks them online.
func (s *Store) AddSession(ctx context.Context, adminID, sessionID string, ttl time.Duration) error {
	meta, _ := json.Marshal(sessionMeta{SessionID: sessionID, ConnectedAt: time.Now().Unix()})
	key := s.sessionsKey(adminID)
	if err := s.client.SAdd(ctx, key, meta).Err(); err != nil {
		return err
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return err
	}
	return s.client.SAdd(ctx, s.onlineKey(), adminID).Err()
}

// RemoveSession drops one session; the admin goes offline when their last
// session disconnects.
func (s *Store) RemoveSession(ctx context.Context, adminID, sessionID string) error {
	key := s.sessionsKey(adminID)
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		var meta sessionMeta
		if json.Unmarshal([]byte(m), &meta) == nil && meta.SessionID == sessionID {
			if err := s.client.SRem(ctx, key, m).Err(); err != nil {
				return err
			}
		}
	}
	remaining, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining == 0 {
		return s.client.SRem(ctx, s.onlineKey(), adminID).Err()
	}
	return nil
}

// OnlineAdmins lists admins with at least one live session.
func (s *Store) OnlineAdmins(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.onlineKey()).Result()
}
