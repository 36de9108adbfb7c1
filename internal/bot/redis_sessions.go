package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"subscription-bot/internal/models"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "subscription-bot:session:"

// RedisSessionStore keeps sessions in Redis so a conversation survives a redeploy.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionStore connects using a redis:// URL and verifies the connection.
func NewRedisSessionStore(redisURL string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &RedisSessionStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(telegramID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, telegramID)
}

func (s *RedisSessionStore) Get(ctx context.Context, telegramID int64) (models.Session, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(telegramID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Session{}, false, nil
	}
	if err != nil {
		return models.Session{}, false, fmt.Errorf("failed to load session %d: %w", telegramID, err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, false, fmt.Errorf("failed to decode session %d: %w", telegramID, err)
	}
	return session, true, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session models.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %d: %w", session.TelegramID, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.TelegramID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %d: %w", session.TelegramID, err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, telegramID int64) error {
	if err := s.rdb.Del(ctx, sessionKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", telegramID, err)
	}
	return nil
}

func (s *RedisSessionStore) Close() error {
	return s.rdb.Close()
}
