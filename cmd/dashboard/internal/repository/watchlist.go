package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ ListStore = (*RedisListStore)(nil)

// RedisListStore keeps the watchlist as one JSON array under a single key.
type RedisListStore struct {
	client   *redis.Client
	key      string
	defaults []string
	logger   *zap.Logger
}

func NewRedisListStore(client *redis.Client, key string, defaults []string, logger *zap.Logger) *RedisListStore {
	return &RedisListStore{
		client:   client,
		key:      key,
		defaults: append([]string(nil), defaults...),
		logger:   logger,
	}
}

// Load returns the stored watchlist. A missing key, a Redis error and a value
// that is not a JSON array of strings all fall back to the defaults. A stored
// empty array is returned as is.
func (s *RedisListStore) Load(ctx context.Context) []string {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.Defaults()
	}
	if err != nil {
		s.logger.Warn("Watchlist load failed, using defaults", zap.String("key", s.key), zap.Error(err))
		return s.Defaults()
	}

	var symbols []string
	if err := json.Unmarshal(raw, &symbols); err != nil || symbols == nil {
		s.logger.Warn("Malformed stored watchlist, using defaults", zap.String("key", s.key), zap.ByteString("value", raw))
		return s.Defaults()
	}
	return symbols
}

// Save overwrites the stored watchlist. No retries.
func (s *RedisListStore) Save(ctx context.Context, symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}
	payload, err := json.Marshal(symbols)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, 0).Err()
}

// Defaults returns a copy of the built-in watchlist.
func (s *RedisListStore) Defaults() []string {
	return append([]string(nil), s.defaults...)
}
