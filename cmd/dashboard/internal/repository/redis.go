package repository

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "frame:"
	channelPrefix = "frames."

	// Snapshots outlive restarts long enough for the first refresh to replace them.
	snapshotTTL = 24 * time.Hour
)

// Compile-time check to ensure RedisStore implements FrameStore
var _ FrameStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
}

// NewRedisStore subscribes to the frame channel of every section up front.
func NewRedisStore(client *redis.Client, sections []string) *RedisStore {
	channels := make([]string, len(sections))
	for i, s := range sections {
		channels[i] = channelPrefix + s
	}
	return &RedisStore{
		client: client,
		pubsub: client.Subscribe(context.Background(), channels...),
	}
}

// GetSnapshots fetches the latest frame for a list of sections (MGET)
func (r *RedisStore) GetSnapshots(ctx context.Context, sections []string) ([]string, error) {
	if len(sections) == 0 {
		return nil, nil
	}

	keys := make([]string, len(sections))
	for i, s := range sections {
		keys[i] = keyPrefix + s
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

// PublishFrame stores the frame as the section snapshot and publishes it in
// one pipeline so late subscribers never see an older snapshot than the feed.
func (r *RedisStore) PublishFrame(ctx context.Context, section string, payload []byte) error {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, keyPrefix+section, payload, snapshotTTL)
	pipe.Publish(ctx, channelPrefix+section, payload)
	_, err := pipe.Exec(ctx)
	return err
}

// RunPubSub is a blocking loop that reads frames from Redis and triggers the
// callback with the section name. It returns when ctx is done or the
// subscription is closed.
func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(section string, payload string)) {
	ch := r.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			section, found := strings.CutPrefix(msg.Channel, channelPrefix)
			if !found || section == "" {
				continue
			}
			onMessage(section, msg.Payload)
		}
	}
}

func (r *RedisStore) Close() error {
	return r.pubsub.Close()
}
