package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "paysmall"

// RedisStore keeps entries as plain Redis strings and announces every write
// on a per-namespace pub/sub channel, so separate processes see each other's
// commits.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore parses url and verifies the server is reachable.
func NewRedisStore(ctx context.Context, url string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, logger), nil
}

// NewRedisStoreFromClient wraps an existing client. The store owns client.
func NewRedisStoreFromClient(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) dataKey(ns Namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, ns, key)
}

func (s *RedisStore) channel(ns Namespace) string {
	return fmt.Sprintf("%s:changes:%s", redisKeyPrefix, ns)
}

func (s *RedisStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.dataKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s/%s: %w", ns, key, err)
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	return s.PutAll(ctx, ns, Entry{Key: key, Value: value})
}

// PutAll writes the entries in one MULTI/EXEC block together with their
// change announcements.
func (s *RedisStore) PutAll(ctx context.Context, ns Namespace, entries ...Entry) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, s.dataKey(ns, e.Key), e.Value, 0)
		}
		for _, e := range entries {
			pipe.Publish(ctx, s.channel(ns), e.Key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %s: %w", ns, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, ns Namespace, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.dataKey(ns, key))
		pipe.Publish(ctx, s.channel(ns), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s/%s: %w", ns, key, err)
	}
	return nil
}

// Changes subscribes to the namespace channel until ctx is done.
func (s *RedisStore) Changes(ctx context.Context, ns Namespace) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, s.channel(ns))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel(ns), err)
	}

	out := make(chan string, changeBuffer)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
