package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

const redisKeyPrefix = "customplacedb:"

// Redis is a Store backed by a single redis instance. Values live in
// plain string keys; Watch rides on pub/sub, so every Set publishes the
// new value to a per-key channel and all connected views pick it up.
type Redis struct {
	client *redis.Client
}

func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client}, nil
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return err
	}
	return s.client.Publish(ctx, channelFor(key), value).Err()
}

func (s *Redis) Watch(ctx context.Context, key string) (<-chan []byte, error) {
	sub := s.client.Subscribe(ctx, channelFor(key))

	// Force the subscription before returning so callers never miss a
	// Set that happens right after Watch.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan []byte, 16)
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
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Redis) Close() error {
	if err := s.client.Close(); err != nil {
		logger.Log.Debug().Err(err).Msg("redis store close error")
		return err
	}
	return nil
}

func channelFor(key string) string {
	return redisKeyPrefix + "changes:" + key
}
