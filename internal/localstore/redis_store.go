package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore backs the key-value contract with Redis and publishes the
// storage signal on a shared pub/sub channel. Each instance tags its writes
// with an origin id so Watch never echoes a tab's own writes back to it,
// matching how browser storage events only fire in other tabs.
type RedisStore struct {
	rdb      *redis.Client
	originID string
	logger   logger.ILogger
}

type signalEnvelope struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Raw    string `json:"raw"`
}

func NewRedisStore(url string, log logger.ILogger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RedisStore{
		rdb:      redis.NewClient(opts),
		originID: uuid.NewString(),
		logger:   log,
	}, nil
}

func (s *RedisStore) Read(ctx context.Context, key string) ([]model.Record, error) {
	raw, found, err := s.ReadRaw(ctx, key)
	if err != nil || !found {
		return []model.Record{}, err
	}
	var records []model.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("LocalStore", "Discarding corrupt value", map[string]interface{}{"key": key, "error": err.Error()})
		return []model.Record{}, nil
	}
	return records, nil
}

func (s *RedisStore) Write(ctx context.Context, key string, records []model.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", key, err)
	}
	return s.WriteRaw(ctx, key, string(data))
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	s.publish(ctx, Signal{Key: key})
	return nil
}

func (s *RedisStore) Append(ctx context.Context, key string, record model.Record) error {
	records, err := s.Read(ctx, key)
	if err != nil {
		return err
	}
	return s.Write(ctx, key, append(records, record))
}

func (s *RedisStore) ReadRaw(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		// Transient I/O failure: fail soft for reads, callers see empty.
		s.logger.Warn("LocalStore", "Read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return "", false, nil
	}
	return raw, true, nil
}

func (s *RedisStore) WriteRaw(ctx context.Context, key, raw string) error {
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.publish(ctx, Signal{Key: key, Raw: raw})
	return nil
}

func (s *RedisStore) publish(ctx context.Context, sig Signal) {
	payload, _ := json.Marshal(signalEnvelope{Origin: s.originID, Key: sig.Key, Raw: sig.Raw})
	if err := s.rdb.Publish(ctx, SignalChannel, payload).Err(); err != nil {
		s.logger.Warn("LocalStore", "Storage signal publish failed", map[string]interface{}{"key": sig.Key, "error": err.Error()})
	}
}

// Watch subscribes to the storage channel. The subscription runs until the
// returned cancel function is called.
func (s *RedisStore) Watch(fn func(Signal)) func() {
	pubsub := s.rdb.Subscribe(context.Background(), SignalChannel)
	ch := pubsub.Channel()

	go func() {
		for msg := range ch {
			var env signalEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				s.logger.Warn("LocalStore", "Malformed storage signal", map[string]interface{}{"error": err.Error()})
				continue
			}
			if env.Origin == s.originID {
				continue
			}
			fn(Signal{Key: env.Key, Raw: env.Raw})
		}
	}()

	return func() {
		_ = pubsub.Close()
	}
}
