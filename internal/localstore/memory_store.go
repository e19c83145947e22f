package localstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in a go-cache instance and fans signals out to
// watchers in the same process. Used by tests and by offline sessions where
// no Redis is reachable.
type MemoryStore struct {
	cache  *cache.Cache
	logger logger.ILogger

	mu       sync.Mutex
	watchers map[int]func(Signal)
	nextID   int
}

func NewMemoryStore(log logger.ILogger) *MemoryStore {
	return &MemoryStore{
		cache:    cache.New(cache.NoExpiration, 0),
		logger:   log,
		watchers: make(map[int]func(Signal)),
	}
}

func (s *MemoryStore) Read(ctx context.Context, key string) ([]model.Record, error) {
	raw, found, _ := s.ReadRaw(ctx, key)
	if !found {
		return []model.Record{}, nil
	}
	var records []model.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("LocalStore", "Discarding corrupt value", map[string]interface{}{"key": key, "error": err.Error()})
		return []model.Record{}, nil
	}
	return records, nil
}

func (s *MemoryStore) Write(ctx context.Context, key string, records []model.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.WriteRaw(ctx, key, string(data))
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.cache.Delete(key)
	s.notify(Signal{Key: key})
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, key string, record model.Record) error {
	records, err := s.Read(ctx, key)
	if err != nil {
		return err
	}
	return s.Write(ctx, key, append(records, record))
}

func (s *MemoryStore) ReadRaw(ctx context.Context, key string) (string, bool, error) {
	if v, found := s.cache.Get(key); found {
		return v.(string), true, nil
	}
	return "", false, nil
}

func (s *MemoryStore) WriteRaw(ctx context.Context, key, raw string) error {
	s.cache.Set(key, raw, cache.NoExpiration)
	s.notify(Signal{Key: key, Raw: raw})
	return nil
}

func (s *MemoryStore) Watch(fn func(Signal)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.watchers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

func (s *MemoryStore) notify(sig Signal) {
	s.mu.Lock()
	fns := make([]func(Signal), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}
