package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/google/uuid"
)

// MemoryStore is a deterministic in-process document store. Subscription
// snapshots are delivered synchronously on commit, which keeps test
// interleavings reproducible.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]model.Record
	subs        map[int]*memSub
	nextSubID   int
	logger      logger.ILogger
}

type memSub struct {
	collection string
	filters    Filters
	fn         SnapshotFunc
}

func NewMemoryStore(log logger.ILogger) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]model.Record),
		subs:        make(map[int]*memSub),
		logger:      log,
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data model.Record) (model.Record, error) {
	record := data.Clone()
	if record.ID() == "" {
		record["id"] = uuid.NewString()
	}
	now := serverTimestamp()
	record["createdAt"] = now
	record["updatedAt"] = now

	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]model.Record)
	}
	s.collections[collection][record.ID()] = record
	s.mu.Unlock()

	s.dispatch(collection, model.Change{Type: model.ChangeAdded, Record: record.Clone()})
	return record.Clone(), nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.collections[collection][id]; ok {
		return record.Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, updates model.Record) (model.Record, error) {
	s.mu.Lock()
	record, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	merged := record.Clone()
	for k, v := range updates {
		if k == "id" || k == "createdAt" {
			continue
		}
		merged[k] = v
	}
	merged["updatedAt"] = serverTimestamp()
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.dispatch(collection, model.Change{Type: model.ChangeModified, Record: merged.Clone()})
	return merged.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	record, ok := s.collections[collection][id]
	if ok {
		delete(s.collections[collection], id)
	}
	s.mu.Unlock()

	if ok {
		s.dispatch(collection, model.Change{Type: model.ChangeRemoved, Record: record.Clone()})
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters Filters, opts QueryOptions) ([]model.Record, error) {
	s.mu.RLock()
	records := make([]model.Record, 0)
	for _, record := range s.collections[collection] {
		if filters.Matches(record) {
			records = append(records, record.Clone())
		}
	}
	s.mu.RUnlock()

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = model.OrderField(collection)
	}
	sortRecords(records, orderBy, opts.Desc)

	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records, nil
}

func (s *MemoryStore) Subscribe(collection string, filters Filters, fn SnapshotFunc) (*Handle, error) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = &memSub{collection: collection, filters: filters, fn: fn}
	s.mu.Unlock()

	return newHandle(func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}), nil
}

func (s *MemoryStore) dispatch(collection string, change model.Change) {
	s.mu.RLock()
	var fns []SnapshotFunc
	for _, sub := range s.subs {
		if sub.collection == collection && sub.filters.Matches(change.Record) {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.RUnlock()

	snapshot := model.Snapshot{change}
	for _, fn := range fns {
		fn(snapshot)
	}
}

func serverTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
