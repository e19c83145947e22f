package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	pktnats "github.com/nitishgupta522/CampusConnect-sub000/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// documentRow stores one schemaless document per row. All collections share
// the table; the JSONB column carries the record itself.
type documentRow struct {
	ID         uint           `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_documents_collection_doc,priority:1"`
	DocID      string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_documents_collection_doc,priority:2"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time      `gorm:"default:CURRENT_TIMESTAMP"`
}

func (documentRow) TableName() string {
	return "documents"
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// GormStore is the Postgres-backed document store. Committed changes are
// relayed over NATS so subscriptions on every instance observe the same
// stream; without a relay, changes dispatch in-process only.
type GormStore struct {
	db     *gorm.DB
	relay  *pktnats.Publisher
	logger logger.ILogger

	mu        sync.RWMutex
	subs      map[int]*gormSub
	nextSubID int
}

type gormSub struct {
	collection string
	filters    Filters
	fn         SnapshotFunc
}

func NewGormStore(db *gorm.DB, relay *pktnats.Publisher, log logger.ILogger) *GormStore {
	return &GormStore{
		db:     db,
		relay:  relay,
		logger: log,
		subs:   make(map[int]*gormSub),
	}
}

// Migrate creates the documents table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

// AttachRelay starts consuming relayed changes and feeding local
// subscriptions from them. The durable name must be unique per instance.
func (s *GormStore) AttachRelay(sub *pktnats.Subscriber, durableName string) error {
	return sub.Subscribe("changes.>", durableName, func(ctx context.Context, collection string, change model.Change) error {
		s.DispatchChange(collection, change)
		return nil
	})
}

func (s *GormStore) Create(ctx context.Context, collection string, data model.Record) (model.Record, error) {
	record := data.Clone()
	if record.ID() == "" {
		record["id"] = uuid.NewString()
	}
	now := serverTimestamp()
	record["createdAt"] = now
	record["updatedAt"] = now

	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	row := documentRow{Collection: collection, DocID: record.ID(), Data: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, &RetryableError{Err: err}
	}

	s.emit(ctx, collection, model.Change{Type: model.ChangeAdded, Record: record})
	return record, nil
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (model.Record, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	return decodeRow(row)
}

func (s *GormStore) Update(ctx context.Context, collection, id string, updates model.Record) (model.Record, error) {
	current, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	for k, v := range updates {
		if k == "id" || k == "createdAt" {
			continue
		}
		current[k] = v
	}
	current["updatedAt"] = serverTimestamp()

	raw, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	err = s.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Update("data", datatypes.JSON(raw)).Error
	if err != nil {
		return nil, &RetryableError{Err: err}
	}

	s.emit(ctx, collection, model.Change{Type: model.ChangeModified, Record: current})
	return current, nil
}

func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	current, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}

	err = s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&documentRow{}).Error
	if err != nil {
		return &RetryableError{Err: err}
	}

	s.emit(ctx, collection, model.Change{Type: model.ChangeRemoved, Record: current})
	return nil
}

func (s *GormStore) Query(ctx context.Context, collection string, filters Filters, opts QueryOptions) ([]model.Record, error) {
	q := s.db.WithContext(ctx).Model(&documentRow{}).Where("collection = ?", collection)
	for field, value := range filters {
		if !fieldNamePattern.MatchString(field) {
			return nil, fmt.Errorf("invalid filter field %q", field)
		}
		q = q.Where(datatypes.JSONQuery("data").Equals(value, field))
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = model.OrderField(collection)
	}
	if !fieldNamePattern.MatchString(orderBy) {
		return nil, fmt.Errorf("invalid order field %q", orderBy)
	}
	direction := "ASC"
	if opts.Desc {
		direction = "DESC"
	}
	q = q.Order(fmt.Sprintf("data->>'%s' %s", orderBy, direction))

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, &RetryableError{Err: err}
	}

	records := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRow(row)
		if err != nil {
			// Malformed row: drop it at the boundary, keep the rest.
			s.logger.Warn("DocStore", "Skipping corrupt document", map[string]interface{}{
				"collection": row.Collection,
				"doc_id":     row.DocID,
				"error":      err.Error(),
			})
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *GormStore) Subscribe(collection string, filters Filters, fn SnapshotFunc) (*Handle, error) {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = &gormSub{collection: collection, filters: filters, fn: fn}
	s.mu.Unlock()

	return newHandle(func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}), nil
}

// DispatchChange feeds local subscriptions with a committed change. Called
// by the relay consumer, or directly after writes when no relay is attached.
func (s *GormStore) DispatchChange(collection string, change model.Change) {
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

func (s *GormStore) emit(ctx context.Context, collection string, change model.Change) {
	if s.relay != nil {
		if err := s.relay.PublishChange(ctx, collection, change); err != nil {
			s.logger.Error("DocStore", "Change relay publish failed, dispatching locally", map[string]interface{}{
				"collection": collection,
				"error":      err,
			})
			s.DispatchChange(collection, change)
		}
		return
	}
	s.DispatchChange(collection, change)
}

func decodeRow(row documentRow) (model.Record, error) {
	var record model.Record
	if err := json.Unmarshal(row.Data, &record); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", row.Collection, row.DocID, err)
	}
	return record, nil
}
