package docstore

import (
	"context"
	"testing"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())

	record, err := store.Create(context.Background(), model.CollectionFees, model.Record{
		"studentId": "STU001",
		"amount":    20000.0,
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, record.ID())
	assert.NotEmpty(t, record.String("createdAt"))
	assert.NotEmpty(t, record.String("updatedAt"))
	assert.False(t, record.Time("createdAt").IsZero())
}

func TestGetMissingReturnsNilNotError(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())

	record, err := store.Get(context.Background(), model.CollectionFees, "nope")

	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestUpdateMergesAndProtectsIdentity(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	created, err := store.Create(ctx, model.CollectionFees, model.Record{"status": "pending", "amount": 100.0})
	assert.NoError(t, err)

	updated, err := store.Update(ctx, model.CollectionFees, created.ID(), model.Record{
		"status":    "paid",
		"id":        "hijacked",
		"createdAt": "hijacked",
	})
	assert.NoError(t, err)
	assert.Equal(t, created.ID(), updated.ID())
	assert.Equal(t, created.String("createdAt"), updated.String("createdAt"))
	assert.Equal(t, "paid", updated.String("status"))
	assert.Equal(t, 100.0, updated["amount"])
}

func TestQueryFiltersOrdersAndLimits(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	_, err := store.Create(ctx, model.CollectionMessages, model.Record{"recipientId": "STU001", "sentAt": "2026-08-01T10:00:00Z"})
	assert.NoError(t, err)
	_, err = store.Create(ctx, model.CollectionMessages, model.Record{"recipientId": "STU001", "sentAt": "2026-08-02T10:00:00Z"})
	assert.NoError(t, err)
	_, err = store.Create(ctx, model.CollectionMessages, model.Record{"recipientId": "STU002", "sentAt": "2026-08-03T10:00:00Z"})
	assert.NoError(t, err)

	records, err := store.Query(ctx, model.CollectionMessages, Filters{"recipientId": "STU001"}, QueryOptions{Desc: true})
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	// Default order field for messages is sentAt, newest first.
	assert.Equal(t, "2026-08-02T10:00:00Z", records[0].String("sentAt"))

	limited, err := store.Query(ctx, model.CollectionMessages, Filters{}, QueryOptions{Desc: true, Limit: 1})
	assert.NoError(t, err)
	assert.Len(t, limited, 1)
	assert.Equal(t, "STU002", limited[0].String("recipientId"))
}

func TestFiltersMatchLoosely(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		record  model.Record
		want    bool
	}{
		{
			name:    "exact string match",
			filters: Filters{"studentId": "STU001"},
			record:  model.Record{"studentId": "STU001"},
			want:    true,
		},
		{
			name:    "number survives json round trip",
			filters: Filters{"semester": 1},
			record:  model.Record{"semester": 1.0},
			want:    true,
		},
		{
			name:    "missing field",
			filters: Filters{"studentId": "STU001"},
			record:  model.Record{"class": "12A"},
			want:    false,
		},
		{
			name:    "all filters must match",
			filters: Filters{"studentId": "STU001", "status": "pending"},
			record:  model.Record{"studentId": "STU001", "status": "paid"},
			want:    false,
		},
		{
			name:    "empty filters match everything",
			filters: Filters{},
			record:  model.Record{"anything": "goes"},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(tt.record))
		})
	}
}

func TestSubscribeDeliversMatchingChanges(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	var snapshots []model.Snapshot
	handle, err := store.Subscribe(model.CollectionFees, Filters{"studentId": "STU001"}, func(s model.Snapshot) {
		snapshots = append(snapshots, s)
	})
	assert.NoError(t, err)
	defer handle.Unsubscribe()

	_, err = store.Create(ctx, model.CollectionFees, model.Record{"studentId": "STU001", "amount": 1.0})
	assert.NoError(t, err)
	_, err = store.Create(ctx, model.CollectionFees, model.Record{"studentId": "STU999", "amount": 2.0})
	assert.NoError(t, err)

	assert.Len(t, snapshots, 1)
	assert.Equal(t, model.ChangeAdded, snapshots[0][0].Type)
	assert.Equal(t, "STU001", snapshots[0][0].Record.String("studentId"))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	deliveries := 0
	handle, err := store.Subscribe(model.CollectionFees, Filters{}, func(s model.Snapshot) {
		deliveries++
	})
	assert.NoError(t, err)

	_, err = store.Create(ctx, model.CollectionFees, model.Record{"amount": 1.0})
	assert.NoError(t, err)

	handle.Unsubscribe()
	handle.Unsubscribe() // idempotent

	_, err = store.Create(ctx, model.CollectionFees, model.Record{"amount": 2.0})
	assert.NoError(t, err)

	assert.Equal(t, 1, deliveries)
}

func TestDeleteDispatchesRemoved(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	created, err := store.Create(ctx, model.CollectionFees, model.Record{"amount": 1.0})
	assert.NoError(t, err)

	var changes []model.Change
	_, err = store.Subscribe(model.CollectionFees, Filters{}, func(s model.Snapshot) {
		changes = append(changes, s...)
	})
	assert.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, model.CollectionFees, created.ID()))
	// Deleting again is silent.
	assert.NoError(t, store.Delete(ctx, model.CollectionFees, created.ID()))

	assert.Len(t, changes, 1)
	assert.Equal(t, model.ChangeRemoved, changes[0].Type)
	assert.Equal(t, created.ID(), changes[0].Record.ID())
}

func TestRetryableErrorWrapping(t *testing.T) {
	base := assert.AnError
	wrapped := &RetryableError{Err: base}

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(base))
	assert.ErrorIs(t, wrapped, base)
}
