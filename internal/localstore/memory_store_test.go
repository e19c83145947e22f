package localstore

import (
	"context"
	"testing"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestReadMissingKeyFailsSoft(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())

	records, err := store.Read(context.Background(), CollectionKey(model.CollectionFees))

	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCorruptValueFailsSoft(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	key := CollectionKey(model.CollectionFees)

	assert.NoError(t, store.WriteRaw(context.Background(), key, "{not json"))

	records, err := store.Read(context.Background(), key)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	key := CollectionKey(model.CollectionMessages)

	in := []model.Record{
		{"id": "MSG001", "body": "hello"},
		{"id": "MSG002", "body": "world"},
	}
	assert.NoError(t, store.Write(context.Background(), key, in))

	out, err := store.Read(context.Background(), key)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "MSG001", out[0].ID())
}

func TestAppendAccumulates(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	key := CollectionKey(model.CollectionAnnouncements)
	ctx := context.Background()

	assert.NoError(t, store.Append(ctx, key, model.Record{"id": "A1"}))
	assert.NoError(t, store.Append(ctx, key, model.Record{"id": "A2"}))

	out, err := store.Read(ctx, key)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWatchReceivesSignalForEveryWrite(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	key := CollectionKey(model.CollectionFees)

	var got []Signal
	cancel := store.Watch(func(sig Signal) {
		got = append(got, sig)
	})
	defer cancel()

	assert.NoError(t, store.WriteRaw(context.Background(), key, `[{"id":"F1"}]`))

	assert.Len(t, got, 1)
	assert.Equal(t, key, got[0].Key)
	assert.Equal(t, `[{"id":"F1"}]`, got[0].Raw)
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())

	calls := 0
	cancel := store.Watch(func(sig Signal) {
		calls++
	})

	assert.NoError(t, store.WriteRaw(context.Background(), "k", "v"))
	cancel()
	cancel() // double cancel is safe
	assert.NoError(t, store.WriteRaw(context.Background(), "k", "v2"))

	assert.Equal(t, 1, calls)
}

func TestRemoveSignalsWatchers(t *testing.T) {
	store := NewMemoryStore(logger.NewNopLogger())
	key := KeyNotifications

	var got []Signal
	cancel := store.Watch(func(sig Signal) {
		got = append(got, sig)
	})
	defer cancel()

	assert.NoError(t, store.WriteRaw(context.Background(), key, "[]"))
	assert.NoError(t, store.Remove(context.Background(), key))

	assert.Len(t, got, 2)
	assert.Equal(t, key, got[1].Key)
	assert.Equal(t, "", got[1].Raw)

	_, found, err := store.ReadRaw(context.Background(), key)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		collection string
		want       string
	}{
		{model.CollectionFees, "campus_connect_fees"},
		{model.CollectionAssignmentSubmissions, "campus_connect_assignment_submissions"},
		{model.CollectionNotifications, "campus_connect_notifications"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CollectionKey(tt.collection))
	}
}
