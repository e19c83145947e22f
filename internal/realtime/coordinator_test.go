package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/localstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newLiveCoordinator(t *testing.T, opts ...Option) (*Coordinator, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore(logger.NewNopLogger())
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	c := NewCoordinator(store, local, logger.NewNopLogger(), opts...)
	return c, store
}

func student(id string) model.SessionUser {
	return model.SessionUser{ID: id, Role: model.RoleStudent, DisplayName: "Test Student"}
}

func TestAttachDeliversLiveChangesToRenderers(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	var views [][]model.Record
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		views = append(views, records)
	})

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{
		"studentId": "STU001",
		"amount":    20000.0,
		"status":    "pending",
	})
	assert.NoError(t, err)

	assert.Len(t, views, 1)
	assert.Len(t, views[0], 1)
	assert.Equal(t, "pending", views[0][0].String("status"))
}

func TestRoleFilterExcludesOtherStudents(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	renders := 0
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		renders++
	})

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{
		"studentId": "STU999",
		"amount":    5.0,
	})
	assert.NoError(t, err)

	assert.Equal(t, 0, renders)
	assert.Empty(t, c.View(model.CollectionFees))
}

func TestAddedThenModifiedTwiceKeepsSingleEntry(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))
	ctx := context.Background()

	created, err := store.Create(ctx, model.CollectionFees, model.Record{"studentId": "STU001", "status": "pending"})
	assert.NoError(t, err)
	_, err = store.Update(ctx, model.CollectionFees, created.ID(), model.Record{"status": "processing"})
	assert.NoError(t, err)
	_, err = store.Update(ctx, model.CollectionFees, created.ID(), model.Record{"status": "paid"})
	assert.NoError(t, err)

	view := c.View(model.CollectionFees)
	assert.Len(t, view, 1)
	assert.Equal(t, "paid", view[0].String("status"))
}

func TestRemovedAfterAddedLeavesNoEntry(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))
	ctx := context.Background()

	created, err := store.Create(ctx, model.CollectionFees, model.Record{"studentId": "STU001"})
	assert.NoError(t, err)
	assert.Len(t, c.View(model.CollectionFees), 1)

	assert.NoError(t, store.Delete(ctx, model.CollectionFees, created.ID()))
	assert.Empty(t, c.View(model.CollectionFees))
}

func TestNotAttachedCollectionStaysSilent(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	renders := 0
	c.OnRender(model.CollectionAttendance, func(records []model.Record) {
		renders++
	})

	// Students do not subscribe to attendance.
	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	_, err := store.Create(context.Background(), model.CollectionAttendance, model.Record{"studentId": "STU001"})
	assert.NoError(t, err)

	assert.Equal(t, 0, renders)
	assert.Empty(t, c.View(model.CollectionAttendance))
}

func TestDetachStopsDeliveryImmediately(t *testing.T) {
	c, store := newLiveCoordinator(t)

	renders := 0
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		renders++
	})

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))
	c.DetachAll()
	c.DetachAll() // idempotent

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{"studentId": "STU001"})
	assert.NoError(t, err)

	assert.Equal(t, 0, renders)
}

func TestDetachDuringRenderSkipsRemainingCallbacks(t *testing.T) {
	c, store := newLiveCoordinator(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		close(entered)
		<-release
	})
	laterRan := false
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		laterRan = true
	})

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := store.Create(context.Background(), model.CollectionFees, model.Record{"studentId": "STU001"})
		assert.NoError(t, err)
	}()

	// Detach while the first callback holds the fan-out open. Callbacks not
	// yet invoked must stay silent once DetachAll has returned.
	<-entered
	c.DetachAll()
	close(release)
	<-done

	assert.False(t, laterRan)
}

func TestFallbackDetachDuringRenderSkipsRemainingCallbacks(t *testing.T) {
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	c := NewCoordinator(nil, local, logger.NewNopLogger(), WithFallbackMode(time.Hour))
	assert.NoError(t, c.AttachForUser(ctx, student("STU001")))

	entered := make(chan struct{})
	release := make(chan struct{})
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		close(entered)
		<-release
	})
	laterRan := false
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		laterRan = true
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, local.Write(ctx, localstore.CollectionKey(model.CollectionFees), []model.Record{
			{"id": "F1", "studentId": "STU001"},
		}))
	}()

	<-entered
	c.DetachAll()
	close(release)
	<-done

	assert.False(t, laterRan)
}

func TestDoubleAttachFails(t *testing.T) {
	c, _ := newLiveCoordinator(t)
	defer c.DetachAll()

	user := student("STU001")
	assert.NoError(t, c.AttachForUser(context.Background(), user))
	assert.Error(t, c.AttachForUser(context.Background(), user))
}

func TestReattachAfterDetach(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	user := student("STU001")
	assert.NoError(t, c.AttachForUser(context.Background(), user))
	c.DetachAll()
	assert.NoError(t, c.AttachForUser(context.Background(), user))

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{"studentId": "STU001"})
	assert.NoError(t, err)
	assert.Len(t, c.View(model.CollectionFees), 1)
}

func TestMalformedChangeIsDroppedSnapshotSurvives(t *testing.T) {
	c, _ := newLiveCoordinator(t)
	defer c.DetachAll()

	sub := newSubscription(model.CollectionFees, docstore.Filters{})
	sub.activate(nil)

	c.handleSnapshot(sub, model.Snapshot{
		// Record without an id cannot be merged; only this event is dropped.
		{Type: model.ChangeAdded, Record: model.Record{"studentId": "STU001"}},
		{Type: model.ChangeAdded, Record: model.Record{"id": "F1", "studentId": "STU001", "amount": 7.0}},
	})

	view := c.View(model.CollectionFees)
	assert.Len(t, view, 1)
	assert.Equal(t, "F1", view[0].ID())
}

func TestInFlightSnapshotAfterDetachIsIgnored(t *testing.T) {
	c, _ := newLiveCoordinator(t)
	defer c.DetachAll()

	sub := newSubscription(model.CollectionFees, docstore.Filters{})
	sub.activate(nil)
	sub.Detach()

	// Simulates an event already queued when Detach landed.
	c.handleSnapshot(sub, model.Snapshot{
		{Type: model.ChangeAdded, Record: model.Record{"id": "F1"}},
	})

	assert.Empty(t, c.View(model.CollectionFees))
}

func TestInitialSeedFromExistingData(t *testing.T) {
	store := docstore.NewMemoryStore(logger.NewNopLogger())
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	_, err := store.Create(ctx, model.CollectionFees, model.Record{"studentId": "STU001", "amount": 1.0})
	assert.NoError(t, err)

	c := NewCoordinator(store, local, logger.NewNopLogger())
	defer c.DetachAll()

	var views [][]model.Record
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		views = append(views, records)
	})

	assert.NoError(t, c.AttachForUser(ctx, student("STU001")))

	assert.NotEmpty(t, views)
	assert.Len(t, c.View(model.CollectionFees), 1)
}

func TestNilStoreForcesFallbackMode(t *testing.T) {
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	c := NewCoordinator(nil, local, logger.NewNopLogger())
	assert.Equal(t, ModeFallback, c.Mode())
}

func TestFallbackReloadsOnStorageSignal(t *testing.T) {
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	// Pre-populate the local store before attach.
	assert.NoError(t, local.Write(ctx, localstore.CollectionKey(model.CollectionFees), []model.Record{
		{"id": "F1", "studentId": "STU001", "createdAt": "2026-08-01T10:00:00Z"},
		{"id": "F2", "studentId": "STU999", "createdAt": "2026-08-02T10:00:00Z"},
	}))

	c := NewCoordinator(nil, local, logger.NewNopLogger(), WithFallbackMode(time.Hour))
	defer c.DetachAll()

	assert.NoError(t, c.AttachForUser(ctx, student("STU001")))

	// Initial read applied the role filter.
	view := c.View(model.CollectionFees)
	assert.Len(t, view, 1)
	assert.Equal(t, "F1", view[0].ID())

	// A write from another tab fires the storage signal; the cache is fully
	// replaced from the new value.
	assert.NoError(t, local.Write(ctx, localstore.CollectionKey(model.CollectionFees), []model.Record{
		{"id": "F1", "studentId": "STU001", "status": "paid", "createdAt": "2026-08-01T10:00:00Z"},
		{"id": "F3", "studentId": "STU001", "createdAt": "2026-08-03T10:00:00Z"},
	}))

	view = c.View(model.CollectionFees)
	assert.Len(t, view, 2)
	// Most recent first by createdAt.
	assert.Equal(t, "F3", view[0].ID())
	assert.Equal(t, "paid", view[1].String("status"))
}

func TestFallbackIgnoresUnrelatedSignals(t *testing.T) {
	local := localstore.NewMemoryStore(logger.NewNopLogger())
	ctx := context.Background()

	c := NewCoordinator(nil, local, logger.NewNopLogger(), WithFallbackMode(time.Hour))
	defer c.DetachAll()

	assert.NoError(t, c.AttachForUser(ctx, student("STU001")))

	// Attendance is not in the student plan; its signal must not create a cache.
	assert.NoError(t, local.Write(ctx, localstore.CollectionKey(model.CollectionAttendance), []model.Record{
		{"id": "AT1", "studentId": "STU001"},
	}))

	assert.Empty(t, c.View(model.CollectionAttendance))
}

func TestPanickingRendererDoesNotBlockOthers(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	survived := false
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		panic("widget exploded")
	})
	c.OnRender(model.CollectionFees, func(records []model.Record) {
		survived = true
	})

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{"studentId": "STU001"})
	assert.NoError(t, err)

	assert.True(t, survived)
}

func TestViewReturnsClones(t *testing.T) {
	c, store := newLiveCoordinator(t)
	defer c.DetachAll()

	assert.NoError(t, c.AttachForUser(context.Background(), student("STU001")))

	_, err := store.Create(context.Background(), model.CollectionFees, model.Record{"studentId": "STU001", "status": "pending"})
	assert.NoError(t, err)

	view := c.View(model.CollectionFees)
	view[0]["status"] = "mutated"

	fresh := c.View(model.CollectionFees)
	assert.Equal(t, "pending", fresh[0].String("status"))
}
