package realtime

import (
	"fmt"
	"sort"
	"time"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/model"
)

type cacheEntry struct {
	record      model.Record
	lastUpdated time.Time
}

// collectionCache is the coordinator-owned materialized view of one
// collection. Only the coordinator writes it; widgets read through View.
type collectionCache struct {
	collection string
	entries    map[string]cacheEntry
}

func newCollectionCache(collection string) *collectionCache {
	return &collectionCache{
		collection: collection,
		entries:    make(map[string]cacheEntry),
	}
}

// apply merges one change. Added/Modified upsert by id (last event wins on
// conflicting fields), Removed deletes. Replaying the same change is a
// no-op on the resulting view.
func (c *collectionCache) apply(change model.Change) error {
	id := change.Record.ID()
	if id == "" {
		return fmt.Errorf("change without entity id in %s", c.collection)
	}

	switch change.Type {
	case model.ChangeAdded, model.ChangeModified:
		c.entries[id] = cacheEntry{record: change.Record.Clone(), lastUpdated: time.Now()}
	case model.ChangeRemoved:
		delete(c.entries, id)
	default:
		return fmt.Errorf("unknown change type %q in %s", change.Type, c.collection)
	}
	return nil
}

// replaceAll swaps the whole cache content. Fallback mode only ever does
// full replaces, never incremental diffs.
func (c *collectionCache) replaceAll(records []model.Record) {
	c.entries = make(map[string]cacheEntry, len(records))
	now := time.Now()
	for _, r := range records {
		if r.ID() == "" {
			continue
		}
		c.entries[r.ID()] = cacheEntry{record: r.Clone(), lastUpdated: now}
	}
}

// view returns the full sorted content, most-recent-first by the
// collection's natural timestamp field. Records are cloned on the way out.
func (c *collectionCache) view() []model.Record {
	field := model.OrderField(c.collection)
	out := make([]model.Record, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.record.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Time(field), out[j].Time(field)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		// Timestamps absent or equal: fall back to the raw field value,
		// then id, so the order stays deterministic.
		si := fmt.Sprintf("%v", out[i][field])
		sj := fmt.Sprintf("%v", out[j][field])
		if si != sj {
			return si > sj
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
