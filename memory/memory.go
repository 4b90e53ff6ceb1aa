// Package memory implements the timeline-aware MemoryStore and its vector
// extension (C4): records tagged present/past/future/session, with
// optional embedding-backed semantic search and cross-timeline pattern
// discovery.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/wyrmwatch/sentinel/store"
)

// Record is one entry in a MemoryStore: an opaque value tagged with a
// timeline and stamped with its insertion time.
type Record struct {
	Key         string
	Value       interface{}
	Timeline    string
	InsertedAt  time.Time
	LastUpdated time.Time
}

// Store is the timeline-aware memory store. It wraps a store.Store for
// durability but keeps its own index for timeline range queries, since
// store.Store's Record carries a free-form timeline tag but no query-by-
// window API.
type Store struct {
	mu      sync.RWMutex
	backend store.Store
	byKey   map[string]*Record
}

// New wraps backend with timeline-aware semantics. backend may be nil, in
// which case records live only in the in-process index.
func New(backend store.Store) *Store {
	return &Store{backend: backend, byKey: make(map[string]*Record)}
}

// Set stores value under key, tagged with timeline ("present", "past",
// "future", or a session-scoped tag). When a backend is configured, the
// value is also written to it as JSON.
func (s *Store) Set(ctx context.Context, key string, value interface{}, timeline string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if err := s.backend.Set(ctx, key, raw, timeline); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	rec, existed := s.byKey[key]
	if !existed {
		rec = &Record{Key: key, InsertedAt: now}
	}
	rec.Value = value
	rec.Timeline = timeline
	rec.LastUpdated = now
	s.byKey[key] = rec
	return nil
}

// Get returns the record stored under key, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byKey[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

// GetTimelineEntries returns every record tagged timeline, optionally
// restricted to the [startTime, endTime] insertion window. A nil bound is
// unrestricted on that side.
func (s *Store) GetTimelineEntries(timeline string, startTime, endTime *time.Time) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.byKey {
		if rec.Timeline != timeline {
			continue
		}
		if startTime != nil && rec.InsertedAt.Before(*startTime) {
			continue
		}
		if endTime != nil && rec.InsertedAt.After(*endTime) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InsertedAt.Before(out[j].InsertedAt) })
	return out
}
