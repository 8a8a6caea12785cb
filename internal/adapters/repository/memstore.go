package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/metrics"
)

// Defaults for MemoryStore.
const (
	DefaultRetention             = 3
	defaultMetricsUpdateInterval = 5 * time.Second
)

type key struct {
	scoring model.ScoringSystem
	version uint64
}

// latestIndex is replaced wholesale on publish so readers never lock.
type latestIndex map[model.ScoringSystem]*Snapshot

// MemoryStore is an in-memory Store. Writes take a mutex; Latest reads an
// atomically published index.
type MemoryStore struct {
	mu        sync.RWMutex
	byKey     map[key]*Snapshot
	retention int
	latest    atomic.Pointer[latestIndex]

	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	stopOnce              sync.Once
}

// NewMemoryStore creates a store and starts its metrics updater, which runs
// until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byKey:                 make(map[key]*Snapshot),
		retention:             DefaultRetention,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	empty := latestIndex{}
	s.latest.Store(&empty)
	go s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, snap *Snapshot) error {
	if snap == nil || snap.Scoring == "" {
		metrics.RecordErrorByComponent("repository", "invalid_snapshot")
		return fmt.Errorf("%w: missing scoring system", ErrInvalidSnapshot)
	}
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[key{snap.Scoring, snap.Version}] = snap
	s.prune(snap.Scoring)

	cur := *s.latest.Load()
	if prev, ok := cur[snap.Scoring]; ok && prev.Version > snap.Version {
		return nil
	}
	next := make(latestIndex, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[snap.Scoring] = snap
	s.latest.Store(&next)
	return nil
}

// prune drops all but the newest retention versions of scoring. Caller holds mu.
func (s *MemoryStore) prune(scoring model.ScoringSystem) {
	var versions []uint64
	for k := range s.byKey {
		if k.scoring == scoring {
			versions = append(versions, k.version)
		}
	}
	if len(versions) <= s.retention {
		return
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })
	for _, v := range versions[s.retention:] {
		delete(s.byKey, key{scoring, v})
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, scoring model.ScoringSystem, version uint64) (*Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.byKey[key{scoring, version}]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, scoring, version)
	}
	return snap, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(ctx context.Context, scoring model.ScoringSystem) (*Snapshot, error) {
	if snap, ok := (*s.latest.Load())[scoring]; ok {
		return snap, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, scoring)
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			metrics.UpdateSnapshotCount(s.Count(ctx))
		}
	}
}
