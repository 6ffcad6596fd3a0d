package ecs

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SceneState tracks the scene lifecycle. Scenes move uninitialized →
// running → ended; the next level constructs a new Scene rather than
// re-beginning an ended one.
type SceneState int

const (
	SceneUninitialized SceneState = iota
	SceneRunning
	SceneEnded
)

func (s SceneState) String() string {
	switch s {
	case SceneRunning:
		return "running"
	case SceneEnded:
		return "ended"
	default:
		return "uninitialized"
	}
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

// SceneStats provides statistics about scene execution.
type SceneStats struct {
	State           SceneState
	EntityCount     int
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scene is the composition root: it owns the identifier pool, component
// storage, entity container, query system and snapshot manager, and drives
// registered systems across its begin/update/end lifecycle.
//
// Scenes are single-threaded by contract: Update is invoked once per
// external game-loop tick and is not re-entrant. The embedding application
// must not call Scene or pool operations from multiple goroutines; Update
// panics when it detects overlapping ticks.
type Scene struct {
	logger    *zap.Logger
	registry  *ComponentRegistry
	ids       *idPool
	storage   *Storage
	container *EntityContainer
	queries   *QuerySystem
	pools     *PoolManager
	snapshots *SnapshotManager

	systems     []System
	systemStats []*systemStatsInternal
	state       SceneState
	updating    atomic.Bool

	snapshotCacheCap int

	// OnStart runs at the end of Begin, Unload at the end of End.
	OnStart func(*Scene)
	Unload  func(*Scene)
}

// SceneOption configures a Scene at construction.
type SceneOption func(*Scene)

// WithSceneLogger sets the logger shared by the scene and its subsystems.
func WithSceneLogger(logger *zap.Logger) SceneOption {
	return func(s *Scene) { s.logger = logger }
}

// WithScenePools attaches a pool manager so component removal recycles
// instances and snapshot restore prefers pooled allocation.
func WithScenePools(pools *PoolManager) SceneOption {
	return func(s *Scene) { s.pools = pools }
}

// WithSceneSnapshotCache overrides the snapshot cache capacity.
func WithSceneSnapshotCache(n int) SceneOption {
	return func(s *Scene) { s.snapshotCacheCap = n }
}

// NewScene creates an uninitialized scene over the given component registry.
func NewScene(registry *ComponentRegistry, opts ...SceneOption) *Scene {
	s := &Scene{
		logger:           zap.NewNop(),
		registry:         registry,
		ids:              newIdPool(),
		snapshotCacheCap: DefaultSnapshotCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.storage = NewStorage(registry, WithStorageLogger(s.logger), WithPoolManager(s.pools))
	s.queries = NewQuerySystem(s.storage)
	s.container = NewEntityContainer(s.queries, s.logger)
	s.snapshots = NewSnapshotManager(
		WithSnapshotLogger(s.logger),
		WithSnapshotCacheSize(s.snapshotCacheCap),
	)
	return s
}

// Registry returns the component registry.
func (s *Scene) Registry() *ComponentRegistry { return s.registry }

// Storage returns the component storage.
func (s *Scene) Storage() *Storage { return s.storage }

// Container returns the entity container.
func (s *Scene) Container() *EntityContainer { return s.container }

// Queries returns the query system.
func (s *Scene) Queries() *QuerySystem { return s.queries }

// Pools returns the attached pool manager, nil when none was attached.
func (s *Scene) Pools() *PoolManager { return s.pools }

// Snapshots returns the snapshot manager.
func (s *Scene) Snapshots() *SnapshotManager { return s.snapshots }

// State returns the lifecycle state.
func (s *Scene) State() SceneState { return s.state }

// AddSystem registers a system. Systems added to a running scene are
// started immediately.
func (s *Scene) AddSystem(system System) {
	s.systems = append(s.systems, system)

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Ptr {
		systemType = systemType.Elem()
	}
	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        systemType.Name(),
		minDuration: time.Duration(1<<63 - 1),
	})

	if s.state == SceneRunning {
		if starter, ok := system.(Starter); ok {
			starter.Start(s)
		}
	}
}

// Begin starts the scene: systems start in registration order, then the
// OnStart hook runs. Beginning a scene twice, or after End, is an error.
func (s *Scene) Begin() error {
	if s.state != SceneUninitialized {
		return fmt.Errorf("scene begin: scene is %s", s.state)
	}
	s.state = SceneRunning
	for _, system := range s.systems {
		if starter, ok := system.(Starter); ok {
			starter.Start(s)
		}
	}
	if s.OnStart != nil {
		s.OnStart(s)
	}
	return nil
}

// Update runs one tick: pending entity removals are flushed, systems
// execute in registration order, then the late-update pass runs. Structural
// changes requested during the tick take effect at the next tick's flush.
func (s *Scene) Update(dt float64) {
	if s.state != SceneRunning {
		s.logger.Warn("scene update ignored", zap.Stringer("state", s.state))
		return
	}
	if !s.updating.CompareAndSwap(false, true) {
		panic("ecs: Scene.Update is not re-entrant")
	}
	defer s.updating.Store(false)

	s.container.UpdateLists(s.onEntityRemoved)

	frame := &UpdateFrame{DeltaTime: dt, Scene: s}
	for i, system := range s.systems {
		start := time.Now()
		system.Execute(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration
		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	for _, system := range s.systems {
		if late, ok := system.(LateSystem); ok {
			late.LateExecute(frame)
		}
	}
}

// End tears the scene down: every entity is destroyed and flushed,
// component storage is cleared, systems stop in registration order, and the
// Unload hook runs. The scene cannot be begun again.
func (s *Scene) End() {
	if s.state == SceneEnded {
		return
	}
	s.container.RemoveAll()
	s.container.UpdateLists(s.onEntityRemoved)
	s.storage.Clear()
	for _, system := range s.systems {
		if stopper, ok := system.(Stopper); ok {
			stopper.Stop(s)
		}
	}
	if s.Unload != nil {
		s.Unload(s)
	}
	s.state = SceneEnded
}

// Run updates the scene repeatedly at the given interval until the context
// is cancelled, for headless drivers like tools and tests.
func (s *Scene) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			s.Update(dt)
		}
	}
}

// CreateEntity allocates an id, constructs an entity and registers it with
// the container and query system.
func (s *Scene) CreateEntity(name string) *Entity {
	e := &Entity{
		Id:      s.ids.Acquire(),
		Name:    name,
		Enabled: true,
		Active:  true,
	}
	s.container.Add(e, false)
	return e
}

// CreateEntities is the batch path: all entities are constructed and added
// with deferred cache invalidation, then bulk-inserted into the query
// system in one unchecked pass.
func (s *Scene) CreateEntities(count int, prefix string) []*Entity {
	batch := make([]*Entity, 0, count)
	for i := 0; i < count; i++ {
		e := &Entity{
			Id:      s.ids.Acquire(),
			Name:    fmt.Sprintf("%s%d", prefix, i),
			Enabled: true,
			Active:  true,
		}
		s.container.Add(e, true)
		batch = append(batch, e)
	}
	s.queries.AddEntitiesUnchecked(batch)
	return batch
}

// DestroyEntity marks an entity for removal at the next tick's flush.
func (s *Scene) DestroyEntity(e *Entity) {
	s.container.Remove(e)
}

// materializeEntity recreates an entity under a specific id for snapshot
// restore. Returns nil when the id is already issued.
func (s *Scene) materializeEntity(id EntityId) *Entity {
	if !s.ids.Reserve(id) {
		return nil
	}
	e := &Entity{Id: id, Enabled: true, Active: true}
	s.container.Add(e, false)
	return e
}

func (s *Scene) onEntityRemoved(e *Entity) {
	s.storage.RemoveAllComponents(e)
	s.ids.Release(e.Id)
}

// CaptureSnapshot captures a full snapshot and caches it under key.
func (s *Scene) CaptureSnapshot(key string) (*Snapshot, CaptureReport) {
	snap, report := s.snapshots.CaptureFull(s)
	s.snapshots.Store(key, snap)
	return snap, report
}

// CaptureIncrementalSnapshot captures a diff against the cached snapshot
// under baseKey and caches the result under key.
func (s *Scene) CaptureIncrementalSnapshot(key, baseKey string) (*Snapshot, CaptureReport, error) {
	base, ok := s.snapshots.Cached(baseKey)
	if !ok {
		return nil, CaptureReport{}, fmt.Errorf("%w (base %q not cached)", ErrNoBaseSnapshot, baseKey)
	}
	snap, report, err := s.snapshots.CaptureIncremental(s, base, baseKey)
	if err != nil {
		return nil, report, err
	}
	s.snapshots.Store(key, snap)
	return snap, report, nil
}

// RestoreSnapshot restores the cached snapshot stored under key.
func (s *Scene) RestoreSnapshot(key string, opts RestoreOptions) (RestoreReport, error) {
	snap, ok := s.snapshots.Cached(key)
	if !ok {
		return RestoreReport{}, fmt.Errorf("snapshot %q not cached", key)
	}
	return s.snapshots.Restore(s, snap, opts), nil
}

// Stats returns statistics about scene and system execution.
func (s *Scene) Stats() SceneStats {
	stats := SceneStats{
		State:       s.state,
		EntityCount: s.container.Len(),
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}
		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}
	stats.TotalExecutions = totalExecs
	return stats
}
