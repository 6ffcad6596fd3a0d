package ecs

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultSnapshotCacheSize bounds the snapshot cache unless overridden.
const DefaultSnapshotCacheSize = 10

// ErrNoBaseSnapshot is returned when an incremental capture is requested
// without a usable base.
var ErrNoBaseSnapshot = errors.New("incremental capture requires a base snapshot")

// CaptureReport summarizes what a capture pass actually wrote. Nothing in
// it is an error; skip counts surface the degrade-gracefully policy.
type CaptureReport struct {
	Entities   int
	Components int
	// SkippedComponents counts components whose serializer failed.
	SkippedComponents int
	// DroppedFields counts fields the default serializer excluded as
	// non-plain-data.
	DroppedFields int
	// ConservativeChanges counts components included in an incremental
	// capture only because they lack the ChangeDetector capability. A high
	// count means the incremental snapshot is silently degrading toward a
	// full one.
	ConservativeChanges int
}

// RestoreReport summarizes a restore pass.
type RestoreReport struct {
	EntitiesRestored  int
	EntitiesCreated   int
	ComponentsApplied int
	SkippedComponents int
	SkippedEntities   int
}

// RestoreOptions control restore behavior.
type RestoreOptions struct {
	// CreateMissing constructs entities (and their components, through the
	// type registry) for snapshot entries with no live counterpart. Callers
	// must treat entity and component references held across such a restore
	// as invalidated.
	CreateMissing bool
}

// SnapshotManager captures scene state into transferable snapshots and
// restores them back onto live entities. It is coupled to no component type:
// components either implement Serializable or go through the default field
// walk. A single failing component never aborts the operation; it is
// skipped with a logged warning.
type SnapshotManager struct {
	logger   *zap.Logger
	cacheCap int

	// FIFO cache keyed by caller-chosen identifiers, so repeated
	// operations like the editor's play/stop cycle skip recomputation.
	cacheKeys []string
	cache     map[string]*Snapshot
}

// SnapshotManagerOption configures a SnapshotManager.
type SnapshotManagerOption func(*SnapshotManager)

// WithSnapshotLogger sets the logger for skip-and-warn paths.
func WithSnapshotLogger(logger *zap.Logger) SnapshotManagerOption {
	return func(m *SnapshotManager) { m.logger = logger }
}

// WithSnapshotCacheSize overrides the cache capacity.
func WithSnapshotCacheSize(n int) SnapshotManagerOption {
	return func(m *SnapshotManager) {
		if n > 0 {
			m.cacheCap = n
		}
	}
}

// NewSnapshotManager creates a snapshot manager.
func NewSnapshotManager(opts ...SnapshotManagerOption) *SnapshotManager {
	m := &SnapshotManager{
		logger:   zap.NewNop(),
		cacheCap: DefaultSnapshotCacheSize,
		cache:    make(map[string]*Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CaptureFull serializes every live, non-destroyed entity of the scene,
// sorted by id for determinism.
func (m *SnapshotManager) CaptureFull(scene *Scene) (*Snapshot, CaptureReport) {
	now := time.Now()
	report := CaptureReport{}
	snap := &Snapshot{
		Timestamp: now,
		Version:   SnapshotVersion,
		Type:      SnapshotFull,
	}

	for _, e := range m.liveSorted(scene) {
		es := m.captureEntity(scene, e, now, &report)
		snap.Entities = append(snap.Entities, es)
		report.Entities++
	}
	return snap, report
}

// CaptureIncremental serializes only what changed relative to base. An
// entity is included when it is new since the base (embedded in full) or
// when its structure changed or any component reports a change, and then
// only the changed components are embedded. baseId names the base in the
// resulting snapshot so consumers can chain diffs.
func (m *SnapshotManager) CaptureIncremental(scene *Scene, base *Snapshot, baseId string) (*Snapshot, CaptureReport, error) {
	if base == nil {
		return nil, CaptureReport{}, ErrNoBaseSnapshot
	}

	now := time.Now()
	report := CaptureReport{}
	snap := &Snapshot{
		Timestamp:      now,
		Version:        SnapshotVersion,
		Type:           SnapshotIncremental,
		BaseSnapshotId: baseId,
	}

	for _, e := range m.liveSorted(scene) {
		baseEnt := base.EntityById(e.Id)
		if baseEnt == nil {
			// New since the base: embed in full.
			es := m.captureEntity(scene, e, now, &report)
			snap.Entities = append(snap.Entities, es)
			report.Entities++
			continue
		}

		structural := e.Name != baseEnt.Name ||
			e.Enabled != baseEnt.Enabled ||
			e.Active != baseEnt.Active ||
			e.Tag != baseEnt.Tag ||
			e.UpdateOrder != baseEnt.UpdateOrder ||
			e.Parent != baseEnt.Parent ||
			!sameIds(e.Children, baseEnt.Children)

		var changed []ComponentSnapshot
		liveTypes := make(map[string]struct{})
		for ct, instance := range scene.storage.componentsOf(e) {
			if !ct.opts.Snapshot {
				continue
			}
			liveTypes[ct.name] = struct{}{}
			baseComp := baseEnt.component(ct.name)
			if baseComp != nil {
				if detector, ok := instance.(ChangeDetector); ok {
					if !detector.HasChanged(baseComp.Data) {
						continue
					}
				} else {
					// No change detection: conservatively always changed.
					report.ConservativeChanges++
				}
			}
			if cs, ok := m.captureComponent(ct, instance, &report); ok {
				changed = append(changed, cs)
			}
		}
		if componentSetChanged(liveTypes, baseEnt) {
			structural = true
		}

		if !structural && len(changed) == 0 {
			continue
		}
		es := m.entityMetadata(e, now)
		es.Components = changed
		sortComponentSnapshots(es.Components)
		snap.Entities = append(snap.Entities, es)
		report.Entities++
	}
	return snap, report, nil
}

// Restore applies a snapshot onto the scene. Existing entities are
// overwritten in place; missing ones are created when the options allow it.
// Unknown component type names and per-component failures warn and skip.
func (m *SnapshotManager) Restore(scene *Scene, snap *Snapshot, opts RestoreOptions) RestoreReport {
	report := RestoreReport{}
	if snap == nil {
		return report
	}
	registry := scene.registry

	for i := range snap.Entities {
		es := &snap.Entities[i]
		live := scene.container.FindById(es.Id)
		if live == nil {
			if !opts.CreateMissing {
				m.logger.Warn("restore: no live entity for snapshot entry",
					zap.Uint32("id", uint32(es.Id)))
				report.SkippedEntities++
				continue
			}
			live = scene.materializeEntity(es.Id)
			if live == nil {
				m.logger.Warn("restore: could not reserve entity id",
					zap.Uint32("id", uint32(es.Id)))
				report.SkippedEntities++
				continue
			}
			m.applyMetadata(live, es)
			for j := range es.Components {
				cs := &es.Components[j]
				instance, ok := m.newInstance(scene, cs.Type)
				if !ok {
					// Unknown type name: the registry no longer knows it.
					m.logger.Warn("restore: unknown component type",
						zap.String("type", cs.Type))
					report.SkippedComponents++
					continue
				}
				if err := deserializeComponent(instance, cs.Data); err != nil {
					m.logger.Warn("restore: component deserialize failed",
						zap.String("type", cs.Type), zap.Error(err))
					report.SkippedComponents++
					continue
				}
				applyEnabled(instance, cs.Enabled)
				scene.storage.AddComponent(live, instance)
				report.ComponentsApplied++
			}
			report.EntitiesCreated++
			continue
		}

		m.applyMetadata(live, es)
		for j := range es.Components {
			cs := &es.Components[j]
			compType, known := registry.TypeByName(cs.Type)
			if !known {
				m.logger.Warn("restore: unknown component type",
					zap.String("type", cs.Type))
				report.SkippedComponents++
				continue
			}
			existing := scene.storage.GetComponent(live.Id, compType)
			if existing == nil {
				m.logger.Warn("restore: live entity lacks component, skipping",
					zap.Uint32("id", uint32(live.Id)), zap.String("type", cs.Type))
				report.SkippedComponents++
				continue
			}
			if err := deserializeComponent(existing, cs.Data); err != nil {
				m.logger.Warn("restore: component deserialize failed",
					zap.String("type", cs.Type), zap.Error(err))
				report.SkippedComponents++
				continue
			}
			applyEnabled(existing, cs.Enabled)
			report.ComponentsApplied++
		}
		report.EntitiesRestored++
	}
	return report
}

// Store caches a snapshot under a caller-chosen key. The cache is bounded;
// inserting beyond capacity evicts the oldest entry FIFO.
func (m *SnapshotManager) Store(key string, snap *Snapshot) {
	if _, exists := m.cache[key]; exists {
		m.cache[key] = snap
		return
	}
	if len(m.cacheKeys) >= m.cacheCap {
		oldest := m.cacheKeys[0]
		m.cacheKeys = m.cacheKeys[1:]
		delete(m.cache, oldest)
	}
	m.cacheKeys = append(m.cacheKeys, key)
	m.cache[key] = snap
}

// Cached returns the snapshot stored under key, if it has not been evicted.
func (m *SnapshotManager) Cached(key string) (*Snapshot, bool) {
	snap, ok := m.cache[key]
	return snap, ok
}

// ClearCache drops all cached snapshots.
func (m *SnapshotManager) ClearCache() {
	m.cacheKeys = nil
	m.cache = make(map[string]*Snapshot)
}

// CacheLen returns the number of cached snapshots.
func (m *SnapshotManager) CacheLen() int {
	return len(m.cacheKeys)
}

func (m *SnapshotManager) liveSorted(scene *Scene) []*Entity {
	entities := make([]*Entity, 0, scene.container.Len())
	scene.container.Each(func(e *Entity) bool {
		entities = append(entities, e)
		return true
	})
	sort.Slice(entities, func(i, j int) bool { return entities[i].Id < entities[j].Id })
	return entities
}

func (m *SnapshotManager) entityMetadata(e *Entity, now time.Time) EntitySnapshot {
	return EntitySnapshot{
		Id:          e.Id,
		Name:        e.Name,
		Enabled:     e.Enabled,
		Active:      e.Active,
		Tag:         e.Tag,
		UpdateOrder: e.UpdateOrder,
		Children:    append([]EntityId(nil), e.Children...),
		Parent:      e.Parent,
		Timestamp:   now,
	}
}

func (m *SnapshotManager) captureEntity(scene *Scene, e *Entity, now time.Time, report *CaptureReport) EntitySnapshot {
	es := m.entityMetadata(e, now)
	for ct, instance := range scene.storage.componentsOf(e) {
		if !ct.opts.Snapshot {
			continue
		}
		if cs, ok := m.captureComponent(ct, instance, report); ok {
			es.Components = append(es.Components, cs)
		}
	}
	sortComponentSnapshots(es.Components)
	return es
}

func (m *SnapshotManager) captureComponent(ct *componentType, instance any, report *CaptureReport) (ComponentSnapshot, bool) {
	data, dropped, err := serializeComponent(instance)
	report.DroppedFields += dropped
	if err != nil {
		m.logger.Warn("capture: component serialize failed, skipping",
			zap.String("type", ct.name), zap.Error(err))
		report.SkippedComponents++
		return ComponentSnapshot{}, false
	}
	cs := ComponentSnapshot{
		Type:    ct.name,
		Id:      int(ct.bit),
		Data:    data,
		Enabled: componentEnabled(instance),
	}
	if ct.opts.SyncPriority != 0 || ct.opts.Compression != CompressionNone || ct.opts.Incremental {
		cs.Config = &ComponentSnapshotConfig{
			SyncPriority: ct.opts.SyncPriority,
			Compression:  ct.opts.Compression.String(),
			Incremental:  ct.opts.Incremental,
		}
	}
	report.Components++
	return cs, true
}

// newInstance prefers pooled allocation for restored components and falls
// back to the registry constructor.
func (m *SnapshotManager) newInstance(scene *Scene, typeName string) (any, bool) {
	if scene.pools != nil {
		if instance, ok := scene.pools.obtainInstance(typeName); ok {
			return instance, true
		}
	}
	return scene.registry.NewInstance(typeName)
}

func (m *SnapshotManager) applyMetadata(e *Entity, es *EntitySnapshot) {
	e.Name = es.Name
	e.Enabled = es.Enabled
	e.Active = es.Active
	e.Tag = es.Tag
	e.UpdateOrder = es.UpdateOrder
	e.Parent = es.Parent
	e.Children = append(e.Children[:0], es.Children...)
}

func sortComponentSnapshots(components []ComponentSnapshot) {
	sort.SliceStable(components, func(i, j int) bool {
		pi, pj := 0, 0
		if components[i].Config != nil {
			pi = components[i].Config.SyncPriority
		}
		if components[j].Config != nil {
			pj = components[j].Config.SyncPriority
		}
		if pi != pj {
			return pi < pj
		}
		return components[i].Id < components[j].Id
	})
}

func sameIds(a []EntityId, b []EntityId) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// componentSetChanged reports whether the entity's snapshot-included
// component type set differs from what the base embedded, which makes the
// entity structurally changed even when no payload did.
func componentSetChanged(live map[string]struct{}, base *EntitySnapshot) bool {
	if len(live) != len(base.Components) {
		return true
	}
	for i := range base.Components {
		if _, ok := live[base.Components[i].Type]; !ok {
			return true
		}
	}
	return false
}
