package ecs

import (
	"iter"
	"reflect"
	"sort"

	"go.uber.org/zap"
)

// Storage owns one per-type component store per registered type and keeps
// entity signatures in sync with store contents. A component mutation and
// the matching signature update happen within a single call, so the query
// system never observes an entity whose signature disagrees with storage.
type Storage struct {
	registry *ComponentRegistry
	stores   []componentStore
	pools    *PoolManager
	logger   *zap.Logger

	// version increments on every structural change; the query system
	// compares it lazily instead of being notified per mutation.
	version uint64
}

// StorageOption configures a Storage at construction.
type StorageOption func(*Storage)

// WithStorageLogger sets the logger used for skip-and-warn paths.
func WithStorageLogger(logger *zap.Logger) StorageOption {
	return func(s *Storage) { s.logger = logger }
}

// WithPoolManager attaches a pool manager so removed component instances are
// recycled instead of discarded.
func WithPoolManager(pools *PoolManager) StorageOption {
	return func(s *Storage) { s.pools = pools }
}

// NewStorage creates component storage backed by the given registry.
func NewStorage(registry *ComponentRegistry, opts ...StorageOption) *Storage {
	s := &Storage{
		registry: registry,
		stores:   make([]componentStore, MaxComponentTypes),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// Version returns the structural change counter. Any component add or
// remove bumps it; cached query results key off it.
func (s *Storage) Version() uint64 {
	return s.version
}

func (s *Storage) store(ct *componentType) componentStore {
	if s.stores[ct.bit] == nil {
		s.stores[ct.bit] = ct.newStore()
	}
	return s.stores[ct.bit]
}

// AddComponent attaches instance (a pointer to a registered component type)
// to the entity, updating its signature in the same call. Adding a second
// instance of the same type replaces the first. Panics on unregistered
// types; that is a wiring error, not a runtime condition.
func (s *Storage) AddComponent(e *Entity, instance any) {
	t := reflect.TypeOf(instance)
	if t == nil || t.Kind() != reflect.Ptr {
		panic("ecs: AddComponent requires a pointer to a component value")
	}
	ct := s.registry.lookup(t)
	if ct == nil {
		panic("ecs: component type " + t.Elem().String() + " not registered")
	}
	s.store(ct).Set(e.Id, instance)
	e.signature.set(ct.bit)
	s.version++
}

// GetComponent returns the instance of the given type attached to the
// entity, or nil. Absence is a normal query outcome.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	ct := s.registry.lookup(compType)
	if ct == nil || s.stores[ct.bit] == nil {
		return nil
	}
	return s.stores[ct.bit].Get(id)
}

// GetComponent is the typed counterpart of Storage.GetComponent.
func GetComponent[T any](s *Storage, id EntityId) *T {
	v := s.GetComponent(id, reflect.TypeFor[T]())
	if v == nil {
		return nil
	}
	return v.(*T)
}

// HasComponent reports whether the entity has a component of the given type.
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	ct := s.registry.lookup(compType)
	if ct == nil || s.stores[ct.bit] == nil {
		return false
	}
	return s.stores[ct.bit].Has(id)
}

// RemoveComponent detaches and returns the instance of the given type,
// clearing the entity's signature bit in the same call. The instance is
// offered to the attached pool manager; a full or missing pool means it is
// simply dropped for the garbage collector. Returns nil when the entity has
// no such component.
func (s *Storage) RemoveComponent(e *Entity, compType reflect.Type) any {
	ct := s.registry.lookup(compType)
	if ct == nil || s.stores[ct.bit] == nil {
		return nil
	}
	instance := s.stores[ct.bit].Remove(e.Id)
	if instance == nil {
		return nil
	}
	e.signature.unset(ct.bit)
	s.version++
	s.recycle(ct, instance)
	return instance
}

// RemoveComponent is the typed counterpart of Storage.RemoveComponent.
func RemoveComponent[T any](s *Storage, e *Entity) *T {
	v := s.RemoveComponent(e, reflect.TypeFor[T]())
	if v == nil {
		return nil
	}
	return v.(*T)
}

// RemoveAllComponents detaches every component the entity holds, recycling
// each into its pool. Called when an entity's removal is flushed.
func (s *Storage) RemoveAllComponents(e *Entity) {
	if e.signature.IsZero() {
		return
	}
	e.signature.bits(func(bit uint8) bool {
		if store := s.stores[bit]; store != nil {
			if instance := store.Remove(e.Id); instance != nil {
				s.recycle(s.registry.types[bit], instance)
			}
		}
		return true
	})
	e.signature = Signature{}
	s.version++
}

func (s *Storage) recycle(ct *componentType, instance any) {
	if s.pools == nil {
		return
	}
	s.pools.recycleInstance(ct.name, instance)
}

// componentsOf yields the entity's components in ascending bit order.
func (s *Storage) componentsOf(e *Entity) iter.Seq2[*componentType, any] {
	return func(yield func(*componentType, any) bool) {
		e.signature.bits(func(bit uint8) bool {
			store := s.stores[bit]
			if store == nil {
				return true
			}
			instance := store.Get(e.Id)
			if instance == nil {
				return true
			}
			return yield(s.registry.types[bit], instance)
		})
	}
}

// Clear releases all component storage, used on scene teardown.
func (s *Storage) Clear() {
	for i, store := range s.stores {
		if store != nil {
			store.Clear()
			s.stores[i] = nil
		}
	}
	s.version++
}

// Compact trims every store's trailing empty blocks. Driven by the pool
// manager's periodic update rather than per-frame.
func (s *Storage) Compact() {
	for _, store := range s.stores {
		if store != nil {
			store.Compact()
		}
	}
}

// StorageTypeStats describes one component type's storage footprint.
type StorageTypeStats struct {
	TypeName       string
	Count          int
	EstimatedBytes int
}

// StorageStats is a point-in-time breakdown of component storage.
type StorageStats struct {
	TypeCount      int
	ComponentCount int
	EstimatedBytes int
	Breakdown      []StorageTypeStats
}

// CollectStats walks all stores and returns a breakdown sorted by type name.
func (s *Storage) CollectStats() StorageStats {
	stats := StorageStats{}
	for bit, store := range s.stores {
		if store == nil || store.Len() == 0 {
			continue
		}
		entry := StorageTypeStats{
			TypeName:       s.registry.types[bit].name,
			Count:          store.Len(),
			EstimatedBytes: store.EstimatedBytes(),
		}
		stats.TypeCount++
		stats.ComponentCount += entry.Count
		stats.EstimatedBytes += entry.EstimatedBytes
		stats.Breakdown = append(stats.Breakdown, entry)
	}
	sort.Slice(stats.Breakdown, func(i, j int) bool {
		return stats.Breakdown[i].TypeName < stats.Breakdown[j].TypeName
	})
	return stats
}
