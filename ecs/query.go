package ecs

import "reflect"

// QuerySystem resolves "entities with components {A, B, C}" into an entity
// set. Each requested type-set becomes a Signature; results are cached per
// signature and rebuilt lazily on the first query after a structural change,
// which amortizes invalidation across batch operations.
type QuerySystem struct {
	storage  *Storage
	entities []*Entity

	// version covers entity add/remove; storage.Version() covers component
	// add/remove. A cache entry is valid only while both stand still.
	version uint64
	cache   map[Signature]*queryCacheEntry
}

type queryCacheEntry struct {
	entityVersion  uint64
	storageVersion uint64
	result         []*Entity
}

// NewQuerySystem creates a query system over the given storage.
func NewQuerySystem(storage *Storage) *QuerySystem {
	return &QuerySystem{
		storage: storage,
		cache:   make(map[Signature]*queryCacheEntry),
	}
}

// OnEntityAdded tracks a newly registered entity and invalidates cached
// results.
func (q *QuerySystem) OnEntityAdded(e *Entity) {
	q.entities = append(q.entities, e)
	q.version++
}

// AddEntitiesUnchecked is the bulk insertion path used by batch entity
// creation. It skips duplicate checks for throughput; the caller guarantees
// the entities are genuinely new. The cache is invalidated once for the
// whole batch.
func (q *QuerySystem) AddEntitiesUnchecked(entities []*Entity) {
	if len(entities) == 0 {
		return
	}
	q.entities = append(q.entities, entities...)
	q.version++
}

// OnEntityRemoved stops tracking an entity. Called by the container when a
// removal is flushed.
func (q *QuerySystem) OnEntityRemoved(e *Entity) {
	for i, tracked := range q.entities {
		if tracked == e {
			q.entities = append(q.entities[:i], q.entities[i+1:]...)
			break
		}
	}
	q.version++
}

// ClearCache forces all cached results to rebuild on next use.
func (q *QuerySystem) ClearCache() {
	q.version++
}

// EntitiesWith returns all live entities whose component set is a superset
// of the given types, in insertion order. Unregistered types match nothing.
// The result is shared with the cache; callers must not mutate it.
func (q *QuerySystem) EntitiesWith(types ...reflect.Type) []*Entity {
	sig, ok := q.storage.registry.SignatureOf(types...)
	if !ok {
		return []*Entity{}
	}
	return q.EntitiesWithSignature(sig)
}

// EntitiesWithSignature answers the same query from a prebuilt signature,
// for call sites hot enough to cache their own key.
func (q *QuerySystem) EntitiesWithSignature(sig Signature) []*Entity {
	storageVersion := q.storage.Version()
	entry := q.cache[sig]
	if entry != nil && entry.entityVersion == q.version && entry.storageVersion == storageVersion {
		return entry.result
	}

	result := []*Entity{}
	for _, e := range q.entities {
		if e.destroyed {
			continue
		}
		if e.signature.ContainsAll(sig) {
			result = append(result, e)
		}
	}

	q.cache[sig] = &queryCacheEntry{
		entityVersion:  q.version,
		storageVersion: storageVersion,
		result:         result,
	}
	return result
}

// EntityCount returns the number of tracked entities, including those
// marked for removal but not yet flushed.
func (q *QuerySystem) EntityCount() int {
	return len(q.entities)
}

// CachedQueries returns the number of distinct signatures currently cached.
func (q *QuerySystem) CachedQueries() int {
	return len(q.cache)
}
