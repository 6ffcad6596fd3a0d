package ecs

import (
	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// EntityContainer tracks the set of live entities and the structural-change
// queue. Additions register immediately; removals are only marked and take
// effect at the next UpdateLists flush, so iteration over the live buffer
// never observes a container compacting underneath it.
//
// Operations on entities that are already destroyed or unknown are logged
// no-ops. An editor UI and the simulation tick race against each other by
// design, and losing that race must not be fatal.
type EntityContainer struct {
	entities      []*Entity
	byId          *intmap.Map[EntityId, *Entity]
	pendingRemove []*Entity
	queries       *QuerySystem
	logger        *zap.Logger
}

// NewEntityContainer creates a container wired to the given query system.
func NewEntityContainer(queries *QuerySystem, logger *zap.Logger) *EntityContainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityContainer{
		byId:    intmap.New[EntityId, *Entity](256),
		queries: queries,
		logger:  logger,
	}
}

// Add registers an entity with the container and the query system.
// deferCacheClear skips the per-entity query invalidation for batch
// operations; the caller is expected to clear the cache once afterwards
// (CreateEntities does this through AddEntitiesUnchecked).
func (c *EntityContainer) Add(e *Entity, deferCacheClear bool) {
	if e == nil || e.Id == 0 {
		c.logger.Warn("entity container: add of invalid entity ignored")
		return
	}
	if e.destroyed {
		c.logger.Warn("entity container: add of destroyed entity ignored",
			zap.Uint32("id", uint32(e.Id)))
		return
	}
	if _, exists := c.byId.Get(e.Id); exists {
		c.logger.Warn("entity container: duplicate add ignored",
			zap.Uint32("id", uint32(e.Id)))
		return
	}
	e.owner = c
	c.entities = append(c.entities, e)
	c.byId.Put(e.Id, e)
	if !deferCacheClear {
		c.queries.OnEntityAdded(e)
	}
}

// Remove marks an entity for removal. The live buffer is compacted at the
// next UpdateLists call, never mid-iteration.
func (c *EntityContainer) Remove(e *Entity) {
	if e == nil {
		return
	}
	live, ok := c.byId.Get(e.Id)
	if !ok || live != e {
		c.logger.Warn("entity container: remove of unknown entity ignored",
			zap.Uint32("id", uint32(e.Id)))
		return
	}
	if e.destroyed {
		c.logger.Warn("entity container: remove of already-destroyed entity ignored",
			zap.Uint32("id", uint32(e.Id)))
		return
	}
	e.destroyed = true
	c.pendingRemove = append(c.pendingRemove, e)
	// Cached query results must stop serving the marked entity even though
	// it is flushed later.
	c.queries.ClearCache()
}

// RemoveAll marks every live entity for removal.
func (c *EntityContainer) RemoveAll() {
	for _, e := range c.entities {
		if !e.destroyed {
			e.destroyed = true
			c.pendingRemove = append(c.pendingRemove, e)
		}
	}
	c.queries.ClearCache()
}

// UpdateLists flushes pending removals: the live buffer is compacted, the
// query system is notified, hierarchy back-references are cleared, and
// onRemoved runs for each flushed entity (the scene uses it to release
// component storage and the entity's id).
func (c *EntityContainer) UpdateLists(onRemoved func(*Entity)) {
	if len(c.pendingRemove) == 0 {
		return
	}

	live := c.entities[:0]
	for _, e := range c.entities {
		if !e.destroyed {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(c.entities); i++ {
		c.entities[i] = nil
	}
	c.entities = live

	for _, e := range c.pendingRemove {
		c.byId.Del(e.Id)
		if e.Parent != 0 {
			if parent, ok := c.byId.Get(e.Parent); ok {
				parent.RemoveChild(e.Id)
			}
		}
		for _, childId := range e.Children {
			if child, ok := c.byId.Get(childId); ok && child.Parent == e.Id {
				child.Parent = 0
			}
		}
		e.owner = nil
		c.queries.OnEntityRemoved(e)
		if onRemoved != nil {
			onRemoved(e)
		}
	}
	c.pendingRemove = c.pendingRemove[:0]
}

// FindById returns the live entity with the given id, or nil.
func (c *EntityContainer) FindById(id EntityId) *Entity {
	e, ok := c.byId.Get(id)
	if !ok || e.destroyed {
		return nil
	}
	return e
}

// FindByName returns the first live entity with the given name, in insertion
// order, or nil.
func (c *EntityContainer) FindByName(name string) *Entity {
	for _, e := range c.entities {
		if !e.destroyed && e.Name == name {
			return e
		}
	}
	return nil
}

// FindByTag returns all live entities with the given tag. The result is
// empty, never nil, when nothing matches.
func (c *EntityContainer) FindByTag(tag int) []*Entity {
	result := []*Entity{}
	for _, e := range c.entities {
		if !e.destroyed && e.Tag == tag {
			result = append(result, e)
		}
	}
	return result
}

// Each calls fn for every live entity in insertion order until fn returns
// false.
func (c *EntityContainer) Each(fn func(*Entity) bool) {
	for _, e := range c.entities {
		if e.destroyed {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// Len returns the number of live, non-destroyed entities.
func (c *EntityContainer) Len() int {
	n := 0
	for _, e := range c.entities {
		if !e.destroyed {
			n++
		}
	}
	return n
}

// PendingRemovals returns how many entities await the next flush.
func (c *EntityContainer) PendingRemovals() int {
	return len(c.pendingRemove)
}
