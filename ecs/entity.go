package ecs

import "slices"

// EntityId is a unique integer identifier for an entity. Zero is never a
// valid id; ids are issued by the scene's identifier pool and reclaimed when
// the entity's removal is flushed.
type EntityId uint32

// Entity is an identity plus bookkeeping for the components attached to it.
// Component data itself lives in the Storage; the entity only carries the
// signature describing which types are present.
//
// Parent and Children are id references, not pointers. The flat id-addressed
// arena keeps the hierarchy cycle-free and makes teardown trivial.
type Entity struct {
	Id          EntityId
	Name        string
	Enabled     bool
	Active      bool
	Tag         int
	UpdateOrder int
	Parent      EntityId
	Children    []EntityId

	signature Signature
	destroyed bool
	// owner is the container the entity is registered with, used to
	// resolve the previous parent by id when re-parenting.
	owner *EntityContainer
}

// Signature returns the entity's current component signature.
func (e *Entity) Signature() Signature {
	return e.signature
}

// Destroyed reports whether the entity has been marked for removal.
// Marked entities linger in the container until the next UpdateLists flush.
func (e *Entity) Destroyed() bool {
	return e.destroyed
}

// AddChild links child under e. A child already attached elsewhere is
// detached from its previous parent first.
func (e *Entity) AddChild(child *Entity) {
	if child == nil || child.Id == e.Id {
		return
	}
	if child.Parent == e.Id {
		return
	}
	child.detachFromParent()
	child.Parent = e.Id
	if !slices.Contains(e.Children, child.Id) {
		e.Children = append(e.Children, child.Id)
	}
}

// SetParent attaches e under parent, or detaches it when parent is nil.
func (e *Entity) SetParent(parent *Entity) {
	if parent == nil {
		e.detachFromParent()
		return
	}
	parent.AddChild(e)
}

// detachFromParent clears the parent link and, when the entity is
// registered with a container, the previous parent's child entry.
func (e *Entity) detachFromParent() {
	if e.Parent == 0 {
		return
	}
	if e.owner != nil {
		if prev := e.owner.FindById(e.Parent); prev != nil {
			prev.RemoveChild(e.Id)
		}
	}
	e.Parent = 0
}

// RemoveChild detaches the child id from e.
func (e *Entity) RemoveChild(id EntityId) {
	for i, c := range e.Children {
		if c == id {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}

// idPool issues unique entity identifiers and reclaims released ones through
// a LIFO free list. Ids start at 1 so the zero value stays invalid.
type idPool struct {
	next EntityId
	free []EntityId
	// reserved tracks ids claimed out-of-band by snapshot restore so the
	// pool never re-issues them.
	reserved map[EntityId]struct{}
}

func newIdPool() *idPool {
	return &idPool{next: 1}
}

// Acquire returns an unused id, preferring reclaimed ones.
func (p *idPool) Acquire() EntityId {
	for len(p.free) > 0 {
		id := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		if _, taken := p.reserved[id]; taken {
			continue
		}
		return id
	}
	for {
		id := p.next
		p.next++
		if _, taken := p.reserved[id]; !taken {
			return id
		}
		// next has passed the reserved id, so the counter alone now keeps
		// it from being reissued.
		delete(p.reserved, id)
	}
}

// Release returns an id to the pool for reuse.
func (p *idPool) Release(id EntityId) {
	if id == 0 {
		return
	}
	if _, taken := p.reserved[id]; taken {
		// The id sits above the counter; dropping the reservation is
		// enough, the counter issues it once when it reaches it. Pushing
		// it onto the free list as well would hand it out twice.
		delete(p.reserved, id)
		return
	}
	if id >= p.next {
		return
	}
	p.free = append(p.free, id)
}

// Reserve claims a specific id, as required when a snapshot restore recreates
// an entity under its captured id. Returns false if the id is already issued.
func (p *idPool) Reserve(id EntityId) bool {
	if id == 0 {
		return false
	}
	if _, taken := p.reserved[id]; taken {
		return false
	}
	if id < p.next {
		if i := slices.Index(p.free, id); i >= 0 {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return true
		}
		return false
	}
	if p.reserved == nil {
		p.reserved = make(map[EntityId]struct{})
	}
	p.reserved[id] = struct{}{}
	return true
}

// InUse returns the number of currently issued ids.
func (p *idPool) InUse() int {
	return int(p.next-1) - len(p.free) + len(p.reserved)
}
