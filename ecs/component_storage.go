package ecs

import "iter"

const slabBlockSize = 64

// componentStore is a type-erased per-type component store addressed by
// entity id.
type componentStore interface {
	// Set stores instance (a *T) for the entity. Returns false when the
	// instance is not of the store's type.
	Set(id EntityId, instance any) bool
	// Get returns the stored instance or nil.
	Get(id EntityId) any
	// Remove detaches and returns the stored instance, or nil.
	Remove(id EntityId) any
	Has(id EntityId) bool
	Len() int
	Clear()
	// Compact trims trailing empty blocks so a store shrinks after churn.
	Compact()
	// Iter yields the ids of all entities with a component in this store,
	// in ascending id order.
	Iter() iter.Seq[EntityId]
	// EstimatedBytes is Len() times the registered per-instance estimate.
	EstimatedBytes() int
}

// slabStore stores component pointers in fixed-size blocks indexed directly
// by entity id. Ids are dense (the id pool reclaims them), so the slab stays
// compact under churn. Storing pointers rather than values keeps instance
// identity: GetComponent returns exactly the instance that was added, and
// removal hands the same instance back to its pool.
type slabStore[T any] struct {
	blocks       [][slabBlockSize]*T
	count        int
	sizeEstimate int
}

func newSlabStore[T any](sizeEstimate int) *slabStore[T] {
	return &slabStore[T]{sizeEstimate: sizeEstimate}
}

func (s *slabStore[T]) Set(id EntityId, instance any) bool {
	ptr, ok := instance.(*T)
	if !ok {
		return false
	}
	block := int(id) / slabBlockSize
	slot := int(id) % slabBlockSize
	for block >= len(s.blocks) {
		s.blocks = append(s.blocks, [slabBlockSize]*T{})
	}
	if s.blocks[block][slot] == nil {
		s.count++
	}
	s.blocks[block][slot] = ptr
	return true
}

func (s *slabStore[T]) Get(id EntityId) any {
	block := int(id) / slabBlockSize
	if block >= len(s.blocks) {
		return nil
	}
	ptr := s.blocks[block][int(id)%slabBlockSize]
	if ptr == nil {
		return nil
	}
	return ptr
}

func (s *slabStore[T]) Remove(id EntityId) any {
	block := int(id) / slabBlockSize
	if block >= len(s.blocks) {
		return nil
	}
	slot := int(id) % slabBlockSize
	ptr := s.blocks[block][slot]
	if ptr == nil {
		return nil
	}
	s.blocks[block][slot] = nil
	s.count--
	return ptr
}

func (s *slabStore[T]) Has(id EntityId) bool {
	block := int(id) / slabBlockSize
	return block < len(s.blocks) && s.blocks[block][int(id)%slabBlockSize] != nil
}

func (s *slabStore[T]) Len() int {
	return s.count
}

func (s *slabStore[T]) Clear() {
	s.blocks = nil
	s.count = 0
}

func (s *slabStore[T]) Compact() {
	last := len(s.blocks)
	for last > 0 {
		empty := true
		for _, ptr := range s.blocks[last-1] {
			if ptr != nil {
				empty = false
				break
			}
		}
		if !empty {
			break
		}
		last--
	}
	if last == len(s.blocks) {
		return
	}
	trimmed := make([][slabBlockSize]*T, last)
	copy(trimmed, s.blocks)
	s.blocks = trimmed
}

func (s *slabStore[T]) Iter() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for block := range s.blocks {
			for slot := range s.blocks[block] {
				if s.blocks[block][slot] == nil {
					continue
				}
				if !yield(EntityId(block*slabBlockSize + slot)) {
					return
				}
			}
		}
	}
}

func (s *slabStore[T]) EstimatedBytes() int {
	return s.count * s.sizeEstimate
}
