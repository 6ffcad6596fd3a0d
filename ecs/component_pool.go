package ecs

import "reflect"

// ComponentPool recycles component instances across entity create/destroy
// cycles. It layers a tiered pool under a type-erased FreeInstance entry
// point so Storage can hand back detached instances without knowing their
// concrete type. T is the pointer component type, e.g. *Position.
type ComponentPool[T Poolable] struct {
	tiers *TieredPool[T]
	name  string
}

// NewComponentPool creates a component pool with the given tier capacities.
// A single capacity yields plain single-tier behavior.
func NewComponentPool[T Poolable](factory func() T, tierSizes ...int) *ComponentPool[T] {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Ptr {
		panic("ecs: ComponentPool type parameter must be a pointer component type")
	}
	return &ComponentPool[T]{
		tiers: NewTieredPool(factory, tierSizes...),
		name:  t.Elem().String(),
	}
}

// TypeName returns the registry type name this pool serves.
func (cp *ComponentPool[T]) TypeName() string {
	return cp.name
}

// Obtain returns a recycled or freshly constructed component instance.
func (cp *ComponentPool[T]) Obtain() T {
	return cp.tiers.Obtain()
}

// Free returns a component instance to the pool.
func (cp *ComponentPool[T]) Free(component T) {
	cp.tiers.Free(component)
}

// FreeInstance accepts a type-erased instance from storage removal. An
// instance of the wrong type is refused; generics make that unreachable
// from the typed paths, so a false here means a mis-registered pool name.
func (cp *ComponentPool[T]) FreeInstance(instance any) bool {
	component, ok := instance.(T)
	if !ok {
		return false
	}
	cp.tiers.Free(component)
	return true
}

// ObtainInstance is the type-erased counterpart of Obtain, used by snapshot
// restore through the pool manager.
func (cp *ComponentPool[T]) ObtainInstance() any {
	return cp.tiers.Obtain()
}

// WarmUp pre-populates up to count instances across tiers.
func (cp *ComponentPool[T]) WarmUp(count int) {
	cp.tiers.WarmUp(count)
}

// Stats aggregates tier statistics.
func (cp *ComponentPool[T]) Stats() PoolStats {
	return cp.tiers.Stats()
}

// Clear drops all retained instances.
func (cp *ComponentPool[T]) Clear() {
	cp.tiers.Clear()
}

// Compact trims slack capacity in every tier.
func (cp *ComponentPool[T]) Compact() {
	cp.tiers.Compact()
}

// RegisterComponentPool creates a component pool for T, applies the
// registry's per-instance size estimate when T's component type is
// registered, and registers the pool with the manager under the component
// type name.
func RegisterComponentPool[T Poolable](m *PoolManager, r *ComponentRegistry, factory func() T, tierSizes ...int) *ComponentPool[T] {
	cp := NewComponentPool(factory, tierSizes...)
	if r != nil {
		if opts, ok := r.Options(reflect.TypeFor[T]()); ok {
			cp.tiers.SetSizeEstimate(opts.SizeEstimate)
		}
	}
	m.Register(cp.name, cp)
	return cp
}
