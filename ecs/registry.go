package ecs

import "reflect"

// CompressionHint advises the embedding application how a component's
// snapshot payload should be compressed once it leaves the core. The core
// itself never compresses; the hint travels with the snapshot config.
type CompressionHint int

const (
	CompressionNone CompressionHint = iota
	CompressionFast
	CompressionSmall
)

func (h CompressionHint) String() string {
	switch h {
	case CompressionFast:
		return "fast"
	case CompressionSmall:
		return "small"
	default:
		return "none"
	}
}

// ComponentOptions declare per-type snapshot behavior.
type ComponentOptions struct {
	// Snapshot controls whether the type is included in captures at all.
	Snapshot bool
	// SyncPriority orders component payloads for consumers that apply
	// snapshots progressively. Lower runs first.
	SyncPriority int
	// Compression is a hint forwarded in the snapshot config.
	Compression CompressionHint
	// Incremental opts the type into change-detected incremental capture.
	// Types that opt in without implementing ChangeDetector are treated as
	// always changed, which degrades incremental snapshots toward full ones.
	Incremental bool
	// SizeEstimate is the per-instance memory estimate in bytes used for
	// pool and debug statistics. Defaults to the type's in-memory size.
	SizeEstimate int
}

// ComponentOption configures a type at registration.
type ComponentOption func(*ComponentOptions)

// WithSnapshot includes or excludes the type from snapshot capture.
func WithSnapshot(include bool) ComponentOption {
	return func(o *ComponentOptions) { o.Snapshot = include }
}

// WithSyncPriority sets the snapshot sync priority.
func WithSyncPriority(priority int) ComponentOption {
	return func(o *ComponentOptions) { o.SyncPriority = priority }
}

// WithCompression sets the snapshot compression hint.
func WithCompression(hint CompressionHint) ComponentOption {
	return func(o *ComponentOptions) { o.Compression = hint }
}

// WithIncremental opts the type into incremental snapshot change detection.
func WithIncremental(enabled bool) ComponentOption {
	return func(o *ComponentOptions) { o.Incremental = enabled }
}

// WithSizeEstimate overrides the per-instance memory estimate in bytes.
func WithSizeEstimate(bytes int) ComponentOption {
	return func(o *ComponentOptions) { o.SizeEstimate = bytes }
}

// componentType is everything the core knows about one registered type:
// its registry-assigned signature bit, a storage factory, a constructor for
// snapshot restore-with-creation, and the declared snapshot options.
type componentType struct {
	name      string
	bit       uint8
	rtype     reflect.Type
	newStore  func() componentStore
	construct func() any
	opts      ComponentOptions
}

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage has its own registry, allowing multiple independent scenes to
// coexist without interference. It doubles as the type-name registry that
// snapshot restore uses to rebuild components from serialized type names.
type ComponentRegistry struct {
	types  []*componentType
	byType map[reflect.Type]*componentType
	byName map[string]*componentType
}

// NewComponentRegistry creates an empty component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType: make(map[reflect.Type]*componentType),
		byName: make(map[string]*componentType),
	}
}

// RegisterComponent registers T and returns its signature bit index.
// Registering a type twice returns the original bit index; options from the
// first registration win. Panics when the registry is full, which is a
// configuration error.
func RegisterComponent[T any](r *ComponentRegistry, opts ...ComponentOption) uint8 {
	t := reflect.TypeFor[T]()
	if existing, ok := r.byType[t]; ok {
		return existing.bit
	}
	if len(r.types) >= MaxComponentTypes {
		panic("ecs: component registry full (" + t.String() + ")")
	}

	o := ComponentOptions{Snapshot: true, SizeEstimate: int(t.Size())}
	for _, opt := range opts {
		opt(&o)
	}

	ct := &componentType{
		name:      t.String(),
		bit:       uint8(len(r.types)),
		rtype:     t,
		newStore:  func() componentStore { return newSlabStore[T](o.SizeEstimate) },
		construct: func() any { return new(T) },
		opts:      o,
	}
	r.types = append(r.types, ct)
	r.byType[t] = ct
	r.byName[ct.name] = ct
	return ct.bit
}

// lookup resolves a component type, dereferencing pointer types so callers can
// pass either T or *T.
func (r *ComponentRegistry) lookup(t reflect.Type) *componentType {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return r.byType[t]
}

// Bit returns the signature bit assigned to the given type.
func (r *ComponentRegistry) Bit(t reflect.Type) (uint8, bool) {
	ct := r.lookup(t)
	if ct == nil {
		return 0, false
	}
	return ct.bit, true
}

// Options returns the snapshot options declared for the given type.
func (r *ComponentRegistry) Options(t reflect.Type) (ComponentOptions, bool) {
	ct := r.lookup(t)
	if ct == nil {
		return ComponentOptions{}, false
	}
	return ct.opts, true
}

// TypeByName maps a serialized type name back to the registered type.
// Absence is a normal outcome: snapshots may carry types the current build
// no longer registers.
func (r *ComponentRegistry) TypeByName(name string) (reflect.Type, bool) {
	ct, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return ct.rtype, true
}

// NewInstance constructs a fresh component instance for the named type,
// for snapshot restore-with-creation. The bool is false for unknown names.
func (r *ComponentRegistry) NewInstance(name string) (any, bool) {
	ct, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return ct.construct(), true
}

// SignatureOf builds a signature from the given component types.
// The bool is false when any type is unregistered.
func (r *ComponentRegistry) SignatureOf(types ...reflect.Type) (Signature, bool) {
	var sig Signature
	for _, t := range types {
		ct := r.lookup(t)
		if ct == nil {
			return Signature{}, false
		}
		sig.set(ct.bit)
	}
	return sig, true
}

// TypesFor expands a signature back into the component types it encodes.
func (r *ComponentRegistry) TypesFor(sig Signature) []reflect.Type {
	types := make([]reflect.Type, 0, sig.Count())
	sig.bits(func(bit uint8) bool {
		if int(bit) < len(r.types) {
			types = append(types, r.types[bit].rtype)
		}
		return true
	})
	return types
}

// Len returns the number of registered component types.
func (r *ComponentRegistry) Len() int {
	return len(r.types)
}

// TypeOf is a convenience for query call sites:
// queries.EntitiesWith(ecs.TypeOf[Position](), ecs.TypeOf[Velocity]()).
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
