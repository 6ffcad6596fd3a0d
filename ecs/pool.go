package ecs

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultPoolSize is the tier capacity used when none is given.
const DefaultPoolSize = 64

// Poolable is implemented by anything a Pool can recycle. Reset restores the
// instance to its freshly-constructed state; it runs when the instance is
// released back, not when it is obtained.
type Poolable interface {
	Reset()
}

// PoolStats is the mandatory observable state of a pool.
type PoolStats struct {
	Size           int
	MaxSize        int
	TotalCreated   int64
	TotalObtained  int64
	TotalReleased  int64
	HitRate        float64
	EstimatedBytes int
}

// Pool is a bounded stack of reusable instances. Obtain pops when possible
// and constructs otherwise; Free resets and pushes while under capacity and
// drops beyond it, so the pool never grows unbounded.
type Pool[T Poolable] struct {
	items        []T
	factory      func() T
	maxSize      int
	sizeEstimate int

	created  int64
	obtained int64
	released int64
}

// NewPool creates a pool that constructs instances with factory and retains
// at most maxSize of them.
func NewPool[T Poolable](factory func() T, maxSize int) *Pool[T] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Pool[T]{
		factory: factory,
		maxSize: maxSize,
	}
}

// SetSizeEstimate sets the per-instance byte estimate used for memory stats.
func (p *Pool[T]) SetSizeEstimate(bytes int) *Pool[T] {
	p.sizeEstimate = bytes
	return p
}

// Obtain returns a pooled instance when one is available, constructing a
// fresh one otherwise.
func (p *Pool[T]) Obtain() T {
	p.obtained++
	if n := len(p.items); n > 0 {
		item := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		return item
	}
	p.created++
	return p.factory()
}

// Free resets the instance and returns it to the pool. Over-capacity frees
// silently drop the instance; that is the capacity policy, not an error.
func (p *Pool[T]) Free(item T) {
	p.released++
	if len(p.items) >= p.maxSize {
		return
	}
	item.Reset()
	p.items = append(p.items, item)
}

// WarmUp pre-populates the pool up to min(count, maxSize) instances, used at
// scene load to avoid first-use allocation spikes.
func (p *Pool[T]) WarmUp(count int) {
	target := min(count, p.maxSize)
	for len(p.items) < target {
		p.created++
		p.items = append(p.items, p.factory())
	}
}

// Size returns the number of instances currently retained.
func (p *Pool[T]) Size() int {
	return len(p.items)
}

// MaxSize returns the retention bound.
func (p *Pool[T]) MaxSize() int {
	return p.maxSize
}

// Clear drops every retained instance, used on teardown.
func (p *Pool[T]) Clear() {
	p.items = nil
}

// Compact releases slack slice capacity accumulated by churn.
func (p *Pool[T]) Compact() {
	if cap(p.items) <= 2*len(p.items) {
		return
	}
	trimmed := make([]T, len(p.items))
	copy(trimmed, p.items)
	p.items = trimmed
}

// Stats returns the pool's counters. HitRate is the fraction of obtains
// served without construction.
func (p *Pool[T]) Stats() PoolStats {
	hitRate := 0.0
	if p.obtained > 0 {
		hitRate = float64(p.obtained-p.created) / float64(p.obtained)
	}
	return PoolStats{
		Size:           len(p.items),
		MaxSize:        p.maxSize,
		TotalCreated:   p.created,
		TotalObtained:  p.obtained,
		TotalReleased:  p.released,
		HitRate:        hitRate,
		EstimatedBytes: len(p.items) * p.sizeEstimate,
	}
}

// TieredPool wraps several pools of increasing capacity. Obtain scans tiers
// smallest-first for a non-empty one; Free inserts into the first tier with
// spare capacity. This bounds worst-case pool memory while smoothing burst
// allocation.
type TieredPool[T Poolable] struct {
	tiers   []*Pool[T]
	dropped int64
}

// NewTieredPool creates one tier per entry of tierSizes (sorted ascending).
func NewTieredPool[T Poolable](factory func() T, tierSizes ...int) *TieredPool[T] {
	sizes := append([]int(nil), tierSizes...)
	if len(sizes) == 0 {
		sizes = []int{DefaultPoolSize}
	}
	sort.Ints(sizes)
	tiers := make([]*Pool[T], len(sizes))
	for i, size := range sizes {
		tiers[i] = NewPool(factory, size)
	}
	return &TieredPool[T]{tiers: tiers}
}

// SetSizeEstimate sets the per-instance byte estimate on every tier.
func (tp *TieredPool[T]) SetSizeEstimate(bytes int) *TieredPool[T] {
	for _, tier := range tp.tiers {
		tier.SetSizeEstimate(bytes)
	}
	return tp
}

// Obtain pops from the smallest non-empty tier, constructing through the
// first tier when all are empty.
func (tp *TieredPool[T]) Obtain() T {
	for _, tier := range tp.tiers {
		if tier.Size() > 0 {
			return tier.Obtain()
		}
	}
	return tp.tiers[0].Obtain()
}

// Free inserts into the first tier with spare capacity, dropping the
// instance when every tier is full.
func (tp *TieredPool[T]) Free(item T) {
	for _, tier := range tp.tiers {
		if tier.Size() < tier.MaxSize() {
			tier.Free(item)
			return
		}
	}
	tp.dropped++
}

// WarmUp fills tiers smallest-first until count instances are retained in
// total, counting instances the tiers already hold.
func (tp *TieredPool[T]) WarmUp(count int) {
	remaining := count
	for _, tier := range tp.tiers {
		if remaining <= 0 {
			return
		}
		tier.WarmUp(remaining)
		remaining -= tier.Size()
	}
}

// Size returns the total instances retained across tiers.
func (tp *TieredPool[T]) Size() int {
	total := 0
	for _, tier := range tp.tiers {
		total += tier.Size()
	}
	return total
}

// Clear drops every retained instance in every tier.
func (tp *TieredPool[T]) Clear() {
	for _, tier := range tp.tiers {
		tier.Clear()
	}
}

// Compact trims slack capacity in every tier.
func (tp *TieredPool[T]) Compact() {
	for _, tier := range tp.tiers {
		tier.Compact()
	}
}

// Stats aggregates tier counters. Frees dropped because every tier was full
// still count as released.
func (tp *TieredPool[T]) Stats() PoolStats {
	agg := PoolStats{TotalReleased: tp.dropped}
	for _, tier := range tp.tiers {
		s := tier.Stats()
		agg.Size += s.Size
		agg.MaxSize += s.MaxSize
		agg.TotalCreated += s.TotalCreated
		agg.TotalObtained += s.TotalObtained
		agg.TotalReleased += s.TotalReleased
		agg.EstimatedBytes += s.EstimatedBytes
	}
	if agg.TotalObtained > 0 {
		agg.HitRate = float64(agg.TotalObtained-agg.TotalCreated) / float64(agg.TotalObtained)
	}
	return agg
}

// ManagedPool is what the PoolManager requires of a registered pool.
type ManagedPool interface {
	Stats() PoolStats
	Clear()
	Compact()
}

// instanceRecycler is implemented by pools that can accept a type-erased
// instance back, as storage hands them over on component removal.
type instanceRecycler interface {
	FreeInstance(instance any) bool
}

// instanceProvider is implemented by pools that can hand out a type-erased
// instance, used by snapshot restore to prefer pooled allocation.
type instanceProvider interface {
	ObtainInstance() any
}

// PoolManager is an explicitly constructed process-wide registry of pools
// keyed by type name. It replaces a pool singleton: the hosting application
// owns it and passes it by reference, so there is no hidden global state.
// All mutation happens on the single logic thread.
type PoolManager struct {
	pools  map[string]ManagedPool
	order  []string
	cursor int
	logger *zap.Logger
}

// NewPoolManager creates an empty pool registry.
func NewPoolManager(logger *zap.Logger) *PoolManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolManager{
		pools:  make(map[string]ManagedPool),
		logger: logger,
	}
}

// Register adds a pool under the given type name. Re-registering replaces
// the previous pool and is logged, since it usually indicates double init.
func (m *PoolManager) Register(name string, pool ManagedPool) {
	if _, exists := m.pools[name]; exists {
		m.logger.Warn("pool manager: replacing registered pool", zap.String("type", name))
	} else {
		m.order = append(m.order, name)
	}
	m.pools[name] = pool
}

// Get returns the pool registered under the given type name.
func (m *PoolManager) Get(name string) (ManagedPool, bool) {
	pool, ok := m.pools[name]
	return pool, ok
}

// Update runs time-boxed compaction: pools are compacted round-robin until
// the budget is spent. At least one pool is compacted per call so a tiny
// budget still makes progress.
func (m *PoolManager) Update(budget time.Duration) {
	if len(m.order) == 0 {
		return
	}
	deadline := time.Now().Add(budget)
	for range m.order {
		name := m.order[m.cursor%len(m.order)]
		m.cursor++
		m.pools[name].Compact()
		if !time.Now().Before(deadline) {
			return
		}
	}
}

// Clear empties every registered pool, used on teardown.
func (m *PoolManager) Clear() {
	for _, pool := range m.pools {
		pool.Clear()
	}
}

// CollectStats returns per-type pool statistics keyed by type name.
func (m *PoolManager) CollectStats() map[string]PoolStats {
	stats := make(map[string]PoolStats, len(m.pools))
	for name, pool := range m.pools {
		stats[name] = pool.Stats()
	}
	return stats
}

// obtainInstance hands out a pooled instance for the named type when a
// registered pool can provide one.
func (m *PoolManager) obtainInstance(name string) (any, bool) {
	pool, ok := m.pools[name]
	if !ok {
		return nil, false
	}
	provider, ok := pool.(instanceProvider)
	if !ok {
		return nil, false
	}
	return provider.ObtainInstance(), true
}

// recycleInstance offers a detached component instance back to its pool.
// Returns false when no pool accepts it; the instance is then simply
// garbage.
func (m *PoolManager) recycleInstance(name string, instance any) bool {
	pool, ok := m.pools[name]
	if !ok {
		return false
	}
	recycler, ok := pool.(instanceRecycler)
	if !ok {
		return false
	}
	return recycler.FreeInstance(instance)
}
