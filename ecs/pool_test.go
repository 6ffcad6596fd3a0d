package ecs_test

import (
	"testing"
	"time"

	"github.com/plus3/stagehand/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBulletPool(maxSize int) *ecs.Pool[*Bullet] {
	return ecs.NewPool(func() *Bullet { return &Bullet{} }, maxSize)
}

func TestPoolObtainConstructsWhenEmpty(t *testing.T) {
	pool := newBulletPool(8)

	b := pool.Obtain()
	require.NotNil(t, b)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.TotalCreated)
	assert.Equal(t, int64(1), stats.TotalObtained)
	assert.Equal(t, int64(0), stats.TotalReleased)
	assert.Equal(t, 0, stats.Size)
}

func TestPoolObtainFreeRoundTrip(t *testing.T) {
	pool := newBulletPool(8)

	b := pool.Obtain()
	sizeBefore := pool.Size()
	pool.Free(b)
	b2 := pool.Obtain()
	pool.Free(b2)

	assert.Equal(t, sizeBefore+1, pool.Size())
	assert.Same(t, b, b2)

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.TotalObtained)
	assert.Equal(t, int64(2), stats.TotalReleased)
	assert.Equal(t, int64(1), stats.TotalCreated)
}

func TestPoolFreeResets(t *testing.T) {
	pool := newBulletPool(8)

	b := pool.Obtain()
	b.X, b.Live = 42, true
	pool.Free(b)

	recycled := pool.Obtain()
	assert.Same(t, b, recycled)
	assert.Zero(t, recycled.X)
	assert.False(t, recycled.Live)
}

func TestPoolCapacityDropsSilently(t *testing.T) {
	pool := newBulletPool(2)

	a, b, c := pool.Obtain(), pool.Obtain(), pool.Obtain()
	pool.Free(a)
	pool.Free(b)
	pool.Free(c)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(3), stats.TotalReleased)
}

func TestPoolHitRate(t *testing.T) {
	pool := newBulletPool(1)

	const n = 10
	for i := 0; i < n; i++ {
		pool.Free(pool.Obtain())
	}

	// One construction, then every later obtain hits the pooled instance.
	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.TotalCreated)
	assert.InDelta(t, float64(n-1)/float64(n), stats.HitRate, 1e-9)
}

func TestPoolWarmUp(t *testing.T) {
	pool := newBulletPool(4)

	pool.WarmUp(10)
	assert.Equal(t, 4, pool.Size())

	stats := pool.Stats()
	assert.Equal(t, int64(4), stats.TotalCreated)
	assert.Equal(t, int64(0), stats.TotalObtained)

	// Warming an already-warm pool adds nothing.
	pool.WarmUp(10)
	assert.Equal(t, 4, pool.Size())
}

func TestPoolEstimatedBytes(t *testing.T) {
	pool := newBulletPool(8).SetSizeEstimate(32)

	pool.WarmUp(3)
	assert.Equal(t, 96, pool.Stats().EstimatedBytes)
}

func TestTieredPoolObtainSmallestFirst(t *testing.T) {
	pool := ecs.NewTieredPool(func() *Bullet { return &Bullet{} }, 4, 2)

	pool.WarmUp(6)
	assert.Equal(t, 6, pool.Size())

	for i := 0; i < 6; i++ {
		pool.Obtain()
	}
	assert.Equal(t, 0, pool.Size())

	// All tiers empty: obtain still constructs.
	assert.NotNil(t, pool.Obtain())
}

func TestTieredPoolWarmUpTopsUpPartiallyFilledTiers(t *testing.T) {
	pool := ecs.NewTieredPool(func() *Bullet { return &Bullet{} }, 4, 2)

	// Leave the small tier partially filled, then warm to a total.
	pool.Free(&Bullet{})
	pool.WarmUp(3)
	assert.Equal(t, 3, pool.Size())

	// A total already met adds nothing.
	pool.WarmUp(2)
	assert.Equal(t, 3, pool.Size())
}

func TestTieredPoolFreeOverflow(t *testing.T) {
	pool := ecs.NewTieredPool(func() *Bullet { return &Bullet{} }, 1, 2)

	bullets := make([]*Bullet, 5)
	for i := range bullets {
		bullets[i] = pool.Obtain()
	}
	for _, b := range bullets {
		pool.Free(b)
	}

	// Capacity is 3 across tiers; the two overflow frees are dropped but
	// still counted as released.
	stats := pool.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, int64(5), stats.TotalReleased)
}

func TestPoolManagerRegisterAndGet(t *testing.T) {
	manager := ecs.NewPoolManager(nil)
	pool := newBulletPool(8)

	manager.Register("bullets", pool)

	got, ok := manager.Get("bullets")
	require.True(t, ok)
	assert.Equal(t, pool.Stats(), got.Stats())

	_, ok = manager.Get("missing")
	assert.False(t, ok)
}

func TestPoolManagerCollectStats(t *testing.T) {
	manager := ecs.NewPoolManager(nil)
	bullets := newBulletPool(8)
	bullets.WarmUp(2)
	manager.Register("bullets", bullets)
	manager.Register("empty", newBulletPool(4))

	stats := manager.CollectStats()
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["bullets"].Size)
	assert.Equal(t, 0, stats["empty"].Size)
}

func TestPoolManagerClear(t *testing.T) {
	manager := ecs.NewPoolManager(nil)
	pool := newBulletPool(8)
	pool.WarmUp(4)
	manager.Register("bullets", pool)

	manager.Clear()
	assert.Equal(t, 0, pool.Size())
}

func TestPoolManagerUpdateCompacts(t *testing.T) {
	manager := ecs.NewPoolManager(nil)
	pool := newBulletPool(64)
	manager.Register("bullets", pool)

	// Churn to build slack capacity, then drain.
	bullets := make([]*Bullet, 32)
	for i := range bullets {
		bullets[i] = pool.Obtain()
	}
	for _, b := range bullets {
		pool.Free(b)
	}
	for i := 0; i < 30; i++ {
		pool.Obtain()
	}

	manager.Update(time.Millisecond)
	assert.Equal(t, 2, pool.Size())
}

func TestComponentPoolRecyclesThroughStorage(t *testing.T) {
	registry := newTestRegistry()
	manager := ecs.NewPoolManager(nil)
	pool := ecs.RegisterComponentPool(manager, registry, func() *Bullet { return &Bullet{} }, 16)

	scene := ecs.NewScene(registry, ecs.WithScenePools(manager))
	e := scene.CreateEntity("turret")

	b := pool.Obtain()
	b.Speed = 12
	scene.Storage().AddComponent(e, b)

	// Removal hands the instance back to its pool, reset.
	removed := ecs.RemoveComponent[Bullet](scene.Storage(), e)
	assert.Same(t, b, removed)
	assert.Equal(t, 1, pool.Stats().Size)

	recycled := pool.Obtain()
	assert.Same(t, b, recycled)
	assert.Zero(t, recycled.Speed)
}

func TestComponentPoolTypeName(t *testing.T) {
	registry := newTestRegistry()
	manager := ecs.NewPoolManager(nil)
	pool := ecs.RegisterComponentPool(manager, registry, func() *Bullet { return &Bullet{} }, 8)

	assert.Equal(t, "ecs_test.Bullet", pool.TypeName())

	_, ok := manager.Get("ecs_test.Bullet")
	assert.True(t, ok)
}
