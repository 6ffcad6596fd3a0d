package ecs_test

import (
	"testing"

	"github.com/plus3/stagehand/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetComponent(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("mover")

	pos := &Position{X: 3.0, Y: 4.0}
	storage.AddComponent(e, pos)

	got := ecs.GetComponent[Position](storage, e.Id)
	require.NotNil(t, got)
	assert.Equal(t, float32(3.0), got.X)
	assert.Equal(t, float32(4.0), got.Y)

	// The stored component is the same instance that was added, not a copy.
	assert.Same(t, pos, got)
	pos.X = 99
	assert.Equal(t, float32(99), ecs.GetComponent[Position](storage, e.Id).X)
}

func TestAddComponentUpdatesSignature(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("sig")

	assert.True(t, e.Signature().IsZero())

	storage.AddComponent(e, &Position{})
	storage.AddComponent(e, &Velocity{})

	sig, ok := scene.Registry().SignatureOf(ecs.TypeOf[Position](), ecs.TypeOf[Velocity]())
	require.True(t, ok)
	assert.True(t, e.Signature().ContainsAll(sig))
	assert.Equal(t, 2, e.Signature().Count())
}

func TestGetComponentMissing(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("empty")

	assert.Nil(t, ecs.GetComponent[Position](storage, e.Id))
	assert.Nil(t, storage.GetComponent(e.Id, ecs.TypeOf[Position]()))
	assert.False(t, storage.HasComponent(e.Id, ecs.TypeOf[Position]()))

	// Unknown entity ids behave the same as missing components.
	assert.Nil(t, ecs.GetComponent[Position](storage, 9999))
}

func TestAddComponentReplaces(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("swap")

	storage.AddComponent(e, &Health{Current: 10, Max: 100})
	storage.AddComponent(e, &Health{Current: 50, Max: 100})

	got := ecs.GetComponent[Health](storage, e.Id)
	require.NotNil(t, got)
	assert.Equal(t, 50, got.Current)
	assert.Equal(t, 1, e.Signature().Count())
}

func TestRemoveComponent(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("shrinking")

	storage.AddComponent(e, &Position{X: 1})
	storage.AddComponent(e, &Velocity{DX: 2})

	removed := ecs.RemoveComponent[Velocity](storage, e)
	require.NotNil(t, removed)
	assert.Equal(t, float32(2), removed.DX)

	assert.False(t, storage.HasComponent(e.Id, ecs.TypeOf[Velocity]()))
	assert.True(t, storage.HasComponent(e.Id, ecs.TypeOf[Position]()))
	assert.Equal(t, 1, e.Signature().Count())

	// Removing again returns nothing.
	assert.Nil(t, ecs.RemoveComponent[Velocity](storage, e))
}

func TestRemoveAllComponents(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("doomed")

	storage.AddComponent(e, &Position{})
	storage.AddComponent(e, &Velocity{})
	storage.AddComponent(e, &Health{})

	storage.RemoveAllComponents(e)

	assert.True(t, e.Signature().IsZero())
	assert.False(t, storage.HasComponent(e.Id, ecs.TypeOf[Position]()))
	assert.False(t, storage.HasComponent(e.Id, ecs.TypeOf[Health]()))
}

func TestAddComponentNonPointerPanics(t *testing.T) {
	scene := newTestScene()
	e := scene.CreateEntity("strict")

	assert.Panics(t, func() {
		scene.Storage().AddComponent(e, Position{X: 1})
	})
}

func TestAddComponentUnregisteredPanics(t *testing.T) {
	type Unregistered struct{ V int }

	scene := newTestScene()
	e := scene.CreateEntity("strict")

	assert.Panics(t, func() {
		scene.Storage().AddComponent(e, &Unregistered{})
	})
}

func TestCollectStats(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()

	stats := storage.CollectStats()
	assert.Zero(t, stats.ComponentCount)

	for i := 0; i < 3; i++ {
		e := scene.CreateEntity("e")
		storage.AddComponent(e, &Position{})
	}
	e := scene.CreateEntity("h")
	storage.AddComponent(e, &Health{})

	stats = storage.CollectStats()
	assert.Equal(t, 4, stats.ComponentCount)

	byType := map[string]int{}
	for _, entry := range stats.Breakdown {
		byType[entry.TypeName] = entry.Count
	}
	assert.Equal(t, 3, byType["ecs_test.Position"])
	assert.Equal(t, 1, byType["ecs_test.Health"])
}

func TestStorageClear(t *testing.T) {
	scene := newTestScene()
	storage := scene.Storage()
	e := scene.CreateEntity("transient")
	storage.AddComponent(e, &Position{})

	storage.Clear()

	assert.Nil(t, storage.GetComponent(e.Id, ecs.TypeOf[Position]()))
	assert.Zero(t, storage.CollectStats().ComponentCount)
}
