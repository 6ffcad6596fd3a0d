package ecs_test

import "github.com/plus3/stagehand/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

type AI struct {
	State int
}

type Inventory struct {
	Items []string
}

type Stats struct {
	Attributes map[string]int
}

// Transform implements the full capability surface: custom serialization,
// change detection against a base payload, and pooled reuse.
type Transform struct {
	X, Y, Rotation float64
}

func (t *Transform) Serialize() (map[string]any, error) {
	return map[string]any{"x": t.X, "y": t.Y, "rot": t.Rotation}, nil
}

func (t *Transform) Deserialize(data map[string]any) error {
	t.X, _ = data["x"].(float64)
	t.Y, _ = data["y"].(float64)
	t.Rotation, _ = data["rot"].(float64)
	return nil
}

func (t *Transform) HasChanged(base map[string]any) bool {
	x, _ := base["x"].(float64)
	y, _ := base["y"].(float64)
	rot, _ := base["rot"].(float64)
	return t.X != x || t.Y != y || t.Rotation != rot
}

func (t *Transform) Reset() {
	*t = Transform{}
}

// Emitter carries its own enabled flag.
type Emitter struct {
	Rate    float64
	enabled bool
}

func (e *Emitter) Enabled() bool           { return e.enabled }
func (e *Emitter) SetEnabled(enabled bool) { e.enabled = enabled }

// Broken fails every serialization attempt.
type Broken struct {
	Value int
}

func (b *Broken) Serialize() (map[string]any, error) {
	return nil, errSerializeBroken
}

func (b *Broken) Deserialize(map[string]any) error {
	return errSerializeBroken
}

type serializeError string

func (e serializeError) Error() string { return string(e) }

const errSerializeBroken = serializeError("broken component")

// Opaque mixes plain fields with ones the default field walk must drop.
type Opaque struct {
	Label   string
	Channel chan int
}

// Bullet is a pooled component used by pool manager tests.
type Bullet struct {
	X, Y, Speed float64
	Live        bool
}

func (b *Bullet) Reset() {
	*b = Bullet{}
}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[Stats](registry)
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Emitter](registry)
	ecs.RegisterComponent[Broken](registry)
	ecs.RegisterComponent[Opaque](registry)
	ecs.RegisterComponent[Bullet](registry)
	return registry
}

func newTestScene() *ecs.Scene {
	return ecs.NewScene(newTestRegistry())
}
