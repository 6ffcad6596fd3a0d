package main

import (
	"math/rand"

	"github.com/plus3/stagehand/ecs"
)

// Kinematic carries motion state with custom serialization and change
// detection, so incremental captures stay small for entities at rest.
type Kinematic struct {
	X, Y, VX, VY float64
}

func (k *Kinematic) Serialize() (map[string]any, error) {
	return map[string]any{"x": k.X, "y": k.Y, "vx": k.VX, "vy": k.VY}, nil
}

func (k *Kinematic) Deserialize(data map[string]any) error {
	k.X, _ = data["x"].(float64)
	k.Y, _ = data["y"].(float64)
	k.VX, _ = data["vx"].(float64)
	k.VY, _ = data["vy"].(float64)
	return nil
}

func (k *Kinematic) HasChanged(base map[string]any) bool {
	x, _ := base["x"].(float64)
	y, _ := base["y"].(float64)
	return k.X != x || k.Y != y
}

// Particle is a short-lived pooled component; the churn loop attaches and
// detaches it constantly to exercise the component pool path.
type Particle struct {
	Life, Fade float64
}

func (p *Particle) Reset() {
	*p = Particle{}
}

// Loadout goes through the default field-walk serializer.
type Loadout struct {
	Slots  []string
	Counts map[string]int
}

func registerStressComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Kinematic](registry, ecs.WithIncremental(true))
	ecs.RegisterComponent[Particle](registry, ecs.WithSnapshot(false))
	ecs.RegisterComponent[Loadout](registry, ecs.WithSyncPriority(1))
}

func randomKinematic() *Kinematic {
	return &Kinematic{
		X:  rand.Float64() * 1000,
		Y:  rand.Float64() * 1000,
		VX: rand.Float64()*20 - 10,
		VY: rand.Float64()*20 - 10,
	}
}

func randomLoadout() *Loadout {
	return &Loadout{
		Slots:  []string{"primary", "secondary"},
		Counts: map[string]int{"ammo": rand.Intn(200)},
	}
}

// physicsSystem integrates kinematics; it is the per-tick workload.
type physicsSystem struct{}

func (physicsSystem) Execute(frame *ecs.UpdateFrame) {
	storage := frame.Scene.Storage()
	for _, e := range frame.Scene.Queries().EntitiesWith(ecs.TypeOf[Kinematic]()) {
		k := ecs.GetComponent[Kinematic](storage, e.Id)
		k.X += k.VX * frame.DeltaTime
		k.Y += k.VY * frame.DeltaTime
		if k.X < 0 || k.X > 1000 {
			k.VX = -k.VX
		}
		if k.Y < 0 || k.Y > 1000 {
			k.VY = -k.VY
		}
	}
}

// decaySystem ages particles and releases expired ones back to their pool.
type decaySystem struct{}

func (decaySystem) Execute(frame *ecs.UpdateFrame) {
	storage := frame.Scene.Storage()
	for _, e := range frame.Scene.Queries().EntitiesWith(ecs.TypeOf[Particle]()) {
		p := ecs.GetComponent[Particle](storage, e.Id)
		p.Life -= p.Fade * frame.DeltaTime
		if p.Life <= 0 {
			ecs.RemoveComponent[Particle](storage, e)
		}
	}
}
