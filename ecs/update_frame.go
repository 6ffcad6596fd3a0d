package ecs

// UpdateFrame is the per-tick context handed to systems.
type UpdateFrame struct {
	DeltaTime float64
	Scene     *Scene
}
