package ecs

// System represents a behavior that operates on entities with specific
// components. Systems run sequentially in registration order within a tick;
// structural changes they request take effect at the next tick's flush.
type System interface {
	Execute(frame *UpdateFrame)
}

// LateSystem is the optional late-update capability. Late execution runs
// after every system's Execute has finished for the tick.
type LateSystem interface {
	LateExecute(frame *UpdateFrame)
}

// Starter is implemented by systems that need setup when the scene begins.
type Starter interface {
	Start(scene *Scene)
}

// Stopper is implemented by systems that need teardown when the scene ends.
type Stopper interface {
	Stop(scene *Scene)
}
