package system

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

// MovementSystem pushes Velocity components into non-static physics bodies.
// It must run before the contact system so the step integrates them.
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem {
	return &MovementSystem{}
}

func (s *MovementSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	ecs.ForEach2(w, component.VelocityComponent.Kind(), component.PhysicsBodyComponent.Kind(), func(e ecs.Entity, vel *component.Velocity, bodyComp *component.PhysicsBody) {
		if bodyComp.Body == nil || bodyComp.Static {
			return
		}
		bodyComp.Body.SetVelocityVector(cp.Vector{X: vel.X, Y: vel.Y})
	})
}
