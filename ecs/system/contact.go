package system

import (
	"errors"
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
	"github.com/milk9111/collisioncallback/logging"
)

const collisionTypeParticipant cp.CollisionType = 1

const defaultTimeStep = 1.0 / 60.0

// Receiver reacts to contacts of the entity it is attached to.
// *callback.Registry implements it.
type Receiver interface {
	OnContact(other ecs.Entity) error
}

// ErrNotAlive is returned when attaching a receiver to a dead entity.
var ErrNotAlive = errors.New("system: entity not alive")

// ErrNoTransform is returned when attaching to an entity the contact system
// cannot place in the space.
var ErrNoTransform = errors.New("system: entity has no transform")

type bodyInfo struct {
	body   *cp.Body
	shape  *cp.Shape
	static bool
}

type contactPair struct {
	a ecs.Entity
	b ecs.Entity
}

// ContactSystem steps the Chipmunk space and reports contact starts to the
// receivers attached to either participant. Contacts recorded during the step
// are dispatched after it, then destroy requests made by callbacks are
// applied.
type ContactSystem struct {
	TimeStep float64

	space         *cp.Space
	handlersReady bool
	gravity       cp.Vector
	logger        *zap.Logger

	bodies        map[ecs.Entity]*bodyInfo
	shapeToEntity map[*cp.Shape]ecs.Entity
	receivers     map[ecs.Entity]Receiver
	contacts      []contactPair
}

func NewContactSystem(logger *zap.Logger) *ContactSystem {
	logger = logging.OrNop(logger)
	return &ContactSystem{
		TimeStep:      defaultTimeStep,
		logger:        logger,
		bodies:        make(map[ecs.Entity]*bodyInfo),
		shapeToEntity: make(map[*cp.Shape]ecs.Entity),
		receivers:     make(map[ecs.Entity]Receiver),
	}
}

func (cs *ContactSystem) Space() *cp.Space {
	if cs == nil {
		return nil
	}
	return cs.space
}

func (cs *ContactSystem) SetGravity(x, y float64) {
	cs.gravity = cp.Vector{X: x, Y: y}
	if cs.space != nil {
		cs.space.SetGravity(cs.gravity)
	}
}

// Attach routes the contacts of e to r. Entities without a collider shape
// never produce contacts, so attaching to one is a configuration error. The
// same holds for entities without a Transform.
func (cs *ContactSystem) Attach(w *ecs.World, e ecs.Entity, r Receiver) error {
	if r == nil {
		return fmt.Errorf("system: attach %s: nil receiver", e)
	}
	if !w.IsAlive(e) {
		return fmt.Errorf("system: attach %s: %w", e, ErrNotAlive)
	}
	if !w.HasShape(e) {
		return fmt.Errorf("system: attach %s: %w", e, ecs.ErrNoShape)
	}
	if !ecs.Has(w, e, component.TransformComponent.Kind()) {
		return fmt.Errorf("system: attach %s: %w", e, ErrNoTransform)
	}
	if c, ok := r.(interface{ Err() error }); ok && c.Err() != nil {
		return fmt.Errorf("system: attach %s: %w", e, c.Err())
	}
	cs.receivers[e] = r
	return nil
}

func (cs *ContactSystem) Detach(e ecs.Entity) {
	delete(cs.receivers, e)
}

func (cs *ContactSystem) Receiver(e ecs.Entity) (Receiver, bool) {
	r, ok := cs.receivers[e]
	return r, ok
}

func (cs *ContactSystem) Update(w *ecs.World) {
	if cs == nil || w == nil {
		return
	}

	if cs.space == nil {
		cs.space = cp.NewSpace()
		cs.space.Iterations = 20
		cs.space.SetGravity(cs.gravity)
		cs.handlersReady = false
	}
	cs.ensureHandlers()
	cs.cleanupEntities(w)
	cs.syncEntities(w)

	if cs.TimeStep <= 0 {
		cs.TimeStep = defaultTimeStep
	}
	cs.space.Step(cs.TimeStep)

	cs.syncTransforms(w)
	cs.flushContacts(w)

	if destroyed := w.FlushDestroyed(); len(destroyed) > 0 {
		cs.logger.Debug("contact: destroyed entities", zap.Int("count", len(destroyed)))
		cs.cleanupEntities(w)
	}
}

func (cs *ContactSystem) ensureHandlers() {
	if cs.handlersReady || cs.space == nil {
		return
	}

	handler := cs.space.NewCollisionHandler(collisionTypeParticipant, collisionTypeParticipant)
	handler.UserData = cs
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		sys, ok := userData.(*ContactSystem)
		if !ok || sys == nil {
			return true
		}
		shapeA, shapeB := arb.Shapes()
		a, okA := sys.shapeToEntity[shapeA]
		b, okB := sys.shapeToEntity[shapeB]
		if !okA || !okB || a == b {
			return true
		}
		// The space is locked during the step; dispatch happens after it.
		sys.contacts = append(sys.contacts, contactPair{a: a, b: b})
		return true
	}

	cs.handlersReady = true
}

func (cs *ContactSystem) flushContacts(w *ecs.World) {
	if len(cs.contacts) == 0 {
		return
	}
	contacts := cs.contacts
	cs.contacts = nil
	for _, c := range contacts {
		if c.b < c.a {
			c.a, c.b = c.b, c.a
		}
		w.Events().Push(ecs.Event{Type: ecs.EventTypeContact, Data: ecs.ContactEvent{A: c.a, B: c.b}})
		cs.deliver(w, c.a, c.b)
		cs.deliver(w, c.b, c.a)
	}
}

func (cs *ContactSystem) deliver(w *ecs.World, self, other ecs.Entity) {
	r, ok := cs.receivers[self]
	if !ok {
		return
	}
	if !w.IsAlive(self) || !w.IsAlive(other) {
		return
	}
	if err := r.OnContact(other); err != nil {
		cs.logger.Warn("contact: receiver reported failures",
			zap.Stringer("self", self),
			zap.Stringer("other", other),
			zap.Error(err))
	}
}

func (cs *ContactSystem) syncEntities(w *ecs.World) {
	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if _, ok := cs.bodies[e]; ok {
			return
		}
		if !bodyComp.HasShape() {
			cs.logger.Warn("contact: entity has no usable shape", zap.Stringer("entity", e), zap.String("kind", string(bodyComp.Kind)))
			return
		}
		layer, _ := ecs.Get(w, e, component.CollisionLayerComponent.Kind())
		info := cs.createBodyInfo(transform, bodyComp, layer)
		if info == nil {
			return
		}
		cs.bodies[e] = info
		cs.shapeToEntity[info.shape] = e
		bodyComp.Body = info.body
		bodyComp.Shape = info.shape
	})
}

func (cs *ContactSystem) createBodyInfo(transform *component.Transform, bodyComp *component.PhysicsBody, layer *component.CollisionLayer) *bodyInfo {
	info := &bodyInfo{static: bodyComp.Static}

	var body *cp.Body
	switch {
	case bodyComp.Static:
		body = cs.space.StaticBody
	case bodyComp.Kinematic:
		body = cp.NewKinematicBody()
	default:
		mass := bodyComp.Mass
		if mass <= 0 {
			mass = 1
		}
		var moment float64
		switch bodyComp.Kind {
		case component.ShapeCircle:
			moment = cp.MomentForCircle(mass, 0, bodyComp.Radius, cp.Vector{})
		case component.ShapeSegment:
			moment = cp.MomentForSegment(mass, cp.Vector{}, cp.Vector{X: bodyComp.Width, Y: bodyComp.Height}, bodyComp.Radius)
		default:
			moment = cp.MomentForBox(mass, bodyComp.Width, bodyComp.Height)
		}
		body = cp.NewBody(mass, moment)
	}

	// Static shapes are baked at their world position on the shared static
	// body; everything else is positioned through its own body.
	offset := cp.Vector{}
	if bodyComp.Static {
		offset = cp.Vector{X: transform.X, Y: transform.Y}
	} else {
		body.SetPosition(cp.Vector{X: transform.X, Y: transform.Y})
		body.SetAngle(transform.Rotation)
		cs.space.AddBody(body)
	}

	var shape *cp.Shape
	switch bodyComp.Kind {
	case component.ShapeCircle:
		shape = cp.NewCircle(body, bodyComp.Radius, offset)
	case component.ShapeSegment:
		end := offset.Add(cp.Vector{X: bodyComp.Width, Y: bodyComp.Height})
		shape = cp.NewSegment(body, offset, end, bodyComp.Radius)
	default:
		bb := cp.BB{
			L: offset.X - bodyComp.Width/2,
			B: offset.Y - bodyComp.Height/2,
			R: offset.X + bodyComp.Width/2,
			T: offset.Y + bodyComp.Height/2,
		}
		shape = cp.NewBox2(body, bb, 0)
	}

	shape.SetFriction(bodyComp.Friction)
	shape.SetElasticity(bodyComp.Elasticity)
	shape.SetSensor(bodyComp.Sensor)
	shape.SetCollisionType(collisionTypeParticipant)
	if layer != nil {
		shape.SetFilter(shapeFilter(layer))
	}
	cs.space.AddShape(shape)

	info.body = body
	info.shape = shape
	return info
}

func shapeFilter(layer *component.CollisionLayer) cp.ShapeFilter {
	category := uint(layer.Category)
	if category == 0 {
		category = 1
	}
	mask := uint(layer.Mask)
	if mask == 0 {
		mask = ^uint(0)
	}
	return cp.ShapeFilter{Categories: category, Mask: mask}
}

func (cs *ContactSystem) syncTransforms(w *ecs.World) {
	ecs.ForEach2(w, component.PhysicsBodyComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if bodyComp.Body == nil || bodyComp.Static {
			return
		}
		pos := bodyComp.Body.Position()
		transform.X = pos.X
		transform.Y = pos.Y
		transform.Rotation = bodyComp.Body.Angle()
	})
}

func (cs *ContactSystem) cleanupEntities(w *ecs.World) {
	for e, info := range cs.bodies {
		if w.IsAlive(e) && ecs.Has(w, e, component.PhysicsBodyComponent.Kind()) {
			continue
		}
		if info.shape != nil {
			cs.space.RemoveShape(info.shape)
			delete(cs.shapeToEntity, info.shape)
		}
		if info.body != nil && !info.static {
			cs.space.RemoveBody(info.body)
		}
		delete(cs.bodies, e)
	}

	for e := range cs.receivers {
		if !w.IsAlive(e) {
			delete(cs.receivers, e)
		}
	}
}

// EntityOf returns the entity that owns shape.
func (cs *ContactSystem) EntityOf(shape *cp.Shape) (ecs.Entity, bool) {
	e, ok := cs.shapeToEntity[shape]
	return e, ok
}
