package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milk9111/collisioncallback/callback"
	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

type bodyOpts struct {
	x, y   float64
	static bool
	sensor bool
	layer  *component.CollisionLayer
	labels []string
}

func spawnBody(t *testing.T, w *ecs.World, o bodyOpts) ecs.Entity {
	t.Helper()
	e := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, e, component.TransformComponent.Kind(), &component.Transform{X: o.x, Y: o.y}))
	require.NoError(t, ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{
		Kind:   component.ShapeBox,
		Width:  10,
		Height: 10,
		Static: o.static,
		Sensor: o.sensor,
	}))
	if o.layer != nil {
		require.NoError(t, ecs.Add(w, e, component.CollisionLayerComponent.Kind(), o.layer))
	}
	if len(o.labels) > 0 {
		require.NoError(t, ecs.Add(w, e, component.LabelsComponent.Kind(), &component.Labels{Values: o.labels}))
	}
	return e
}

type recordingReceiver struct {
	others []ecs.Entity
}

func (r *recordingReceiver) OnContact(other ecs.Entity) error {
	r.others = append(r.others, other)
	return nil
}

func TestContactDispatchesToBothParticipants(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	a := spawnBody(t, w, bodyOpts{x: 0, y: 0})
	b := spawnBody(t, w, bodyOpts{x: 5, y: 0, sensor: true})

	ra, rb := &recordingReceiver{}, &recordingReceiver{}
	require.NoError(t, cs.Attach(w, a, ra))
	require.NoError(t, cs.Attach(w, b, rb))

	cs.Update(w)
	assert.Equal(t, []ecs.Entity{b}, ra.others)
	assert.Equal(t, []ecs.Entity{a}, rb.others)

	events := w.Events().Drain()
	require.Len(t, events, 1)
	assert.Equal(t, ecs.EventTypeContact, events[0].Type)
	assert.Equal(t, ecs.ContactEvent{A: a, B: b}, events[0].Data)

	t.Run("persistent_overlap_is_not_a_new_contact", func(t *testing.T) {
		cs.Update(w)
		cs.Update(w)
		assert.Len(t, ra.others, 1)
		assert.Len(t, rb.others, 1)
	})
}

func TestContactEventOrderIsStable(t *testing.T) {
	for _, sensorFirst := range []bool{false, true} {
		w := ecs.NewWorld()
		cs := NewContactSystem(nil)
		first := spawnBody(t, w, bodyOpts{x: 0, y: 0, sensor: sensorFirst})
		second := spawnBody(t, w, bodyOpts{x: 5, y: 0, sensor: !sensorFirst})

		cs.Update(w)

		events := w.Events().Drain()
		require.Len(t, events, 1)
		assert.Equal(t, ecs.ContactEvent{A: first, B: second}, events[0].Data)
	}
}

func TestContactWithStaticWall(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	mover := spawnBody(t, w, bodyOpts{x: 0, y: 0})
	wall := spawnBody(t, w, bodyOpts{x: 4, y: 0, static: true})

	r := &recordingReceiver{}
	require.NoError(t, cs.Attach(w, mover, r))
	cs.Update(w)
	assert.Equal(t, []ecs.Entity{wall}, r.others)
}

func TestSeparatedBodiesDoNotContact(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	a := spawnBody(t, w, bodyOpts{x: 0, y: 0})
	spawnBody(t, w, bodyOpts{x: 100, y: 0})

	r := &recordingReceiver{}
	require.NoError(t, cs.Attach(w, a, r))
	cs.Update(w)
	assert.Empty(t, r.others)
}

func TestCollisionLayersFilterContacts(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	a := spawnBody(t, w, bodyOpts{layer: &component.CollisionLayer{Category: 1, Mask: 1}})
	spawnBody(t, w, bodyOpts{x: 2, sensor: true, layer: &component.CollisionLayer{Category: 2, Mask: 2}})

	r := &recordingReceiver{}
	require.NoError(t, cs.Attach(w, a, r))
	cs.Update(w)
	assert.Empty(t, r.others)
}

func TestAttachValidation(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	shapeless := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, shapeless, component.TransformComponent.Kind(), &component.Transform{}))
	assert.ErrorIs(t, cs.Attach(w, shapeless, &recordingReceiver{}), ecs.ErrNoShape)

	unplaced := ecs.CreateEntity(w)
	require.NoError(t, ecs.Add(w, unplaced, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Kind: component.ShapeBox, Width: 4, Height: 4}))
	assert.ErrorIs(t, cs.Attach(w, unplaced, &recordingReceiver{}), ErrNoTransform)
	_, found := cs.Receiver(unplaced)
	assert.False(t, found)

	dead := spawnBody(t, w, bodyOpts{})
	require.True(t, ecs.DestroyEntity(w, dead))
	assert.ErrorIs(t, cs.Attach(w, dead, &recordingReceiver{}), ErrNotAlive)

	late := ecs.CreateEntity(w)
	inert := callback.New(w, late)
	require.NoError(t, ecs.Add(w, late, component.PhysicsBodyComponent.Kind(), &component.PhysicsBody{Kind: component.ShapeCircle, Radius: 4}))
	assert.ErrorIs(t, cs.Attach(w, late, inert), callback.ErrConfiguration, "validation happens when the registry is created")

	ok := spawnBody(t, w, bodyOpts{})
	assert.Error(t, cs.Attach(w, ok, nil))
	require.NoError(t, cs.Attach(w, ok, &recordingReceiver{}))
	_, found = cs.Receiver(ok)
	assert.True(t, found)
	cs.Detach(ok)
	_, found = cs.Receiver(ok)
	assert.False(t, found)
}

func TestRegistryDestroyIsAppliedAfterDispatch(t *testing.T) {
	w := ecs.NewWorld()
	cs := NewContactSystem(nil)

	self := spawnBody(t, w, bodyOpts{})
	target := spawnBody(t, w, bodyOpts{x: 3, sensor: true, labels: []string{"coin"}})

	reg := callback.New(w, self)
	var sawAlive bool
	_, err := reg.Register(func(e ecs.Entity) { w.MarkDestroy(e) }, callback.ToOther, callback.OnLabel("coin"))
	require.NoError(t, err)
	_, err = reg.Register(func(e ecs.Entity) { sawAlive = w.IsAlive(e) }, callback.ToOther, callback.OnLabel("coin"))
	require.NoError(t, err)
	require.NoError(t, cs.Attach(w, self, reg))

	cs.Update(w)
	assert.True(t, sawAlive, "destroy is deferred until the dispatch completes")
	assert.False(t, w.IsAlive(target))
	assert.True(t, w.IsAlive(self))
	assert.Len(t, cs.bodies, 1)
	assert.Len(t, cs.shapeToEntity, 1)

	t.Run("destroyed_owner_loses_receiver", func(t *testing.T) {
		w.MarkDestroy(self)
		cs.Update(w)
		_, ok := cs.Receiver(self)
		assert.False(t, ok)
		assert.Empty(t, cs.bodies)
	})
}

func TestReceiverFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w := ecs.NewWorld()
	cs := NewContactSystem(zap.New(core))

	self := spawnBody(t, w, bodyOpts{})
	spawnBody(t, w, bodyOpts{x: 3, sensor: true, labels: []string{"spike"}})

	reg := callback.New(w, self)
	_, err := reg.Register(func(ecs.Entity) { panic("spiked") }, callback.ToSelf, callback.OnLabel("spike"))
	require.NoError(t, err)
	require.NoError(t, cs.Attach(w, self, reg))

	require.NotPanics(t, func() { cs.Update(w) })
	assert.Equal(t, 1, logs.FilterMessage("contact: receiver reported failures").Len())
}

func TestMovementMovesBodies(t *testing.T) {
	w := ecs.NewWorld()
	sched := ecs.NewScheduler(NewMovementSystem(), NewContactSystem(nil))

	e := spawnBody(t, w, bodyOpts{})
	require.NoError(t, ecs.Add(w, e, component.VelocityComponent.Kind(), &component.Velocity{X: 60}))

	for i := 0; i < 10; i++ {
		sched.Update(w)
	}
	tr, ok := ecs.Get(w, e, component.TransformComponent.Kind())
	require.True(t, ok)
	assert.Greater(t, tr.X, 5.0)
	assert.InDelta(t, 0, tr.Y, 1e-9)
}

func TestTTLMarksThenContactSystemDestroys(t *testing.T) {
	w := ecs.NewWorld()
	sched := ecs.NewScheduler(NewTTLSystem(), NewContactSystem(nil))

	e := spawnBody(t, w, bodyOpts{})
	require.NoError(t, ecs.Add(w, e, component.TTLComponent.Kind(), &component.TTL{Frames: 2}))

	sched.Update(w)
	assert.True(t, w.IsAlive(e))
	sched.Update(w)
	assert.False(t, w.IsAlive(e))
}
