package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

func TestContactLogNamesParticipants(t *testing.T) {
	w := ecs.NewWorld()
	a := spawnBody(t, w, bodyOpts{x: 0, y: 0})
	b := spawnBody(t, w, bodyOpts{x: 5, y: 0, sensor: true})
	require.NoError(t, ecs.Add(w, a, component.NameComponent.Kind(), &component.Name{Value: "hero"}))

	cs := NewContactSystem(nil)
	logs := NewContactLogSystem(0)
	ecs.NewScheduler(cs, logs).Update(w)

	require.Equal(t, 1, logs.Total())
	assert.Equal(t, []string{"#1 hero <-> " + b.String()}, logs.Tail(5))
	assert.Equal(t, 0, w.Events().Len())
}

func TestContactLogUsesNamer(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.CreateEntity(w)
	b := ecs.CreateEntity(w)
	w.Events().Push(ecs.Event{Type: "other"})
	w.Events().Push(ecs.Event{Type: ecs.EventTypeContact, Data: ecs.ContactEvent{A: a, B: b}})

	logs := NewContactLogSystem(0)
	logs.Namer = func(e ecs.Entity) string {
		if e == a {
			return "a"
		}
		return "b"
	}
	logs.Update(w)

	assert.Equal(t, "#1 a <-> b\n", logs.String())
}

func TestContactLogCapacity(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.CreateEntity(w)
	logs := NewContactLogSystem(3)
	logs.Namer = func(ecs.Entity) string { return "x" }

	for i := 0; i < 5; i++ {
		w.Events().Push(ecs.Event{Type: ecs.EventTypeContact, Data: ecs.ContactEvent{A: a, B: a}})
	}
	logs.Update(w)

	assert.Equal(t, 5, logs.Total())
	assert.Equal(t, []string{"#3 x <-> x", "#4 x <-> x", "#5 x <-> x"}, logs.Tail(10))
	assert.Equal(t, []string{"#5 x <-> x"}, logs.Tail(1))
	assert.Nil(t, logs.Tail(0))

	logs.Reset()
	assert.Zero(t, logs.Total())
	assert.Empty(t, logs.String())
}
