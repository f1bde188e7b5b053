package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/collisioncallback/ecs/component"
)

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func TestWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, CreateEntity(w))
			}
			require.Len(t, Entities(w), c.create)
			if c.destroyIndex >= 0 {
				require.True(t, DestroyEntity(w, ents[c.destroyIndex]))
				require.False(t, IsAlive(w, ents[c.destroyIndex]))
				require.False(t, DestroyEntity(w, ents[c.destroyIndex]), "double destroy")
				require.Len(t, Entities(w), c.create-1)
			}
		})
	}
}

func TestRecycledSlotGetsNewGeneration(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	old := CreateEntity(w)
	require.NoError(t, Add(w, old, h.Kind(), intPtr(1)))
	require.True(t, DestroyEntity(w, old))

	fresh := CreateEntity(w)
	assert.Equal(t, old.id(), fresh.id())
	assert.NotEqual(t, old, fresh)
	assert.False(t, IsAlive(w, old))
	assert.False(t, Has(w, fresh, h.Kind()), "components must not leak into a recycled slot")
	assert.False(t, Has(w, old, h.Kind()))
}

func TestWorldComponents(t *testing.T) {
	w := NewWorld()

	h1 := component.NewComponent[int]()
	h2 := component.NewComponent[string]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)

	tests := []struct {
		name     string
		setup    func() error
		check    func(t *testing.T)
		teardown func() bool
	}{
		{
			name:  "add_int_to_e1",
			setup: func() error { return Add(w, e1, h1.Kind(), intPtr(10)) },
			check: func(t *testing.T) {
				v, ok := Get(w, e1, h1.Kind())
				require.True(t, ok)
				require.Equal(t, 10, *v)
			},
			teardown: func() bool { return Remove(w, e1, h1.Kind()) },
		},
		{
			name: "add_str_to_e1_and_e2",
			setup: func() error {
				if err := Add(w, e1, h2.Kind(), stringPtr("a")); err != nil {
					return err
				}
				return Add(w, e2, h2.Kind(), stringPtr("b"))
			},
			check: func(t *testing.T) {
				require.True(t, Has(w, e1, h2.Kind()))
				require.True(t, Has(w, e2, h2.Kind()))
			},
			teardown: func() bool { return Remove(w, e1, h2.Kind()) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.setup())
			tc.check(t)
			require.True(t, tc.teardown())
		})
	}

	t.Run("errors", func(t *testing.T) {
		assert.ErrorIs(t, Add(w, e1, h1.Kind(), nil), component.ErrNilComponent)
		assert.ErrorIs(t, Add(w, e1, component.ComponentKind[int]{}, intPtr(1)), component.ErrInvalidComponentKind)
		dead := CreateEntity(w)
		require.True(t, DestroyEntity(w, dead))
		assert.ErrorIs(t, Add(w, dead, h1.Kind(), intPtr(1)), component.ErrEntityNotAlive)
	})
}

func TestForEach(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)
	e3 := CreateEntity(w)

	require.NoError(t, Add(w, e1, h.Kind(), intPtr(1)))
	require.NoError(t, Add(w, e3, h.Kind(), intPtr(3)))

	var ents []Entity
	ForEach(w, h.Kind(), func(e Entity, _ *int) { ents = append(ents, e) })
	assert.ElementsMatch(t, []Entity{e1, e3}, ents)
	assert.NotContains(t, ents, e2)

	t.Run("destroy_inside_loop", func(t *testing.T) {
		visited := 0
		ForEach(w, h.Kind(), func(e Entity, _ *int) {
			visited++
			DestroyEntity(w, e)
		})
		assert.Equal(t, 2, visited)
		_, ok := First(w, h.Kind())
		assert.False(t, ok)
	})
}

func TestForEach2(t *testing.T) {
	w := NewWorld()
	ka := component.NewComponentKind[int]()
	kb := component.NewComponentKind[string]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)
	e3 := CreateEntity(w)

	require.NoError(t, Add(w, e1, ka, intPtr(1)))
	require.NoError(t, Add(w, e2, ka, intPtr(2)))
	require.NoError(t, Add(w, e2, kb, stringPtr("two")))
	require.NoError(t, Add(w, e3, kb, stringPtr("three")))

	var res []Entity
	ForEach2(w, ka, kb, func(e Entity, n *int, s *string) {
		assert.Equal(t, 2, *n)
		assert.Equal(t, "two", *s)
		res = append(res, e)
	})
	assert.Equal(t, []Entity{e2}, res)
}

func TestCapabilitiesAndLabels(t *testing.T) {
	w := NewWorld()
	obstacle := component.NewComponent[struct{}]()
	other := component.NewComponent[struct{}]()

	e := CreateEntity(w)
	require.NoError(t, Add(w, e, obstacle.Kind(), &struct{}{}))
	require.NoError(t, Add(w, e, component.LabelsComponent.Kind(), &component.Labels{Values: []string{"wall"}}))

	assert.True(t, w.HasCapability(e, obstacle.Capability()))
	assert.False(t, w.HasCapability(e, other.Capability()))
	assert.False(t, w.HasCapability(e, 0))
	assert.ElementsMatch(t, []component.Capability{obstacle.Capability(), component.LabelsComponent.Capability()}, w.Capabilities(e))

	assert.True(t, w.HasLabel(e, "wall"))
	assert.False(t, w.HasLabel(e, "Wall"), "labels match exactly")
	assert.False(t, w.HasLabel(e, ""))
}

func TestHasShape(t *testing.T) {
	cases := []struct {
		name string
		body *component.PhysicsBody
		want bool
	}{
		{"none", nil, false},
		{"box", &component.PhysicsBody{Kind: component.ShapeBox, Width: 4, Height: 4}, true},
		{"box_zero_size", &component.PhysicsBody{Kind: component.ShapeBox}, false},
		{"circle", &component.PhysicsBody{Kind: component.ShapeCircle, Radius: 2}, true},
		{"segment", &component.PhysicsBody{Kind: component.ShapeSegment, Width: 10}, true},
		{"unknown_kind", &component.PhysicsBody{Width: 4, Height: 4}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			e := CreateEntity(w)
			if c.body != nil {
				require.NoError(t, Add(w, e, component.PhysicsBodyComponent.Kind(), c.body))
			}
			assert.Equal(t, c.want, w.HasShape(e))
		})
	}
}

func TestDeferredDestroy(t *testing.T) {
	w := NewWorld()
	a := CreateEntity(w)
	b := CreateEntity(w)

	w.MarkDestroy(a)
	w.MarkDestroy(a)
	assert.True(t, w.IsAlive(a), "marked entities stay alive until flush")
	assert.True(t, w.PendingDestroy(a))
	assert.False(t, w.PendingDestroy(b))

	assert.Equal(t, []Entity{a}, w.FlushDestroyed())
	assert.False(t, w.IsAlive(a))
	assert.True(t, w.IsAlive(b))
	assert.Nil(t, w.FlushDestroyed())
}

func TestEventQueue(t *testing.T) {
	var q EventQueue
	q.Push(Event{Type: EventTypeContact, Data: ContactEvent{A: 1, B: 2}})
	q.Push(Event{Type: "other"})
	require.Equal(t, 2, q.Len())

	out := q.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, EventTypeContact, out[0].Type)
	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.Drain())
}
