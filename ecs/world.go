package ecs

import (
	"errors"
	"slices"

	"github.com/milk9111/collisioncallback/ecs/component"
)

// ErrNoShape is returned when an entity lacks a physics shape that the
// contact system can build a collider from.
var ErrNoShape = errors.New("ecs: entity has no collider shape")

// World owns entities, their components and pending destroy requests.
type World struct {
	entities entityStore
	stores   map[component.ComponentID]*SparseSet

	pendingDestroy []Entity
	events         EventQueue
}

// NewWorld creates an empty ECS world.
func NewWorld() *World {
	return &World{stores: make(map[component.ComponentID]*SparseSet)}
}

func (w *World) store(id component.ComponentID, create bool) *SparseSet {
	if w == nil {
		return nil
	}
	s := w.stores[id]
	if s == nil && create {
		if w.stores == nil {
			w.stores = make(map[component.ComponentID]*SparseSet)
		}
		s = &SparseSet{}
		w.stores[id] = s
	}
	return s
}

// IsAlive reports whether an entity handle is valid.
func (w *World) IsAlive(e Entity) bool {
	return w != nil && w.entities.isAlive(e)
}

// HasCapability reports whether e carries a component of the kind behind c.
func (w *World) HasCapability(e Entity, c component.Capability) bool {
	if !c.Valid() || !w.IsAlive(e) {
		return false
	}
	return w.store(component.ComponentID(c), false).Has(e)
}

// Capabilities enumerates the capability set of e in ascending order.
func (w *World) Capabilities(e Entity) []component.Capability {
	if !w.IsAlive(e) {
		return nil
	}
	var out []component.Capability
	for id, s := range w.stores {
		if s.Has(e) {
			out = append(out, component.Capability(id))
		}
	}
	slices.Sort(out)
	return out
}

// HasLabel reports whether e carries label, by exact match.
func (w *World) HasLabel(e Entity, label string) bool {
	labels, ok := Get(w, e, component.LabelsComponent.Kind())
	return ok && labels.Has(label)
}

// HasShape reports whether e has a physics body with a usable geometry.
func (w *World) HasShape(e Entity) bool {
	body, ok := Get(w, e, component.PhysicsBodyComponent.Kind())
	return ok && body.HasShape()
}

// MarkDestroy queues e for destruction on the next FlushDestroyed. The entity
// stays alive, with all of its components, until then.
func (w *World) MarkDestroy(e Entity) {
	if !w.IsAlive(e) || slices.Contains(w.pendingDestroy, e) {
		return
	}
	w.pendingDestroy = append(w.pendingDestroy, e)
}

// PendingDestroy reports whether e has been marked for destruction.
func (w *World) PendingDestroy(e Entity) bool {
	return w != nil && slices.Contains(w.pendingDestroy, e)
}

// FlushDestroyed destroys every marked entity and returns the ones that were
// still alive.
func (w *World) FlushDestroyed() []Entity {
	if w == nil || len(w.pendingDestroy) == 0 {
		return nil
	}
	pending := w.pendingDestroy
	w.pendingDestroy = nil
	out := pending[:0]
	for _, e := range pending {
		if DestroyEntity(w, e) {
			out = append(out, e)
		}
	}
	return out
}

// Events returns the world event queue.
func (w *World) Events() *EventQueue {
	if w == nil {
		return nil
	}
	return &w.events
}
