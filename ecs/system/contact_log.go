package system

import (
	"fmt"
	"strings"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

const defaultContactLogCapacity = 256

// ContactLogSystem drains contact events from the world queue and keeps the
// newest ones as readable lines. It must run after the contact system.
type ContactLogSystem struct {
	// Namer resolves entity names. Entities destroyed in the same tick no
	// longer carry a Name component, so callers usually pass a lookup that
	// outlives them.
	Namer func(ecs.Entity) string

	capacity int
	lines    []string
	total    int
}

func NewContactLogSystem(capacity int) *ContactLogSystem {
	if capacity <= 0 {
		capacity = defaultContactLogCapacity
	}
	return &ContactLogSystem{capacity: capacity}
}

func (s *ContactLogSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	for _, evt := range w.Events().Drain() {
		if evt.Type != ecs.EventTypeContact {
			continue
		}
		c, ok := evt.Data.(ecs.ContactEvent)
		if !ok {
			continue
		}
		s.add(fmt.Sprintf("%s <-> %s", s.name(w, c.A), s.name(w, c.B)))
	}
}

func (s *ContactLogSystem) name(w *ecs.World, e ecs.Entity) string {
	if s.Namer != nil {
		return s.Namer(e)
	}
	if n, ok := ecs.Get(w, e, component.NameComponent.Kind()); ok && n.Value != "" {
		return n.Value
	}
	return e.String()
}

func (s *ContactLogSystem) add(line string) {
	s.total++
	line = fmt.Sprintf("#%d %s", s.total, line)
	if len(s.lines) == s.capacity {
		copy(s.lines, s.lines[1:])
		s.lines = s.lines[:s.capacity-1]
	}
	s.lines = append(s.lines, line)
}

// Tail returns at most n of the newest lines, oldest first.
func (s *ContactLogSystem) Tail(n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(s.lines) {
		n = len(s.lines)
	}
	return s.lines[len(s.lines)-n:]
}

// Total counts every contact seen, including lines already dropped.
func (s *ContactLogSystem) Total() int {
	return s.total
}

func (s *ContactLogSystem) String() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

func (s *ContactLogSystem) Reset() {
	s.lines = nil
	s.total = 0
}
