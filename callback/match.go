package callback

import (
	"fmt"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

// Callback is invoked with either the registry owner or the participant that
// made contact, depending on the Direction it was registered with.
type Callback func(e ecs.Entity)

type Direction uint8

const (
	// ToSelf callbacks receive the registry owner.
	ToSelf Direction = iota + 1
	// ToOther callbacks receive the participant that made contact.
	ToOther
)

func (d Direction) String() string {
	switch d {
	case ToSelf:
		return "self"
	case ToOther:
		return "other"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) valid() bool {
	return d == ToSelf || d == ToOther
}

// ParseDirection accepts "self" and "other".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "self":
		return ToSelf, nil
	case "other":
		return ToOther, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidArgument, s)
	}
}

// Match selects the key a callback is registered under.
type Match struct {
	capability component.Capability
	label      string
	byLabel    bool
}

// OnCapability matches participants carrying capability c.
func OnCapability(c component.Capability) Match {
	return Match{capability: c}
}

// OnComponent matches participants carrying a component of h's kind.
func OnComponent[T any](h component.ComponentHandle[T]) Match {
	return Match{capability: h.Capability()}
}

// OnLabel matches participants tagged with label, by exact match.
func OnLabel(label string) Match {
	return Match{label: label, byLabel: true}
}

func (m Match) String() string {
	if m.byLabel {
		return "label:" + m.label
	}
	return fmt.Sprintf("capability:%d", m.capability)
}

func (m Match) validate() error {
	if m.byLabel {
		if m.label == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidArgument)
		}
		return nil
	}
	if !m.capability.Valid() {
		return fmt.Errorf("%w: zero capability", ErrInvalidArgument)
	}
	return nil
}
