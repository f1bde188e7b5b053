package component

import "github.com/jakecoffman/cp"

type ShapeKind string

const (
	ShapeBox     ShapeKind = "box"
	ShapeCircle  ShapeKind = "circle"
	ShapeSegment ShapeKind = "segment"
)

// PhysicsBody stores Chipmunk2D runtime data and collider configuration.
// Segments run from the transform to (X+Width, Y+Height) with thickness Radius.
type PhysicsBody struct {
	Body       *cp.Body
	Shape      *cp.Shape
	Kind       ShapeKind
	Width      float64
	Height     float64
	Radius     float64
	Mass       float64
	Friction   float64
	Elasticity float64
	Static     bool
	Kinematic  bool
	// Sensor shapes report contacts without a physical response (triggers).
	Sensor bool
}

var PhysicsBodyComponent = NewComponent[PhysicsBody]()

// HasShape reports whether the body describes a geometry the contact system
// can build a collider from.
func (b *PhysicsBody) HasShape() bool {
	if b == nil {
		return false
	}
	switch b.Kind {
	case ShapeBox:
		return b.Width > 0 && b.Height > 0
	case ShapeCircle:
		return b.Radius > 0
	case ShapeSegment:
		return b.Width != 0 || b.Height != 0
	default:
		return false
	}
}
