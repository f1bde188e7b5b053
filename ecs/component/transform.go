package component

// Transform is the world-space center of an entity.
type Transform struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"`
}

var TransformComponent = NewComponent[Transform]()

// Velocity is pushed into the physics body every tick by the movement system.
type Velocity struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

var VelocityComponent = NewComponent[Velocity]()
