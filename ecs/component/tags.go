package component

// CollisionObject marks entities the sample executer reacts to.
type CollisionObject struct{}

var CollisionObjectComponent = NewComponent[CollisionObject]()

// Obstacle marks static level geometry.
type Obstacle struct{}

var ObstacleComponent = NewComponent[Obstacle]()

// Name is a human readable entity name used in logs and the demo overlay.
type Name struct {
	Value string
}

var NameComponent = NewComponent[Name]()
