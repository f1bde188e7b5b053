package prefabs

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/collisioncallback/callback"
	"github.com/milk9111/collisioncallback/ecs/component"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// SceneSpec describes a set of participants and the callbacks bound to them.
type SceneSpec struct {
	Name     string       `yaml:"name"`
	Gravity  VectorSpec   `yaml:"gravity"`
	Entities []EntitySpec `yaml:"entities"`
}

func LoadScene(name string) (*SceneSpec, error) {
	spec, err := LoadSpec[SceneSpec](name)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: scene %s: %w", name, err)
	}
	return &spec, nil
}

// ParseScene decodes a scene document that did not come from Load.
func ParseScene(data []byte) (*SceneSpec, error) {
	var spec SceneSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal scene: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

type VectorSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type EntitySpec struct {
	Name            string                    `yaml:"name"`
	Labels          []string                  `yaml:"labels"`
	CollisionObject bool                      `yaml:"collision_object"`
	Obstacle        bool                      `yaml:"obstacle"`
	Transform       component.Transform       `yaml:"transform"`
	Velocity        *component.Velocity       `yaml:"velocity"`
	Body            *BodySpec                 `yaml:"body"`
	Layer           *component.CollisionLayer `yaml:"layer"`
	TTL             int                       `yaml:"ttl"`
	Registry        *RegistrySpec             `yaml:"registry"`
	Executer        bool                      `yaml:"executer"`
	Scripts         []ScriptSpec              `yaml:"scripts"`
}

// NeedsRegistry reports whether the entity gets a callback registry.
func (e EntitySpec) NeedsRegistry() bool {
	return e.Registry != nil || e.Executer || len(e.Scripts) > 0
}

type BodySpec struct {
	Shape      string  `yaml:"shape"`
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	Radius     float64 `yaml:"radius"`
	Mass       float64 `yaml:"mass"`
	Friction   float64 `yaml:"friction"`
	Elasticity float64 `yaml:"elasticity"`
	Static     bool    `yaml:"static"`
	Kinematic  bool    `yaml:"kinematic"`
	Sensor     bool    `yaml:"sensor"`
}

func (b BodySpec) Component() *component.PhysicsBody {
	return &component.PhysicsBody{
		Kind:       component.ShapeKind(strings.ToLower(strings.TrimSpace(b.Shape))),
		Width:      b.Width,
		Height:     b.Height,
		Radius:     b.Radius,
		Mass:       b.Mass,
		Friction:   b.Friction,
		Elasticity: b.Elasticity,
		Static:     b.Static,
		Kinematic:  b.Kinematic,
		Sensor:     b.Sensor,
	}
}

type RegistrySpec struct {
	// FailurePolicy is "continue" (default) or "abort".
	FailurePolicy string `yaml:"failure_policy"`
	MaxPending    int    `yaml:"max_pending"`
}

func (r *RegistrySpec) Options() ([]callback.Option, error) {
	if r == nil {
		return nil, nil
	}
	var opts []callback.Option
	switch strings.ToLower(strings.TrimSpace(r.FailurePolicy)) {
	case "", "continue":
	case "abort":
		opts = append(opts, callback.WithFailurePolicy(callback.AbortOnFailure))
	default:
		return nil, fmt.Errorf("%w: unknown failure policy %q", ErrInvalidSpec, r.FailurePolicy)
	}
	if r.MaxPending > 0 {
		opts = append(opts, callback.WithMaxPending(r.MaxPending))
	}
	return opts, nil
}

// ScriptSpec binds a tengo script under a label, a capability, or both.
type ScriptSpec struct {
	Path       string `yaml:"path"`
	Direction  string `yaml:"direction"`
	Label      string `yaml:"label"`
	Capability string `yaml:"capability"`
}

// capabilities are the component kinds a scene may key scripts on.
var capabilities = map[string]component.Capability{
	"collision_object": component.CollisionObjectComponent.Capability(),
	"obstacle":         component.ObstacleComponent.Capability(),
	"velocity":         component.VelocityComponent.Capability(),
	"ttl":              component.TTLComponent.Capability(),
	"labels":           component.LabelsComponent.Capability(),
}

func (s ScriptSpec) Matches() ([]callback.Match, error) {
	var out []callback.Match
	if s.Capability != "" {
		c, ok := capabilities[s.Capability]
		if !ok {
			return nil, fmt.Errorf("%w: unknown capability %q", ErrInvalidSpec, s.Capability)
		}
		out = append(out, callback.OnCapability(c))
	}
	if s.Label != "" {
		out = append(out, callback.OnLabel(s.Label))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: script %s has no label or capability", ErrInvalidSpec, s.Path)
	}
	return out, nil
}

// Validate checks what can be checked without a world.
func (s *SceneSpec) Validate() error {
	names := make(map[string]bool, len(s.Entities))
	for i, e := range s.Entities {
		if e.Name == "" {
			return fmt.Errorf("%w: entity %d has no name", ErrInvalidSpec, i)
		}
		if names[e.Name] {
			return fmt.Errorf("%w: duplicate entity %q", ErrInvalidSpec, e.Name)
		}
		names[e.Name] = true

		if _, err := e.Registry.Options(); err != nil {
			return fmt.Errorf("entity %q: %w", e.Name, err)
		}
		for _, sc := range e.Scripts {
			if sc.Path == "" {
				return fmt.Errorf("%w: entity %q has a script without a path", ErrInvalidSpec, e.Name)
			}
			if _, err := callback.ParseDirection(sc.Direction); err != nil {
				return fmt.Errorf("entity %q: %w", e.Name, err)
			}
			if _, err := sc.Matches(); err != nil {
				return fmt.Errorf("entity %q: %w", e.Name, err)
			}
		}
	}
	return nil
}
