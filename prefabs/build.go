package prefabs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/callback"
	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
	"github.com/milk9111/collisioncallback/ecs/system"
	"github.com/milk9111/collisioncallback/logging"
	"github.com/milk9111/collisioncallback/logic"
	"github.com/milk9111/collisioncallback/scripting"
)

// BuildDeps are the collaborators a scene is wired into.
type BuildDeps struct {
	Contacts *system.ContactSystem
	Logger   *zap.Logger
	// LoadScript defaults to LoadScript. Tests replace it to avoid the disk.
	LoadScript func(path string) ([]byte, error)
}

// Scene is a built scene: the entities it created and everything bound to
// them.
type Scene struct {
	Spec       *SceneSpec
	Entities   map[string]ecs.Entity
	Order      []ecs.Entity
	Registries map[ecs.Entity]*callback.Registry
	Executers  map[ecs.Entity]*logic.Executer
	Bindings   []*scripting.Binding
}

// Entity returns the entity built for the named spec entry.
func (s *Scene) Entity(name string) (ecs.Entity, bool) {
	e, ok := s.Entities[name]
	return e, ok
}

// NameOf returns the spec name of e, or its handle string.
func (s *Scene) NameOf(e ecs.Entity) string {
	for name, ent := range s.Entities {
		if ent == e {
			return name
		}
	}
	return e.String()
}

// BuildScene creates the entities of spec in w and attaches their registries
// to the contact system. On error the entities created so far are destroyed.
func BuildScene(w *ecs.World, spec *SceneSpec, deps BuildDeps) (scene *Scene, err error) {
	if w == nil || spec == nil || deps.Contacts == nil {
		return nil, fmt.Errorf("%w: world, scene and contact system are required", ErrInvalidSpec)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(deps.Logger)
	loadScript := deps.LoadScript
	if loadScript == nil {
		loadScript = LoadScript
	}

	scene = &Scene{
		Spec:       spec,
		Entities:   make(map[string]ecs.Entity, len(spec.Entities)),
		Registries: make(map[ecs.Entity]*callback.Registry),
		Executers:  make(map[ecs.Entity]*logic.Executer),
	}
	defer func() {
		if err != nil {
			scene.Teardown(w, deps.Contacts)
			scene = nil
		}
	}()

	deps.Contacts.SetGravity(spec.Gravity.X, spec.Gravity.Y)

	for _, es := range spec.Entities {
		e, err := buildEntity(w, es)
		if err != nil {
			ecs.DestroyEntity(w, e)
			return scene, fmt.Errorf("prefabs: entity %q: %w", es.Name, err)
		}
		scene.Entities[es.Name] = e
		scene.Order = append(scene.Order, e)
	}

	compiled := make(map[string]*scripting.Script)
	for _, es := range spec.Entities {
		if !es.NeedsRegistry() {
			continue
		}
		e := scene.Entities[es.Name]
		entLogger := logger.With(zap.String("entity", es.Name))

		opts, err := es.Registry.Options()
		if err != nil {
			return scene, err
		}
		reg := callback.New(w, e, append(opts, callback.WithLogger(entLogger))...)
		scene.Registries[e] = reg

		if es.Executer {
			x := logic.NewExecuter(w, entLogger)
			if err := x.Bind(reg); err != nil {
				return scene, fmt.Errorf("prefabs: entity %q: %w", es.Name, err)
			}
			scene.Executers[e] = x
		}

		for _, sc := range es.Scripts {
			s, ok := compiled[sc.Path]
			if !ok {
				src, err := loadScript(sc.Path)
				if err != nil {
					return scene, fmt.Errorf("prefabs: load script %s: %w", sc.Path, err)
				}
				if s, err = scripting.Compile(sc.Path, src); err != nil {
					return scene, err
				}
				compiled[sc.Path] = s
			}
			dir, _ := callback.ParseDirection(sc.Direction)
			matches, _ := sc.Matches()
			b, err := scripting.Bind(reg, s, w, dir, entLogger, matches...)
			if err != nil {
				return scene, fmt.Errorf("prefabs: entity %q: %w", es.Name, err)
			}
			scene.Bindings = append(scene.Bindings, b)
		}

		// An inert registry has already logged its configuration error.
		if err := deps.Contacts.Attach(w, e, reg); err != nil {
			entLogger.Warn("prefabs: registry not attached", zap.Error(err))
		}
	}

	logger.Info("prefabs: scene built",
		zap.String("scene", spec.Name),
		zap.Int("entities", len(scene.Order)),
		zap.Int("registries", len(scene.Registries)),
		zap.Int("scripts", len(scene.Bindings)))
	return scene, nil
}

func buildEntity(w *ecs.World, es EntitySpec) (ecs.Entity, error) {
	e := ecs.CreateEntity(w)

	transform := es.Transform
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &transform); err != nil {
		return e, err
	}
	if err := ecs.Add(w, e, component.NameComponent.Kind(), &component.Name{Value: es.Name}); err != nil {
		return e, err
	}
	if len(es.Labels) > 0 {
		labels := &component.Labels{}
		for _, l := range es.Labels {
			labels.Add(l)
		}
		if err := ecs.Add(w, e, component.LabelsComponent.Kind(), labels); err != nil {
			return e, err
		}
	}
	if es.CollisionObject {
		if err := ecs.Add(w, e, component.CollisionObjectComponent.Kind(), &component.CollisionObject{}); err != nil {
			return e, err
		}
	}
	if es.Obstacle {
		if err := ecs.Add(w, e, component.ObstacleComponent.Kind(), &component.Obstacle{}); err != nil {
			return e, err
		}
	}
	if es.Velocity != nil {
		v := *es.Velocity
		if err := ecs.Add(w, e, component.VelocityComponent.Kind(), &v); err != nil {
			return e, err
		}
	}
	if es.Body != nil {
		body := es.Body.Component()
		if !body.HasShape() {
			return e, fmt.Errorf("%w: body %q has no usable geometry", ErrInvalidSpec, es.Body.Shape)
		}
		if err := ecs.Add(w, e, component.PhysicsBodyComponent.Kind(), body); err != nil {
			return e, err
		}
	}
	if es.Layer != nil {
		layer := *es.Layer
		if err := ecs.Add(w, e, component.CollisionLayerComponent.Kind(), &layer); err != nil {
			return e, err
		}
	}
	if es.TTL > 0 {
		if err := ecs.Add(w, e, component.TTLComponent.Kind(), &component.TTL{Frames: es.TTL}); err != nil {
			return e, err
		}
	}
	return e, nil
}

// Teardown detaches and destroys everything the scene created. The contact
// system drops the bodies on its next update.
func (s *Scene) Teardown(w *ecs.World, contacts *system.ContactSystem) {
	if s == nil {
		return
	}
	for e, reg := range s.Registries {
		reg.Clear()
		if contacts != nil {
			contacts.Detach(e)
		}
	}
	for _, e := range s.Order {
		ecs.DestroyEntity(w, e)
	}
	s.Registries = map[ecs.Entity]*callback.Registry{}
	s.Executers = map[ecs.Entity]*logic.Executer{}
	s.Bindings = nil
	s.Order = nil
	s.Entities = map[string]ecs.Entity{}
}
