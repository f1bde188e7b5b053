// Package scripting turns tengo scripts into registry callbacks.
//
// A script runs once per invocation with these globals:
//
//	target     entity id the callback was invoked with
//	owner      entity id of the registry owner
//	direction  "self" or "other"
//	state      map kept across invocations of the same binding
//	engine     destroy(id), has_label(id, label), log(msg...)
package scripting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/callback"
	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/logging"
)

var ErrScript = errors.New("scripting: script failed")

// Engine is what scripts may do to the world. *ecs.World implements it.
type Engine interface {
	MarkDestroy(e ecs.Entity)
	HasLabel(e ecs.Entity, label string) bool
}

// Script is a compiled tengo program.
type Script struct {
	path     string
	compiled *tengo.Compiled
}

// Compile compiles src. path is only used in error messages and logs.
func Compile(path string, src []byte) (*Script, error) {
	script := tengo.NewScript(src)
	_ = script.Add("target", 0)
	_ = script.Add("owner", 0)
	_ = script.Add("direction", "")
	_ = script.Add("state", map[string]any{})
	_ = script.Add("engine", map[string]any{})

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("scripting: compile %s: %w", path, err)
	}
	return &Script{path: path, compiled: compiled}, nil
}

func (s *Script) Path() string {
	return s.path
}

// Binding is one script registered on one registry.
type Binding struct {
	script    *Script
	compiled  *tengo.Compiled
	engine    *tengo.ImmutableMap
	state     *tengo.Map
	owner     ecs.Entity
	direction callback.Direction
	logger    *zap.Logger

	Registration *callback.Registration
}

// Bind registers s on reg under matches. Runtime errors panic out of the
// callback and are handled by the registry's failure policy.
func Bind(reg *callback.Registry, s *Script, eng Engine, dir callback.Direction, logger *zap.Logger, matches ...callback.Match) (*Binding, error) {
	if reg == nil || s == nil || eng == nil {
		return nil, fmt.Errorf("scripting: bind: %w", callback.ErrInvalidArgument)
	}
	logger = logging.OrNop(logger)
	b := &Binding{
		script:    s,
		compiled:  s.compiled.Clone(),
		state:     &tengo.Map{Value: map[string]tengo.Object{}},
		owner:     reg.Owner(),
		direction: dir,
		logger:    logger.With(zap.String("script", s.path)),
	}
	b.engine = buildEngine(eng, b.logger)

	r, err := reg.Register(b.run, dir, matches...)
	if err != nil {
		return nil, fmt.Errorf("scripting: bind %s: %w", s.path, err)
	}
	b.Registration = r
	return b, nil
}

// State returns the value a script stored under key in its state map.
func (b *Binding) State(key string) any {
	obj, ok := b.state.Value[key]
	if !ok {
		return nil
	}
	return objectToAny(obj)
}

func (b *Binding) run(e ecs.Entity) {
	if err := b.invoke(e); err != nil {
		panic(fmt.Errorf("%w: %s: %w", ErrScript, b.script.path, err))
	}
}

func (b *Binding) invoke(e ecs.Entity) error {
	if err := b.compiled.Set("target", int64(e)); err != nil {
		return err
	}
	if err := b.compiled.Set("owner", int64(b.owner)); err != nil {
		return err
	}
	if err := b.compiled.Set("direction", b.direction.String()); err != nil {
		return err
	}
	if err := b.compiled.Set("state", b.state); err != nil {
		return err
	}
	if err := b.compiled.Set("engine", b.engine); err != nil {
		return err
	}
	return b.compiled.Run()
}

func buildEngine(eng Engine, logger *zap.Logger) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["destroy"] = &tengo.UserFunction{Name: "destroy", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, ok := tengo.ToInt64(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "id", Expected: "int", Found: args[0].TypeName()}
		}
		eng.MarkDestroy(ecs.Entity(id))
		return tengo.TrueValue, nil
	}}

	values["has_label"] = &tengo.UserFunction{Name: "has_label", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		id, ok := tengo.ToInt64(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "id", Expected: "int", Found: args[0].TypeName()}
		}
		if eng.HasLabel(ecs.Entity(id), objectAsString(args[1])) {
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		logger.Info(strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}
