// Package logic holds sample clients of the callback registry.
package logic

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/callback"
	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
	"github.com/milk9111/collisioncallback/logging"
)

// Destroyer schedules entity destruction. *ecs.World implements it.
type Destroyer interface {
	MarkDestroy(e ecs.Entity)
}

// Executer destroys whatever CollisionObject touches its owner, then the
// owner itself.
type Executer struct {
	destroyer Destroyer
	logger    *zap.Logger
	collided  bool
}

func NewExecuter(d Destroyer, logger *zap.Logger) *Executer {
	logger = logging.OrNop(logger)
	return &Executer{destroyer: d, logger: logger}
}

// Bind registers the executer's callbacks on reg.
func (x *Executer) Bind(reg *callback.Registry) error {
	if _, err := reg.Register(x.callbackToOther, callback.ToOther, callback.OnComponent(component.CollisionObjectComponent)); err != nil {
		return fmt.Errorf("executer: bind: %w", err)
	}
	if _, err := reg.Register(x.callbackToSelf, callback.ToSelf, callback.OnComponent(component.CollisionObjectComponent)); err != nil {
		return fmt.Errorf("executer: bind: %w", err)
	}
	return nil
}

func (x *Executer) callbackToOther(other ecs.Entity) {
	x.collided = true
	x.logger.Info("executer: destroying collision object", zap.Stringer("other", other))
	x.destroyer.MarkDestroy(other)
}

func (x *Executer) callbackToSelf(self ecs.Entity) {
	x.logger.Info("executer: destroying self", zap.Stringer("self", self))
	x.destroyer.MarkDestroy(self)
}

func (x *Executer) Collided() bool {
	return x.collided
}

// Status is the diagnostic readout shown by the demo.
func (x *Executer) Status() string {
	return fmt.Sprintf("Is LogicExecuter detect collision callback: %t", x.collided)
}
