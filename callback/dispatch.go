package callback

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/ecs"
)

// OnContact dispatches a contact between the owner and other. It runs
// synchronously; every matching callback has returned when it does.
//
// A contact reported while a dispatch of this registry is already running
// (a callback that causes another contact) is queued and dispatched after the
// running one, in arrival order. The returned error combines the
// CallbackErrors of every dispatch this call performed.
func (r *Registry) OnContact(other ecs.Entity) error {
	if r == nil || r.err != nil {
		return nil
	}
	if r.dispatching {
		if len(r.pending) >= r.maxPending {
			r.logger.Warn("callback: dropping nested contact",
				zap.Stringer("other", other),
				zap.Int("pending", len(r.pending)))
			return fmt.Errorf("%w: limit %d", ErrReentrantOverflow, r.maxPending)
		}
		r.pending = append(r.pending, other)
		return nil
	}

	r.dispatching = true
	defer func() {
		r.dispatching = false
		r.pending = nil
		r.compactIfIdle()
	}()

	var errs error
	next := other
	for {
		errs = multierr.Append(errs, r.dispatch(next))
		if len(r.pending) == 0 {
			break
		}
		next = r.pending[0]
		r.pending = r.pending[1:]
	}
	return errs
}

func (r *Registry) dispatch(other ecs.Entity) error {
	if !r.host.IsAlive(r.self) || !r.host.IsAlive(other) {
		return nil
	}
	r.dispatches++
	// Callbacks registered by a callback join from the next dispatch on.
	r.cutoff = r.seq

	var errs error
	for _, c := range r.capabilityOrder {
		if !r.host.HasCapability(other, c) {
			continue
		}
		if err := r.invokeGroup(r.byCapability[c], other); err != nil {
			if r.policy == AbortOnFailure {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}
	for _, l := range r.labelOrder {
		if !r.host.HasLabel(other, l) {
			continue
		}
		if err := r.invokeGroup(r.byLabel[l], other); err != nil {
			if r.policy == AbortOnFailure {
				return err
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (r *Registry) invokeGroup(g *group, other ecs.Entity) error {
	var errs error
	run := func(entries []*entry, arg ecs.Entity) error {
		for _, e := range entries {
			if e.cancelled || e.seq > r.cutoff {
				continue
			}
			if err := r.invoke(e, arg); err != nil {
				if r.policy == AbortOnFailure {
					return err
				}
				errs = multierr.Append(errs, err)
			}
		}
		return nil
	}
	if err := run(g.toSelf, r.self); err != nil {
		return err
	}
	if err := run(g.toOther, other); err != nil {
		return err
	}
	return errs
}

func (r *Registry) invoke(e *entry, arg ecs.Entity) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &CallbackError{Registration: e.id, Key: e.key, Direction: e.dir, Value: rec}
			r.logger.Error("callback: callback failed",
				zap.String("registration", e.id),
				zap.String("key", e.key),
				zap.Stringer("direction", e.dir),
				zap.Stringer("arg", arg),
				zap.Any("panic", rec))
		}
	}()
	r.invocations++
	e.fn(arg)
	return nil
}
