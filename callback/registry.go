package callback

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/milk9111/collisioncallback/ecs"
	"github.com/milk9111/collisioncallback/ecs/component"
)

// Host answers the questions the registry asks about participants.
// *ecs.World implements it.
type Host interface {
	IsAlive(e ecs.Entity) bool
	HasCapability(e ecs.Entity, c component.Capability) bool
	HasLabel(e ecs.Entity, label string) bool
	HasShape(e ecs.Entity) bool
}

// FailurePolicy decides what happens to the rest of a dispatch after a
// callback panics.
type FailurePolicy uint8

const (
	// ContinueOnFailure logs the failure and keeps invoking the remaining
	// callbacks.
	ContinueOnFailure FailurePolicy = iota
	// AbortOnFailure stops the current dispatch at the first failure.
	AbortOnFailure
)

const defaultMaxPending = 64

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// WithMaxPending bounds the number of nested contacts queued while a
// dispatch is running.
func WithMaxPending(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxPending = n
		}
	}
}

type entry struct {
	id        string
	fn        Callback
	dir       Direction
	key       string
	seq       uint64
	cancelled bool
}

type group struct {
	toSelf  []*entry
	toOther []*entry
}

func (g *group) add(e *entry) {
	if e.dir == ToSelf {
		g.toSelf = append(g.toSelf, e)
		return
	}
	g.toOther = append(g.toOther, e)
}

func (g *group) compact() int {
	cancelled := func(e *entry) bool { return e.cancelled }
	g.toSelf = slices.DeleteFunc(g.toSelf, cancelled)
	g.toOther = slices.DeleteFunc(g.toOther, cancelled)
	return len(g.toSelf) + len(g.toOther)
}

// Registration is the handle returned by Register.
type Registration struct {
	id       string
	registry *Registry
	entries  []*entry
}

func (r *Registration) ID() string {
	if r == nil {
		return ""
	}
	return r.id
}

// Cancel deregisters the callback from every key it was registered under.
// It reports whether anything was still registered. Cancelling from inside a
// callback takes effect for the rest of the running dispatch.
func (r *Registration) Cancel() bool {
	if r == nil || r.registry == nil {
		return false
	}
	cancelled := false
	for _, e := range r.entries {
		if !e.cancelled {
			e.cancelled = true
			cancelled = true
		}
	}
	if cancelled {
		r.registry.dirty = true
		r.registry.compactIfIdle()
	}
	return cancelled
}

// Registry is the per-owner callback index.
type Registry struct {
	host       Host
	self       ecs.Entity
	logger     *zap.Logger
	policy     FailurePolicy
	maxPending int
	err        error

	byCapability    map[component.Capability]*group
	capabilityOrder []component.Capability
	byLabel         map[string]*group
	labelOrder      []string

	dispatching bool
	dirty       bool
	pending     []ecs.Entity
	seq         uint64
	cutoff      uint64

	dispatches  uint64
	invocations uint64
}

// New creates the registry of self. When self has no collider shape the
// configuration error is logged once and the registry stays inert: it accepts
// registrations but never dispatches.
func New(host Host, self ecs.Entity, opts ...Option) *Registry {
	r := &Registry{
		host:         host,
		self:         self,
		logger:       zap.NewNop(),
		maxPending:   defaultMaxPending,
		byCapability: make(map[component.Capability]*group),
		byLabel:      make(map[string]*group),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.Stringer("owner", self))

	switch {
	case host == nil:
		r.err = fmt.Errorf("%w: no host", ErrConfiguration)
	case !host.IsAlive(self):
		r.err = fmt.Errorf("%w: owner %s is not alive", ErrConfiguration, self)
	case !host.HasShape(self):
		r.err = fmt.Errorf("%w: owner %s needs a box, circle or segment body", ErrConfiguration, self)
	}
	if r.err != nil {
		r.logger.Error("callback: registry is inert", zap.Error(r.err))
	}
	return r
}

func (r *Registry) Owner() ecs.Entity {
	return r.self
}

// Err returns the configuration error found at construction, if any.
func (r *Registry) Err() error {
	return r.err
}

func (r *Registry) Inert() bool {
	return r.err != nil
}

// Register adds cb under every key in matches. A callback registered under
// both a capability and a label runs once per matching key.
func (r *Registry) Register(cb Callback, dir Direction, matches ...Match) (*Registration, error) {
	if cb == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}
	if !dir.valid() {
		return nil, fmt.Errorf("%w: unknown direction %s", ErrInvalidArgument, dir)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no capability or label to match", ErrInvalidArgument)
	}
	for _, m := range matches {
		if err := m.validate(); err != nil {
			return nil, err
		}
	}

	r.seq++
	reg := &Registration{id: uuid.NewString(), registry: r}
	for _, m := range matches {
		e := &entry{id: reg.id, fn: cb, dir: dir, key: m.String(), seq: r.seq}
		r.groupFor(m).add(e)
		reg.entries = append(reg.entries, e)
		r.logger.Debug("callback: registered",
			zap.String("registration", reg.id),
			zap.String("key", e.key),
			zap.Stringer("direction", dir))
	}
	return reg, nil
}

func (r *Registry) groupFor(m Match) *group {
	if m.byLabel {
		g, ok := r.byLabel[m.label]
		if !ok {
			g = &group{}
			r.byLabel[m.label] = g
			r.labelOrder = append(r.labelOrder, m.label)
		}
		return g
	}
	g, ok := r.byCapability[m.capability]
	if !ok {
		g = &group{}
		r.byCapability[m.capability] = g
		r.capabilityOrder = append(r.capabilityOrder, m.capability)
	}
	return g
}

// Clear drops every registration.
func (r *Registry) Clear() {
	for _, g := range r.byCapability {
		cancelAll(g)
	}
	for _, g := range r.byLabel {
		cancelAll(g)
	}
	r.dirty = true
	r.compactIfIdle()
}

func cancelAll(g *group) {
	for _, e := range g.toSelf {
		e.cancelled = true
	}
	for _, e := range g.toOther {
		e.cancelled = true
	}
}

// Len returns the number of live registrations, counting one per key.
func (r *Registry) Len() int {
	n := 0
	count := func(g *group) {
		for _, e := range g.toSelf {
			if !e.cancelled {
				n++
			}
		}
		for _, e := range g.toOther {
			if !e.cancelled {
				n++
			}
		}
	}
	for _, g := range r.byCapability {
		count(g)
	}
	for _, g := range r.byLabel {
		count(g)
	}
	return n
}

// Dispatches returns how many contacts were dispatched.
func (r *Registry) Dispatches() uint64 {
	return r.dispatches
}

// Invocations returns how many callbacks were invoked, failed ones included.
func (r *Registry) Invocations() uint64 {
	return r.invocations
}

func (r *Registry) compactIfIdle() {
	if r.dispatching || !r.dirty {
		return
	}
	r.dirty = false
	r.capabilityOrder = slices.DeleteFunc(r.capabilityOrder, func(c component.Capability) bool {
		if r.byCapability[c].compact() > 0 {
			return false
		}
		delete(r.byCapability, c)
		return true
	})
	r.labelOrder = slices.DeleteFunc(r.labelOrder, func(l string) bool {
		if r.byLabel[l].compact() > 0 {
			return false
		}
		delete(r.byLabel, l)
		return true
	})
}
