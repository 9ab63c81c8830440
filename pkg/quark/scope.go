package quark

// Destroyable is a resource a Scope can own.
type Destroyable interface {
	Destroy()
}

// Scope owns atoms, computes, signals, effects and child scopes. Destroying
// a scope destroys everything it owns, so a subtree of the graph can be torn
// down with one call and without leaving subscriptions behind.
//
// Scopes form a hierarchy: a child created with NewScope is owned by its
// parent and destroyed with it.
type Scope struct {
	rt     *Runtime
	id     int64
	parent *Scope

	// resources are owned in creation order.
	resources []Destroyable

	// callbacks registered via OnDestroy, in registration order.
	callbacks []func()

	destroying bool
	destroyed  bool
}

func newScope(rt *Runtime, parent *Scope) *Scope {
	return &Scope{
		rt:     rt,
		id:     rt.ids.allocate(),
		parent: parent,
	}
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() int64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Runtime returns the runtime the scope belongs to.
func (s *Scope) Runtime() *Runtime {
	return s.rt
}

// IsDestroyed reports whether Destroy has been called.
func (s *Scope) IsDestroyed() bool {
	return s.destroyed || s.destroying
}

// Len returns the number of resources currently owned.
func (s *Scope) Len() int {
	return len(s.resources)
}

// NewScope creates a child scope owned by s.
func (s *Scope) NewScope() *Scope {
	s.ensureLive("create child scope")
	child := newScope(s.rt, s)
	s.resources = append(s.resources, child)
	return child
}

// Add transfers ownership of r to the scope and returns it.
func (s *Scope) Add(r Destroyable) Destroyable {
	s.ensureLive("add resource")
	if r != nil {
		s.resources = append(s.resources, r)
	}
	return r
}

// OnDestroy registers fn to run when the scope is destroyed. Callbacks run
// after every owned resource has been destroyed, last registered first.
func (s *Scope) OnDestroy(fn func()) {
	s.ensureLive("register destroy callback")
	if fn != nil {
		s.callbacks = append(s.callbacks, fn)
	}
}

// Destroy destroys owned resources in reverse creation order, then runs
// destroy callbacks in reverse registration order, then marks the scope
// destroyed. Later calls do nothing. A panicking resource or callback is
// reported and does not stop the teardown.
func (s *Scope) Destroy() {
	if s.destroying || s.destroyed {
		return
	}
	s.destroying = true

	if s.parent != nil {
		s.parent.forget(s)
	}

	resources := s.resources
	s.resources = nil
	for i := len(resources) - 1; i >= 0; i-- {
		r := resources[i]
		s.rt.guard(s.id, r.Destroy)
	}

	callbacks := s.callbacks
	s.callbacks = nil
	for i := len(callbacks) - 1; i >= 0; i-- {
		s.rt.guard(s.id, callbacks[i])
	}

	s.destroyed = true
}

// forget drops a child scope destroyed on its own.
func (s *Scope) forget(child *Scope) {
	for i, r := range s.resources {
		if c, ok := r.(*Scope); ok && c == child {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			return
		}
	}
}

func (s *Scope) ensureLive(op string) {
	if s.destroyed || s.destroying {
		panic(&ScopeDestroyedError{ScopeID: s.id, Op: op})
	}
}

// ScopeAtom creates an atom owned by s.
func ScopeAtom[T any](s *Scope, initial T, opts ...CellOption) *Atom[T] {
	s.ensureLive("create atom")
	a := NewAtom(s.rt, initial, opts...)
	s.resources = append(s.resources, a)
	return a
}

// ScopeCompute creates a compute owned by s.
func ScopeCompute[T any](s *Scope, fn func() T, opts ...CellOption) *Compute[T] {
	s.ensureLive("create compute")
	c := NewCompute(s.rt, fn, opts...)
	s.resources = append(s.resources, c)
	return c
}

// ScopeSignal creates a signal owned by s.
func ScopeSignal[T any](s *Scope, opts ...CellOption) *Signal[T] {
	s.ensureLive("create signal")
	sig := NewSignal[T](s.rt, opts...)
	s.resources = append(s.resources, sig)
	return sig
}

// ScopeEffect creates a batched effect owned by s.
func ScopeEffect[T any](s *Scope, src Observable[T], cb func(T), opts ...EffectOption) *Effect {
	s.ensureLive("create effect")
	e := NewEffect(s.rt, src, cb, opts...)
	s.resources = append(s.resources, e)
	return e
}

// ScopeSyncEffect creates a sync effect owned by s.
func ScopeSyncEffect[T any](s *Scope, src Observable[T], cb func(T), opts ...EffectOption) *Effect {
	s.ensureLive("create effect")
	e := NewSyncEffect(s.rt, src, cb, opts...)
	s.resources = append(s.resources, e)
	return e
}
