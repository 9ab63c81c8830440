package quark

// Compute is a lazily evaluated, memoized derived cell.
//
// The evaluation function runs only when the compute is read and one of the
// sources recorded during its last evaluation has moved to a new version.
// A compute nobody reads never runs, however often its sources change.
type Compute[T any] struct {
	node

	fn    func() T
	value T
	equal func(a, b T) bool

	// deps are the (source, version) pairs read by the last evaluation.
	deps []dependency

	// dirty is set when a source notified since the last verification.
	// It gates propagation so subscribers are notified once per change.
	dirty bool

	// verified is the runtime epoch at which the cache was last known fresh.
	verified uint64

	// failure is the panic raised by the last evaluation. It is raised again
	// on every read until a recorded source moves.
	failure any

	initialized bool
	computing   bool
}

// NewCompute creates a compute from fn. fn should be free of side effects;
// it may run any number of times, including zero.
func NewCompute[T any](rt *Runtime, fn func() T, opts ...CellOption) *Compute[T] {
	o := applyCellOptions(opts)
	c := &Compute[T]{
		fn:    fn,
		equal: comparator[T](o),
		dirty: true,
	}
	c.init(rt, KindCompute, o.label)
	return c
}

// Get returns the current value, evaluating first if a dependency changed,
// and records a dependency when called during another evaluation.
//
// Get panics with a *CyclicDependencyError when the compute reads itself,
// directly or through other computes, and re-panics anything raised by the
// evaluation function. Use Read to receive those failures as errors.
func (c *Compute[T]) Get() T {
	// Tracked even when refresh panics, so a reader that failed through
	// this compute re-runs once it recovers.
	defer c.rt.track(c)
	c.refresh()
	return c.value
}

// Peek returns the current value, evaluating if needed, without recording a
// dependency.
func (c *Compute[T]) Peek() T {
	c.refresh()
	return c.value
}

// Read is Get returning evaluation failures as errors instead of panicking.
func (c *Compute[T]) Read() (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return c.Get(), nil
}

// Version returns the number of evaluations that produced a new value.
// It does not evaluate.
func (c *Compute[T]) Version() uint64 {
	return c.version
}

// ID returns the unique identifier for this compute.
func (c *Compute[T]) ID() int64 {
	return c.id
}

// Label returns the name given with the Label option.
func (c *Compute[T]) Label() string {
	return c.label
}

// SubscriberCount returns the number of computes and effects subscribed.
func (c *Compute[T]) SubscriberCount() int {
	return c.subs.Len()
}

// Dirty reports whether a source changed since the last evaluation or
// verification.
func (c *Compute[T]) Dirty() bool {
	return c.dirty
}

// AsReadonly returns a view that can be read and observed.
func (c *Compute[T]) AsReadonly() Source[T] {
	return readonly[T]{c}
}

// Destroy detaches the compute from its sources and drops its subscribers.
// A destroyed compute keeps returning its last value.
func (c *Compute[T]) Destroy() {
	if c.destroyed {
		return
	}
	unlinkAll(c, c.deps)
	c.deps = nil
	c.release()
}

// IsDestroyed reports whether Destroy has been called.
func (c *Compute[T]) IsDestroyed() bool {
	return c.destroyed
}

// notify implements subscriber.
func (c *Compute[T]) notify() {
	if c.dirty || c.destroyed {
		return
	}
	c.dirty = true
	c.propagate()
}

// refresh implements source.
func (c *Compute[T]) refresh() {
	if c.destroyed && c.initialized {
		return
	}
	if c.settled() && !c.dirty && c.verified == c.rt.epoch {
		c.rethrow()
		return
	}
	if c.computing {
		panic(&CyclicDependencyError{NodeID: c.id, Kind: KindCompute, Label: c.label})
	}

	c.computing = true
	defer func() { c.computing = false }()

	if c.settled() && c.depsCurrent() {
		c.dirty = false
		c.verified = c.rt.epoch
		c.rethrow()
		return
	}
	c.evaluate()
}

// settled reports whether an evaluation has completed, successfully or not.
func (c *Compute[T]) settled() bool {
	return c.initialized || c.failure != nil
}

func (c *Compute[T]) rethrow() {
	if c.failure != nil {
		panic(c.failure)
	}
}

// depsCurrent refreshes every recorded source and reports whether all of
// them still carry the captured version.
func (c *Compute[T]) depsCurrent() bool {
	for _, d := range c.deps {
		d.src.refresh()
		if d.src.base().version != d.version {
			return false
		}
	}
	return true
}

func (c *Compute[T]) evaluate() {
	var next T
	deps, panicked := c.rt.collect(c, func() {
		next = c.fn()
	})
	if !c.destroyed {
		relink(c, c.deps, deps)
		c.deps = deps
	}
	if panicked != nil {
		c.failure = panicked
		c.dirty = false
		c.verified = c.rt.epoch
		panic(panicked)
	}
	recovered := c.failure != nil
	c.failure = nil

	c.rt.observer.ComputeEvaluated(c.id, c.label)
	if !c.initialized || recovered || !c.equal(c.value, next) {
		c.value = next
		c.version++
	}
	c.initialized = true
	c.dirty = false
	c.verified = c.rt.epoch
}

func (c *Compute[T]) stateSource() source {
	return c
}

func (c *Compute[T]) bindEffect(e *Effect, cb func(T)) {
	bindState[T](e, c, cb)
}

var _ Source[int] = (*Compute[int])(nil)
var _ subscriber = (*Compute[int])(nil)
