package quark

// Source is a readable reactive cell: an Atom, a Compute, or a read-only
// view of either.
type Source[T any] interface {
	Observable[T]

	// Get returns the current value and, inside an evaluation, records a
	// dependency on this cell.
	Get() T

	// Peek returns the current value without recording a dependency.
	Peek() T

	// Version returns the change counter of the cell.
	Version() uint64

	// ID returns the node identifier.
	ID() int64

	stateSource() source
}

// Atom is a mutable reactive cell.
type Atom[T any] struct {
	node

	value T
	equal func(a, b T) bool
}

// NewAtom creates an atom holding initial.
func NewAtom[T any](rt *Runtime, initial T, opts ...CellOption) *Atom[T] {
	o := applyCellOptions(opts)
	a := &Atom[T]{
		value: initial,
		equal: comparator[T](o),
	}
	a.init(rt, KindAtom, o.label)
	return a
}

// Get returns the current value and records a dependency when called during
// a compute or effect evaluation.
func (a *Atom[T]) Get() T {
	a.rt.track(a)
	return a.value
}

// Peek returns the current value without recording a dependency.
func (a *Atom[T]) Peek() T {
	return a.value
}

// Set stores value if the comparator reports it differs from the current
// value, bumping the version and notifying subscribers. Writes to a
// destroyed atom are ignored.
func (a *Atom[T]) Set(value T) {
	if a.destroyed {
		return
	}
	if a.equal(a.value, value) {
		return
	}

	a.value = value
	a.version++
	a.rt.epoch++
	a.rt.observer.AtomWritten(a.id, a.label)
	a.propagate()
}

// Update applies fn to the current value and stores the result via Set.
func (a *Atom[T]) Update(fn func(T) T) {
	a.Set(fn(a.value))
}

// Version returns the number of accepted writes.
func (a *Atom[T]) Version() uint64 {
	return a.version
}

// ID returns the unique identifier for this atom.
func (a *Atom[T]) ID() int64 {
	return a.id
}

// Label returns the name given with the Label option.
func (a *Atom[T]) Label() string {
	return a.label
}

// SubscriberCount returns the number of computes and effects currently
// subscribed.
func (a *Atom[T]) SubscriberCount() int {
	return a.subs.Len()
}

// AsReadonly returns a view that can be read and observed but not written.
func (a *Atom[T]) AsReadonly() Source[T] {
	return readonly[T]{a}
}

// Destroy clears the subscriber list. Later writes are ignored and reads no
// longer record dependencies.
func (a *Atom[T]) Destroy() {
	if a.destroyed {
		return
	}
	a.release()
}

// IsDestroyed reports whether Destroy has been called.
func (a *Atom[T]) IsDestroyed() bool {
	return a.destroyed
}

func (a *Atom[T]) refresh() {}

func (a *Atom[T]) stateSource() source {
	return a
}

func (a *Atom[T]) bindEffect(e *Effect, cb func(T)) {
	bindState[T](e, a, cb)
}

// readonly hides the write methods of a cell.
type readonly[T any] struct {
	src Source[T]
}

func (r readonly[T]) Get() T              { return r.src.Get() }
func (r readonly[T]) Peek() T             { return r.src.Peek() }
func (r readonly[T]) Version() uint64     { return r.src.Version() }
func (r readonly[T]) ID() int64           { return r.src.ID() }
func (r readonly[T]) stateSource() source { return r.src.stateSource() }

func (r readonly[T]) bindEffect(e *Effect, cb func(T)) {
	bindState[T](e, r, cb)
}

var _ Source[int] = (*Atom[int])(nil)
var _ Source[int] = readonly[int]{}
