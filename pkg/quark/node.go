package quark

import "github.com/vango-dev/quark/internal/list"

// NodeKind identifies the type of a graph node.
type NodeKind uint8

const (
	KindAtom NodeKind = iota + 1
	KindCompute
	KindSignal
	KindEffect
	KindScope
)

// String returns a human-readable name for the kind.
func (k NodeKind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindCompute:
		return "compute"
	case KindSignal:
		return "signal"
	case KindEffect:
		return "effect"
	case KindScope:
		return "scope"
	default:
		return "unknown"
	}
}

// subscriber is anything notified when a source it depends on changes.
type subscriber interface {
	// notify marks the subscriber stale. Computes propagate; effects run
	// or schedule a run.
	notify()
}

// source is the type-erased view of a readable node.
type source interface {
	base() *node

	// refresh brings the node's version up to date. No-op for atoms.
	refresh()
}

// node holds the state shared by atoms and computes. It must be the first
// field of the embedding struct so the registry can hold it weakly.
type node struct {
	rt      *Runtime
	id      int64
	kind    NodeKind
	label   string
	version uint64
	subs    list.List[subscriber]

	notifying bool
	renotify  bool
	destroyed bool
}

func (n *node) init(rt *Runtime, kind NodeKind, label string) {
	n.rt = rt
	n.id = rt.ids.allocate()
	n.kind = kind
	n.label = label
	rt.register(n)
}

func (n *node) base() *node {
	return n
}

func (n *node) subscribe(s subscriber) {
	if n.destroyed {
		return
	}
	n.subs.Push(s)
}

func (n *node) unsubscribe(s subscriber) {
	n.subs.RemoveIf(func(x subscriber) bool { return x == s })
}

// propagate notifies every subscriber in registration order. A propagate
// issued while this node is already notifying does not recurse; the outer
// pass walks the subscribers again once it finishes, up to the runtime's
// re-run limit.
func (n *node) propagate() {
	if n.notifying {
		n.renotify = true
		return
	}
	n.notifying = true
	defer func() {
		n.notifying = false
		n.renotify = false
	}()

	for i := 1; ; i++ {
		n.renotify = false
		for _, s := range n.subs.Values() {
			s.notify()
		}
		if !n.renotify {
			return
		}
		if i >= n.rt.maxReruns {
			n.rt.report(&CyclicDependencyError{NodeID: n.id, Kind: n.kind, Label: n.label})
			return
		}
	}
}

// release drops every subscription held on this node.
func (n *node) release() {
	n.destroyed = true
	n.subs.Clear()
	n.rt.unregister(n)
}

// relink diffs the dependency sets of sub, subscribing to new sources and
// unsubscribing from sources no longer read.
func relink(sub subscriber, old, next []dependency) {
	if len(old) == 0 && len(next) == 0 {
		return
	}

	prev := make(map[*node]struct{}, len(old))
	for _, d := range old {
		prev[d.src.base()] = struct{}{}
	}

	keep := make(map[*node]struct{}, len(next))
	for _, d := range next {
		n := d.src.base()
		keep[n] = struct{}{}
		if _, ok := prev[n]; !ok {
			n.subscribe(sub)
		}
	}

	for _, d := range old {
		n := d.src.base()
		if _, ok := keep[n]; !ok {
			n.unsubscribe(sub)
		}
	}
}

// unlinkAll removes sub from every source in deps.
func unlinkAll(sub subscriber, deps []dependency) {
	for _, d := range deps {
		d.src.base().unsubscribe(sub)
	}
}
