// Package quark provides a fine-grained reactive state engine.
//
// Dependencies are discovered at runtime: reading an Atom or Compute while
// another Compute or Effect is evaluating records an edge from the reader to
// the source. Writes bump the source version and invalidate dependents.
//
// # Core Types
//
// Atom[T] is a mutable cell:
//
//	rt := quark.NewRuntime()
//	count := quark.NewAtom(rt, 0)
//	count.Set(5)
//	count.Update(func(n int) int { return n + 1 })
//
// Compute[T] is a lazy, memoized derived cell:
//
//	doubled := quark.NewCompute(rt, func() int { return count.Get() * 2 })
//	doubled.Get() // evaluates only when a dependency changed
//
// Signal[T] is an event channel without a stored value:
//
//	saved := quark.NewSignal[string](rt)
//	saved.Emit("draft.md")
//
// Effect re-runs a callback when its source changes:
//
//	quark.NewEffect(rt, doubled, func(v int) { fmt.Println(v) })     // batched
//	quark.NewSyncEffect(rt, count, func(v int) { fmt.Println(v) })   // immediate
//
// Scope owns atoms, effects and child scopes and destroys them together:
//
//	scope := rt.NewScope()
//	name := quark.ScopeAtom(scope, "")
//	quark.ScopeEffect(scope, name, render)
//	scope.Destroy()
//
// # Scheduling
//
// Batched effects and batched signal listeners are queued on the runtime
// Scheduler and run together on the next flush. Hosts either install a
// microtask hook (Loop does this) or call Runtime.Flush at turn boundaries.
// Mutations made in one turn are observed together, once per effect.
//
// # Thread Safety
//
// A Runtime and everything created from it belong to a single goroutine at
// a time. Use Loop to give a runtime a dedicated goroutine and Submit work
// to it from elsewhere.
package quark
