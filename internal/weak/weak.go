// Package weak provides a non-owning key to value association.
//
// Keys are pointers. In weak mode an entry never keeps its key alive: once
// the key becomes unreachable the garbage collector drops it and a cleanup
// removes the entry. Strong mode holds keys directly and exists for hosts
// that need deterministic retention (tests, snapshots).
package weak

import (
	"runtime"
	"sync"
	"weak"
)

// Mode selects how keys are held.
type Mode uint8

const (
	// Weak holds keys through weak pointers.
	Weak Mode = iota
	// Strong holds keys through ordinary pointers.
	Strong
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Strong {
		return "strong"
	}
	return "weak"
}

// Association maps pointer keys to values. Safe for concurrent use, since
// weak-mode cleanups run on a runtime goroutine.
type Association[K any, V any] struct {
	mode Mode

	mu          sync.Mutex
	weakEntries map[weak.Pointer[K]]V
	strong      map[*K]V
}

// New returns an empty association using mode.
func New[K any, V any](mode Mode) *Association[K, V] {
	a := &Association[K, V]{mode: mode}
	if mode == Strong {
		a.strong = make(map[*K]V)
	} else {
		a.weakEntries = make(map[weak.Pointer[K]]V)
	}
	return a
}

// Mode reports how keys are held.
func (a *Association[K, V]) Mode() Mode {
	return a.mode
}

// Set associates v with key. A nil key is ignored.
func (a *Association[K, V]) Set(key *K, v V) {
	if key == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == Strong {
		a.strong[key] = v
		return
	}

	wp := weak.Make(key)
	if _, ok := a.weakEntries[wp]; !ok {
		runtime.AddCleanup(key, a.forget, wp)
	}
	a.weakEntries[wp] = v
}

// Get returns the value associated with key.
func (a *Association[K, V]) Get(key *K) (V, bool) {
	var zero V
	if key == nil {
		return zero, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == Strong {
		v, ok := a.strong[key]
		return v, ok
	}
	v, ok := a.weakEntries[weak.Make(key)]
	return v, ok
}

// Delete removes the entry for key.
func (a *Association[K, V]) Delete(key *K) {
	if key == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == Strong {
		delete(a.strong, key)
		return
	}
	delete(a.weakEntries, weak.Make(key))
}

// Len returns the number of entries, including weak entries whose key has
// been collected but whose cleanup has not run yet.
func (a *Association[K, V]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == Strong {
		return len(a.strong)
	}
	return len(a.weakEntries)
}

// Range calls fn for every live entry. Iteration order is unspecified.
// fn runs without the association lock held.
func (a *Association[K, V]) Range(fn func(key *K, v V) bool) {
	type entry struct {
		key *K
		v   V
	}

	a.mu.Lock()
	entries := make([]entry, 0, a.lenLocked())
	if a.mode == Strong {
		for k, v := range a.strong {
			entries = append(entries, entry{k, v})
		}
	} else {
		for wp, v := range a.weakEntries {
			if k := wp.Value(); k != nil {
				entries = append(entries, entry{k, v})
			}
		}
	}
	a.mu.Unlock()

	for _, e := range entries {
		if !fn(e.key, e.v) {
			return
		}
	}
}

func (a *Association[K, V]) lenLocked() int {
	if a.mode == Strong {
		return len(a.strong)
	}
	return len(a.weakEntries)
}

func (a *Association[K, V]) forget(wp weak.Pointer[K]) {
	a.mu.Lock()
	delete(a.weakEntries, wp)
	a.mu.Unlock()
}
