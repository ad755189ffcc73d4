// Package history abstracts the browser location and writes URL fragments
// to it.
//
// A Location exposes the current fragment, push and replace primitives,
// and a pop-state subscription. Push and Replace never fire pop-state
// listeners; only navigation (back, forward, an externally entered URL)
// does. Memory is an in-process implementation used by tests and tools.
// Remote mirrors a connected browser and forwards writes over a send
// function.
package history

import (
	"sync"
)

// Location is the boundary to a browser location.
type Location interface {
	// Hash returns the current fragment including the leading "#", or ""
	// when there is none.
	Hash() string

	// Push adds a new history entry with the given fragment.
	Push(hash string)

	// Replace replaces the current history entry's fragment.
	Replace(hash string)

	// OnPopState subscribes fn to navigation events. The returned function
	// cancels the subscription.
	OnPopState(fn func()) (cancel func())
}

// Binder is implemented by locations that track a single owner.
type Binder interface {
	// Bind claims the location for owner. It reports false when another
	// owner holds it.
	Bind(owner any) bool

	// Unbind releases the claim if owner holds it.
	Unbind(owner any)
}

// Binding implements Binder. Embed it in Location implementations.
type Binding struct {
	mu    sync.Mutex
	owner any
}

// Bind implements Binder.
func (b *Binding) Bind(owner any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owner != nil && b.owner != owner {
		return false
	}
	b.owner = owner
	return true
}

// Unbind implements Binder.
func (b *Binding) Unbind(owner any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.owner == owner {
		b.owner = nil
	}
}

// listeners is an ordered pop-state subscriber list.
type listeners struct {
	mu      sync.Mutex
	entries []listenerEntry
	nextID  uint64
}

type listenerEntry struct {
	id uint64
	fn func()
}

func (l *listeners) add(fn func()) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, e := range l.entries {
				if e.id == id {
					l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listeners) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// fire calls every listener in subscription order, outside the lock.
func (l *listeners) fire() {
	l.mu.Lock()
	snapshot := make([]func(), len(l.entries))
	for i, e := range l.entries {
		snapshot[i] = e.fn
	}
	l.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}

func normalize(hash string) string {
	if hash == "#" {
		return ""
	}
	return hash
}
