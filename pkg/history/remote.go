package history

import "sync"

// SendFunc delivers a fragment write to a remote browser.
type SendFunc func(hash string, replace bool) error

// Remote mirrors the location of a connected browser. Writes update the
// mirror immediately and are forwarded with send; navigation reported by
// the browser is applied with PopState.
type Remote struct {
	Binding

	mu       sync.Mutex
	hash     string
	send     SendFunc
	sendErr  func(error)
	popstate listeners
}

// NewRemote creates a mirror starting at initial. onError receives send
// failures and may be nil.
func NewRemote(initial string, send SendFunc, onError func(error)) *Remote {
	return &Remote{hash: normalize(initial), send: send, sendErr: onError}
}

// Hash implements Location.
func (r *Remote) Hash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hash
}

// Push implements Location.
func (r *Remote) Push(hash string) {
	r.write(hash, false)
}

// Replace implements Location.
func (r *Remote) Replace(hash string) {
	r.write(hash, true)
}

func (r *Remote) write(hash string, replace bool) {
	hash = normalize(hash)
	r.mu.Lock()
	r.hash = hash
	r.mu.Unlock()

	if r.send == nil {
		return
	}
	if err := r.send(hash, replace); err != nil && r.sendErr != nil {
		r.sendErr(err)
	}
}

// OnPopState implements Location.
func (r *Remote) OnPopState(fn func()) func() {
	return r.popstate.add(fn)
}

// PopState records navigation reported by the browser and fires pop-state.
func (r *Remote) PopState(hash string) {
	r.mu.Lock()
	r.hash = normalize(hash)
	r.mu.Unlock()

	r.popstate.fire()
}
