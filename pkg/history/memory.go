package history

import "sync"

// Memory is an in-process history stack.
type Memory struct {
	Binding

	mu        sync.Mutex
	entries   []string
	index     int
	mutations int
	popstate  listeners
}

// NewMemory creates a history with a single entry.
func NewMemory(initial string) *Memory {
	return &Memory{entries: []string{normalize(initial)}}
}

// Hash implements Location.
func (m *Memory) Hash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Push implements Location. Entries after the current one are discarded.
func (m *Memory) Push(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], normalize(hash))
	m.index++
	m.mutations++
}

// Replace implements Location.
func (m *Memory) Replace(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = normalize(hash)
	m.mutations++
}

// OnPopState implements Location.
func (m *Memory) OnPopState(fn func()) func() {
	return m.popstate.add(fn)
}

// Back moves one entry back and fires pop-state. It reports false at the
// start of the history.
func (m *Memory) Back() bool {
	return m.Go(-1)
}

// Forward moves one entry forward and fires pop-state.
func (m *Memory) Forward() bool {
	return m.Go(1)
}

// Go moves delta entries and fires pop-state. Out of range moves are
// ignored and report false.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	m.mu.Unlock()

	m.popstate.fire()
	return true
}

// Navigate simulates the user entering a new fragment: a new entry is
// pushed and pop-state fires, as a browser does for fragment navigation.
func (m *Memory) Navigate(hash string) {
	m.mu.Lock()
	m.entries = append(m.entries[:m.index+1], normalize(hash))
	m.index++
	m.mu.Unlock()

	m.popstate.fire()
}

// DispatchPopState fires pop-state without changing the history.
func (m *Memory) DispatchPopState() {
	m.popstate.fire()
}

// Len returns the number of history entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the position of the current entry.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entries returns a copy of all history entries.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

// Mutations returns how many Push and Replace calls were made.
func (m *Memory) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Listeners returns the number of pop-state subscribers.
func (m *Memory) Listeners() int {
	return m.popstate.len()
}
