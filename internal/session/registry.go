package session

import "sync"

// Registry tracks every hold session's active capture pid across both
// kinds, so the daemon can sweep leftover capture subprocesses at shutdown
// even when no stop/cancel request ever arrives for them (e.g. the daemon
// is signalled while a hold session is open).
type Registry struct {
	mu      sync.Mutex
	entries map[int][]string
}

// NewRegistry constructs an empty capture-pid registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[int][]string)}
}

// Register records pid as an owned capture process identified by substrings.
func (r *Registry) Register(pid int, substrings []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[pid] = substrings
}

// Reap forgets pid once its owning hold session has stopped it.
func (r *Registry) Reap(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, pid)
}

// ForEachOnShutdown invokes fn for every still-registered pid, used to stop
// leftover capture subprocesses when the daemon is shutting down.
func (r *Registry) ForEachOnShutdown(fn func(pid int, substrings []string)) {
	r.mu.Lock()
	snapshot := make(map[int][]string, len(r.entries))
	for pid, substrings := range r.entries {
		snapshot[pid] = substrings
	}
	r.mu.Unlock()

	for pid, substrings := range snapshot {
		fn(pid, substrings)
	}
}
