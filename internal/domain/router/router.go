// Package router maps filesystem change notifications onto the per-file
// callbacks the type checker registers. It is the bridge between the watch
// subsystem (which reports paths) and the checker (which wants callbacks).
package router

import (
	"log/slog"
	"sync"
)

// EventKind tags the change delivered to a callback.
type EventKind int

const (
	// EventChanged is the only kind the watch bridge reports: the file's
	// content changed. Creates and deletes of watched files collapse to it.
	EventChanged EventKind = iota
)

// Event is passed to every callback registered for the notified path.
type Event struct {
	Kind EventKind
	Path string
}

// registration is one callback slot under a path. Kept by pointer so Close
// can find and remove exactly this slot even after siblings are removed.
type registration struct {
	cb func(Event)
}

// Router dispatches change notifications for exact paths. Registrations are
// instance-owned: independent routers never share state, so tests can run
// several pipelines side by side.
//
// Thread-safe. Callbacks run synchronously inside Notify, in registration
// order, without the router lock held.
type Router struct {
	mu      sync.Mutex
	watched map[string][]*registration
	log     *slog.Logger
}

// New creates an empty router. A nil logger falls back to slog.Default.
func New(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		watched: make(map[string][]*registration),
		log:     log,
	}
}

// Registration is the disposal handle returned by Register. Close removes
// the one callback it stands for; the path entry is dropped when its last
// callback is removed. Close is idempotent.
type Registration struct {
	r    *Router
	path string
	reg  *registration
	once sync.Once
}

// Close unregisters the callback. Always returns nil; the error return
// satisfies io.Closer so handles can cross the ports boundary.
func (h *Registration) Close() error {
	h.once.Do(func() {
		h.r.unregister(h.path, h.reg)
	})
	return nil
}

// Register stores cb under path. Registering the same path twice appends a
// second callback; both fire on Notify, in registration order.
func (r *Router) Register(path string, cb func(Event)) *Registration {
	reg := &registration{cb: cb}

	r.mu.Lock()
	r.watched[path] = append(r.watched[path], reg)
	r.mu.Unlock()

	return &Registration{r: r, path: path, reg: reg}
}

// Notify invokes every callback registered for exactly path. A panicking
// callback is recovered and logged with the path; remaining callbacks on
// the same path still run. No-op for unregistered paths.
func (r *Router) Notify(path string) {
	r.mu.Lock()
	regs := make([]*registration, len(r.watched[path]))
	copy(regs, r.watched[path])
	r.mu.Unlock()

	ev := Event{Kind: EventChanged, Path: path}
	for _, reg := range regs {
		r.invoke(path, reg.cb, ev)
	}
}

// Len returns the number of callbacks registered for path.
func (r *Router) Len(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watched[path])
}

func (r *Router) invoke(path string, cb func(Event), ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("watch callback panicked", "path", path, "err", rec)
		}
	}()
	cb(ev)
}

func (r *Router) unregister(path string, reg *registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.watched[path]
	for i, candidate := range regs {
		if candidate == reg {
			r.watched[path] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(r.watched[path]) == 0 {
		delete(r.watched, path)
	}
}
