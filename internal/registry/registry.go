// Package registry provides a sharded, name-keyed lookup table for the
// channel handles a pipeline wires together at startup. It exists so a
// demo or CLI can refer to channels by a stable name (for logging,
// dynamic select construction, shutdown ordering) without passing a
// struct of fields around.
package registry

import "sync"

const defaultShardCount = 16

// Closer is implemented by any handle a Registry can close on a
// caller's behalf during CloseAll. *channel.Channel[T] satisfies this
// already, since its Close takes no arguments and returns nothing.
type Closer interface {
	Close()
}

// Registry is a concurrent, name-keyed map from string to an opaque
// handle (typically a *channel.Channel[T] stored as any, since Go
// generics cannot range over channels of different element types).
// Keys are sharded by an FNV-1a hash to keep reads and writes off a
// single global lock.
//
// Registration order is tracked separately from the sharded map, under
// its own mutex, purely so CloseAll can undo setup in reverse: the
// same reverse-of-acquisition discipline a single function gets for
// free by stacking plain defers, generalized here across however many
// named resources a pipeline registers at runtime.
type Registry struct {
	shards []shard

	orderMu sync.Mutex
	order   []string
	seen    map[string]bool
}

type shard struct {
	mu sync.RWMutex
	m  map[string]any
}

// New creates a Registry with the default shard count.
func New() *Registry { return NewWithShards(defaultShardCount) }

// NewWithShards creates a Registry with a caller-chosen shard count.
// count <= 0 falls back to the default.
func NewWithShards(count int) *Registry {
	if count <= 0 {
		count = defaultShardCount
	}
	shards := make([]shard, count)
	for i := range shards {
		shards[i].m = make(map[string]any)
	}
	return &Registry{shards: shards, seen: make(map[string]bool)}
}

func (r *Registry) shardFor(name string) *shard {
	return &r.shards[fnv1a(name)%uint64(len(r.shards))]
}

// Register binds name to handle, overwriting any previous binding. The
// name's position in registration order is set on its first Register
// call and does not move on subsequent overwrites, so CloseAll's
// ordering reflects when a resource was first set up, not when it was
// last rebound.
func (r *Registry) Register(name string, handle any) {
	s := r.shardFor(name)
	s.mu.Lock()
	s.m[name] = handle
	s.mu.Unlock()

	r.orderMu.Lock()
	if !r.seen[name] {
		r.seen[name] = true
		r.order = append(r.order, name)
	}
	r.orderMu.Unlock()
}

// Lookup returns the handle bound to name, if any.
func (r *Registry) Lookup(name string) (any, bool) {
	s := r.shardFor(name)
	s.mu.RLock()
	v, ok := s.m[name]
	s.mu.RUnlock()
	return v, ok
}

// Unregister removes name's binding, if present. It does not remove
// name from registration order: a later re-Register of the same name
// reuses its original slot rather than moving to the back of the line.
func (r *Registry) Unregister(name string) {
	s := r.shardFor(name)
	s.mu.Lock()
	delete(s.m, name)
	s.mu.Unlock()
}

// Names returns every registered name, in no particular order.
func (r *Registry) Names() []string {
	var out []string
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for k := range s.m {
			out = append(out, k)
		}
		s.mu.RUnlock()
	}
	return out
}

// CloseAll closes every currently registered handle that implements
// Closer, in the reverse of the order its name was first registered,
// and unregisters it. A handle bound to a name but not implementing
// Closer is unregistered without being closed. CloseAll also clears the
// registration order, so names registered after it are ordered by that
// new registration, not by their position before CloseAll.
func (r *Registry) CloseAll() {
	r.orderMu.Lock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	r.order = nil
	r.seen = make(map[string]bool)
	r.orderMu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if v, ok := r.Lookup(name); ok {
			if c, ok := v.(Closer); ok {
				c.Close()
			}
		}
		r.Unregister(name)
	}
}

// fnv1a is the 64-bit Fowler-Noll-Vo hash, chosen for the same reason it
// was chosen for the map this registry was adapted from: it is fast,
// allocation-free, and distributes short ASCII keys (channel names)
// evenly across shards.
func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
