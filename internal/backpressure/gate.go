// Package backpressure bounds how many producers may be admitted to feed
// a channel at once. A channel's own capacity already bounds how many
// values may sit in its buffer, but it says nothing about how many
// goroutines are concurrently attempting a Send; Gate fills that gap so
// a pipeline can cap fan-out without the bound being implicit in how
// many producer goroutines happen to be running.
package backpressure

import (
	"context"
	"errors"
	"sync"
)

// ErrExceedsCapacity is returned by Acquire when a single request asks
// for more weight than the gate's total capacity, or more than its
// class's own cap. TryAcquire reports such a request as false.
var ErrExceedsCapacity = errors.New("backpressure: request exceeds gate capacity")

// Gate is a fair, weighted admission control with FIFO acquisition,
// keyed by an arbitrary class string. A pipeline with several named
// producers (one per upstream source, say) often wants a single shared
// concurrency budget while still keeping any one producer from
// monopolizing it; SetClassCap carves out a ceiling for one class
// without taking anything away from the others. The unnamed class ""
// has no cap of its own beyond the gate's total capacity, so a Gate
// used without classes behaves like a plain weighted semaphore.
//
// Like the channel waiter queues this package sits beside, the wait
// queue is managed entirely under a mutex, with no background
// goroutine.
type Gate struct {
	capacity int64

	mu             sync.Mutex
	granted        int64
	grantedByClass map[string]int64
	classCaps      map[string]int64
	waiting        []*admission
}

type admission struct {
	class     string
	weight    int64
	granted   chan struct{}
	abandoned bool
}

// New creates a Gate that admits up to capacity weight at once, with no
// per-class caps. capacity < 0 is normalized to 0 (a gate that never
// admits anything).
func New(capacity int) *Gate {
	if capacity < 0 {
		capacity = 0
	}
	return &Gate{
		capacity:       int64(capacity),
		grantedByClass: make(map[string]int64),
		classCaps:      make(map[string]int64),
	}
}

// SetClassCap bounds how much weight a single class may hold
// concurrently, independent of what other classes are holding. limit <=
// 0 removes the class's cap, leaving it bounded only by the gate's
// total capacity. Existing grants are not retroactively evicted; the
// cap takes effect on the class's next Acquire/TryAcquire.
func (g *Gate) SetClassCap(class string, limit int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if limit <= 0 {
		delete(g.classCaps, class)
		return
	}
	g.classCaps[class] = int64(limit)
}

func (g *Gate) classCapLocked(class string) int64 {
	if c, ok := g.classCaps[class]; ok {
		return c
	}
	return g.capacity
}

// TryAcquire admits weight to class immediately if it fits both the
// gate's total budget and the class's own cap. It never waits and never
// overtakes the FIFO queue: while any request of any class is queued, it
// reports false.
func (g *Gate) TryAcquire(class string, weight int) bool {
	if weight < 0 {
		return true
	}
	w := int64(weight)

	g.mu.Lock()
	defer g.mu.Unlock()

	if w > g.capacity || w > g.classCapLocked(class) {
		return false
	}
	if len(g.waiting) == 0 && g.granted+w <= g.capacity && g.grantedByClass[class]+w <= g.classCapLocked(class) {
		g.granted += w
		g.grantedByClass[class] += w
		return true
	}
	return false
}

// Acquire blocks until weight can be admitted to class or ctx is done.
func (g *Gate) Acquire(ctx context.Context, class string, weight int) error {
	if weight < 0 {
		return nil
	}
	w := int64(weight)

	g.mu.Lock()
	if w > g.capacity || w > g.classCapLocked(class) {
		g.mu.Unlock()
		return ErrExceedsCapacity
	}
	if len(g.waiting) == 0 && g.granted+w <= g.capacity && g.grantedByClass[class]+w <= g.classCapLocked(class) {
		g.granted += w
		g.grantedByClass[class] += w
		g.mu.Unlock()
		return nil
	}

	req := &admission{class: class, weight: w, granted: make(chan struct{})}
	g.waiting = append(g.waiting, req)
	g.admitLocked()
	ch := req.granted
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		g.mu.Lock()
		req.abandoned = true
		g.admitLocked()
		g.mu.Unlock()
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Release returns weight held by class to the pool and admits queued
// requests that now fit, in FIFO order.
func (g *Gate) Release(class string, weight int) {
	if weight <= 0 {
		return
	}
	w := int64(weight)

	g.mu.Lock()
	g.granted -= w
	if g.granted < 0 {
		g.granted = 0
	}
	g.grantedByClass[class] -= w
	if g.grantedByClass[class] <= 0 {
		delete(g.grantedByClass, class)
	}
	g.admitLocked()
	g.mu.Unlock()
}

// admitLocked walks the wait queue in FIFO order. A request that does
// not fit the gate's total budget blocks every later request behind it
// (the original semaphore's fairness: arrival order wins, so a large
// request is never starved by smaller ones arriving after it). A
// request that only fails its own class's cap is different: it blocks
// later requests of the *same* class, to preserve that class's FIFO
// order, but does not hold up other classes, since the cap is a
// per-class ceiling rather than a statement about the shared budget.
func (g *Gate) admitLocked() {
	blockedClass := make(map[string]bool)
	globalStop := false
	kept := g.waiting[:0]

	for _, req := range g.waiting {
		if req.abandoned {
			continue
		}
		switch {
		case globalStop || blockedClass[req.class]:
			kept = append(kept, req)
		case g.granted+req.weight > g.capacity:
			// Global budget exhausted: nothing further fits either,
			// regardless of class, so stop admitting but keep every
			// remaining live request queued in arrival order.
			globalStop = true
			kept = append(kept, req)
		case g.grantedByClass[req.class]+req.weight > g.classCapLocked(req.class):
			// Only this class's own cap is exhausted; later requests for
			// other classes may still fit, so keep scanning past it.
			blockedClass[req.class] = true
			kept = append(kept, req)
		default:
			g.granted += req.weight
			g.grantedByClass[req.class] += req.weight
			close(req.granted)
		}
	}

	g.waiting = kept
}
