package channel

import (
	"context"
	"sync"
)

// Op is a channel operation bound to a channel (and, for sends, a
// value) that Select can attempt non-blockingly or register for later,
// callback-driven settlement.
type Op interface {
	// tryExecute attempts the operation without blocking. It reports the
	// settled code and whether it settled at all; Exhausted means it did
	// not, and the op's callback has not run.
	tryExecute() (Code, bool)

	// schedule registers the operation with the channel it is bound to.
	// abort is the commit gate shared by every sibling op. If the op
	// settles, report is called once, after the op's own onSettle
	// callback has run, with the code the op settled with; an op that
	// loses the gate never settles and never calls report.
	schedule(abort abortFunc, report func(Code))
}

// RecvOp builds a receive operation for use with Select. onSettle may be
// nil; it runs with (true, value) on a successful handoff or (false,
// zero value) if the channel closes before this op is chosen.
func RecvOp[T any](ch *Channel[T], onSettle func(ok bool, v T)) Op {
	if onSettle == nil {
		onSettle = func(bool, T) {}
	}
	return &recvOp[T]{ch: ch, onSettle: onSettle}
}

type recvOp[T any] struct {
	ch       *Channel[T]
	onSettle func(ok bool, v T)
}

func (r *recvOp[T]) tryExecute() (Code, bool) {
	v, code := r.ch.TryRecv()
	switch code {
	case Ok:
		r.onSettle(true, v)
		return Ok, true
	case Closed:
		var zero T
		r.onSettle(false, zero)
		return Closed, true
	default: // Exhausted
		return Exhausted, false
	}
}

func (r *recvOp[T]) schedule(abort abortFunc, report func(Code)) {
	r.ch.RecvSched(abort, func(ok bool, v T) {
		r.onSettle(ok, v)
		if ok {
			report(Ok)
		} else {
			report(Closed)
		}
	})
}

// SendOp builds a send operation for use with Select. onSettle may be
// nil; it runs with true once v has been delivered or buffered, or false
// if the channel closes before this op is chosen.
func SendOp[T any](ch *Channel[T], v T, onSettle func(ok bool)) Op {
	if onSettle == nil {
		onSettle = func(bool) {}
	}
	return &sendOp[T]{ch: ch, value: v, onSettle: onSettle}
}

type sendOp[T any] struct {
	ch       *Channel[T]
	value    T
	onSettle func(ok bool)
}

func (s *sendOp[T]) tryExecute() (Code, bool) {
	switch s.ch.TrySend(s.value) {
	case Ok:
		s.onSettle(true)
		return Ok, true
	case Closed:
		s.onSettle(false)
		return Closed, true
	default: // Exhausted
		return Exhausted, false
	}
}

func (s *sendOp[T]) schedule(abort abortFunc, report func(Code)) {
	s.ch.SendSched(s.value, abort, func(ok bool) {
		s.onSettle(ok)
		if ok {
			report(Ok)
		} else {
			report(Closed)
		}
	})
}

// commitContext is the shared state Select's scheduled branch uses to
// elect exactly one winner among its sibling operations. gate is handed
// to every channel as the abort predicate for that op's waiter; it is
// acquired only from inside that call, which itself only ever runs while
// a single channel's mutex is held, so the commit mutex is never held
// while any channel's mutex is being acquired.
type commitContext struct {
	mu     sync.Mutex
	done   bool
	result Code
	doneCh chan struct{}
}

func newCommitContext() *commitContext {
	return &commitContext{doneCh: make(chan struct{})}
}

// gate is the abort predicate shared by every sibling op. The first
// caller to observe done == false flips it and returns false (meaning
// "not aborted, proceed to settle me"); every later caller, on any
// channel, sees done == true and returns true ("aborted, skip me").
func (cc *commitContext) gate() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.done {
		return true
	}
	cc.done = true
	return false
}

// report is called by the winning op, after it has fully settled
// (written its result and run its own callback), to record the outcome
// and wake Select's waiter. Closing doneCh here rather than inside gate
// guarantees the settlement is complete, and therefore visible to the
// reader of cc.result, before Select observes the commit.
func (cc *commitContext) report(code Code) {
	cc.result = code
	close(cc.doneCh)
}

// cancelFromOutside flips the gate when the caller's ctx fires rather
// than a sibling op settling. It reports whether this call was the one
// to flip it; if not, a settlement is already in flight and the caller
// must still wait on doneCh.
func (cc *commitContext) cancelFromOutside() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.done {
		return false
	}
	cc.done = true
	return true
}

// Select attempts ops in order, committing the first one that is
// immediately ready (the greedy pass is in-order, not randomized). If
// none are ready and fallback is non-nil, fallback runs and Select
// returns Exhausted without committing any op. Otherwise Select
// registers every op behind a shared commit gate and blocks until one
// settles or ctx is done.
//
// Select returns Ok if some op committed with a successful handoff,
// Closed if the committing op observed its channel closed, Exhausted if
// fallback ran (or ops is empty), or Canceled if ctx fired before any op
// committed.
func Select(ctx context.Context, fallback func(), ops ...Op) Code {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, op := range ops {
		if code, settled := op.tryExecute(); settled {
			return code
		}
	}

	if fallback != nil {
		fallback()
		return Exhausted
	}

	if len(ops) == 0 {
		return Exhausted
	}
	if ctx.Err() != nil {
		return Canceled
	}

	cc := newCommitContext()
	for _, op := range ops {
		op.schedule(cc.gate, cc.report)
	}

	select {
	case <-cc.doneCh:
		return cc.result
	case <-ctx.Done():
		if cc.cancelFromOutside() {
			return Canceled
		}
		<-cc.doneCh
		return cc.result
	}
}
