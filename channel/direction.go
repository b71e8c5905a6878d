package channel

import "context"

// Receiver is the receive-only subset of Channel's operations. Passing a
// Receiver instead of a *Channel to a consumer prevents it from sending
// or closing the channel it was only handed to drain, the same way a
// built-in <-chan T parameter does.
type Receiver[T any] interface {
	Size() int
	Capacity() Capacity
	TryRecv() (T, Code)
	Recv(ctx context.Context) (T, Code)
	RecvSched(abort abortFunc, onSettle func(ok bool, v T))
}

// Sender is the send-only subset of Channel's operations.
type Sender[T any] interface {
	Size() int
	Capacity() Capacity
	TrySend(v T) Code
	Send(ctx context.Context, v T) Code
	SendSched(v T, abort abortFunc, onSettle func(ok bool))
	Close()
}

// AsReceiver narrows c to its receive-only interface.
func (c *Channel[T]) AsReceiver() Receiver[T] { return c }

// AsSender narrows c to its send-only interface. Close is included on
// the sender side, not the receiver side: closing is a producer's
// decision to signal "no more values," mirroring who is allowed to close
// a built-in channel.
func (c *Channel[T]) AsSender() Sender[T] { return c }
