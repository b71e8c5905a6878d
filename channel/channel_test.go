package channel

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCapacityOneHandoff(t *testing.T) {
	c := New[int](1)

	if code := c.Send(context.Background(), 42); code != Ok {
		t.Fatalf("send: %v", code)
	}
	if v, code := c.TryRecv(); code != Ok || v != 42 {
		t.Fatalf("recv: %v %v", v, code)
	}
	if _, code := c.TryRecv(); code != Exhausted {
		t.Fatalf("expected exhausted, got %v", code)
	}
}

func TestRendezvousWithDelay(t *testing.T) {
	c := NewZero[int]()

	start := time.Now()
	recvDone := make(chan int, 1)
	go func() {
		v, code := c.Recv(context.Background())
		if code != Ok {
			t.Errorf("recv: %v", code)
		}
		recvDone <- v
	}()

	time.Sleep(100 * time.Millisecond)
	if code := c.Send(context.Background(), 7); code != Ok {
		t.Fatalf("send: %v", code)
	}

	select {
	case v := <-recvDone:
		if v != 7 {
			t.Fatalf("got %d", v)
		}
		if time.Since(start) < 100*time.Millisecond {
			t.Fatalf("unblocked too early")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestCloseWhileBlocked(t *testing.T) {
	c := NewZero[int]()

	done := make(chan Code, 1)
	go func() {
		_, code := c.Recv(context.Background())
		done <- code
	}()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case code := <-done:
		if code != Closed {
			t.Fatalf("expected closed, got %v", code)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestCancellation(t *testing.T) {
	c := NewZero[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan Code, 1)
	go func() {
		_, code := c.Recv(ctx)
		done <- code
	}()

	select {
	case code := <-done:
		if code != Canceled {
			t.Fatalf("expected canceled, got %v", code)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	if got := c.Size(); got != 0 {
		t.Fatalf("expected size 0 after cancellation, got %d", got)
	}
}

func TestZeroCapacityExhaustedWithoutCounterpart(t *testing.T) {
	c := NewZero[int]()

	if _, code := c.TryRecv(); code != Exhausted {
		t.Fatalf("expected exhausted, got %v", code)
	}
	if code := c.TrySend(1); code != Exhausted {
		t.Fatalf("expected exhausted, got %v", code)
	}
}

func TestUnboundedNeverExhausted(t *testing.T) {
	c := NewUnbounded[int]()
	for i := 0; i < 1000; i++ {
		if code := c.TrySend(i); code != Ok {
			t.Fatalf("send %d: %v", i, code)
		}
	}
	if got := c.Size(); got != 1000 {
		t.Fatalf("size: %d", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New[int](1)
	c.Close()
	c.Close()

	if code := c.TrySend(1); code != Closed {
		t.Fatalf("send after double close: %v", code)
	}
}

func TestHangingReceiversNegativeSize(t *testing.T) {
	c := NewZero[int]()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Recv(ctx)
		}()
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Size() == -2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := c.Size(); got != -2 {
		t.Fatalf("expected size -2, got %d", got)
	}

	cancel()
	wg.Wait()
}

func TestBoundedFIFODrainOnReceive(t *testing.T) {
	c := NewBounded[int](1)
	if code := c.TrySend(1); code != Ok {
		t.Fatalf("send 1: %v", code)
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if code := c.Send(context.Background(), 100+i); code != Ok {
				t.Errorf("send: %v", code)
			}
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let both senders enqueue, in order

	var got []int
	for len(got) < 3 {
		v, code := c.TryRecv()
		if code == Ok {
			got = append(got, v)
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	if got[0] != 1 {
		t.Fatalf("expected first value 1, got %v", got)
	}
}

func TestNoLossNoDuplication(t *testing.T) {
	const n = 500
	c := New[int](8)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			c.Send(context.Background(), v)
		}(i)
	}

	seen := make(map[int]bool)
	var mu sync.Mutex
	var rwg sync.WaitGroup
	for i := 0; i < 8; i++ {
		rwg.Add(1)
		go func() {
			defer rwg.Done()
			for {
				v, code := c.Recv(context.Background())
				if code != Ok {
					return
				}
				mu.Lock()
				if seen[v] {
					t.Errorf("duplicate value %d", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	c.Close()
	rwg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d distinct values, got %d", n, len(seen))
	}
}

func TestFIFOSingleSenderSingleReceiver(t *testing.T) {
	c := New[int](4)
	const n = 200

	go func() {
		for i := 0; i < n; i++ {
			c.Send(context.Background(), i)
		}
		c.Close()
	}()

	for i := 0; i < n; i++ {
		v, code := c.Recv(context.Background())
		if code != Ok {
			t.Fatalf("recv %d: %v", i, code)
		}
		if v != i {
			t.Fatalf("expected %d, got %d", i, v)
		}
	}
	if _, code := c.Recv(context.Background()); code != Closed {
		t.Fatalf("expected closed, got %v", code)
	}
}

func TestDirectionalHandles(t *testing.T) {
	c := New[int](1)

	var sender Sender[int] = c.AsSender()
	var receiver Receiver[int] = c.AsReceiver()

	if code := sender.Send(context.Background(), 9); code != Ok {
		t.Fatalf("send via Sender: %v", code)
	}
	v, code := receiver.Recv(context.Background())
	if code != Ok || v != 9 {
		t.Fatalf("recv via Receiver: %v %v", v, code)
	}

	sender.Close()
	if _, code := receiver.TryRecv(); code != Closed {
		t.Fatalf("expected closed, got %v", code)
	}
}
