// Command orichan-demo wires a small producer/consumer pipeline out of the
// channel, registry, and backpressure packages to show how they fit
// together outside of a test binary.
//
// It builds a bounded channel of work items and a control channel,
// registers both under a name, and logs them back out through a
// registry lookup rather than the local variables it already holds, the
// way a shutdown routine in a larger program would have to. Producers are
// admitted through a backpressure gate narrower than the channel's own
// buffer, split into two per-parity classes so neither half of the
// producer pool can starve the other. The drain loop watches the work
// channel and the control channel together through a Select; at the end,
// registry.CloseAll tears both channels down in the reverse of the order
// they were registered in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/orichan/channel"
	"github.com/orizon-lang/orichan/internal/backpressure"
	"github.com/orizon-lang/orichan/internal/errors"
	"github.com/orizon-lang/orichan/internal/registry"
)

type workItem struct {
	producer int
	seq      int
}

const (
	classEven = "even"
	classOdd  = "odd"
)

func main() {
	producers := flag.Int("producers", 4, "number of concurrent producers")
	perProducer := flag.Int("items", 25, "items sent per producer")
	capacity := flag.Int("capacity", 8, "work channel buffer size")
	admission := flag.Int("admission", 2, "max producers admitted to send at once")
	flag.Parse()

	if err := run(*producers, *perProducer, *capacity, *admission); err != nil {
		log.Fatalf("orichan-demo: %v", err)
	}
}

func run(producers, perProducer, capacity, admission int) error {
	if capacity < 0 {
		return errors.InvalidCapacity(capacity, "work channel")
	}

	logger := log.New(os.Stdout, "orichan-demo: ", log.LstdFlags|log.Lmsgprefix)

	work := channel.NewBounded[workItem](capacity)
	stop := channel.NewZero[struct{}]()
	reg := registry.New()
	reg.Register("stop", stop)
	reg.Register("work", work)

	for _, name := range reg.Names() {
		if _, ok := reg.Lookup(name); ok {
			logger.Printf("registered channel %q", name)
		}
	}

	// Producers share one admission budget, split into two classes by
	// parity. Without a class cap, enough producers on one side of the
	// split could occupy the entire budget and starve the other side
	// even though FIFO order would eventually let them through; capping
	// each class at half the budget guarantees the two sides interleave.
	gate := backpressure.New(admission)
	half := (admission + 1) / 2
	gate.SetClassCap(classEven, half)
	gate.SetClassCap(classOdd, half)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	for p := 0; p < producers; p++ {
		p := p
		g.Go(func() error {
			class := classEven
			if p%2 == 1 {
				class = classOdd
			}
			if err := gate.Acquire(gctx, class, 1); err != nil {
				return fmt.Errorf("producer %d: admission: %w", p, err)
			}
			defer gate.Release(class, 1)

			for i := 0; i < perProducer; i++ {
				item := workItem{producer: p, seq: i}
				if code := work.Send(gctx, item); code != channel.Ok {
					return fmt.Errorf("producer %d: send item %d: %w", p, i, code)
				}
			}
			logger.Printf("producer %d done", p)
			return nil
		})
	}

	producersDone := make(chan error, 1)
	go func() {
		err := g.Wait()
		// CloseAll closes every registered channel in the reverse of the
		// order it was registered in; work was registered after stop, so
		// it closes first, letting the drain loop empty its buffer before
		// stop closes underneath it.
		reg.CloseAll()
		producersDone <- err
	}()

	received := 0
drain:
	for {
		var item workItem
		var stopped bool

		recvOp := channel.RecvOp(work, func(ok bool, v workItem) {
			if ok {
				item = v
			}
		})
		stopOp := channel.RecvOp(stop, func(ok bool, _ struct{}) {
			stopped = ok
		})

		code := channel.Select(gctx, nil, recvOp, stopOp)
		switch code {
		case channel.Canceled:
			break drain
		case channel.Closed:
			logger.Printf("drained %d items, work channel closed", received)
			break drain
		case channel.Ok:
			if stopped {
				logger.Printf("stop requested after %d items", received)
				break drain
			}
			received++
			if received%10 == 0 {
				logger.Printf("received %d items so far (last from producer %d)", received, item.producer)
			}
		default:
			return fmt.Errorf("unexpected select outcome: %v", code)
		}
	}

	if err := <-producersDone; err != nil {
		return err
	}
	return ctx.Err()
}
