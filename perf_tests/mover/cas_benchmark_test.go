package mover_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lyzr/workflow-engine/engine/ioclient/mover"
	"github.com/lyzr/workflow-engine/engine/model"
)

// newBenchClient dials the mover broker at MOVER_SOCKET, skipping the
// benchmark when no broker is listening (these require a live mover
// instance, unlike engine/ioclient/memory's in-process double).
func newBenchClient(b *testing.B) *mover.Client {
	b.Helper()
	socket := os.Getenv("MOVER_SOCKET")
	if socket == "" {
		b.Skip("MOVER_SOCKET not set, skipping live mover benchmark")
	}
	c := mover.New(socket, 8)
	b.Cleanup(func() { c.Close() })
	return c
}

// BenchmarkTouch measures round-trip latency of a Touch command, the
// cheapest operation the mover broker supports.
func BenchmarkTouch(b *testing.B) {
	c := newBenchClient(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch, err := c.Send(ctx, model.IoCommand{ID: "bench-touch", Kind: model.IoTouch, Dst: "/tmp/mover-bench-touch"})
		if err != nil {
			b.Fatal(err)
		}
		<-ch
	}
}

// BenchmarkCopy measures round-trip latency of a Copy command.
func BenchmarkCopy(b *testing.B) {
	c := newBenchClient(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch, err := c.Send(ctx, model.IoCommand{
			ID:  "bench-copy",
			Kind: model.IoCopy,
			Src: "/tmp/mover-bench-src",
			Dst: "/tmp/mover-bench-dst",
		})
		if err != nil {
			b.Fatal(err)
		}
		<-ch
	}
}

// BenchmarkBatchTouch dispatches a batch of Touch commands concurrently and
// waits for every response, exercising the client's connection pool under
// fan-out rather than one command at a time.
func BenchmarkBatchTouch(b *testing.B) {
	c := newBenchClient(b)
	ctx := context.Background()
	const batch = 100

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chans := make([]<-chan model.IoResult, batch)
		for j := 0; j < batch; j++ {
			ch, err := c.Send(ctx, model.IoCommand{ID: "bench-batch", Kind: model.IoTouch, Dst: "/tmp/mover-bench-batch"})
			if err != nil {
				b.Fatal(err)
			}
			chans[j] = ch
		}
		for _, ch := range chans {
			select {
			case <-ch:
			case <-time.After(5 * time.Second):
				b.Fatal("timed out waiting for batch response")
			}
		}
	}
}
