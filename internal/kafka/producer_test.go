package kafka

import (
	"context"
	"testing"
	"time"
)

func TestProducerCloseStopsFlushLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewProducer([]string{"127.0.0.1:1"}, "orders.test", 8)
	p.Start(ctx)
	p.Close()

	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("flush loop did not exit after Close")
	}
}

// Shutdown calls Close and cancels the root context; both paths end up
// wanting the inbox closed and must not trip over each other.
func TestProducerCloseAndCancelRace(t *testing.T) {
	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewProducer([]string{"127.0.0.1:1"}, "orders.test", 8)
		p.Start(ctx)

		p.Close()
		cancel()

		done := make(chan struct{})
		go func() {
			p.WaitClosed()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("flush loop did not exit after Close and cancel")
		}
	}
}
