package live

import (
	"context"
	"sync"
	"testing"

	"chainscope/internal/dashboard"
)

func newTestClient() *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		send:   make(chan []byte, sendBufferSize),
		sub:    newSubscription(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestSendAfterCloseIsDiscarded(t *testing.T) {
	c := newTestClient()

	// A fetch that started before the disconnect still holds the current
	// generation, so Deliver accepts it. The send must be a no-op, not a
	// panic on the closed channel.
	gen := c.sub.Set(dashboard.SeriesRequest{Network: "ethereum", Metric: "tx_count", Range: "7D"})
	c.closeSend()

	if !c.sub.Deliver(gen, false) {
		t.Fatalf("generation is still current, delivery must be accepted")
	}
	c.sendMessage(outMessage{Type: "series"})

	if _, ok := <-c.send; ok {
		t.Fatalf("closed client must not receive queued messages")
	}
}

func TestCloseSendIdempotent(t *testing.T) {
	c := newTestClient()
	c.closeSend()
	c.closeSend()

	select {
	case <-c.ctx.Done():
	default:
		t.Fatalf("client context must be cancelled on close")
	}
}

func TestConcurrentSendAndClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := newTestClient()

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					c.sendMessage(outMessage{Type: "series"})
				}
			}()
		}
		c.closeSend()
		wg.Wait()
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	c := newTestClient()
	for i := 0; i < sendBufferSize+5; i++ {
		c.sendMessage(outMessage{Type: "series"})
	}
	if got := len(c.send); got != sendBufferSize {
		t.Fatalf("expected a full buffer and silent drops, got %d queued", got)
	}
}
