package export

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spcl/faas-profiler-go/pkg/config"
)

// Buffered decouples the invocation from a slow sink: Export enqueues
// without blocking and a single goroutine drains the queue. When the queue
// is full the payload is dropped and counted, which is the documented
// data-loss mode, not an error.
type Buffered struct {
	inner   Exporter
	ch      chan []byte
	stopCh  chan struct{}
	done    chan struct{}
	dropped atomic.Int64
	closed  atomic.Bool
}

func NewBuffered(inner Exporter, size int) *Buffered {
	if size <= 0 {
		size = config.DefaultExportBufferLen
	}
	b := &Buffered{
		inner:  inner,
		ch:     make(chan []byte, size),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Buffered) Export(_ context.Context, payload []byte) error {
	if b.closed.Load() {
		b.dropped.Add(1)
		return nil
	}
	select {
	case b.ch <- payload:
	default:
		b.dropped.Add(1)
	}
	return nil
}

// Dropped counts payloads lost to backpressure or shutdown.
func (b *Buffered) Dropped() int64 {
	return b.dropped.Load()
}

// Close drains the queue and stops the worker. Payloads still undelivered
// after the grace period are lost.
func (b *Buffered) Close() {
	if b.closed.Swap(true) {
		return
	}
	close(b.stopCh)
	select {
	case <-b.done:
	case <-time.After(time.Second):
	}
}

func (b *Buffered) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stopCh:
			// drain what is already queued, then stop
			for {
				select {
				case payload := <-b.ch:
					b.deliver(payload)
				default:
					return
				}
			}
		case payload := <-b.ch:
			b.deliver(payload)
		}
	}
}

func (b *Buffered) deliver(payload []byte) {
	if err := b.inner.Export(context.Background(), payload); err != nil {
		config.LogDiag.WithError(err).Warn("profiler couldn't deliver buffered record")
		b.dropped.Add(1)
	}
}
