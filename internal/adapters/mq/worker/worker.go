// Package worker runs the per-connection writer that drains an outbound
// frame queue into a socket.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorehub/internal/adapters/mq/queue"
	"github.com/okian/scorehub/pkg/logger"
	"github.com/okian/scorehub/pkg/metrics"
)

// Queue defines how writers receive frames.
type Queue interface {
	Dequeue() <-chan queue.Frame
}

// Sink is the transport a writer delivers frames to.
type Sink interface {
	// WriteFrame writes one frame, honoring ctx and any write deadline.
	WriteFrame(ctx context.Context, f queue.Frame) error
	// Ping sends a liveness probe.
	Ping(ctx context.Context) error
	// Close tears the transport down.
	Close() error
}

// Worker processes queued frames until stopped.
type Worker interface {
	// Run starts the loop until ctx is canceled, the queue is closed or a
	// write fails.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// Writer implements Worker for a single connection.
type Writer struct {
	queue Queue
	sink  Sink
	name  string

	pingInterval time.Duration
	onFailure    func(error)

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer draining q into sink.
func NewWriter(q Queue, sink Sink, opts ...Option) *Writer {
	w := &Writer{
		queue:    q,
		sink:     sink,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("writer"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "writer" {
		w.logger = w.logger.With(logger.String("conn", w.name))
	}

	return w
}

// Run writes frames in queue order. The sink is closed when Run returns.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	defer func() { _ = w.sink.Close() }()

	var tick <-chan time.Time
	if w.pingInterval > 0 {
		ticker := time.NewTicker(w.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	frames := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case f, ok := <-frames:
			if !ok {
				w.logger.Debug(ctx, "queue closed, writer exiting")
				return
			}
			if err := w.write(ctx, f); err != nil {
				w.fail(ctx, err)
				return
			}
		case <-tick:
			if err := w.sink.Ping(ctx); err != nil {
				w.fail(ctx, fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (w *Writer) write(ctx context.Context, f queue.Frame) error {
	start := time.Now()
	if err := w.sink.WriteFrame(ctx, f); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	metrics.RecordFrameWritten(float64(time.Since(start).Microseconds()) / 1000.0)
	return nil
}

func (w *Writer) fail(ctx context.Context, err error) {
	metrics.RecordErrorByComponent("writer", "transport")
	w.logger.Debug(ctx, "writer stopped on transport error", logger.Error(err))
	if w.onFailure != nil {
		w.onFailure(err)
	}
}

// Shutdown stops the writer and waits for Run to return.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}
