package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Notifier delivers one text notification to an external channel.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, text string) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Sink accepts notification texts for asynchronous delivery.
type Sink interface {
	// Dispatch enqueues a notification. It never blocks; false means
	// the text was dropped (queue full or sink closed).
	Dispatch(text string) bool
}

// Dispatcher is a bounded asynchronous work queue in front of a
// Notifier. Delivery is best-effort and fire-and-forget: failures are
// logged, never retried, and a full queue drops the notification
// rather than blocking the caller.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration

	tasks chan string
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// QueueSize bounds the number of pending notifications.
	// Defaults to 16.
	QueueSize int

	// Timeout bounds each delivery attempt. Defaults to 10s.
	Timeout time.Duration

	// Logger receives delivery failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewDispatcher creates a Dispatcher and starts its delivery worker.
func NewDispatcher(n Notifier, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Dispatcher{
		notifier: n,
		logger:   opts.Logger,
		timeout:  opts.Timeout,
		tasks:    make(chan string, opts.QueueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for text := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.notifier.Notify(ctx, text); err != nil {
			d.logger.Error("alert: notification failed", "error", err)
		}
		cancel()
	}
}

// Dispatch implements Sink.
func (d *Dispatcher) Dispatch(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.tasks <- text:
		return true
	default:
		d.logger.Warn("alert: notification queue full, dropping", "text", text)
		return false
	}
}

// Close stops accepting notifications and waits for pending deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()
	<-d.done
}
