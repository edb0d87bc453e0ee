package handler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/wobyy/wlogging/core"
)

// ErrPipelineStopped is returned by QueueHandler.Handle after Stop
var ErrPipelineStopped = errors.New("delivery pipeline stopped")

// State is the lifecycle state of a QueueHandler
type State int32

const (
	// Created accepts records into the buffer but delivers nothing yet
	Created State = iota
	// Started has exactly one consumer draining the buffer
	Started
	// Stopped is terminal; Handle rejects every record
	Stopped
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Started:
		return "Started"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// activeConsumers counts consumer goroutines running in the process
var activeConsumers atomic.Int64

// ActiveConsumers returns the number of running QueueHandler consumers
func ActiveConsumers() int {
	return int(activeConsumers.Load())
}

// QueueHandler decouples producers from a slow downstream handler.
// Handle only enqueues; one consumer goroutine started by Start passes
// every record to the downstream in FIFO order.
type QueueHandler struct {
	downstream   Handler
	queue        chan *core.Entry
	policy       OverflowPolicy
	blockTimeout time.Duration
	drainTimeout time.Duration

	// producers hold mu.RLock while enqueueing; Stop takes the write lock
	// to flip the state so nothing is sent after the final drain
	mu       sync.RWMutex
	state    atomic.Int32
	stopping chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error

	stats   *Stats
	errOut  io.Writer
	limiter *rate.Limiter
}

// QueueConfig holds configuration for the queue handler
type QueueConfig struct {
	// QueueSize is the capacity of the record buffer (default: 1024)
	QueueSize int
	// Overflow selects the backpressure policy (default: Block)
	Overflow OverflowPolicy
	// BlockTimeout bounds how long Block waits for space before the record
	// is dropped (0 = wait indefinitely)
	BlockTimeout time.Duration
	// DrainTimeout bounds how long Stop waits for the buffer to drain
	// (default: 5s)
	DrainTimeout time.Duration
	// ErrorOutput receives rate limited delivery errors (default: os.Stderr)
	ErrorOutput io.Writer
}

// NewQueueHandler creates a queue in front of downstream. Nothing is
// delivered until Start is called.
func NewQueueHandler(downstream Handler, cfg QueueConfig) *QueueHandler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if cfg.ErrorOutput == nil {
		cfg.ErrorOutput = os.Stderr
	}

	return &QueueHandler{
		downstream:   downstream,
		queue:        make(chan *core.Entry, cfg.QueueSize),
		policy:       cfg.Overflow,
		blockTimeout: cfg.BlockTimeout,
		drainTimeout: cfg.DrainTimeout,
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
		stats:        NewStats(),
		errOut:       cfg.ErrorOutput,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Downstream returns the wrapped handler
func (h *QueueHandler) Downstream() Handler {
	return h.downstream
}

// State returns the current lifecycle state
func (h *QueueHandler) State() State {
	return State(h.state.Load())
}

// Start spawns the consumer. Calling it again, or after Stop, does nothing.
func (h *QueueHandler) Start() {
	if !h.state.CompareAndSwap(int32(Created), int32(Started)) {
		return
	}
	activeConsumers.Add(1)
	go h.consume()
}

// Handle enqueues the entry according to the overflow policy. It never
// writes to the downstream itself.
func (h *QueueHandler) Handle(entry *core.Entry) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch h.State() {
	case Stopped:
		h.stats.IncrementDropped(entry.Level)
		return ErrPipelineStopped
	case Created:
		// No consumer yet, so waiting for space could wait forever
		if h.policy == DropOldest {
			h.enqueueDropOldest(entry)
		} else {
			h.enqueueDropNewest(entry)
		}
		return nil
	}

	switch h.policy {
	case DropNewest:
		h.enqueueDropNewest(entry)
	case DropOldest:
		h.enqueueDropOldest(entry)
	default:
		h.enqueueBlock(entry)
	}
	return nil
}

func (h *QueueHandler) enqueueBlock(entry *core.Entry) {
	select {
	case h.queue <- entry:
		return
	default:
	}

	h.stats.IncrementBlocked()
	if h.blockTimeout <= 0 {
		h.queue <- entry
		return
	}

	timer := time.NewTimer(h.blockTimeout)
	defer timer.Stop()
	select {
	case h.queue <- entry:
	case <-timer.C:
		h.stats.IncrementDropped(entry.Level)
	}
}

func (h *QueueHandler) enqueueDropNewest(entry *core.Entry) {
	select {
	case h.queue <- entry:
	default:
		h.stats.IncrementDropped(entry.Level)
	}
}

func (h *QueueHandler) enqueueDropOldest(entry *core.Entry) {
	for {
		select {
		case h.queue <- entry:
			return
		default:
		}
		select {
		case oldest := <-h.queue:
			h.stats.IncrementDropped(oldest.Level)
		default:
			// The consumer emptied a slot between the two selects
		}
	}
}

// consume delivers records until Stop, then drains what is left
func (h *QueueHandler) consume() {
	defer close(h.done)
	defer activeConsumers.Add(-1)

	for {
		select {
		case entry := <-h.queue:
			h.deliver(entry)
		case <-h.stopping:
			h.drain()
			return
		}
	}
}

func (h *QueueHandler) drain() {
	for {
		select {
		case entry := <-h.queue:
			h.deliver(entry)
		default:
			return
		}
	}
}

func (h *QueueHandler) deliver(entry *core.Entry) {
	if err := h.downstream.Handle(entry); err != nil {
		h.report(err)
		return
	}
	h.stats.IncrementProcessed()
}

// report writes a delivery error to ErrorOutput, at most a few per second
func (h *QueueHandler) report(err error) {
	if !h.limiter.Allow() {
		return
	}
	_, _ = fmt.Fprintf(h.errOut, "wlogging: queue delivery failed: %v\n", err)
}

// Stop drains buffered records into the downstream, waits for the consumer
// (bounded by DrainTimeout) and closes the downstream. A handler that was
// never started delivers its buffer synchronously. Stop is idempotent.
func (h *QueueHandler) Stop() error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		prev := State(h.state.Swap(int32(Stopped)))
		h.mu.Unlock()

		var err error
		switch prev {
		case Started:
			close(h.stopping)
			timer := time.NewTimer(h.drainTimeout)
			select {
			case <-h.done:
			case <-timer.C:
				err = fmt.Errorf("drain timed out after %s with %d records queued", h.drainTimeout, len(h.queue))
			}
			timer.Stop()
		case Created:
			h.drain()
		}
		h.stopErr = multierr.Append(err, h.downstream.Close())
	})
	return h.stopErr
}

// Close stops the pipeline
func (h *QueueHandler) Close() error {
	return h.Stop()
}

// Len returns the number of records waiting in the buffer
func (h *QueueHandler) Len() int {
	return len(h.queue)
}

// Stats returns a snapshot of the current statistics
func (h *QueueHandler) Stats() Snapshot {
	return h.stats.GetSnapshot()
}
