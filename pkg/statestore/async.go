package statestore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/attos/attos-backend/pkg/logger"
	"github.com/attos/attos-backend/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// AsyncWriter persists the latest payload per key on a background goroutine.
// Enqueue never blocks on I/O; a newer payload for a key replaces an unwritten one.
type AsyncWriter struct {
	store        Store
	logg         *logger.Logger
	metrics      *metrics.StoreMetrics
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	closed  bool

	signal   chan struct{}
	flushReq chan chan struct{}
	stop     chan struct{}
	done     chan struct{}
}

// AsyncWriterParams configure the writer.
type AsyncWriterParams struct {
	Store        Store
	Logger       *logger.Logger
	Metrics      *metrics.StoreMetrics
	WriteTimeout time.Duration
}

// NewAsyncWriter starts the writer goroutine. Close must be called to stop it.
func NewAsyncWriter(params AsyncWriterParams) (*AsyncWriter, error) {
	if params.Store == nil {
		return nil, errors.New("store required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	w := &AsyncWriter{
		store:        params.Store,
		logg:         logg,
		metrics:      params.Metrics,
		writeTimeout: timeout,
		pending:      make(map[string][]byte),
		signal:       make(chan struct{}, 1),
		flushReq:     make(chan chan struct{}),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Enqueue schedules payload to be written under key.
func (w *AsyncWriter) Enqueue(key string, payload []byte) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logg.Warn(w.logg.WithField(context.Background(), "state_key", key), "state write dropped after close")
		return
	}
	if _, ok := w.pending[key]; ok {
		w.metrics.IncCoalesced(key)
	}
	w.pending[key] = payload
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Flush blocks until everything enqueued before the call has been written.
func (w *AsyncWriter) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flushReq <- ack:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes whatever is pending and stops the goroutine.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.stop)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.signal:
			w.drain()
		case ack := <-w.flushReq:
			w.drain()
			close(ack)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *AsyncWriter) drain() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]byte, len(batch))
	w.mu.Unlock()

	for key, payload := range batch {
		w.write(key, payload)
	}
}

func (w *AsyncWriter) write(key string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	err := w.store.Save(ctx, key, payload)
	w.metrics.ObserveWrite(key, err)
	if err != nil {
		w.logg.Error(w.logg.WithField(ctx, "state_key", key), "state write failed", err)
	}
}
