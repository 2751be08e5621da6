// Package audit records gate decisions into a decisionlog.Store without
// blocking evaluation.
//
// The Recorder is a plugin: register it with gate.WithPlugin and every
// finished decision is converted to a decisionlog.Entry, queued on a
// bounded channel and written in batches by a single worker. Writes are
// retried with exponential backoff and guarded by a circuit breaker so a
// failing store sheds load instead of stalling the worker. When the queue is
// full, entries are dropped and counted.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xraph/gate"
	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/plugin"
)

// Compile-time plugin hook checks.
var (
	_ plugin.Plugin     = (*Recorder)(nil)
	_ plugin.AfterCheck = (*Recorder)(nil)
	_ plugin.Shutdown   = (*Recorder)(nil)
)

// ErrStopped is returned by Record after Stop.
var ErrStopped = errors.New("audit: recorder stopped")

// ErrQueueFull is returned by Record when the buffer is full.
var ErrQueueFull = errors.New("audit: queue full")

// Config tunes buffering and write reliability.
type Config struct {
	BufferSize      int           `json:"buffer_size" mapstructure:"buffer_size" yaml:"buffer_size"`
	BatchSize       int           `json:"batch_size" mapstructure:"batch_size" yaml:"batch_size"`
	FlushInterval   time.Duration `json:"flush_interval" mapstructure:"flush_interval" yaml:"flush_interval"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout" yaml:"write_timeout"`
	Attempts        uint          `json:"attempts" mapstructure:"attempts" yaml:"attempts"`
	RetryDelay      time.Duration `json:"retry_delay" mapstructure:"retry_delay" yaml:"retry_delay"`
	BreakerFailures uint32        `json:"breaker_failures" mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout" yaml:"breaker_timeout"`

	// DenialsOnly skips passing decisions.
	DenialsOnly bool `json:"denials_only" mapstructure:"denials_only" yaml:"denials_only"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:      10000,
		BatchSize:       100,
		FlushInterval:   500 * time.Millisecond,
		WriteTimeout:    10 * time.Second,
		Attempts:        3,
		RetryDelay:      100 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) Option { return func(r *Recorder) { r.logger = l } }

// WithConfig replaces the recorder configuration. Zero fields keep their
// defaults.
func WithConfig(c Config) Option { return func(r *Recorder) { r.cfg = merge(r.cfg, c) } }

// Recorder buffers decisions and writes them to a store in batches.
type Recorder struct {
	store  decisionlog.Store
	logger *zap.Logger
	cfg    Config
	cb     *gobreaker.CircuitBreaker

	mu      sync.RWMutex // guards ch against send-after-close
	ch      chan *decisionlog.Entry
	closed  bool
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	written atomic.Uint64
}

// NewRecorder creates a recorder writing to s. Call Start before use.
func NewRecorder(s decisionlog.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:  s,
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("mod", "gate-audit"))
	r.ch = make(chan *decisionlog.Entry, r.cfg.BufferSize)
	r.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gate-audit-store",
		MaxRequests: 1,
		Timeout:     r.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("audit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// Name implements plugin.Plugin.
func (r *Recorder) Name() string { return "audit" }

// Start launches the batching worker.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop closes the queue and waits for the worker to flush what remains
// or for ctx to end.
func (r *Recorder) Stop(ctx context.Context) error {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.ch)
		r.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.logger.Info("audit recorder stopped",
			zap.Uint64("written", r.written.Load()),
			zap.Uint64("dropped", r.dropped.Load()),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of entries discarded because the queue was
// full, the recorder was stopped or a batch could not be written.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written returns the number of entries persisted.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Record queues e without blocking.
func (r *Recorder) Record(e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return ErrStopped
	}
	select {
	case r.ch <- e:
		return nil
	default:
		r.dropped.Add(1)
		r.logger.Error("audit buffer overflow",
			zap.String("decision_id", e.ID.String()),
			zap.String("ability", e.Ability),
		)
		return ErrQueueFull
	}
}

// OnAfterCheck implements plugin.AfterCheck.
func (r *Recorder) OnAfterCheck(ctx context.Context, decision any, checkErr error) error {
	d, ok := decision.(*gate.Decision)
	if !ok {
		return fmt.Errorf("audit: unexpected decision type %T", decision)
	}
	if r.cfg.DenialsOnly && d.Passed() && checkErr == nil {
		return nil
	}
	return r.Record(NewEntry(ctx, d, checkErr))
}

// OnShutdown implements plugin.Shutdown.
func (r *Recorder) OnShutdown(ctx context.Context) error { return r.Stop(ctx) }

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]*decisionlog.Entry, 0, r.cfg.BatchSize)
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.write(batch); err != nil {
			r.dropped.Add(uint64(len(batch)))
			r.logger.Error("audit flush failed", zap.Int("entries", len(batch)), zap.Error(err))
		} else {
			r.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// write persists one batch through the breaker with retries. It uses its
// own context because the evaluation contexts have long ended.
func (r *Recorder) write(batch []*decisionlog.Entry) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
		defer cancel()

		retrier := retry.New(
			retry.Context(ctx),
			retry.Attempts(r.cfg.Attempts),
			retry.Delay(r.cfg.RetryDelay),
			retry.DelayType(retry.BackOffDelay),
		)
		return nil, retrier.Do(func() error {
			return r.store.CreateDecisionLogs(ctx, batch)
		})
	})
	return err
}

func merge(base, c Config) Config {
	if c.BufferSize > 0 {
		base.BufferSize = c.BufferSize
	}
	if c.BatchSize > 0 {
		base.BatchSize = c.BatchSize
	}
	if c.FlushInterval > 0 {
		base.FlushInterval = c.FlushInterval
	}
	if c.WriteTimeout > 0 {
		base.WriteTimeout = c.WriteTimeout
	}
	if c.Attempts > 0 {
		base.Attempts = c.Attempts
	}
	if c.RetryDelay > 0 {
		base.RetryDelay = c.RetryDelay
	}
	if c.BreakerFailures > 0 {
		base.BreakerFailures = c.BreakerFailures
	}
	if c.BreakerTimeout > 0 {
		base.BreakerTimeout = c.BreakerTimeout
	}
	base.DenialsOnly = c.DenialsOnly
	return base
}
