// Package publish broadcasts gate decisions as JSON events on a Redis
// channel so other services can follow authorization activity live.
package publish

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xraph/gate"
	"github.com/xraph/gate/audit"
	"github.com/xraph/gate/plugin"
)

// DefaultChannel is the channel decisions are published on.
const DefaultChannel = "gate:decisions"

// Client is the subset of redis.UniversalClient the publisher needs.
type Client interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

var _ Client = (*redis.Client)(nil)

// Compile-time interface checks.
var (
	_ plugin.Plugin     = (*Publisher)(nil)
	_ plugin.AfterCheck = (*Publisher)(nil)
)

// Config configures the publisher.
type Config struct {
	// Channel is the Redis channel name.
	Channel string `json:"channel" mapstructure:"channel" yaml:"channel"`

	// Rate caps published events per second. Zero disables the cap.
	Rate float64 `json:"rate" mapstructure:"rate" yaml:"rate"`

	// Burst is the limiter bucket size.
	Burst int `json:"burst" mapstructure:"burst" yaml:"burst"`

	// Timeout bounds a single publish.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`

	// DenialsOnly skips passed decisions.
	DenialsOnly bool `json:"denials_only" mapstructure:"denials_only" yaml:"denials_only"`
}

// DefaultConfig returns the publisher defaults.
func DefaultConfig() Config {
	return Config{
		Channel: DefaultChannel,
		Rate:    100,
		Burst:   20,
		Timeout: time.Second,
	}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the zap logger.
func WithLogger(l *zap.Logger) Option { return func(p *Publisher) { p.logger = l } }

// WithConfig replaces the configuration. Zero channel and timeout keep
// their defaults.
func WithConfig(c Config) Option {
	return func(p *Publisher) {
		if c.Channel == "" {
			c.Channel = p.config.Channel
		}
		if c.Timeout <= 0 {
			c.Timeout = p.config.Timeout
		}
		p.config = c
	}
}

// Publisher is a gate plugin that publishes each decision.
type Publisher struct {
	client  Client
	config  Config
	logger  *zap.Logger
	limiter *rate.Limiter

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// New returns a publisher writing to client.
func New(client Client, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.config.Rate > 0 {
		burst := p.config.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(p.config.Rate), burst)
	}
	p.logger = p.logger.With(zap.String("mod", "gate-publish"), zap.String("channel", p.config.Channel))
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "publish" }

// Published returns the number of events delivered to Redis.
func (p *Publisher) Published() int64 { return p.published.Load() }

// Dropped returns the number of events skipped by the rate limiter.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed returns the number of publishes Redis rejected.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// OnAfterCheck implements plugin.AfterCheck. Delivery failures are logged
// and never change the decision.
func (p *Publisher) OnAfterCheck(ctx context.Context, decision any, checkErr error) error {
	d, ok := decision.(*gate.Decision)
	if !ok {
		return nil
	}
	if p.config.DenialsOnly && checkErr == nil && d.Passed() {
		return nil
	}
	if p.limiter != nil && !p.limiter.Allow() {
		p.dropped.Add(1)
		return nil
	}
	return p.Publish(ctx, audit.NewEntry(ctx, d, checkErr))
}

// Publish sends one event. The context's cancellation is ignored so that
// an event for a request that just ended is still delivered.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.Timeout)
	defer cancel()

	if err := p.client.Publish(pctx, p.config.Channel, payload).Err(); err != nil {
		p.failed.Add(1)
		p.logger.Warn("decision event delivery failed", zap.Error(err))
		return err
	}
	p.published.Add(1)
	return nil
}
