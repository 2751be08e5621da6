// Package metrics exports gate decisions as Prometheus metrics.
//
// The Collector is a gate plugin: register it with gate.WithPlugin and every
// evaluation updates the counters and the latency histogram.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xraph/gate"
	"github.com/xraph/gate/plugin"
)

// Outcome label values.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Collector)(nil)
	_ plugin.AfterCheck    = (*Collector)(nil)
	_ plugin.PolicyDefined = (*Collector)(nil)
)

// Collector holds the gate metric families.
type Collector struct {
	// Decisions counts evaluations by policy, action and outcome.
	Decisions *prometheus.CounterVec

	// EvalDuration observes Allows latency by policy and outcome.
	EvalDuration *prometheus.HistogramVec

	// Errors counts evaluations that returned an error, by kind
	// (canceled, deadline, operation).
	Errors *prometheus.CounterVec

	// Policies counts policy definitions, replacements included.
	Policies prometheus.Counter
}

// New registers the gate metrics on reg. A nil reg uses a private registry
// that is never scraped.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Collector{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Total number of authorization decisions.",
		}, []string{"policy", "action", "outcome"}),

		EvalDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_eval_duration_seconds",
			Help:    "Histogram of decision evaluation latencies.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"policy", "outcome"}),

		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_errors_total",
			Help: "Total number of evaluations that returned an error.",
		}, []string{"kind"}),

		Policies: f.NewCounter(prometheus.CounterOpts{
			Name: "gate_policies_defined_total",
			Help: "Total number of policy definitions.",
		}),
	}
}

// Name implements plugin.Plugin.
func (c *Collector) Name() string { return "metrics" }

// OnAfterCheck implements plugin.AfterCheck.
func (c *Collector) OnAfterCheck(_ context.Context, decision any, checkErr error) error {
	d, ok := decision.(*gate.Decision)
	if !ok {
		return nil
	}
	outcome := Outcome(d, checkErr)
	policy, action := labels(d)

	c.Decisions.WithLabelValues(policy, action, outcome).Inc()
	c.EvalDuration.WithLabelValues(policy, outcome).Observe(d.EvalTime().Seconds())
	if checkErr != nil {
		c.Errors.WithLabelValues(errorKind(checkErr)).Inc()
	}
	return nil
}

// OnPolicyDefined implements plugin.PolicyDefined.
func (c *Collector) OnPolicyDefined(context.Context, string, any) error {
	c.Policies.Inc()
	return nil
}

// Outcome classifies a decision for the outcome label.
func Outcome(d *gate.Decision, checkErr error) string {
	switch {
	case checkErr != nil:
		return OutcomeError
	case d.Passed():
		return OutcomeAllow
	default:
		return OutcomeDeny
	}
}

// unknownLabel replaces names that did not resolve so that probing random
// abilities cannot grow label cardinality.
const unknownLabel = "unknown"

func labels(d *gate.Decision) (policy, action string) {
	if d.Passed() {
		return d.Policy(), d.Action()
	}
	switch d.Message() {
	case gate.MessagePolicyNotDefined, gate.MessageInvalidAbility:
		return unknownLabel, unknownLabel
	case gate.MessageMethodNotDefined:
		return d.Policy(), unknownLabel
	}
	return d.Policy(), d.Action()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	default:
		return "operation"
	}
}
