package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/gate"
)

func newGate(t *testing.T, c *Collector) *gate.Gate {
	t.Helper()
	g, err := gate.NewGate(gate.WithPlugin(c))
	if err != nil {
		t.Fatal(err)
	}
	g.Add("post", gate.Object{
		"edit": func(_ context.Context, d *gate.Decision, actor any, _ string, _ any) error {
			if actor == "alice" {
				d.Pass("")
			}
			return nil
		},
		"delete": func(context.Context, *gate.Decision, any, string, any) error {
			return errors.New("store unavailable")
		},
	})
	return g
}

func TestCollectorCountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	g := newGate(t, c)
	ctx := context.Background()

	g.Allows(ctx, "alice", "post.edit", nil)
	g.Allows(ctx, "alice", "post.edit", nil)
	g.Allows(ctx, "bob", "post.edit", nil)
	g.Allows(ctx, "bob", "post.delete", nil)
	g.Allows(ctx, "bob", "post.publish", nil)
	g.Allows(ctx, "bob", "nope.edit", nil)
	g.Allows(ctx, "bob", "a.b.c", nil)

	tests := []struct {
		policy, action, outcome string
		want                    float64
	}{
		{"post", "edit", OutcomeAllow, 2},
		{"post", "edit", OutcomeDeny, 1},
		{"post", "delete", OutcomeError, 1},
		{"post", unknownLabel, OutcomeDeny, 1},
		{unknownLabel, unknownLabel, OutcomeDeny, 2},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(c.Decisions.WithLabelValues(tt.policy, tt.action, tt.outcome))
		if got != tt.want {
			t.Errorf("decisions{%s,%s,%s} = %v, want %v", tt.policy, tt.action, tt.outcome, got, tt.want)
		}
	}

	if got := testutil.ToFloat64(c.Errors.WithLabelValues("operation")); got != 1 {
		t.Errorf("expected 1 operation error, got %v", got)
	}
	if got := testutil.ToFloat64(c.Policies); got != 1 {
		t.Errorf("expected 1 policy definition, got %v", got)
	}
	if n := testutil.CollectAndCount(c.EvalDuration); n != 4 {
		t.Errorf("expected 4 histogram series, got %d", n)
	}
}

func TestCollectorCancelledContext(t *testing.T) {
	c := New(nil)
	g := newGate(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g.Allows(ctx, "alice", "post.edit", nil)

	if got := testutil.ToFloat64(c.Errors.WithLabelValues("canceled")); got != 1 {
		t.Errorf("expected 1 canceled error, got %v", got)
	}
}

func TestCollectorIgnoresForeignValues(t *testing.T) {
	c := New(nil)
	if err := c.OnAfterCheck(context.Background(), "not a decision", nil); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(c.Decisions); n != 0 {
		t.Errorf("expected no series, got %d", n)
	}
}

func TestOutcome(t *testing.T) {
	passed := gate.NewDecision(nil, "edit", nil).Pass("")
	failed := gate.NewDecision(nil, "edit", nil).Fail("")

	tests := []struct {
		name string
		d    *gate.Decision
		err  error
		want string
	}{
		{"passed", passed, nil, OutcomeAllow},
		{"failed", failed, nil, OutcomeDeny},
		{"error wins", passed, errors.New("x"), OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.d, tt.err); got != tt.want {
				t.Errorf("Outcome = %q, want %q", got, tt.want)
			}
		})
	}
}
