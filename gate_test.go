package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func newTestGate(t *testing.T, opts ...Option) *Gate {
	t.Helper()
	g, err := NewGate(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// breakfastPolicy is built from a reference value; its Before passes every
// check, shadowing actions that would fail.
type breakfastPolicy struct{ Base }

func newBreakfastPolicy(ref any) *breakfastPolicy {
	m, _ := ref.(map[string]string)
	p := &breakfastPolicy{Base: NewBase(m["model"], ref)}
	fail := func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
		d.Fail("bad")
		return nil
	}
	p.Handle("breakfast", fail)
	p.Handle("lunch", fail)
	return p
}

func (p *breakfastPolicy) Before(_ context.Context, d *Decision, _ any, _ string, _ any) error {
	d.Pass("good")
	return nil
}

type customUser struct{ beforeCalled bool }

func customObject() Object {
	return Object{
		"name": "Custom",
		"before": func(_ context.Context, _ *Decision, actor any, _ string, _ any) error {
			actor.(*customUser).beforeCalled = true
			return nil
		},
		"breakfast": func(_ context.Context, d *Decision, actor any, _ string, _ any) error {
			if actor.(*customUser).beforeCalled {
				d.Pass("before called")
			}
			return nil
		},
		"lunch": func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
			d.Fail("lunch failed")
			return nil
		},
		"dinner": func(ctx context.Context, d *Decision, _ any, _ string, _ any) error {
			s, _ := Service[string](ctx, "testStr")
			d.Pass(s)
			return nil
		},
	}
}

func roleOf(actor any) string {
	m, _ := actor.(map[string]string)
	return m["role"]
}

func TestDefineFunctionPolicy(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)

	if err := g.Define("view", func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
		d.Pass("good")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	p, err := g.Get("view")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Operation("view"); !ok {
		t.Fatal("function policy should answer its own name")
	}

	d, err := g.Allows(ctx, map[string]string{}, "view", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Complete() || !d.Passed() || d.Message() != "good" {
		t.Fatalf("unexpected decision %s", d)
	}
	if d.Policy() != "view" || d.Action() != "view" || d.Ability() != "view" {
		t.Errorf("unexpected resolution %q/%q/%q", d.Policy(), d.Action(), d.Ability())
	}
}

func TestFunctionPolicyFirstFinalizationWins(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	g.Add("admin", func(_ context.Context, d *Decision, actor any, _ string, _ any) error {
		if roleOf(actor) == "admin" {
			d.Pass("is admin!")
		}
		d.Fail("not admin...")
		return nil
	})

	tests := []struct {
		role       string
		wantPassed bool
		wantMsg    string
	}{
		{"admin", true, "is admin!"},
		{"nonadmin", false, "not admin..."},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			d, err := g.Allows(ctx, map[string]string{"role": tt.role}, "admin", nil)
			if err != nil {
				t.Fatal(err)
			}
			if !d.Complete() || d.Passed() != tt.wantPassed || d.Message() != tt.wantMsg {
				t.Fatalf("unexpected decision %s", d)
			}
		})
	}
}

func TestObjectPolicyWithBefore(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t, WithService("testStr", "HELLO!"))
	g.Add("custom", customObject())

	p, err := g.Get("custom")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "Custom" {
		t.Fatalf("expected policy name Custom, got %q", p.Name())
	}

	tests := []struct {
		ability    string
		wantPassed bool
		wantMsg    string
	}{
		{"custom.breakfast", true, "before called"},
		{"custom.lunch", false, "lunch failed"},
		{"custom.dinner", true, "HELLO!"},
	}
	for _, tt := range tests {
		t.Run(tt.ability, func(t *testing.T) {
			actor := &customUser{}
			d, err := g.Allows(ctx, actor, tt.ability, struct{}{})
			if err != nil {
				t.Fatal(err)
			}
			if !actor.beforeCalled {
				t.Error("before did not run")
			}
			if !d.Complete() || d.Passed() != tt.wantPassed || d.Message() != tt.wantMsg {
				t.Fatalf("unexpected decision %s", d)
			}
		})
	}
}

func TestTypePolicyRegisteredUnderItsName(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	if err := g.Define("", Type(newBreakfastPolicy, map[string]string{"model": "Test"})); err != nil {
		t.Fatal(err)
	}

	p, err := g.Get("Test")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*breakfastPolicy); !ok {
		t.Fatalf("expected *breakfastPolicy, got %T", p)
	}

	for _, ability := range []string{"Test.breakfast", "Test.lunch"} {
		d, err := g.Allows(ctx, nil, ability, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Complete() || !d.Passed() || d.Message() != "good" {
			t.Errorf("%s: before should short-circuit with a pass, got %s", ability, d)
		}
	}
}

func TestInstancePolicyKeepsItsIdentity(t *testing.T) {
	g := newTestGate(t)
	g.Add("testCustom", newBreakfastPolicy(map[string]string{"model": "New"}))

	p, err := g.Get("testCustom")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "New" {
		t.Errorf("expected name New, got %q", p.Name())
	}
	if g.Has("New") {
		t.Error("instance should only be registered under the given name")
	}
}

func TestBeforeShortCircuitSkipsOperation(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	var opCalls int
	g.Add("doc", Object{
		"before": func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
			d.Fail("blocked")
			return nil
		},
		"read": func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
			opCalls++
			d.Pass("read")
			return nil
		},
	})

	d, err := g.Allows(ctx, nil, "doc.read", nil)
	if err != nil {
		t.Fatal(err)
	}
	if opCalls != 0 {
		t.Fatalf("operation ran %d times after before completed the decision", opCalls)
	}
	if d.Passed() || d.Message() != "blocked" {
		t.Fatalf("unexpected decision %s", d)
	}
}

func TestUnknownPolicyAndAction(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	g.Add("post", Object{"edit": passWith("ok")})

	tests := []struct {
		name       string
		ability    string
		wantMsg    string
		wantParams []any
	}{
		{"unknown policy", "comment.edit", MessagePolicyNotDefined, []any{"comment"}},
		{"unknown bare policy", "missing", MessagePolicyNotDefined, []any{"missing"}},
		{"unknown action", "post.delete", MessageMethodNotDefined, []any{"post", "delete"}},
		{"bare ability on object", "post", MessageMethodNotDefined, []any{"post", "post"}},
		{"too many segments", "post.edit.now", MessageInvalidAbility, []any{"post.edit.now"}},
		{"empty segment", "post.", MessageInvalidAbility, []any{"post."}},
		{"empty", "", MessageInvalidAbility, []any{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := g.Allows(ctx, nil, tt.ability, nil)
			if err != nil {
				t.Fatalf("unauthorized must not error, got %v", err)
			}
			if !d.Complete() || d.Passed() {
				t.Fatalf("expected a completed denial, got %s", d)
			}
			if d.Message() != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, d.Message())
			}
			if fmt.Sprint(d.Params()) != fmt.Sprint(tt.wantParams) {
				t.Errorf("expected params %v, got %v", tt.wantParams, d.Params())
			}
		})
	}
}

func TestUnfinishedOperationDenies(t *testing.T) {
	g := newTestGate(t)
	g.Add("noop", func(context.Context, *Decision, any, string, any) error { return nil })

	d, err := g.Allows(context.Background(), nil, "noop", nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.Complete() || d.Passed() || d.Message() != MessageNotAuthorized {
		t.Fatalf("expected an incomplete denial, got %s complete=%v", d, d.Complete())
	}
	if g.Can(context.Background(), nil, "noop", nil) {
		t.Error("Can should deny an unfinished decision")
	}
}

func TestOperationErrorPropagates(t *testing.T) {
	errLookup := errors.New("repository unavailable")
	g := newTestGate(t)
	g.Add("post", Object{
		"edit": func(context.Context, *Decision, any, string, any) error { return errLookup },
	})

	d, err := g.Allows(context.Background(), nil, "post.edit", nil)
	if err != errLookup { //nolint:errorlint // must be returned unchanged
		t.Fatalf("expected the operation error unchanged, got %v", err)
	}
	if d == nil || d.Passed() {
		t.Fatal("expected a non-nil failing decision alongside the error")
	}

	err = g.Enforce(context.Background(), nil, "post.edit", nil)
	if !errors.Is(err, errLookup) || errors.Is(err, ErrAccessDenied) {
		t.Errorf("Enforce should wrap the operation error, got %v", err)
	}
}

func TestBeforeErrorSkipsOperation(t *testing.T) {
	errBefore := errors.New("before failed")
	var opCalls int
	g := newTestGate(t)
	g.Add("post", Object{
		"before": func(context.Context, *Decision, any, string, any) error { return errBefore },
		"edit": func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
			opCalls++
			return nil
		},
	})

	_, err := g.Allows(context.Background(), nil, "post.edit", nil)
	if !errors.Is(err, errBefore) {
		t.Fatalf("expected before error, got %v", err)
	}
	if opCalls != 0 {
		t.Error("operation should not run after a before error")
	}
}

func TestCancelledContext(t *testing.T) {
	var calls int
	g := newTestGate(t)
	g.Add("post", Object{
		"edit": func(_ context.Context, d *Decision, _ any, _ string, _ any) error {
			calls++
			d.Pass("ok")
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := g.Allows(ctx, nil, "post.edit", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Error("operation should not run on a cancelled context")
	}
	if d.Passed() {
		t.Error("cancelled evaluation must not pass")
	}

	// Resolution failures are reported even when ctx is done.
	d, err = g.Allows(ctx, nil, "missing.edit", nil)
	if err != nil || d.Message() != MessagePolicyNotDefined {
		t.Errorf("expected policy-not-defined without error, got %s / %v", d, err)
	}
}

func TestCancelledBetweenBeforeAndOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	g := newTestGate(t)
	g.Add("post", Object{
		"before": func(context.Context, *Decision, any, string, any) error {
			cancel()
			return nil
		},
		"edit": func(context.Context, *Decision, any, string, any) error {
			calls++
			return nil
		},
	})

	_, err := g.Allows(ctx, nil, "post.edit", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Error("operation should not start after cancellation")
	}
}

func TestReRegistrationReplaces(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	g.Add("post", Object{"edit": passWith("v1")})
	g.Add("comment", Object{"edit": passWith("c")})
	g.Add("post", Object{"edit": passWith("v2")})

	d, _ := g.Allows(ctx, nil, "post.edit", nil)
	if d.Message() != "v2" {
		t.Fatalf("expected replaced policy, got %q", d.Message())
	}
	if got := strings.Join(g.Policies(), ","); got != "post,comment" {
		t.Errorf("expected first-registration order, got %q", got)
	}
}

func TestDefineErrors(t *testing.T) {
	g := newTestGate(t)

	tests := []struct {
		name    string
		policy  string
		src     any
		wantErr error
	}{
		{"unsupported", "x", 42, ErrUnsupportedSource},
		{"nil", "x", nil, ErrUnsupportedSource},
		{"dotted name", "a.b", passWith("ok"), ErrInvalidAbility},
		{"bad object", "x", Object{"edit": true}, ErrInvalidPolicy},
		{"unnamed function", "", passWith("ok"), ErrInvalidPolicy},
		{"bad constructor", "x", Type(func(any) notAPolicy { return notAPolicy{} }, nil), ErrInvalidPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Define(tt.policy, tt.src)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if len(g.Policies()) != 0 {
		t.Errorf("failed definitions must not register, got %v", g.Policies())
	}
}

func TestAddPanicsOnMisconfiguration(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrUnsupportedSource) {
			t.Fatalf("expected panic with ErrUnsupportedSource, got %v", r)
		}
	}()
	newTestGate(t).Add("x", "not a policy")
}

func TestGetUnknownPolicy(t *testing.T) {
	_, err := newTestGate(t).Get("missing")
	if !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}

func TestWithPolicy(t *testing.T) {
	g := newTestGate(t, WithPolicy("view", passWith("ok")))
	if !g.Has("view") {
		t.Fatal("WithPolicy should define the policy")
	}

	_, err := NewGate(WithPolicy("a.b", passWith("ok")))
	if !errors.Is(err, ErrInvalidAbility) {
		t.Fatalf("expected NewGate to report the bad definition, got %v", err)
	}
}

func TestCanCannotEnforce(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	g.Add("admin", func(_ context.Context, d *Decision, actor any, _ string, _ any) error {
		if roleOf(actor) == "admin" {
			d.Pass("")
			return nil
		}
		d.Fail("auth.not_admin")
		return nil
	})
	admin := map[string]string{"role": "admin"}
	guest := map[string]string{"role": "guest"}

	if !g.Can(ctx, admin, "admin", nil) || g.Cannot(ctx, admin, "admin", nil) {
		t.Error("admin should be allowed")
	}
	if g.Can(ctx, guest, "admin", nil) || !g.Cannot(ctx, guest, "admin", nil) {
		t.Error("guest should be denied")
	}
	if err := g.Enforce(ctx, admin, "admin", nil); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	err := g.Enforce(ctx, guest, "admin", nil)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if !strings.Contains(err.Error(), "auth.not_admin") {
		t.Errorf("expected message key in error, got %q", err)
	}
}

func TestServicesThreadedToPolicies(t *testing.T) {
	type repo struct{ owner string }
	g := newTestGate(t, WithServices(Services{"posts": &repo{owner: "u1"}}))
	g.Add("post", Object{
		"edit": func(ctx context.Context, d *Decision, actor any, _ string, _ any) error {
			r, ok := Service[*repo](ctx, "posts")
			if !ok {
				return errors.New("missing repo")
			}
			if r.owner == actor {
				d.Pass("")
			}
			return nil
		},
		"peek": func(ctx context.Context, d *Decision, _ any, _ string, _ any) error {
			if _, ok := Service[string](ctx, "posts"); ok {
				d.Pass("wrong type accepted")
			}
			if _, ok := ServicesFrom(ctx).Lookup("nope"); ok {
				d.Pass("missing service found")
			}
			return nil
		},
	})

	ctx := context.Background()
	if !g.Can(ctx, "u1", "post.edit", nil) {
		t.Error("owner should be allowed")
	}
	if g.Can(ctx, "u2", "post.edit", nil) {
		t.Error("non-owner should be denied")
	}
	if g.Can(ctx, "u1", "post.peek", nil) {
		t.Error("typed lookup should reject mismatches")
	}
	if ServicesFrom(ctx) == nil {
		t.Error("ServicesFrom should never return nil")
	}
}

type recordingPlugin struct {
	mu      sync.Mutex
	before  int
	after   []string
	defined []string
	stopped bool
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) OnBeforeCheck(_ context.Context, decision any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := decision.(*Decision); ok {
		p.before++
	}
	return nil
}

func (p *recordingPlugin) OnAfterCheck(_ context.Context, decision any, checkErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := decision.(*Decision)
	p.after = append(p.after, fmt.Sprintf("%s:%v:%v", d.Ability(), d.Passed(), checkErr != nil))
	return nil
}

func (p *recordingPlugin) OnPolicyDefined(_ context.Context, name string, _ any) error {
	p.defined = append(p.defined, name)
	return nil
}

func (p *recordingPlugin) OnShutdown(context.Context) error {
	p.stopped = true
	return nil
}

func TestPluginHooks(t *testing.T) {
	ctx := context.Background()
	rp := &recordingPlugin{}
	g := newTestGate(t, WithPlugin(rp), WithPolicy("view", passWith("ok")))
	g.Add("post", Object{
		"edit": func(context.Context, *Decision, any, string, any) error { return errors.New("x") },
	})

	_, _ = g.Allows(ctx, nil, "view", nil)
	_, _ = g.Allows(ctx, nil, "post.edit", nil)
	_, _ = g.Allows(ctx, nil, "missing", nil)

	if rp.before != 3 {
		t.Errorf("expected 3 before hooks, got %d", rp.before)
	}
	want := "view:true:false,post.edit:false:true,missing:false:false"
	if got := strings.Join(rp.after, ","); got != want {
		t.Errorf("after hooks\n got %s\nwant %s", got, want)
	}
	if got := strings.Join(rp.defined, ","); got != "view,post" {
		t.Errorf("expected definitions view,post, got %q", got)
	}
	if g.Plugins() == nil || len(g.Plugins().Plugins()) != 1 {
		t.Error("expected one registered plugin")
	}

	if err := g.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if !rp.stopped {
		t.Error("Stop should emit shutdown")
	}
}

func TestDecisionLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	g := newTestGate(t, WithLogger(logger), WithConfig(Config{LogDenials: true}))
	g.Add("view", passWith("ok"))
	buf.Reset()

	_, _ = g.Allows(context.Background(), "u1", "view", nil)
	if buf.Len() != 0 {
		t.Errorf("passing decision should not be logged with LogDenials only: %s", buf.String())
	}

	_, _ = g.Allows(context.Background(), "u1", "missing", nil)
	out := buf.String()
	if !strings.Contains(out, "gate: denied") || !strings.Contains(out, "actor=u1") {
		t.Errorf("expected a denial log line, got %q", out)
	}
	if !strings.Contains(out, "message="+MessagePolicyNotDefined) {
		t.Errorf("expected message key in log, got %q", out)
	}
}

func TestConcurrentEvaluationAndRegistration(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(t)
	g.Add("post", Object{"read": passWith("ok")})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				if !g.Can(ctx, nil, "post.read", nil) {
					t.Error("post.read should always pass")
					return
				}
			}
		}()
		go func(i int) {
			defer wg.Done()
			g.Add(fmt.Sprintf("p%d", i), Object{"read": passWith("ok")})
			g.Add("post", Object{"read": passWith(fmt.Sprintf("v%d", i))})
		}(i)
	}
	wg.Wait()

	if n := len(g.Policies()); n != 21 {
		t.Errorf("expected 21 policies, got %d", n)
	}
}
