package gate

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestDecisionStartsIncompleteAndFailed(t *testing.T) {
	d := NewDecision("u1", "edit", nil)
	if d.Complete() {
		t.Fatal("new decision should be incomplete")
	}
	if d.Passed() || !d.Failed() {
		t.Fatal("new decision should be failed")
	}
	if d.Message() != MessageNotAuthorized {
		t.Fatalf("expected %q, got %q", MessageNotAuthorized, d.Message())
	}
	if d.Params() != nil {
		t.Fatalf("expected no params, got %v", d.Params())
	}
	if d.ID().IsNil() {
		t.Fatal("expected decision ID")
	}
}

func TestDecisionFirstFinalizationWins(t *testing.T) {
	tests := []struct {
		name       string
		finalize   func(d *Decision)
		wantPassed bool
		wantMsg    string
	}{
		{
			name:       "pass then fail",
			finalize:   func(d *Decision) { d.Pass("ok"); d.Fail("no") },
			wantPassed: true,
			wantMsg:    "ok",
		},
		{
			name:       "fail then pass",
			finalize:   func(d *Decision) { d.Fail("no"); d.Pass("ok") },
			wantPassed: false,
			wantMsg:    "no",
		},
		{
			name:       "pass twice",
			finalize:   func(d *Decision) { d.Pass("first"); d.Pass("second") },
			wantPassed: true,
			wantMsg:    "first",
		},
		{
			name:       "chained",
			finalize:   func(d *Decision) { d.Pass("chained").Fail("ignored") },
			wantPassed: true,
			wantMsg:    "chained",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecision(nil, "a", nil)
			tt.finalize(d)
			if !d.Complete() {
				t.Fatal("expected complete")
			}
			if d.Passed() != tt.wantPassed {
				t.Errorf("expected passed=%v", tt.wantPassed)
			}
			if d.Message() != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, d.Message())
			}
		})
	}
}

func TestDecisionDefaultKeys(t *testing.T) {
	d := NewDecision(nil, "a", nil).Pass("", "dropped?")
	if d.Message() != MessageAuthorized {
		t.Errorf("expected %q, got %q", MessageAuthorized, d.Message())
	}
	if got := d.Params(); len(got) != 1 || got[0] != "dropped?" {
		t.Errorf("expected params to be kept with the default pass key, got %v", got)
	}

	d = NewDecision(nil, "a", nil).Fail("", "ignored")
	if d.Message() != MessageNotAuthorized {
		t.Errorf("expected %q, got %q", MessageNotAuthorized, d.Message())
	}
	if d.Params() != nil {
		t.Errorf("expected params to be discarded, got %v", d.Params())
	}
	if !d.Complete() {
		t.Error("Fail with empty key should still complete")
	}
}

func TestDecisionParamsAreCopied(t *testing.T) {
	params := []any{"post", 7}
	d := NewDecision(nil, "a", nil).Fail("auth.owner", params...)
	params[0] = "mutated"

	got := d.Params()
	if got[0] != "post" {
		t.Fatalf("decision params aliased caller slice: %v", got)
	}
	got[1] = 0
	if d.Params()[1] != 7 {
		t.Fatal("Params returned internal slice")
	}
}

type upperTranslator struct{}

func (upperTranslator) Translate(key string, params ...any) string {
	return strings.ToUpper(key) + fmt.Sprint(params...)
}

func TestDecisionLocalize(t *testing.T) {
	d := NewDecision(nil, "a", nil).Fail("auth.owner", "post")
	if got := d.Localize(nil); got != "auth.owner" {
		t.Errorf("nil translator should return key, got %q", got)
	}
	if got := d.Localize(upperTranslator{}); got != "AUTH.OWNERpost" {
		t.Errorf("unexpected translation %q", got)
	}
}

func TestDecisionString(t *testing.T) {
	d := NewDecision(nil, "edit", nil)
	d.policy = "post"
	d.Pass("ok")
	if got := d.String(); got != "post.edit: allow (ok)" {
		t.Errorf("unexpected String() %q", got)
	}
}

func TestDecisionConcurrentFinalization(t *testing.T) {
	d := NewDecision(nil, "a", nil)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				d.Pass(fmt.Sprintf("pass-%d", i))
			} else {
				d.Fail(fmt.Sprintf("fail-%d", i))
			}
		}(i)
	}
	wg.Wait()

	msg := d.Message()
	if d.Passed() != strings.HasPrefix(msg, "pass-") {
		t.Fatalf("outcome and message disagree: passed=%v message=%q", d.Passed(), msg)
	}
}
