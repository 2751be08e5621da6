package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testManifest = `
policies:
  - name: post
    super: [admin]
    actions:
      view:
        anyone: true
      edit:
        roles: [editor]
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCheck(t *testing.T) {
	path := writeManifest(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"editor edits", []string{"-m", path, "-a", "alice", "-r", "editor", "post.edit"}, 0, "allow post.edit (auth.gate_role) [editor]"},
		{"admin via super", []string{"-m", path, "-a", "root", "--roles", "admin", "post.edit"}, 0, "allow post.edit (auth.gate_superRole) [admin]"},
		{"anonymous views", []string{"-m", path, "post.view"}, 0, "allow post.view (auth.gate_authed)"},
		{"member denied", []string{"-m", path, "-a", "bob", "post.edit"}, 1, "deny post.edit (auth.gate_missingRole) [edit]"},
		{"unknown policy", []string{"-m", path, "-a", "bob", "comment.edit"}, 1, "deny comment.edit (auth.gate_policyNotDefined) [comment]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runCheck(tt.args, &out, &bytes.Buffer{})
			code := 0
			var ec exitCode
			if errors.As(err, &ec) {
				code = int(ec)
			} else if err != nil {
				t.Fatal(err)
			}
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if got := strings.TrimSpace(out.String()); got != tt.wantOut {
				t.Errorf("output = %q, want %q", got, tt.wantOut)
			}
		})
	}
}

func TestRunCheckJSON(t *testing.T) {
	path := writeManifest(t)
	var out bytes.Buffer
	err := runCheck([]string{"-m", path, "-a", "alice", "-r", "editor", "-s", "post:42", "--json", "post.edit"}, &out, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	var res checkResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Passed || res.Actor != "user:alice" || res.Subject != "post:42" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunCheckUsageErrors(t *testing.T) {
	path := writeManifest(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no manifest", []string{"post.edit"}},
		{"no ability", []string{"-m", path}},
		{"two abilities", []string{"-m", path, "a", "b"}},
		{"missing manifest file", []string{"-m", filepath.Join(t.TempDir(), "x.yaml"), "post.edit"}},
		{"bad flag", []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCheck(tt.args, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunDispatch(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"version"}, &out, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "gate ") {
		t.Errorf("unexpected version output %q", out.String())
	}
	if err := run([]string{"frobnicate"}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown command")
	}
	if err := run(nil, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Error("expected usage error without a command")
	}
}

func TestParseSubject(t *testing.T) {
	r := parseSubject("post:42")
	if r.Type != "post" || r.ID != "42" {
		t.Errorf("unexpected resource %+v", r)
	}
	if r := parseSubject("post"); r.Type != "post" || r.ID != "" {
		t.Errorf("unexpected resource %+v", r)
	}
}
