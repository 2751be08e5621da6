package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/xraph/gate"
	"github.com/xraph/gate/manifest"
)

// checkResult is the --json output of the check command.
type checkResult struct {
	Ability string `json:"ability"`
	Actor   string `json:"actor,omitempty"`
	Subject string `json:"subject,omitempty"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Params  []any  `json:"params,omitempty"`
	Error   string `json:"error,omitempty"`
}

// runCheck exits 0 when the ability passes and 1 when it is denied.
func runCheck(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("gate check", pflag.ContinueOnError)
	manifestPath := fs.StringP("manifest", "m", "", "policy manifest (required)")
	actorID := fs.StringP("actor", "a", "", "actor ID; empty evaluates an anonymous actor")
	kind := fs.String("kind", "user", "actor kind")
	roles := fs.StringSliceP("roles", "r", nil, "roles held by the actor")
	subject := fs.StringP("subject", "s", "", "subject as type or type:id")
	asJSON := fs.Bool("json", false, "print the decision as JSON")
	if ok, err := parseFlags(fs, args, stderr); !ok {
		return err
	}

	if *manifestPath == "" {
		return errors.New("check: --manifest is required")
	}
	if fs.NArg() != 1 {
		return errors.New("check: expected exactly one ability argument")
	}
	ability := fs.Arg(0)

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		return err
	}
	g, err := gate.NewGate()
	if err != nil {
		return err
	}
	if err := m.Apply(g); err != nil {
		return err
	}

	var actor any
	if *actorID != "" {
		actor = &gate.Principal{ID: *actorID, Kind: *kind, Roles: *roles}
	}
	var subj any
	if *subject != "" {
		subj = parseSubject(*subject)
	}

	d, checkErr := g.Allows(context.Background(), actor, ability, subj)
	res := checkResult{
		Ability: ability,
		Actor:   gate.Identify(actor),
		Subject: gate.Identify(subj),
		Passed:  checkErr == nil && d.Passed(),
		Message: d.Message(),
		Params:  d.Params(),
	}
	if checkErr != nil {
		res.Error = checkErr.Error()
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(stdout, res)
	}

	if !res.Passed {
		return exitCode(1)
	}
	return nil
}

func printResult(w io.Writer, r checkResult) {
	outcome := "deny"
	if r.Passed {
		outcome = "allow"
	}
	fmt.Fprintf(w, "%s %s (%s)", outcome, r.Ability, r.Message)
	if len(r.Params) > 0 {
		fmt.Fprintf(w, " %v", r.Params)
	}
	if r.Error != "" {
		fmt.Fprintf(w, " error: %s", r.Error)
	}
	fmt.Fprintln(w)
}

func parseSubject(s string) *gate.Resource {
	typ, id, _ := strings.Cut(s, ":")
	return &gate.Resource{Type: typ, ID: id}
}
