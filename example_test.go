package gate_test

import (
	"context"
	"fmt"

	"github.com/xraph/gate"
)

type user struct {
	id    string
	admin bool
}

type post struct{ owner string }

func Example() {
	g, err := gate.NewGate()
	if err != nil {
		panic(err)
	}

	g.Add("post", gate.Object{
		"before": func(_ context.Context, d *gate.Decision, actor any, _ string, _ any) error {
			if actor.(*user).admin {
				d.Pass("auth.admin")
			}
			return nil
		},
		"edit": func(_ context.Context, d *gate.Decision, actor any, _ string, subject any) error {
			if subject.(*post).owner == actor.(*user).id {
				d.Pass("")
				return nil
			}
			d.Fail("auth.not_owner", actor.(*user).id)
			return nil
		},
	})

	ctx := context.Background()
	p := &post{owner: "alice"}

	for _, u := range []*user{{id: "alice"}, {id: "bob"}, {id: "root", admin: true}} {
		d, _ := g.Allows(ctx, u, "post.edit", p)
		fmt.Println(u.id, d.Passed(), d.Message())
	}
	// Output:
	// alice true auth.gate_authed
	// bob false auth.not_owner
	// root true auth.admin
}

func ExampleType() {
	g, _ := gate.NewGate()
	g.Add("", gate.Type(newModelPolicy, "Invoice"))

	d, _ := g.Allows(context.Background(), nil, "Invoice.view", nil)
	fmt.Println(g.Policies(), d.Passed(), d.Params())
	// Output:
	// [Invoice] true [Invoice]
}

type modelPolicy struct{ gate.Base }

func newModelPolicy(ref any) *modelPolicy {
	p := &modelPolicy{Base: gate.NewBase(ref.(string), ref)}
	p.Handle("view", func(_ context.Context, d *gate.Decision, _ any, _ string, _ any) error {
		d.Pass("", p.Ref())
		return nil
	})
	return p
}
