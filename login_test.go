package statemachine_test

import (
	"testing"

	. "github.com/enetx/g"
	. "github.com/gemerden/statemachine"
)

type user struct {
	Stateful
	password String
	attempts int
}

func loginConfig() *Config {
	correct := func(ctx *Context) bool {
		u := ctx.Holder.(*user)
		return ctx.Args.Get("password").UnwrapOr(nil) == any(u.password)
	}

	blocked := func(ctx *Context) bool {
		return ctx.Holder.(*user).attempts >= 5
	}

	countAttempt := func(ctx *Context) error {
		ctx.Holder.(*user).attempts++
		return nil
	}

	resetAttempts := func(ctx *Context) error {
		ctx.Holder.(*user).attempts = 0
		return nil
	}

	return &Config{
		Name: "user",
		States: States(
			StateConfig{Name: "new"},
			StateConfig{
				Name: "active",
				States: States(
					StateConfig{Name: "logged_out"},
					StateConfig{Name: "logged_in"},
				),
				Transitions: Transitions(
					TransitionConfig{
						OldState: StateList{"logged_in"},
						NewState: To("logged_out"),
						Trigger:  TriggerList{"logout"},
					},
				),
			},
			StateConfig{Name: "blocked"},
		),
		Transitions: Transitions(
			TransitionConfig{
				OldState: StateList{"new"},
				NewState: To("active"),
				Trigger:  TriggerList{"activate"},
			},
			TransitionConfig{
				OldState: StateList{"active.logged_out"},
				NewStates: Switch(
					Case{State: "active.logged_in", Condition: Conditions(correct), OnTransfer: Callbacks(resetAttempts)},
					Case{State: "blocked", Condition: Conditions(blocked)},
					Case{State: "active.logged_out", OnTransfer: Callbacks(countAttempt)},
				),
				Trigger: TriggerList{"login"},
			},
		),
	}
}

func TestLoginBlocksAfterFiveFailures(t *testing.T) {
	machine, err := New(loginConfig(), nil)
	assertNoError(t, err)

	u := &user{password: "secret"}
	assertNoError(t, machine.Init(u))
	assertEqual(t, u.State(), "new")

	assertNoError(t, machine.Fire(u, "activate", nil))
	assertEqual(t, u.State(), "active.logged_out")

	for i := range 5 {
		assertNoError(t, machine.Fire(u, "login", Args{"password": String("wrong")}))
		assertEqual(t, u.State(), "active.logged_out")
		assertEqual(t, u.attempts, i+1)
	}

	assertNoError(t, machine.Fire(u, "login", Args{"password": String("wrong")}))
	assertEqual(t, u.State(), "blocked")
}

func TestLoginSucceedsAndResetsAttempts(t *testing.T) {
	machine, err := New(loginConfig(), nil)
	assertNoError(t, err)

	u := &user{password: "secret"}
	assertNoError(t, machine.Init(u))
	assertNoError(t, machine.Fire(u, "activate", nil))

	assertNoError(t, machine.Fire(u, "login", Args{"password": String("wrong")}))
	assertEqual(t, u.attempts, 1)

	assertNoError(t, machine.Fire(u, "login", Args{"password": String("secret")}))
	assertEqual(t, u.State(), "active.logged_in")
	assertEqual(t, u.attempts, 0)

	assertNoError(t, machine.Fire(u, "logout", nil))
	assertEqual(t, u.State(), "active.logged_out")
}
