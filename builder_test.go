package statemachine_test

import (
	"testing"

	. "github.com/enetx/g"
	. "github.com/gemerden/statemachine"
)

func builderConfig() *Config {
	return &Config{
		Name: "player",
		States: States(
			StateConfig{
				Name: "alive",
				States: States(
					StateConfig{Name: "fit"},
					StateConfig{Name: "injured"},
				),
				Transitions: Transitions(
					TransitionConfig{OldState: StateList{"fit"}, NewState: To("injured"), Trigger: TriggerList{"hit"}},
					TransitionConfig{OldState: StateList{"injured"}, NewState: To("fit"), Trigger: TriggerList{"heal"}},
				),
			},
			StateConfig{Name: "dead"},
		),
		Transitions: Transitions(
			TransitionConfig{OldState: StateList{"alive"}, NewState: To("dead"), Trigger: TriggerList{"die"}},
		),
	}
}

func TestBuilderRegistrations(t *testing.T) {
	var log Slice[String]

	machine, err := NewMachineBuilder(builderConfig()).
		OnEntry("alive.*", func(ctx *Context) error {
			log.Push("entered " + ctx.To)
			return nil
		}).
		OnExit("alive.fit", func(*Context) error {
			log.Push("no longer fit")
			return nil
		}).
		OnTransfer("alive.fit", "alive.injured", func(*Context) error {
			log.Push("ouch")
			return nil
		}).
		Prepare("", func(*Context) error {
			log.Push("prepare")
			return nil
		}).
		Build()
	assertNoError(t, err)

	player := &lamp{}
	assertNoError(t, machine.Init(player))
	assertEqual(t, player.State(), "alive.fit")

	assertNoError(t, machine.Fire(player, "hit", nil))
	assertEqual(t, player.State(), "alive.injured")
	assertEqual(t, log.Join("|"), String("prepare|no longer fit|ouch|entered alive.injured"))
}

func TestBuilderNamedBindings(t *testing.T) {
	cfg := builderConfig()
	cfg.States[0].States[1].OnEntry = Callbacks("count_injury")

	injuries := 0

	machine, err := NewMachineBuilder(cfg).
		Callback("count_injury", func(*Context) error {
			injuries++
			return nil
		}).
		Build()
	assertNoError(t, err)

	player := &lamp{}
	assertNoError(t, machine.Init(player))

	assertNoError(t, machine.Fire(player, "hit", nil))
	assertEqual(t, injuries, 1)
}

func TestBuilderConditionSynthesizesFallback(t *testing.T) {
	healed := false

	machine, err := NewMachineBuilder(builderConfig()).
		Condition("alive.injured", "alive.fit", func(*Context) bool { return healed }).
		Build()
	assertNoError(t, err)

	player := &lamp{}
	assertNoError(t, machine.Init(player))
	assertNoError(t, machine.Fire(player, "hit", nil))

	// condition fails: the synthesized fallback keeps the player injured.
	assertNoError(t, machine.Fire(player, "heal", nil))
	assertEqual(t, player.State(), "alive.injured")

	healed = true
	assertNoError(t, machine.Fire(player, "heal", nil))
	assertEqual(t, player.State(), "alive.fit")
}

func TestBuilderConstraint(t *testing.T) {
	allowed := false

	machine, err := NewMachineBuilder(builderConfig()).
		Constraint("dead", func(*Context) bool { return allowed }).
		Build()
	assertNoError(t, err)

	player := &lamp{}
	assertNoError(t, machine.Init(player))

	assertError(t, machine.Fire(player, "die", nil))
	assertEqual(t, player.State(), "alive.fit")

	allowed = true
	assertNoError(t, machine.Fire(player, "die", nil))
	assertEqual(t, player.State(), "dead")
}

func TestBuilderUnknownSelector(t *testing.T) {
	_, err := NewMachineBuilder(builderConfig()).
		OnEntry("ghost", func(*Context) error { return nil }).
		Build()
	assertError(t, err)
}

func TestBuilderBuildIsIdempotent(t *testing.T) {
	b := NewMachineBuilder(builderConfig())

	one, err := b.Build()
	assertNoError(t, err)

	two, err := b.Build()
	assertNoError(t, err)
	assertTrue(t, one == two)
}
