package statemachine_test

import (
	"testing"

	. "github.com/enetx/g"
	. "github.com/gemerden/statemachine"
)

const washerYAML = `
name: washer
states:
  off:
    states:
      idle: {}
      broken:
        on_entry: report_breakage
  on:
    states:
      washing: {}
      drying: {}
    transitions:
      - old_state: washing
        new_state: drying
        trigger: dry
transitions:
  - old_state: off.idle
    new_state: on
    trigger: switch_on
  - old_state: on
    new_state: off.idle
    trigger: switch_off
  - old_state: "*"
    new_state: off.broken
    trigger: smash
  - old_state: off.broken
    new_state: off.idle
    trigger: fix
    condition: has_parts
`

func washerRegistry(log *Slice[String]) *Registry {
	return NewRegistry().
		Callback("report_breakage", func(*Context) error {
			log.Push("breakage reported")
			return nil
		}).
		Predicate("has_parts", func(ctx *Context) bool {
			return ctx.Args.Get("parts").UnwrapOr(false) == any(true)
		})
}

func TestParseConfigKeepsStateOrder(t *testing.T) {
	cfg, err := ParseConfig([]byte(washerYAML))
	assertNoError(t, err)

	assertEqual(t, cfg.Name, "washer")
	assertEqual(t, cfg.States[0].Name, "off")
	assertEqual(t, cfg.States[1].Name, "on")
	assertEqual(t, cfg.States[0].States[0].Name, "idle")
	assertEqual(t, cfg.States[1].States[1].Name, "drying")
}

func TestParsedMachineRuns(t *testing.T) {
	var log Slice[String]

	machine, err := ParseAndBuild([]byte(washerYAML), washerRegistry(&log))
	assertNoError(t, err)

	washer := &lamp{}
	assertNoError(t, machine.Init(washer))
	assertEqual(t, washer.State(), "off.idle")

	// switching on lands in the default leaf of "on".
	assertNoError(t, machine.Fire(washer, "switch_on", nil))
	assertEqual(t, washer.State(), "on.washing")

	assertNoError(t, machine.Fire(washer, "dry", nil))
	assertEqual(t, washer.State(), "on.drying")

	assertNoError(t, machine.Fire(washer, "smash", nil))
	assertEqual(t, washer.State(), "off.broken")
	assertEqual(t, log.Join("|"), String("breakage reported"))

	// fixing without parts falls back to the synthesized stay.
	assertNoError(t, machine.Fire(washer, "fix", nil))
	assertEqual(t, washer.State(), "off.broken")

	assertNoError(t, machine.Fire(washer, "fix", Args{"parts": true}))
	assertEqual(t, washer.State(), "off.idle")
}

func TestUnknownCallbackNameFails(t *testing.T) {
	_, err := ParseAndBuild([]byte(washerYAML), NewRegistry())
	assertError(t, err)
}

// constructing the same configuration twice resolves every trigger the same
// way for every reachable state.
func TestRoundTripResolution(t *testing.T) {
	var log Slice[String]

	one, err := ParseAndBuild([]byte(washerYAML), washerRegistry(&log))
	assertNoError(t, err)

	two, err := ParseAndBuild([]byte(washerYAML), washerRegistry(&log))
	assertNoError(t, err)

	first, second := one.Transitions(), two.Transitions()
	assertEqual(t, first.Len(), second.Len())

	for i := range first.Len() {
		assertEqual(t, first[i].Old(), second[i].Old())
		assertEqual(t, first[i].New(), second[i].New())
		assertEqual(t, first[i].Trigger(), second[i].Trigger())
		assertEqual(t, first[i].Synthesized(), second[i].Synthesized())
	}
}

func TestSwitchedYAML(t *testing.T) {
	const doc = `
name: router
states:
  a: {}
  b: {}
  c: {}
transitions:
  - old_state: a
    new_states:
      b:
        condition: go_b
      c: {}
    trigger: route
`

	reg := NewRegistry().Predicate("go_b", func(ctx *Context) bool {
		return ctx.Args.Get("b").UnwrapOr(false) == any(true)
	})

	machine, err := ParseAndBuild([]byte(doc), reg)
	assertNoError(t, err)

	holder := &lamp{}
	assertNoError(t, machine.Init(holder))

	assertNoError(t, machine.Fire(holder, "route", Args{"b": true}))
	assertEqual(t, holder.State(), "b")

	holder2 := &lamp{}
	assertNoError(t, machine.Init(holder2))

	assertNoError(t, machine.Fire(holder2, "route", nil))
	assertEqual(t, holder2.State(), "c")
}
