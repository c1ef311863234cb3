package statemachine_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	. "github.com/enetx/g"
	. "github.com/gemerden/statemachine"
)

func TestMachineMarshalJSON(t *testing.T) {
	machine, err := ParseAndBuild([]byte(washerYAML), washerRegistry(&Slice[String]{}))
	assertNoError(t, err)

	data, err := json.Marshal(machine)
	assertNoError(t, err)

	text := string(data)
	assertTrue(t, strings.Contains(text, `"name":"washer"`))
	assertTrue(t, strings.Contains(text, `"report_breakage"`))
	assertTrue(t, strings.Contains(text, `"has_parts"`))
}

func TestToDOT(t *testing.T) {
	machine, err := ParseAndBuild([]byte(washerYAML), washerRegistry(&Slice[String]{}))
	assertNoError(t, err)

	dot := string(machine.ToDOT())
	assertTrue(t, strings.Contains(dot, `digraph "washer"`))
	assertTrue(t, strings.Contains(dot, `subgraph "cluster_off"`))
	assertTrue(t, strings.Contains(dot, `"off.idle"`))
	assertTrue(t, strings.Contains(dot, `"on.washing" -> "on.drying"`))
	assertTrue(t, strings.Contains(dot, "(conditional)"))

	// synthesized fallbacks are not drawn.
	assertFalse(t, strings.Contains(dot, `"off.broken" -> "off.broken" [label=" fix`))
}

func TestSyncHolder(t *testing.T) {
	machine, err := New(lightswitchConfig(), nil)
	assertNoError(t, err)

	holder, err := NewSyncHolder(machine, &lamp{})
	assertNoError(t, err)
	assertEqual(t, holder.State(), "off")

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = holder.Fire("flick", nil)
		}()
	}
	wg.Wait()

	// 25 flicks from "off" end at "on".
	assertEqual(t, holder.State(), "on")

	assertNoError(t, holder.GoTo("off", nil))
	assertEqual(t, holder.State(), "off")
}
