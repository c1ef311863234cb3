package statemachine

import "github.com/enetx/g"

// MachineBuilder collects name bindings and callback registrations for a
// configuration and finalizes them into a Machine in one explicit Build step.
// Registrations are applied in call order; Build is idempotent and the first
// error wins, so a chain can be written without intermediate checks.
type MachineBuilder struct {
	cfg     *Config
	reg     *Registry
	pending []func(m *Machine) error
	machine *Machine
	err     error
	built   bool
}

// NewMachineBuilder starts a builder around a configuration.
func NewMachineBuilder(cfg *Config) *MachineBuilder {
	return &MachineBuilder{cfg: cfg, reg: NewRegistry()}
}

// Callback binds a callback name referenced by the configuration.
func (b *MachineBuilder) Callback(name g.String, fn Callback) *MachineBuilder {
	b.reg.Callback(name, fn)
	return b
}

// Predicate binds a condition or constraint name referenced by the configuration.
func (b *MachineBuilder) Predicate(name g.String, fn Predicate) *MachineBuilder {
	b.reg.Predicate(name, fn)
	return b
}

// Manager binds a context manager name referenced by the configuration.
func (b *MachineBuilder) Manager(name g.String, mgr ContextManager) *MachineBuilder {
	b.reg.Manager(name, mgr)
	return b
}

func (b *MachineBuilder) register(apply func(m *Machine) error) *MachineBuilder {
	b.pending = append(b.pending, apply)
	return b
}

func (b *MachineBuilder) onStates(selector g.String, apply func(s *State)) *MachineBuilder {
	return b.register(func(m *Machine) error {
		states, err := m.expandSelector(selector)
		if err != nil {
			return err
		}

		for _, state := range states {
			apply(state)
		}

		return nil
	})
}

// OnEntry registers an entry callback on every state the selector matches.
// Selectors are dotted paths; "*" segments match all sub-states and the empty
// selector is the machine root.
func (b *MachineBuilder) OnEntry(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.onEntry.Push(fn) })
}

// OnExit registers an exit callback on every state the selector matches.
func (b *MachineBuilder) OnExit(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.onExit.Push(fn) })
}

// OnStay registers a stay callback on every state the selector matches.
func (b *MachineBuilder) OnStay(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.onStay.Push(fn) })
}

// BeforeExit registers a callback run before any exit below the matched states.
func (b *MachineBuilder) BeforeExit(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.beforeExit.Push(fn) })
}

// AfterEntry registers a callback run after any entry below the matched states.
func (b *MachineBuilder) AfterEntry(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.afterEntry.Push(fn) })
}

// Prepare registers a prepare callback on the matched states; with the empty
// selector it runs on every Fire call of the machine.
func (b *MachineBuilder) Prepare(selector g.String, fn Callback) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.prepare.Push(fn) })
}

// Constraint registers an entry constraint on the matched states.
func (b *MachineBuilder) Constraint(selector g.String, fn Predicate) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.constraint.Push(fn) })
}

// ContextManager configures a context manager on the matched states. The
// innermost configured manager relative to the holder's current state is the
// one entered by a Fire call.
func (b *MachineBuilder) ContextManager(selector g.String, mgr ContextManager) *MachineBuilder {
	return b.onStates(selector, func(s *State) { s.manager = mgr })
}

// OnTransfer registers a transfer callback on every transition between the
// states matched by the two selectors.
func (b *MachineBuilder) OnTransfer(old, new g.String, fn Callback) *MachineBuilder {
	return b.register(func(m *Machine) error {
		transitions, err := m.findTransitions(old, new)
		if err != nil {
			return err
		}

		for _, t := range transitions {
			t.onTransfer.Push(fn)
		}

		return nil
	})
}

// Condition adds a condition to every transition between the states matched
// by the two selectors. When a transition group thereby loses its
// unconditional default, a same-state fallback is synthesized; if the group
// already holds a same-state transition that would become unreachable, this
// is a MachineError.
func (b *MachineBuilder) Condition(old, new g.String, fn Predicate) *MachineBuilder {
	return b.register(func(m *Machine) error {
		transitions, err := m.findTransitions(old, new)
		if err != nil {
			return err
		}

		for _, t := range transitions {
			if err := m.addCondition(t, fn); err != nil {
				return err
			}
		}

		return nil
	})
}

// Build finalizes the machine: the configuration is normalized and built,
// then every registration is applied in order. Calling Build again returns
// the same machine (or the same error).
func (b *MachineBuilder) Build() (*Machine, error) {
	if b.built {
		return b.machine, b.err
	}

	b.built = true

	m, err := New(b.cfg, b.reg)
	if err != nil {
		b.err = err
		return nil, err
	}

	for _, apply := range b.pending {
		if err := apply(m); err != nil {
			b.err = err
			return nil, err
		}
	}

	// registrations may have appended transitions; refresh the trigger
	// resolver so it sees the final candidate lists.
	m.buildResolver()

	b.machine = m

	return m, nil
}

// expandSelector resolves a dotted selector with "*" wildcards against the
// built tree. The empty selector matches the root.
func (m *Machine) expandSelector(selector g.String) ([]*State, error) {
	queue := []Path{ParsePath(selector)}

	var out []*State
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		star := -1
		for i, segment := range path {
			if segment == "*" {
				star = i
				break
			}
		}

		if star < 0 {
			state, ok := m.root.find(path)
			if !ok {
				return nil, machineErrorf("unknown state %q in statemachine", path)
			}

			out = append(out, state)

			continue
		}

		head, tail := path[:star], path[star+1:]

		parent, ok := m.root.find(head)
		if !ok || parent.Leaf() {
			return nil, machineErrorf("cannot expand wildcard %q: %q has no sub-states", selector, head)
		}

		for _, child := range parent.children {
			next := make(Path, 0, len(path))
			next = append(next, head...)
			next = append(next, child.name)
			next = append(next, tail...)
			queue = append(queue, next)
		}
	}

	return out, nil
}

func extendLeaves(state *State) []*State {
	if state.Leaf() {
		return []*State{state}
	}

	var leaves []*State
	for _, child := range state.children {
		leaves = append(leaves, extendLeaves(child)...)
	}

	return leaves
}

// findTransitions collects every transition between the leaves matched by the
// two selectors; composite matches stand for all their leaves.
func (m *Machine) findTransitions(old, new g.String) ([]*Transition, error) {
	oldStates, err := m.expandSelector(old)
	if err != nil {
		return nil, err
	}

	newStates, err := m.expandSelector(new)
	if err != nil {
		return nil, err
	}

	var transitions []*Transition

	for _, oldState := range oldStates {
		for _, oldLeaf := range extendLeaves(oldState) {
			for _, newState := range newStates {
				for _, newLeaf := range extendLeaves(newState) {
					transitions = append(transitions, m.pairCandidates(oldLeaf, newLeaf)...)
				}
			}
		}
	}

	if len(transitions) == 0 {
		return nil, machineErrorf("no transitions found from %q to %q", old, new)
	}

	return transitions, nil
}

func (m *Machine) addCondition(t *Transition, fn Predicate) error {
	t.conditions.Push(fn)

	group := t.level.byTrigger[triggerKey{old: t.oldTail, trigger: t.trigger}]
	if len(group) == 0 || !group[len(group)-1].Conditional() {
		return nil
	}

	for _, other := range group {
		if other.Stay() {
			return machineErrorf("cannot create default same-state transition from %q with trigger %q: same-state transition already exists", t.old.Path(), t.trigger)
		}
	}

	stay := &Transition{
		level:       t.level,
		old:         t.old,
		new:         t.old,
		oldTail:     t.oldTail,
		newTail:     t.oldTail,
		trigger:     t.trigger,
		info:        "auto-generated default transition in case conditions fail",
		synthesized: true,
	}

	stay.finalize(m.root)
	t.level.addTransition(stay)

	return nil
}
