package statemachine

import (
	"fmt"

	"github.com/enetx/g"
)

// Machine is the built, immutable form of a Config: the state tree, the
// transition tables of every level and an eager trigger resolver. A Machine
// holds no per-holder data; one instance drives any number of holders and is
// safe for concurrent use as long as no single holder is fired from multiple
// goroutines at once.
type Machine struct {
	name     g.String
	root     *State
	initial  *State
	cfg      *Config
	triggers g.Set[Trigger]
	leaves   g.Map[g.String, *State]
	resolver g.Map[resolveKey, []*Transition]
}

type resolveKey struct {
	state   g.String
	trigger Trigger
}

// New builds a Machine from its configuration. Every callback, condition and
// context manager name is resolved against the registry now; reg may be nil
// when the configuration only holds direct function values. All
// configuration mistakes surface here as MachineError.
func New(cfg *Config, reg *Registry) (*Machine, error) {
	records, err := normalize(cfg)
	if err != nil {
		return nil, err
	}

	root, err := buildRoot(cfg, reg)
	if err != nil {
		return nil, err
	}

	if err := buildTable(root, records, reg); err != nil {
		return nil, err
	}

	initial, err := root.defaultLeaf()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		name:     cfg.Name,
		root:     root,
		initial:  initial,
		cfg:      cfg,
		triggers: g.NewSet[Trigger](),
		leaves:   g.NewMap[g.String, *State](),
		resolver: g.NewMap[resolveKey, []*Transition](),
	}

	for _, rec := range records {
		if rec.trigger != "" {
			m.triggers.Insert(rec.trigger)
		}
	}

	m.indexLeaves(root)
	m.buildResolver()

	return m, nil
}

// Must is New for static configurations: it panics on a MachineError.
func Must(cfg *Config, reg *Registry) *Machine {
	m, err := New(cfg, reg)
	if err != nil {
		panic(err)
	}

	return m
}

// Name returns the machine name.
func (m *Machine) Name() g.String { return m.name }

// Root returns the root of the state tree.
func (m *Machine) Root() *State { return m.root }

// Initial returns the path of the default initial leaf state.
func (m *Machine) Initial() g.String { return m.initial.Path() }

// Triggers lists every trigger name of the machine, in no particular order.
func (m *Machine) Triggers() g.Slice[Trigger] { return m.triggers.ToSlice() }

// HasTrigger reports whether the machine knows the trigger.
func (m *Machine) HasTrigger(trigger Trigger) bool { return m.triggers.Contains(trigger) }

// State looks up a state by its dotted path; the empty path is the root.
func (m *Machine) State(path g.String) (*State, bool) {
	return m.root.find(ParsePath(path))
}

func (m *Machine) indexLeaves(state *State) {
	if state.Leaf() {
		m.leaves[state.Path()] = state
		return
	}

	for _, child := range state.children {
		m.indexLeaves(child)
	}
}

// buildResolver precomputes, per (leaf state, trigger), the candidate list of
// the most nested level declaring that trigger for the leaf. Transitions
// declared closer to the leaf shadow those on ancestor levels.
func (m *Machine) buildResolver() {
	for _, leaf := range m.leaves {
		for _, trigger := range m.triggers.ToSlice() {
			for level := leaf.parent; level != nil; level = level.parent {
				tail := leaf.path.Tail(level.path).String()

				candidates, ok := level.byTrigger[triggerKey{old: tail, trigger: trigger}]
				if !ok {
					continue
				}

				m.resolver[resolveKey{state: leaf.Path(), trigger: trigger}] = candidates

				break
			}
		}
	}
}

// Fire resolves the trigger from the holder's current state and runs the full
// callback protocol. On a TransitionError the holder is untouched; prepare
// side effects are not undone.
func (m *Machine) Fire(holder Holder, trigger Trigger, args Args) error {
	return m.run(holder, trigger, args, func(leaf *State) ([]*Transition, error) {
		candidates, ok := m.resolver[resolveKey{state: leaf.Path(), trigger: trigger}]
		if !ok {
			return nil, &TransitionError{State: leaf.Path(), Trigger: trigger, Msg: "transition does not exist"}
		}

		return candidates, nil
	})
}

// TriggerFunc returns the entry point of one trigger, bound to the machine.
// It fails for triggers no transition declares.
func (m *Machine) TriggerFunc(trigger Trigger) (func(Holder, Args) error, error) {
	if !m.triggers.Contains(trigger) {
		return nil, machineErrorf("machine %q has no trigger %q", m.name, trigger)
	}

	return func(holder Holder, args Args) error {
		return m.Fire(holder, trigger, args)
	}, nil
}

// GoTo moves the holder to the named state, which may be composite and then
// resolves to its default leaf. The move must be backed by a declared
// transition and runs its full callback protocol; a move to the current state
// is a no-op.
func (m *Machine) GoTo(holder Holder, target g.String, args Args) error {
	state, ok := m.root.find(ParsePath(target))
	if !ok {
		return &TransitionError{State: holder.State(), Msg: fmt.Sprintf("machine does not have a state %q", target)}
	}

	leafTarget, err := state.defaultLeaf()
	if err != nil {
		return err
	}

	if leafTarget.Path() == holder.State() {
		return nil
	}

	return m.run(holder, "", args, func(leaf *State) ([]*Transition, error) {
		candidates := m.pairCandidates(leaf, leafTarget)
		if len(candidates) == 0 {
			return nil, &TransitionError{State: leaf.Path(), Msg: fmt.Sprintf("no transition to state %q", leafTarget.Path())}
		}

		return candidates, nil
	})
}

// pairCandidates finds the transitions between two leaves, starting at the
// deepest level containing both and walking up: group pushdown may have
// settled a transition above its splice level.
func (m *Machine) pairCandidates(old, target *State) []*Transition {
	common, _, _ := old.path.Splice(target.path)

	level, _ := m.root.find(common)

	for ; level != nil; level = level.parent {
		pair := pairKey{
			old: old.path.Tail(level.path).String(),
			new: target.path.Tail(level.path).String(),
		}

		if candidates := level.byPair[pair]; len(candidates) > 0 {
			return candidates
		}
	}

	return nil
}

// run is the shared Fire/GoTo pipeline: prepare, scope entry, resolution,
// case selection, execution, scope exit. The scope closes on every path out,
// with a callback error taking precedence over a scope exit error.
func (m *Machine) run(holder Holder, trigger Trigger, args Args, resolve func(*State) ([]*Transition, error)) (err error) {
	leaf, ok := m.leaves[holder.State()]
	if !ok {
		return &TransitionError{State: holder.State(), Trigger: trigger, Msg: "machine does not have this state"}
	}

	ctx := newFireContext(holder, trigger, args)

	if err = runChain("prepare", leaf.down(), func(s *State) g.Slice[Callback] { return s.prepare }, ctx); err != nil {
		return err
	}

	if manager := innermostManager(leaf); manager != nil {
		if ctx.Args.Contains("context") {
			return &TransitionError{State: leaf.Path(), Trigger: trigger, Msg: "cannot apply context value: 'context' is a reserved argument"}
		}

		token, enterErr := manager.Enter(ctx)
		if enterErr != nil {
			return &CallbackError{Hook: "context_manager", State: leaf.Path(), Err: enterErr}
		}

		ctx.Scope = token
		ctx.Args["context"] = token

		// the token is owned by this call; it must not leak into a reused
		// args map.
		defer func() {
			exitErr := manager.Exit(ctx, token)
			delete(ctx.Args, "context")

			if exitErr != nil && err == nil {
				err = &CallbackError{Hook: "context_manager", State: leaf.Path(), Err: exitErr}
			}
		}()
	}

	candidates, err := resolve(leaf)
	if err != nil {
		return err
	}

	for _, t := range candidates {
		ctx.To = t.new.Path()

		pass, passErr := t.passes(ctx)
		if passErr != nil {
			return passErr
		}

		if pass {
			return t.execute(ctx)
		}
	}

	return &TransitionError{State: leaf.Path(), Trigger: trigger, Msg: "no default transition found"}
}
