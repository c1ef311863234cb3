package statemachine

import (
	"fmt"
	"strings"

	"github.com/enetx/g"
)

// State is one node of the state tree. Leaf states are the values a holder's
// state field can take; composite states are machine levels that own the
// transitions between their sub-states.
type State struct {
	name     g.String
	path     Path
	parent   *State
	children g.Slice[*State]
	index    g.Map[g.String, *State]
	info     g.String

	onEntry    g.Slice[Callback]
	onExit     g.Slice[Callback]
	beforeExit g.Slice[Callback]
	afterEntry g.Slice[Callback]
	onStay     g.Slice[Callback]
	prepare    g.Slice[Callback]
	constraint g.Slice[Predicate]
	manager    ContextManager

	initial g.String

	// transition tables of this machine level, keyed by the end-point tails
	// relative to this state; filled by the table builder. transitions keeps
	// them in declaration order.
	transitions g.Slice[*Transition]
	byPair      g.Map[pairKey, []*Transition]
	byTrigger   g.Map[triggerKey, []*Transition]
}

type (
	pairKey    struct{ old, new g.String }
	triggerKey struct {
		old     g.String
		trigger Trigger
	}
)

// Name returns the state's own name, the last segment of its path.
func (s *State) Name() g.String { return s.name }

// Path returns the dotted path of the state; empty for the root.
func (s *State) Path() g.String { return s.path.String() }

// Parent returns the containing state, nil for the root.
func (s *State) Parent() *State { return s.parent }

// Children returns the sub-states in declaration order.
func (s *State) Children() g.Slice[*State] { return s.children }

// Leaf reports whether the state has no sub-states.
func (s *State) Leaf() bool { return s.children.Empty() }

// Info returns the free-form description of the state.
func (s *State) Info() g.String { return s.info }

const nameExclude = ".*[]()"

func validateName(name g.String) error {
	if name.Trim() == "" {
		return machineErrorf("state or machine must have a name")
	}

	if strings.HasPrefix(string(name), "_") {
		return machineErrorf("state or machine name %q cannot start with an '_'", name)
	}

	if strings.ContainsAny(string(name), nameExclude) {
		return machineErrorf("state or machine name %q cannot contain any of %q", name, nameExclude)
	}

	return nil
}

// buildRoot turns a Config into the state tree, resolving every configured
// callback name against the registry up front.
func buildRoot(cfg *Config, reg *Registry) (*State, error) {
	if err := validateName(cfg.Name); err != nil {
		return nil, err
	}

	root := &State{
		name:  cfg.Name,
		index: g.NewMap[g.String, *State](),
	}

	var err error

	where := fmt.Sprintf("machine %q", cfg.Name)

	if root.prepare, err = cfg.Prepare.resolve(reg, where); err != nil {
		return nil, err
	}

	if root.beforeExit, err = cfg.BeforeExit.resolve(reg, where); err != nil {
		return nil, err
	}

	if root.afterEntry, err = cfg.AfterEntry.resolve(reg, where); err != nil {
		return nil, err
	}

	if root.onStay, err = cfg.OnStay.resolve(reg, where); err != nil {
		return nil, err
	}

	if root.manager, err = cfg.ContextManager.resolve(reg, where); err != nil {
		return nil, err
	}

	root.initial = cfg.Initial

	for i := range cfg.States {
		if err := buildState(root, &cfg.States[i], reg); err != nil {
			return nil, err
		}
	}

	return root, nil
}

func buildState(parent *State, sc *StateConfig, reg *Registry) error {
	if err := validateName(sc.Name); err != nil {
		return err
	}

	if parent.index.Contains(sc.Name) {
		return machineErrorf("duplicate state %q in %q", sc.Name, parent.path)
	}

	state := &State{
		name:    sc.Name,
		path:    parent.path.Child(sc.Name),
		parent:  parent,
		index:   g.NewMap[g.String, *State](),
		info:    sc.Info,
		initial: sc.Initial,
	}

	var err error

	where := fmt.Sprintf("state %q", state.path)

	if state.onEntry, err = sc.OnEntry.resolve(reg, where); err != nil {
		return err
	}

	if state.onExit, err = sc.OnExit.resolve(reg, where); err != nil {
		return err
	}

	if state.beforeExit, err = sc.BeforeExit.resolve(reg, where); err != nil {
		return err
	}

	if state.afterEntry, err = sc.AfterEntry.resolve(reg, where); err != nil {
		return err
	}

	if state.onStay, err = sc.OnStay.resolve(reg, where); err != nil {
		return err
	}

	if state.prepare, err = sc.Prepare.resolve(reg, where); err != nil {
		return err
	}

	if state.constraint, err = sc.Constraint.resolve(reg, where); err != nil {
		return err
	}

	if state.manager, err = sc.ContextManager.resolve(reg, where); err != nil {
		return err
	}

	parent.children.Push(state)
	parent.index[sc.Name] = state

	for i := range sc.States {
		if err := buildState(state, &sc.States[i], reg); err != nil {
			return err
		}
	}

	return nil
}

// find walks down from s along path.
func (s *State) find(path Path) (*State, bool) {
	state := s
	for _, name := range path {
		child, ok := state.index[name]
		if !ok {
			return nil, false
		}

		state = child
	}

	return state, true
}

// defaultLeaf descends to the default initial leaf below s, honoring any
// configured initial sub-path and falling back to the first declared child.
func (s *State) defaultLeaf() (*State, error) {
	state := s
	for !state.Leaf() {
		if state.initial == "" {
			state = state.children[0]
			continue
		}

		next, ok := state.find(ParsePath(state.initial))
		if !ok {
			return nil, machineErrorf("unknown initial state %q in state %q", state.initial, state.path)
		}

		state = next
	}

	return state, nil
}

// up returns the chain from s to the root, s first.
func (s *State) up() []*State {
	var chain []*State
	for state := s; state != nil; state = state.parent {
		chain = append(chain, state)
	}

	return chain
}

// down returns the chain from the root to s, s last.
func (s *State) down() []*State {
	chain := s.up()
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	return chain
}
