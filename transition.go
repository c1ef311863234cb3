package statemachine

import (
	"fmt"

	"github.com/enetx/g"
)

// Transition connects two leaf states of the tree. It is owned by the deepest
// machine level containing both end points, so exits and entries never cross
// that level. A transition with old == new is a stay: it runs on_stay and
// on_transfer but never mutates the holder.
type Transition struct {
	level *State
	old   *State
	new   *State

	oldTail g.String
	newTail g.String
	trigger Trigger

	conditions  g.Slice[Predicate]
	onTransfer  g.Slice[Callback]
	info        g.String
	synthesized bool

	// chains precomputed once at build time; see finalize.
	common       *State
	exits        []*State
	entries      []*State
	beforeExits  []*State
	afterEntries []*State
	stays        []*State
	guarded      []*State
}

// Old returns the absolute path of the source leaf state.
func (t *Transition) Old() g.String { return t.old.Path() }

// New returns the absolute path of the target leaf state.
func (t *Transition) New() g.String { return t.new.Path() }

// Trigger returns the trigger name firing this transition.
func (t *Transition) Trigger() Trigger { return t.trigger }

// Info returns the free-form description of the transition.
func (t *Transition) Info() g.String { return t.info }

// Stay reports whether the transition keeps the holder in its current state.
func (t *Transition) Stay() bool { return t.old == t.new }

// Synthesized reports whether the transition is a generated same-state
// fallback rather than a declared one.
func (t *Transition) Synthesized() bool { return t.synthesized }

// Conditional reports whether the transition carries at least one condition.
func (t *Transition) Conditional() bool { return t.conditions.NotEmpty() }

// buildTable attaches every normalized record to its owning level, resolving
// callback names and precomputing the exit/entry chains.
func buildTable(root *State, records []*record, reg *Registry) error {
	for _, rec := range records {
		if err := attachRecord(root, rec, reg); err != nil {
			return err
		}
	}

	return nil
}

func attachRecord(root *State, rec *record, reg *Registry) error {
	level, ok := root.find(rec.level)
	if !ok {
		return machineErrorf("unknown state %q in statemachine", rec.level)
	}

	old, ok := root.find(rec.old)
	if !ok {
		return machineErrorf("unknown state %q in statemachine", rec.old)
	}

	target, ok := root.find(rec.new)
	if !ok {
		return machineErrorf("unknown state %q in statemachine", rec.new)
	}

	// normalization resolved composite targets already; resolve again against
	// the built tree so both builders agree on the default leaf.
	target, err := target.defaultLeaf()
	if err != nil {
		return err
	}

	where := fmt.Sprintf("transition %q -> %q", rec.old, rec.new)

	conditions, err := rec.conditions.resolve(reg, where)
	if err != nil {
		return err
	}

	onTransfer, err := rec.onTransfer.resolve(reg, where)
	if err != nil {
		return err
	}

	t := &Transition{
		level:       level,
		old:         old,
		new:         target,
		oldTail:     rec.old.Tail(rec.level).String(),
		newTail:     rec.new.Tail(rec.level).String(),
		trigger:     rec.trigger,
		conditions:  conditions,
		onTransfer:  onTransfer,
		info:        rec.info,
		synthesized: rec.synthesized,
	}

	t.finalize(root)

	level.addTransition(t)

	return nil
}

func (s *State) addTransition(t *Transition) {
	if s.byPair == nil {
		s.byPair = g.NewMap[pairKey, []*Transition]()
		s.byTrigger = g.NewMap[triggerKey, []*Transition]()
	}

	pair := pairKey{old: t.oldTail, new: t.newTail}
	s.byPair[pair] = append(s.byPair[pair], t)

	key := triggerKey{old: t.oldTail, trigger: t.trigger}
	s.byTrigger[key] = append(s.byTrigger[key], t)

	s.transitions.Push(t)
}

// finalize precomputes the callback chains of the transition:
//
//   - exits: old leaf up to (excluding) the common state, innermost first
//   - entries: common state's child down to the new leaf
//   - beforeExits: proper ancestors of the old leaf, root first
//   - afterEntries: proper ancestors of the new leaf, innermost first
//   - stays: the leaf and its ancestors, set for stays only
//   - guarded: the new leaf and its ancestors, whose constraints gate entry;
//     a stay enters nothing and checks none
func (t *Transition) finalize(root *State) {
	common, _, _ := t.old.path.Splice(t.new.path)

	t.common, _ = root.find(common)

	for state := t.old; state != t.common; state = state.parent {
		t.exits = append(t.exits, state)
	}

	for state := t.new; state != t.common; state = state.parent {
		t.entries = append(t.entries, state)
	}

	for i, j := 0, len(t.entries)-1; i < j; i, j = i+1, j-1 {
		t.entries[i], t.entries[j] = t.entries[j], t.entries[i]
	}

	if t.old.parent != nil {
		t.beforeExits = t.old.parent.down()
		t.afterEntries = t.new.up()[1:]
	}

	if t.Stay() {
		t.stays = t.old.up()
	} else {
		t.guarded = t.new.up()
	}
}

// passes evaluates the transition's conditions and the entry constraints of
// the target state and its ancestors. A panicking predicate surfaces as a
// CallbackError instead of unwinding through the Fire call.
func (t *Transition) passes(ctx *Context) (pass bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pass, err = false, &CallbackError{
				Hook:  "condition",
				State: t.old.Path(),
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()

	for _, condition := range t.conditions {
		if !condition(ctx) {
			return false, nil
		}
	}

	for _, state := range t.guarded {
		for _, constraint := range state.constraint {
			if !constraint(ctx) {
				return false, nil
			}
		}
	}

	return true, nil
}

func runCallback(hook string, state g.String, fn Callback, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Hook: hook, State: state, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if cbErr := fn(ctx); cbErr != nil {
		return &CallbackError{Hook: hook, State: state, Err: cbErr}
	}

	return nil
}

func runChain(hook string, states []*State, pick func(*State) g.Slice[Callback], ctx *Context) error {
	for _, state := range states {
		for _, fn := range pick(state) {
			if err := runCallback(hook, state.Path(), fn, ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

// execute runs the callback protocol of the resolved transition. The holder
// mutates exactly once, between the exit and entry chains; a stay never
// mutates.
func (t *Transition) execute(ctx *Context) error {
	if t.Stay() {
		if err := runChain("on_stay", t.stays, func(s *State) g.Slice[Callback] { return s.onStay }, ctx); err != nil {
			return err
		}

		return t.transfer(ctx)
	}

	if err := runChain("before_exit", t.beforeExits, func(s *State) g.Slice[Callback] { return s.beforeExit }, ctx); err != nil {
		return err
	}

	if err := runChain("on_exit", t.exits, func(s *State) g.Slice[Callback] { return s.onExit }, ctx); err != nil {
		return err
	}

	if err := ctx.Holder.SetState(t.new.Path()); err != nil {
		return err
	}

	if err := t.transfer(ctx); err != nil {
		return err
	}

	if err := runChain("on_entry", t.entries, func(s *State) g.Slice[Callback] { return s.onEntry }, ctx); err != nil {
		return err
	}

	return runChain("after_entry", t.afterEntries, func(s *State) g.Slice[Callback] { return s.afterEntry }, ctx)
}

func (t *Transition) transfer(ctx *Context) error {
	for _, fn := range t.onTransfer {
		if err := runCallback("on_transfer", t.old.Path()+" -> "+t.new.Path(), fn, ctx); err != nil {
			return err
		}
	}

	return nil
}
