package statemachine

import "github.com/enetx/g"

// Holder is the managed object: anything carrying exactly one state field,
// holding the absolute path of a leaf state. The engine reads it at the start
// of a Fire call and writes it exactly once per successful cross transition;
// SetState exists for the engine and for storage layers restoring a holder,
// never for application code steering state by hand.
type Holder interface {
	State() g.String
	SetState(state g.String) error
}

// Stateful is an embeddable Holder implementation backed by a plain string
// field.
type Stateful struct {
	state g.String
}

// State returns the current leaf state path.
func (s *Stateful) State() g.String { return s.state }

// SetState overwrites the state field. It never fails; the error return
// satisfies Holder for implementations that persist the field.
func (s *Stateful) SetState(state g.String) error {
	s.state = state
	return nil
}

// Init sets the holder to the machine's initial leaf state without running
// any callbacks, the way a holder restored from storage starts out.
func (m *Machine) Init(holder Holder) error {
	return holder.SetState(m.initial.Path())
}

// InitAt sets the holder to the named state without running any callbacks; a
// composite state resolves to its default leaf.
func (m *Machine) InitAt(holder Holder, state g.String) error {
	target, ok := m.root.find(ParsePath(state))
	if !ok {
		return machineErrorf("unknown state %q in statemachine", state)
	}

	leaf, err := target.defaultLeaf()
	if err != nil {
		return err
	}

	return holder.SetState(leaf.Path())
}

// InitialEntry sets the holder to the machine's initial leaf state and runs
// the on_entry callbacks along the path, root first, as if the holder had
// transitioned into it from outside the machine.
func (m *Machine) InitialEntry(holder Holder, args Args) error {
	if err := m.Init(holder); err != nil {
		return err
	}

	ctx := newFireContext(holder, "", args)
	ctx.To = m.initial.Path()

	return runChain("on_entry", m.initial.down(), func(s *State) g.Slice[Callback] { return s.onEntry }, ctx)
}
