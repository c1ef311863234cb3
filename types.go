package statemachine

import "github.com/enetx/g"

type (
	// Trigger names an operation that, when fired, resolves and executes at
	// most one transition (or a stay).
	Trigger = g.String

	// Args carries the keyword arguments of one Fire call. They are shared by
	// every callback of that call; the value yielded by an entered context
	// manager is merged in under the "context" key.
	Args = g.Map[g.String, any]

	// Callback runs at one point of the transition protocol. An error aborts
	// the remainder of the call and propagates to the Fire caller after the
	// context scope has been closed.
	Callback func(ctx *Context) error

	// Predicate guards a transition case or, as a constraint, gates entry
	// into a state.
	Predicate func(ctx *Context) bool
)
