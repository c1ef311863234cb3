package statemachine

import "github.com/enetx/g"

// Context is handed to every callback and predicate of one Fire call.
//
// From is the leaf path the holder occupied when the call started. To is the
// selected target leaf path; it is empty during prepare and scope entry,
// before resolution has picked a case. Scope holds the value yielded by the
// entered context manager, if any; the same value is available under the
// "context" key of Args.
type Context struct {
	Holder  Holder
	Trigger Trigger
	From    g.String
	To      g.String
	Args    Args
	Scope   any
}

func newFireContext(holder Holder, trigger Trigger, args Args) *Context {
	if args == nil {
		args = g.NewMap[g.String, any]()
	}

	return &Context{
		Holder:  holder,
		Trigger: trigger,
		From:    holder.State(),
		Args:    args,
	}
}
