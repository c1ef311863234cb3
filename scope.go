package statemachine

// ContextManager scopes a single Fire call. Enter runs after prepare and
// before any exit or entry callback; Exit runs after the last callback on
// every path out of the call, including callback failure. The token returned
// by Enter is the yielded context value: it is merged into the call's Args
// and handed back to Exit unchanged.
type ContextManager interface {
	Enter(ctx *Context) (token any, err error)
	Exit(ctx *Context, token any) error
}

// ScopeFuncs adapts a pair of functions to the ContextManager interface.
// Either function may be nil.
type ScopeFuncs struct {
	OnEnter func(ctx *Context) (any, error)
	OnExit  func(ctx *Context, token any) error
}

func (s ScopeFuncs) Enter(ctx *Context) (any, error) {
	if s.OnEnter == nil {
		return nil, nil
	}

	return s.OnEnter(ctx)
}

func (s ScopeFuncs) Exit(ctx *Context, token any) error {
	if s.OnExit == nil {
		return nil
	}

	return s.OnExit(ctx, token)
}

// innermostManager picks the context manager that will actually be entered
// for a call starting at leaf: the most nested one configured on the chain
// from the leaf up to the root. Outer managers are not nested inside it.
func innermostManager(leaf *State) ContextManager {
	for state := leaf; state != nil; state = state.parent {
		if state.manager != nil {
			return state.manager
		}
	}

	return nil
}
