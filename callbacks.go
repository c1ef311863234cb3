package statemachine

import "github.com/enetx/g"

// Registry resolves name-bound callbacks, predicates and context managers at
// construction time. Configuration records may reference any of them by name;
// a name that cannot be resolved is a MachineError from Build, never a
// run-time failure.
type Registry struct {
	callbacks  g.Map[g.String, Callback]
	predicates g.Map[g.String, Predicate]
	managers   g.Map[g.String, ContextManager]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		callbacks:  g.NewMap[g.String, Callback](),
		predicates: g.NewMap[g.String, Predicate](),
		managers:   g.NewMap[g.String, ContextManager](),
	}
}

// Callback binds a callback name usable in configuration records.
func (r *Registry) Callback(name g.String, fn Callback) *Registry {
	r.callbacks[name] = fn
	return r
}

// Predicate binds a condition or constraint name usable in configuration records.
func (r *Registry) Predicate(name g.String, fn Predicate) *Registry {
	r.predicates[name] = fn
	return r
}

// Manager binds a context manager name usable in configuration records.
func (r *Registry) Manager(name g.String, m ContextManager) *Registry {
	r.managers[name] = m
	return r
}

func (r *Registry) lookupCallback(name g.String, where string) (Callback, error) {
	if r != nil {
		if fn, ok := r.callbacks[name]; ok {
			return fn, nil
		}
	}

	return nil, machineErrorf("unknown callback %q in %s", name, where)
}

func (r *Registry) lookupPredicate(name g.String, where string) (Predicate, error) {
	if r != nil {
		if fn, ok := r.predicates[name]; ok {
			return fn, nil
		}
	}

	return nil, machineErrorf("unknown condition %q in %s", name, where)
}

func (r *Registry) lookupManager(name g.String, where string) (ContextManager, error) {
	if r != nil {
		if m, ok := r.managers[name]; ok {
			return m, nil
		}
	}

	return nil, machineErrorf("unknown context manager %q in %s", name, where)
}

// CallbackRef is one callback slot of a configuration record: either a name,
// resolved against the Registry when the machine is built, or a Callback
// passed in directly.
type CallbackRef struct{ value any }

// PredicateRef is the condition/constraint counterpart of CallbackRef.
type PredicateRef struct{ value any }

// ManagerRef references a context manager by name or holds one directly.
// The zero value means "no context manager configured".
type ManagerRef struct{ value any }

type (
	// CallbackList is an ordered list of callback references.
	CallbackList []CallbackRef
	// PredicateList is an ordered list of condition references; all of them
	// must pass.
	PredicateList []PredicateRef
)

// Callbacks builds a CallbackList from names (string or g.String) and/or
// Callback values. Invalid entries surface as MachineError from Build.
func Callbacks(values ...any) CallbackList {
	refs := make(CallbackList, len(values))
	for i, v := range values {
		refs[i] = CallbackRef{value: v}
	}

	return refs
}

// Conditions builds a PredicateList from names and/or Predicate values.
func Conditions(values ...any) PredicateList {
	refs := make(PredicateList, len(values))
	for i, v := range values {
		refs[i] = PredicateRef{value: v}
	}

	return refs
}

// Manager builds a ManagerRef from a name or a ContextManager value.
func Manager(value any) ManagerRef { return ManagerRef{value: value} }

func (ref CallbackRef) resolve(reg *Registry, where string) (Callback, error) {
	switch v := ref.value.(type) {
	case Callback:
		return v, nil
	case func(*Context) error:
		return v, nil
	case string:
		return reg.lookupCallback(g.String(v), where)
	case g.String:
		return reg.lookupCallback(v, where)
	default:
		return nil, machineErrorf("invalid callback %v in %s: want a name or a Callback", v, where)
	}
}

func (ref PredicateRef) resolve(reg *Registry, where string) (Predicate, error) {
	switch v := ref.value.(type) {
	case Predicate:
		return v, nil
	case func(*Context) bool:
		return v, nil
	case string:
		return reg.lookupPredicate(g.String(v), where)
	case g.String:
		return reg.lookupPredicate(v, where)
	default:
		return nil, machineErrorf("invalid condition %v in %s: want a name or a Predicate", v, where)
	}
}

func (ref ManagerRef) resolve(reg *Registry, where string) (ContextManager, error) {
	switch v := ref.value.(type) {
	case nil:
		return nil, nil
	case ContextManager:
		return v, nil
	case string:
		return reg.lookupManager(g.String(v), where)
	case g.String:
		return reg.lookupManager(v, where)
	default:
		return nil, machineErrorf("invalid context manager %v in %s: want a name or a ContextManager", v, where)
	}
}

func (l CallbackList) resolve(reg *Registry, where string) (g.Slice[Callback], error) {
	var fns g.Slice[Callback]
	for _, ref := range l {
		fn, err := ref.resolve(reg, where)
		if err != nil {
			return nil, err
		}

		fns.Push(fn)
	}

	return fns, nil
}

func (l PredicateList) resolve(reg *Registry, where string) (g.Slice[Predicate], error) {
	var fns g.Slice[Predicate]
	for _, ref := range l {
		fn, err := ref.resolve(reg, where)
		if err != nil {
			return nil, err
		}

		fns.Push(fn)
	}

	return fns, nil
}
