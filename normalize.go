package statemachine

import "github.com/enetx/g"

// record is one fully expanded transition: both end points are absolute leaf
// paths and level is the machine level that owns it after pushdown.
type record struct {
	level       Path
	old         Path
	new         Path
	trigger     Trigger
	conditions  PredicateList
	onTransfer  CallbackList
	info        g.String
	synthesized bool
}

func (r *record) conditional() bool { return len(r.conditions) > 0 }

// normalizer expands the transition shorthand of a Config into flat records.
//
// Expansion runs in three passes. First every declared transition is expanded
// per machine level: wildcard and composite old states become leaves, switched
// cases become one record each, and a synthesized same-state record is added
// behind a trailing conditional case. Then records whose end points share path
// segments are pushed down to the deepest level containing both. Finally each
// level is checked for duplicates and for well-formed conditional groups.
type normalizer struct {
	cfg     *Config
	levels  []Path
	records g.Map[g.String, []*record]
}

func normalize(cfg *Config) ([]*record, error) {
	if len(cfg.States) == 0 {
		return nil, machineErrorf("statemachine %q has no states", cfg.Name)
	}

	n := &normalizer{cfg: cfg, records: g.NewMap[g.String, []*record]()}

	if err := n.expand(); err != nil {
		return nil, err
	}

	if err := n.pushdown(); err != nil {
		return nil, err
	}

	if err := n.validate(); err != nil {
		return nil, err
	}

	var out []*record
	for _, level := range n.levels {
		out = append(out, n.records[level.String()]...)
	}

	return out, nil
}

// statesAt returns the sub-states at an absolute path, and whether the path
// names an existing state at all. The empty path is the machine root.
func (n *normalizer) statesAt(abs Path) (StateConfigs, bool) {
	if abs.Empty() {
		return n.cfg.States, true
	}

	sc, ok := configAt(n.cfg.States, abs)
	if !ok {
		return nil, false
	}

	return sc.States, true
}

func (n *normalizer) initialOf(abs Path) g.String {
	if abs.Empty() {
		return n.cfg.Initial
	}

	sc, _ := configAt(n.cfg.States, abs)

	return sc.Initial
}

// defaultLeaf descends from abs to the default initial leaf: along the
// configured initial sub-path where one is set, to the first declared child
// otherwise.
func (n *normalizer) defaultLeaf(abs Path) (Path, error) {
	for {
		states, ok := n.statesAt(abs)
		if !ok {
			return nil, machineErrorf("unknown state %q in statemachine", abs)
		}

		if len(states) == 0 {
			return abs, nil
		}

		initial := n.initialOf(abs)
		if initial == "" {
			abs = abs.Child(states[0].Name)
			continue
		}

		next := abs.Join(ParsePath(initial))
		if _, ok := n.statesAt(next); !ok {
			return nil, machineErrorf("unknown initial state %q in state %q", initial, abs)
		}

		abs = next
	}
}

// leavesUnder lists all leaf paths below abs in declaration order; abs itself
// when it is a leaf.
func (n *normalizer) leavesUnder(abs Path) ([]Path, error) {
	states, ok := n.statesAt(abs)
	if !ok {
		return nil, machineErrorf("unknown state %q in statemachine", abs)
	}

	if len(states) == 0 {
		return []Path{abs}, nil
	}

	var leaves []Path
	for i := range states {
		sub, err := n.leavesUnder(abs.Child(states[i].Name))
		if err != nil {
			return nil, err
		}

		leaves = append(leaves, sub...)
	}

	return leaves, nil
}

// expandWildcards resolves one old-state entry of a transition, declared at
// level, into concrete paths relative to that level. Every "*" segment is
// replaced with all sub-states of the path before it, so "*" alone covers the
// whole level and "a.*" covers the children of "a".
func (n *normalizer) expandWildcards(level Path, name g.String) ([]Path, error) {
	queue := []Path{ParsePath(name)}

	var out []Path
	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]

		star := -1
		for i, segment := range rel {
			if segment == "*" {
				star = i
				break
			}
		}

		if star < 0 {
			out = append(out, rel)
			continue
		}

		head, tail := rel[:star], rel[star+1:]

		states, ok := n.statesAt(level.Join(head))
		if !ok || len(states) == 0 {
			return nil, machineErrorf("cannot expand wildcard %q: %q has no sub-states", name, level.Join(head))
		}

		for i := range states {
			next := make(Path, 0, len(rel))
			next = append(next, head...)
			next = append(next, states[i].Name)
			next = append(next, tail...)
			queue = append(queue, next)
		}
	}

	return out, nil
}

func (n *normalizer) levelKey(level Path) g.String { return level.String() }

func (n *normalizer) add(level Path, rec *record) {
	key := n.levelKey(level)
	n.records[key] = append(n.records[key], rec)
}

// expand walks the state tree root-down and expands the declared transitions
// of every machine level. Leaf states may not declare transitions of their
// own.
func (n *normalizer) expand() error {
	var walk func(level Path, states StateConfigs, transitions []TransitionConfig) error

	walk = func(level Path, states StateConfigs, transitions []TransitionConfig) error {
		n.levels = append(n.levels, level)

		for i := range transitions {
			if err := n.expandTransition(level, &transitions[i]); err != nil {
				return err
			}
		}

		for i := range states {
			sc := &states[i]
			if len(sc.States) == 0 {
				if len(sc.Transitions) > 0 {
					return machineErrorf("leaf state %q cannot declare transitions", level.Child(sc.Name))
				}

				continue
			}

			if err := walk(level.Child(sc.Name), sc.States, sc.Transitions); err != nil {
				return err
			}
		}

		return nil
	}

	return walk(Path{}, n.cfg.States, n.cfg.Transitions)
}

func (n *normalizer) expandTransition(level Path, t *TransitionConfig) error {
	if len(t.OldState) == 0 {
		return machineErrorf("transition at level %q requires an 'old_state'", level)
	}

	triggers, err := t.triggerNames()
	if err != nil {
		return err
	}

	if len(triggers) == 0 {
		return machineErrorf("transition from %v requires a trigger", t.OldState)
	}

	cases, err := t.targets()
	if err != nil {
		return err
	}

	if len(cases) == 0 {
		return machineErrorf("transition from %v requires a 'new_state'", t.OldState)
	}

	for i := range cases {
		if cases[i].State.Contains("*") {
			return machineErrorf("cannot use '*' in new state %q: transitions have a single end-state", cases[i].State)
		}
	}

	var oldLeaves []Path

	for _, name := range t.OldState {
		rels, err := n.expandWildcards(level, name)
		if err != nil {
			return err
		}

		for _, rel := range rels {
			leaves, err := n.leavesUnder(level.Join(rel))
			if err != nil {
				return err
			}

			oldLeaves = append(oldLeaves, leaves...)
		}
	}

	for _, old := range oldLeaves {
		for _, trig := range triggers {
			var last *record

			for i := range cases {
				c := &cases[i]

				target := level.Join(ParsePath(c.State))

				newLeaf, err := n.defaultLeaf(target)
				if err != nil {
					return err
				}

				conditions := make(PredicateList, 0, len(t.Condition)+len(c.Condition))
				conditions = append(conditions, t.Condition...)
				conditions = append(conditions, c.Condition...)

				onTransfer := make(CallbackList, 0, len(t.OnTransfer)+len(c.OnTransfer))
				onTransfer = append(onTransfer, t.OnTransfer...)
				onTransfer = append(onTransfer, c.OnTransfer...)

				info := c.Info
				if info == "" {
					info = t.Info
				}

				last = &record{
					level:      level,
					old:        old,
					new:        newLeaf,
					trigger:    trig,
					conditions: conditions,
					onTransfer: onTransfer,
					info:       info,
				}

				n.add(level, last)
			}

			// A trailing conditional case gets a synthesized fallback that
			// stays in the old state, so the trigger can never dead-end.
			if last.conditional() {
				if last.old.String() == last.new.String() {
					return machineErrorf("cannot add default transition: conditional transition from %q to itself with trigger %q", last.old, trig)
				}

				n.add(level, &record{
					level:       level,
					old:         old,
					new:         old,
					trigger:     trig,
					info:        "default transition back to same state",
					synthesized: true,
				})
			}
		}
	}

	return nil
}

// pushdown moves records whose end points share leading path segments to the
// deepest level containing both, so exits and entries never cross that level.
// Records sharing (old state, trigger) form one conditional group and always
// move together, to the shallowest owner among them; splitting a group over
// levels would hide its deeper cases from trigger resolution. A pushed record
// meeting an equal one (same end points and trigger) merges into it.
func (n *normalizer) pushdown() error {
	type groupKey struct {
		old     g.String
		trigger Trigger
	}

	for _, level := range n.levels {
		key := n.levelKey(level)
		records := n.records[key]

		owners := make(map[groupKey]Path, len(records))

		for _, rec := range records {
			oldRel := rec.old.Tail(level)
			newRel := rec.new.Tail(level)

			common, _, _ := oldRel.Splice(newRel)
			owner := level.Join(common)

			k := groupKey{old: rec.old.String(), trigger: rec.trigger}
			if current, ok := owners[k]; !ok || len(owner) < len(current) {
				owners[k] = owner
			}
		}

		kept := records[:0]

		for _, rec := range records {
			owner := owners[groupKey{old: rec.old.String(), trigger: rec.trigger}]
			if len(owner) == len(level) {
				kept = append(kept, rec)
				continue
			}

			rec.level = owner

			if equal := n.findEqual(owner, rec); equal != nil {
				if err := mergeRecords(equal, rec); err != nil {
					return err
				}

				continue
			}

			n.add(owner, rec)
		}

		n.records[key] = kept
	}

	return nil
}

func (n *normalizer) findEqual(level Path, rec *record) *record {
	for _, other := range n.records[n.levelKey(level)] {
		if other.old.String() == rec.old.String() &&
			other.new.String() == rec.new.String() &&
			other.trigger == rec.trigger {
			return other
		}
	}

	return nil
}

func mergeRecords(dst, src *record) error {
	if dst.conditional() && src.conditional() {
		return machineErrorf("cannot merge transitions from %q to %q with trigger %q: both have conditions", dst.old, dst.new, dst.trigger)
	}

	if src.conditional() {
		dst.conditions = src.conditions
	}

	dst.onTransfer = append(dst.onTransfer, src.onTransfer...)
	dst.synthesized = dst.synthesized && src.synthesized

	switch {
	case dst.info == "":
		dst.info = src.info
	case src.info != "" && src.info != dst.info:
		dst.info = dst.info + "; " + src.info
	}

	return nil
}

// validate checks every level for duplicate transitions and for well-formed
// conditional groups: within one (old state, trigger) group all records but
// the last need a condition and the last must be an unconditional default.
func (n *normalizer) validate() error {
	for _, level := range n.levels {
		records := n.records[n.levelKey(level)]

		seen := g.NewSet[g.String]()

		type groupKey struct{ old, trigger g.String }

		order := make([]groupKey, 0, len(records))
		groups := make(map[groupKey][]*record, len(records))

		for _, rec := range records {
			unique := rec.old.String() + "->" + rec.new.String() + "#" + rec.trigger
			if seen.Contains(unique) {
				return machineErrorf("duplicate transition from %q to %q with trigger %q", rec.old, rec.new, rec.trigger)
			}

			seen.Insert(unique)

			key := groupKey{old: rec.old.String(), trigger: rec.trigger}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}

			groups[key] = append(groups[key], rec)
		}

		for _, key := range order {
			group := groups[key]

			for _, rec := range group[:len(group)-1] {
				if !rec.conditional() {
					return machineErrorf("missing condition in transition from %q with trigger %q: only the last transition of a group may be unconditional", key.old, key.trigger)
				}
			}

			if group[len(group)-1].conditional() {
				return machineErrorf("no default transition from %q with trigger %q: the last transition of a conditional group cannot have a condition", key.old, key.trigger)
			}
		}
	}

	return nil
}
