package statemachine

import (
	"strings"

	"github.com/enetx/g"
)

// Transitions lists every transition of the machine, synthesized fallbacks
// included, in declaration order per level.
func (m *Machine) Transitions() g.Slice[*Transition] {
	var out g.Slice[*Transition]

	var walk func(*State)
	walk = func(s *State) {
		for _, t := range s.transitions {
			out.Push(t)
		}

		for _, child := range s.children {
			walk(child)
		}
	}

	walk(m.root)

	return out
}

// ToDOT generates a DOT language representation of the machine, nesting
// composite states as clusters. Synthesized same-state fallbacks are left
// out; conditional transitions render dashed.
func (m *Machine) ToDOT() g.String {
	b := g.NewBuilder()

	b.WriteString("digraph \"" + m.name + "\" {\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	b.WriteString("  __start [shape=point, style=invis];\n")
	b.WriteString(g.Format("  __start -> \"{}\" [label=\" initial\"];\n\n", m.initial.Path()))

	writeStates(b, m.root, "  ")

	b.WriteByte('\n')

	grouped := g.NewMap[g.Pair[g.String, g.String], g.Slice[g.String]]()

	for t := range m.Transitions().Iter() {
		if t.Synthesized() {
			continue
		}

		key := g.Pair[g.String, g.String]{Key: t.Old(), Value: t.New()}

		label := g.String(t.Trigger())
		if t.Conditional() {
			label += " (conditional)"
		}

		grouped.Entry(key).
			AndModify(func(s *g.Slice[g.String]) { s.Push(label) }).
			OrInsert(g.SliceOf(label))
	}

	for pair, labels := range grouped.Iter() {
		var edge g.Slice[g.String]

		label := labels.Join("\\n")
		edge.Push(g.Format("label=\" {} \"", label))

		if label.Contains("(conditional)") {
			edge.Push("style=dashed", "arrowhead=odiamond")
		}

		b.WriteString(g.Format("  \"{}\" -> \"{}\" [{}];\n", pair.Key, pair.Value, edge.Join(", ")))
	}

	b.WriteString("}\n")

	return b.String()
}

func writeStates(b *g.Builder, state *State, indent g.String) {
	for _, child := range state.children {
		if child.Leaf() {
			b.WriteString(g.Format("{}\"{}\" [label=\"{}\"];\n", indent, child.Path(), child.Name()))
			continue
		}

		cluster := g.String(strings.ReplaceAll(string(child.Path()), ".", "__"))

		b.WriteString(indent + "subgraph \"cluster_" + cluster + "\" {\n")
		b.WriteString(g.Format("{}  label=\"{}\";\n", indent, child.Name()))
		b.WriteString(indent + "  style=rounded;\n")

		writeStates(b, child, indent+"  ")

		b.WriteString(indent + "}\n")
	}
}
