package statemachine

import (
	"github.com/enetx/g"
	"gopkg.in/yaml.v3"
)

// ParseConfig reads a YAML machine configuration. State declarations keep
// their document order, which decides default initial states and condition
// evaluation order; callbacks, conditions and context managers appear as
// names resolved against a Registry at build time.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, machineErrorf("invalid yaml configuration: %v", err)
	}

	return &cfg, nil
}

// ParseAndBuild reads a YAML configuration and builds the machine against the
// registry in one step.
func ParseAndBuild(data []byte, reg *Registry) (*Machine, error) {
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}

	return New(cfg, reg)
}

// UnmarshalYAML decodes the states mapping while keeping document order; the
// mapping keys become the state names.
func (s *StateConfigs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return machineErrorf("'states' must be a mapping of state name to state configuration")
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		var sc StateConfig
		if value.Tag != "!!null" {
			if err := value.Decode(&sc); err != nil {
				return err
			}
		}

		sc.Name = g.String(key.Value)
		*s = append(*s, sc)
	}

	return nil
}

func scalarOrList(node *yaml.Node, what string) ([]g.String, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []g.String{g.String(node.Value)}, nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return nil, err
		}

		names := make([]g.String, len(raw))
		for i, name := range raw {
			names[i] = g.String(name)
		}

		return names, nil
	default:
		return nil, machineErrorf("%s must be a name or a list of names", what)
	}
}

// UnmarshalYAML accepts a single state name or a list of names.
func (l *StateList) UnmarshalYAML(node *yaml.Node) error {
	names, err := scalarOrList(node, "'old_state'")
	if err != nil {
		return err
	}

	*l = names

	return nil
}

// UnmarshalYAML accepts a single trigger name or a list of names.
func (l *TriggerList) UnmarshalYAML(node *yaml.Node) error {
	names, err := scalarOrList(node, "'trigger'")
	if err != nil {
		return err
	}

	*l = names

	return nil
}

// UnmarshalYAML accepts a single callback name or a list of names.
func (l *CallbackList) UnmarshalYAML(node *yaml.Node) error {
	names, err := scalarOrList(node, "callback list")
	if err != nil {
		return err
	}

	refs := make(CallbackList, len(names))
	for i, name := range names {
		refs[i] = CallbackRef{value: name}
	}

	*l = refs

	return nil
}

// UnmarshalYAML accepts a single condition name or a list of names.
func (l *PredicateList) UnmarshalYAML(node *yaml.Node) error {
	names, err := scalarOrList(node, "condition list")
	if err != nil {
		return err
	}

	refs := make(PredicateList, len(names))
	for i, name := range names {
		refs[i] = PredicateRef{value: name}
	}

	*l = refs

	return nil
}

// UnmarshalYAML accepts a context manager name.
func (r *ManagerRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return machineErrorf("'context_manager' must be a name")
	}

	if node.Tag != "!!null" {
		r.value = g.String(node.Value)
	}

	return nil
}

// UnmarshalYAML accepts a single state name, a list of case records or a
// mapping of target state name to case body, in document order.
func (l *CaseList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = CaseList{{State: g.String(node.Value)}}

		return nil
	case yaml.SequenceNode:
		var cases []Case
		if err := node.Decode(&cases); err != nil {
			return err
		}

		*l = cases

		return nil
	case yaml.MappingNode:
		for i := 0; i < len(node.Content)-1; i += 2 {
			key, value := node.Content[i], node.Content[i+1]

			var c Case
			if value.Tag != "!!null" {
				if err := value.Decode(&c); err != nil {
					return err
				}
			}

			c.State = g.String(key.Value)
			*l = append(*l, c)
		}

		return nil
	default:
		return machineErrorf("'new_state' must be a name, a case list or a case mapping")
	}
}
