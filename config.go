package statemachine

import "github.com/enetx/g"

// Config declares a whole machine: the root level of the state tree plus the
// machine-level keys of the configuration schema. A Config is plain data; it
// can be written as a Go literal, parsed from YAML (ParseConfig) or decoded
// from a generic document (DecodeConfig), and turned into a Machine with New
// and Build.
type Config struct {
	// Name identifies the machine; it is the attribute name a storage layer
	// would bind the state field to.
	Name g.String `yaml:"name" json:"name,omitempty" mapstructure:"name"`
	// Initial optionally overrides the default initial state. A composite
	// path descends to its default leaf.
	Initial        g.String           `yaml:"initial"         json:"initial,omitempty"         mapstructure:"initial"`
	States         StateConfigs       `yaml:"states"          json:"states,omitempty"          mapstructure:"states"`
	Transitions    []TransitionConfig `yaml:"transitions"     json:"transitions,omitempty"     mapstructure:"transitions"`
	Prepare        CallbackList       `yaml:"prepare"         json:"prepare,omitempty"         mapstructure:"prepare"`
	BeforeExit     CallbackList       `yaml:"before_exit"     json:"before_exit,omitempty"     mapstructure:"before_exit"`
	AfterEntry     CallbackList       `yaml:"after_entry"     json:"after_entry,omitempty"     mapstructure:"after_entry"`
	OnStay         CallbackList       `yaml:"on_stay"         json:"on_stay,omitempty"         mapstructure:"on_stay"`
	ContextManager ManagerRef         `yaml:"context_manager" json:"context_manager,omitempty" mapstructure:"context_manager"`
}

// StateConfig declares one state. A state with sub-states is a machine level
// of its own and may declare local transitions; a leaf state may not.
type StateConfig struct {
	Name   g.String     `yaml:"-" json:"name" mapstructure:"name"`
	States StateConfigs `yaml:"states" json:"states,omitempty" mapstructure:"states"`
	// Initial optionally marks the default-initial child (a name or a deeper
	// dotted sub-path); the first declared child is the default otherwise.
	Initial        g.String           `yaml:"initial"         json:"initial,omitempty"         mapstructure:"initial"`
	Transitions    []TransitionConfig `yaml:"transitions"     json:"transitions,omitempty"     mapstructure:"transitions"`
	OnEntry        CallbackList       `yaml:"on_entry"        json:"on_entry,omitempty"        mapstructure:"on_entry"`
	OnExit         CallbackList       `yaml:"on_exit"         json:"on_exit,omitempty"         mapstructure:"on_exit"`
	BeforeExit     CallbackList       `yaml:"before_exit"     json:"before_exit,omitempty"     mapstructure:"before_exit"`
	AfterEntry     CallbackList       `yaml:"after_entry"     json:"after_entry,omitempty"     mapstructure:"after_entry"`
	OnStay         CallbackList       `yaml:"on_stay"         json:"on_stay,omitempty"         mapstructure:"on_stay"`
	Prepare        CallbackList       `yaml:"prepare"         json:"prepare,omitempty"         mapstructure:"prepare"`
	Constraint     PredicateList      `yaml:"constraint"      json:"constraint,omitempty"      mapstructure:"constraint"`
	ContextManager ManagerRef         `yaml:"context_manager" json:"context_manager,omitempty" mapstructure:"context_manager"`
	Info           g.String           `yaml:"info"            json:"info,omitempty"            mapstructure:"info"`
}

// StateConfigs is an ordered list of state declarations; the order decides
// the default initial state of the level.
type StateConfigs []StateConfig

// TransitionConfig declares one transition in shorthand form: old states may
// be a single name, a list or the "*" wildcard; the target may be a single
// state or a switched case list; triggers may be a single name or a list.
type TransitionConfig struct {
	OldState StateList `yaml:"old_state" json:"old_state" mapstructure:"old_state"`
	NewState CaseList  `yaml:"new_state" json:"new_state,omitempty" mapstructure:"new_state"`
	// NewStates is an alias for NewState, conventional for switched targets.
	NewStates CaseList    `yaml:"new_states" json:"new_states,omitempty" mapstructure:"new_states"`
	Trigger   TriggerList `yaml:"trigger" json:"trigger,omitempty" mapstructure:"trigger"`
	// Triggers is an alias for Trigger.
	Triggers   TriggerList   `yaml:"triggers" json:"triggers,omitempty" mapstructure:"triggers"`
	Condition  PredicateList `yaml:"condition" json:"condition,omitempty" mapstructure:"condition"`
	OnTransfer CallbackList  `yaml:"on_transfer" json:"on_transfer,omitempty" mapstructure:"on_transfer"`
	Info       g.String      `yaml:"info" json:"info,omitempty" mapstructure:"info"`
}

// Case is one candidate target of a switched transition. Every case but the
// last must carry a condition; the last unconditioned case is the default.
type Case struct {
	State      g.String      `yaml:"state" json:"state" mapstructure:"state"`
	Condition  PredicateList `yaml:"condition" json:"condition,omitempty" mapstructure:"condition"`
	OnTransfer CallbackList  `yaml:"on_transfer" json:"on_transfer,omitempty" mapstructure:"on_transfer"`
	Info       g.String      `yaml:"info" json:"info,omitempty" mapstructure:"info"`
}

type (
	// StateList holds one or more state names; "*" expands to all sibling
	// states of the declaring level.
	StateList []g.String
	// TriggerList holds one or more trigger names.
	TriggerList []g.String
	// CaseList holds the target(s) of a transition.
	CaseList []Case
)

// States builds an ordered state list.
func States(states ...StateConfig) StateConfigs { return states }

// Transitions builds a transition list.
func Transitions(transitions ...TransitionConfig) []TransitionConfig { return transitions }

// To declares a single unconditional transition target.
func To(state g.String) CaseList { return CaseList{{State: state}} }

// Switch declares a switched transition target from ordered cases.
func Switch(cases ...Case) CaseList { return cases }

// CaseWhen declares one guarded case of a switched transition.
func CaseWhen(state g.String, condition ...any) Case {
	return Case{State: state, Condition: Conditions(condition...)}
}

// Default declares the unconditioned final case of a switched transition.
func Default(state g.String) Case { return Case{State: state} }

func (s StateConfigs) find(name g.String) (*StateConfig, bool) {
	for i := range s {
		if s[i].Name == name {
			return &s[i], true
		}
	}

	return nil, false
}

// configAt drills down from states to the declaration at path.
func configAt(states StateConfigs, path Path) (*StateConfig, bool) {
	var found *StateConfig

	for _, name := range path {
		child, ok := states.find(name)
		if !ok {
			return nil, false
		}

		found, states = child, child.States
	}

	return found, found != nil
}

// targets picks the case list of a transition record, honoring the
// NewState/NewStates alias pair.
func (t *TransitionConfig) targets() (CaseList, error) {
	switch {
	case len(t.NewState) > 0 && len(t.NewStates) > 0:
		return nil, machineErrorf("transition from %v declares both 'new_state' and 'new_states'", t.OldState)
	case len(t.NewStates) > 0:
		return t.NewStates, nil
	default:
		return t.NewState, nil
	}
}

// triggerNames picks the trigger list, honoring the Trigger/Triggers alias pair.
func (t *TransitionConfig) triggerNames() (TriggerList, error) {
	switch {
	case len(t.Trigger) > 0 && len(t.Triggers) > 0:
		return nil, machineErrorf("transition from %v declares both 'trigger' and 'triggers'", t.OldState)
	case len(t.Triggers) > 0:
		return t.Triggers, nil
	default:
		return t.Trigger, nil
	}
}
