package statemachine

import (
	"reflect"

	"github.com/enetx/g"
	"github.com/mitchellh/mapstructure"
)

// DecodeConfig builds a Config from a generic document, the shape produced
// by json.Unmarshal into map[string]any or by configuration stores. Because
// generic maps have no order, state declarations must be a list of records
// with a "name" key; the single-state mapping shorthand is still accepted.
// Callbacks may appear as names or as direct function values.
func DecodeConfig(doc map[string]any) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decodeStateConfigsHook,
			decodeCaseListHook,
			decodeNameListHook,
			decodeCallbackListHook,
			decodePredicateListHook,
			decodeManagerRefHook,
		),
	})
	if err != nil {
		return nil, machineErrorf("cannot build configuration decoder: %v", err)
	}

	if err := decoder.Decode(doc); err != nil {
		return nil, machineErrorf("invalid configuration document: %v", err)
	}

	return &cfg, nil
}

var (
	stateConfigsType  = reflect.TypeOf(StateConfigs(nil))
	caseListType      = reflect.TypeOf(CaseList(nil))
	stateListType     = reflect.TypeOf(StateList(nil))
	triggerListType   = reflect.TypeOf(TriggerList(nil))
	callbackListType  = reflect.TypeOf(CallbackList(nil))
	predicateListType = reflect.TypeOf(PredicateList(nil))
	managerRefType    = reflect.TypeOf(ManagerRef{})
)

// decodeStateConfigsHook lets states be declared as an ordered list of
// records carrying a "name" key. A mapping with a single state is unwrapped;
// larger mappings are refused because their order is undefined.
func decodeStateConfigsHook(_, to reflect.Type, data any) (any, error) {
	if to != stateConfigsType {
		return data, nil
	}

	m, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	if len(m) > 1 {
		return nil, machineErrorf("states in a decoded configuration must be a list of records with a 'name' key: a mapping loses declaration order")
	}

	for name, body := range m {
		record := map[string]any{"name": name}

		if body != nil {
			inner, ok := body.(map[string]any)
			if !ok {
				return nil, machineErrorf("state %q must map to a configuration record", name)
			}

			for k, v := range inner {
				record[k] = v
			}
		}

		return []any{record}, nil
	}

	return []any{}, nil
}

func decodeCaseListHook(_, to reflect.Type, data any) (any, error) {
	if to != caseListType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return []any{map[string]any{"state": v}}, nil
	case g.String:
		return []any{map[string]any{"state": string(v)}}, nil
	case map[string]any:
		if len(v) > 1 {
			return nil, machineErrorf("switched cases in a decoded configuration must be a list of records with a 'state' key: a mapping loses evaluation order")
		}

		for state, body := range v {
			record := map[string]any{"state": state}

			if body != nil {
				inner, ok := body.(map[string]any)
				if !ok {
					return nil, machineErrorf("case %q must map to a case record", state)
				}

				for k, val := range inner {
					record[k] = val
				}
			}

			return []any{record}, nil
		}

		return []any{}, nil
	default:
		return data, nil
	}
}

// decodeNameListHook turns a scalar state or trigger name into a one-element
// list.
func decodeNameListHook(_, to reflect.Type, data any) (any, error) {
	if to != stateListType && to != triggerListType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return []any{v}, nil
	case g.String:
		return []any{string(v)}, nil
	default:
		return data, nil
	}
}

func decodeCallbackListHook(_, to reflect.Type, data any) (any, error) {
	if to != callbackListType {
		return data, nil
	}

	switch data.(type) {
	case []any:
		values := data.([]any)

		return Callbacks(values...), nil
	default:
		return Callbacks(data), nil
	}
}

func decodePredicateListHook(_, to reflect.Type, data any) (any, error) {
	if to != predicateListType {
		return data, nil
	}

	switch data.(type) {
	case []any:
		values := data.([]any)

		return Conditions(values...), nil
	default:
		return Conditions(data), nil
	}
}

func decodeManagerRefHook(_, to reflect.Type, data any) (any, error) {
	if to != managerRefType {
		return data, nil
	}

	return Manager(data), nil
}
