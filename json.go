package statemachine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/enetx/g"
)

// refName renders a callback reference for export: names stay as they are,
// function values fall back to their symbol name.
func refName(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case g.String:
		return string(v)
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Func {
			name := runtime.FuncForPC(rv.Pointer()).Name()
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}

			return strings.TrimSuffix(name, "-fm")
		}

		return fmt.Sprintf("%T", value)
	}
}

func (ref CallbackRef) MarshalJSON() ([]byte, error) { return json.Marshal(refName(ref.value)) }

func (ref PredicateRef) MarshalJSON() ([]byte, error) { return json.Marshal(refName(ref.value)) }

func (r ManagerRef) MarshalJSON() ([]byte, error) {
	if r.value == nil {
		return []byte("null"), nil
	}

	return json.Marshal(refName(r.value))
}

// MarshalJSON renders the machine in its configuration shape, with callback
// references as names, for documentation and debugging.
func (m *Machine) MarshalJSON() ([]byte, error) { return json.Marshal(m.cfg) }
