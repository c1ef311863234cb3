package statemachine

import (
	"sync"

	"github.com/enetx/g"
)

// SyncHolder binds one holder to one machine behind a mutex, for holders
// fired from multiple goroutines. The machine itself needs no locking; the
// mutex serializes the Fire calls of this holder only.
type SyncHolder struct {
	mu      sync.Mutex
	machine *Machine
	holder  Holder
}

// NewSyncHolder wraps holder and sets it to the machine's initial state when
// its state field is still empty.
func NewSyncHolder(m *Machine, holder Holder) (*SyncHolder, error) {
	if holder.State() == "" {
		if err := m.Init(holder); err != nil {
			return nil, err
		}
	}

	return &SyncHolder{machine: m, holder: holder}, nil
}

// State returns the holder's current leaf state path.
func (s *SyncHolder) State() g.String {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.holder.State()
}

// Fire runs one trigger on the holder, serialized with all other calls
// through this wrapper.
func (s *SyncHolder) Fire(trigger Trigger, args Args) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.Fire(s.holder, trigger, args)
}

// GoTo moves the holder to the named state, serialized with all other calls
// through this wrapper.
func (s *SyncHolder) GoTo(target g.String, args Args) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.GoTo(s.holder, target, args)
}
