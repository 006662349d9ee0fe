// Package state holds the module health register.
//
// A Machine is a single atomically stored state word. Writes publish with
// release semantics and reads observe with acquire semantics (sync/atomic
// guarantees both), so every goroutine sees transitions in order without a
// mutex. Transitions are unconditional stores: each POST run overwrites the
// state at its start and again at its end.
package state

import (
	"sync/atomic"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
)

// Machine tracks the health of one module instance. The zero value is
// Uninitialized and ready to use.
type Machine struct {
	word atomic.Uint32
}

// New returns a Machine in the Uninitialized state.
func New() *Machine {
	return &Machine{}
}

// State returns the current state. Unknown words read as Error.
func (m *Machine) State() pqcfips.ModuleState {
	s := pqcfips.ModuleState(m.word.Load())
	if s > pqcfips.StateError {
		return pqcfips.StateError
	}
	return s
}

func (m *Machine) set(s pqcfips.ModuleState) {
	m.word.Store(uint32(s))
}

// EnterSelfTest moves to SelfTestInProgress, overwriting any prior state.
// Only the POST orchestrator should call it.
func (m *Machine) EnterSelfTest() { m.set(pqcfips.StateSelfTestInProgress) }

// EnterOperational moves to Operational. Only the POST orchestrator should call it.
func (m *Machine) EnterOperational() { m.set(pqcfips.StateOperational) }

// EnterError moves to Error. Only the POST orchestrator should call it.
func (m *Machine) EnterError() { m.set(pqcfips.StateError) }

// Reset forces the machine back to Uninitialized and returns that state.
// Intended for tests and for retrying after a failed POST.
func (m *Machine) Reset() pqcfips.ModuleState {
	m.set(pqcfips.StateUninitialized)
	return pqcfips.StateUninitialized
}

// IsOperational reports whether the machine is Operational.
func (m *Machine) IsOperational() bool {
	return m.State() == pqcfips.StateOperational
}

// CheckOperational returns nil only when Operational, otherwise the
// state-specific error.
func (m *Machine) CheckOperational() error {
	switch m.State() {
	case pqcfips.StateOperational:
		return nil
	case pqcfips.StateUninitialized:
		return pqcfips.ErrModuleNotInitialized
	case pqcfips.StateSelfTestInProgress:
		return pqcfips.ErrSelfTestInProgress
	default:
		return pqcfips.ErrModuleErrorState
	}
}
