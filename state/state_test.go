package state

import (
	"sync"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialState(t *testing.T) {
	var zero Machine
	assert.Equal(t, pqcfips.StateUninitialized, zero.State())
	assert.Equal(t, pqcfips.StateUninitialized, New().State())
	assert.False(t, New().IsOperational())
}

func TestTransitions(t *testing.T) {
	m := New()

	m.EnterSelfTest()
	assert.Equal(t, pqcfips.StateSelfTestInProgress, m.State())
	assert.False(t, m.IsOperational())

	m.EnterOperational()
	assert.Equal(t, pqcfips.StateOperational, m.State())
	assert.True(t, m.IsOperational())

	m.EnterError()
	assert.Equal(t, pqcfips.StateError, m.State())
	assert.False(t, m.IsOperational())

	assert.Equal(t, pqcfips.StateUninitialized, m.Reset())
	assert.Equal(t, pqcfips.StateUninitialized, m.State())
}

func TestCheckOperational(t *testing.T) {
	m := New()

	err := m.CheckOperational()
	require.Error(t, err)
	assert.ErrorIs(t, err, pqcfips.ErrModuleNotInitialized)

	m.EnterSelfTest()
	assert.ErrorIs(t, m.CheckOperational(), pqcfips.ErrSelfTestInProgress)

	m.EnterOperational()
	assert.NoError(t, m.CheckOperational())

	m.EnterError()
	err = m.CheckOperational()
	assert.ErrorIs(t, err, pqcfips.ErrModuleErrorState)
	assert.NotErrorIs(t, err, pqcfips.ErrModuleNotInitialized)
}

func TestUnknownWordReadsAsError(t *testing.T) {
	m := New()
	m.word.Store(42)
	assert.Equal(t, pqcfips.StateError, m.State())
	assert.ErrorIs(t, m.CheckOperational(), pqcfips.ErrModuleErrorState)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.EnterOperational()
	assert.Equal(t, pqcfips.StateOperational, a.State())
	assert.Equal(t, pqcfips.StateUninitialized, b.State())
}

func TestConcurrentReadersSeeTerminalState(t *testing.T) {
	m := New()
	m.EnterSelfTest()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s := m.State()
				if s != pqcfips.StateSelfTestInProgress && s != pqcfips.StateOperational {
					t.Errorf("unexpected state %s", s)
					return
				}
			}
		}()
	}
	m.EnterOperational()
	wg.Wait()
	assert.Equal(t, pqcfips.StateOperational, m.State())
}

func FuzzTransitions(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3})
	f.Add([]byte{1, 1, 1})
	f.Add([]byte{3, 0, 2})

	f.Fuzz(func(t *testing.T, ops []byte) {
		m := New()
		for _, op := range ops {
			switch op % 4 {
			case 0:
				m.Reset()
			case 1:
				m.EnterSelfTest()
			case 2:
				m.EnterOperational()
			case 3:
				m.EnterError()
			}
			// CheckOperational agrees with IsOperational in every state.
			if (m.CheckOperational() == nil) != m.IsOperational() {
				t.Fatalf("CheckOperational and IsOperational disagree in %s", m.State())
			}
		}
	})
}
