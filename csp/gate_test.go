package csp

import (
	"bytes"
	"log/slog"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}

func operational() *state.Machine {
	m := state.New()
	m.EnterSelfTest()
	m.EnterOperational()
	return m
}

func TestGuardExport_StateErrorsPropagate(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*state.Machine)
		want  error
	}{
		{"uninitialized", func(*state.Machine) {}, pqcfips.ErrModuleNotInitialized},
		{"self-test", func(m *state.Machine) { m.EnterSelfTest() }, pqcfips.ErrSelfTestInProgress},
		{"error", func(m *state.Machine) { m.EnterError() }, pqcfips.ErrModuleErrorState},
	}
	for _, policy := range []pqcfips.ExportPolicy{pqcfips.AllowPlaintext, pqcfips.BlockPlaintext} {
		for _, tc := range cases {
			t.Run(policy.String()+"/"+tc.name, func(t *testing.T) {
				m := state.New()
				tc.setup(m)
				g := NewGate(m, WithPolicy(policy))
				out, err := g.GuardExport(secret)
				assert.Nil(t, out)
				assert.Equal(t, tc.want, err)
			})
		}
	}
}

func TestGuardExport_Block(t *testing.T) {
	g := NewGate(operational(), WithPolicy(pqcfips.BlockPlaintext))
	assert.Equal(t, pqcfips.BlockPlaintext, g.Policy())

	_, err := g.GuardExport(secret)
	assert.ErrorIs(t, err, pqcfips.ErrExportBlocked)
	_, err = g.GuardKEMSecretKey(pqcfips.KEMSecretKey(secret))
	assert.ErrorIs(t, err, pqcfips.ErrExportBlocked)
	_, err = g.GuardSignSecretKey(pqcfips.SignSecretKey(secret))
	assert.ErrorIs(t, err, pqcfips.ErrExportBlocked)
	_, err = g.GuardSharedSecret(pqcfips.SharedSecret(secret))
	assert.ErrorIs(t, err, pqcfips.ErrExportBlocked)
	assert.ErrorIs(t, g.CheckExportAllowed(), pqcfips.ErrExportBlocked)

	// Key validity is irrelevant.
	_, err = g.GuardExport(nil)
	assert.ErrorIs(t, err, pqcfips.ErrExportBlocked)
}

func TestGuardExport_Allow(t *testing.T) {
	g := NewGate(operational(), WithPolicy(pqcfips.AllowPlaintext))
	require.NoError(t, g.CheckExportAllowed())

	out, err := g.GuardExport(secret)
	require.NoError(t, err)
	assert.Equal(t, secret, out)

	// The returned bytes are a copy.
	out[0] = 0
	assert.Equal(t, byte(0xde), secret[0])

	sk, err := g.GuardKEMSecretKey(pqcfips.KEMSecretKey(secret))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(secret, sk))

	ss, err := g.GuardSharedSecret(pqcfips.SharedSecret(secret))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(secret, ss))
}

func TestGuardExport_FollowsState(t *testing.T) {
	m := operational()
	g := NewGate(m, WithPolicy(pqcfips.AllowPlaintext))
	_, err := g.GuardExport(secret)
	require.NoError(t, err)

	m.EnterError()
	_, err = g.GuardExport(secret)
	assert.ErrorIs(t, err, pqcfips.ErrModuleErrorState)

	m.Reset()
	_, err = g.GuardExport(secret)
	assert.ErrorIs(t, err, pqcfips.ErrModuleNotInitialized)
}

func TestNewGate_Defaults(t *testing.T) {
	g := NewGate(nil, WithLogger(nil))
	assert.Equal(t, pqcfips.BuildExportPolicy(), g.Policy())
	if pqcfips.BuildExportPolicy() == pqcfips.BlockPlaintext {
		assert.ErrorIs(t, g.CheckExportAllowed(), pqcfips.ErrExportBlocked)
	} else {
		assert.NoError(t, g.CheckExportAllowed())
	}
}

func TestCheckExportAllowed_PolicyOnly(t *testing.T) {
	for _, setup := range []func(*state.Machine){
		func(*state.Machine) {},
		func(m *state.Machine) { m.EnterSelfTest() },
		func(m *state.Machine) { m.EnterError() },
		func(m *state.Machine) { m.EnterSelfTest(); m.EnterOperational() },
	} {
		m := state.New()
		setup(m)
		allow := NewGate(m, WithPolicy(pqcfips.AllowPlaintext))
		block := NewGate(m, WithPolicy(pqcfips.BlockPlaintext))
		assert.NoError(t, allow.CheckExportAllowed(), m.State().String())
		assert.Equal(t, pqcfips.ErrExportBlocked, block.CheckExportAllowed(), m.State().String())
	}
}

func TestNewMetrics_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetrics(reg)
	var second *Metrics
	require.NotPanics(t, func() { second = NewMetrics(reg) })

	second.observe(KindRaw, "allowed")
	assert.Equal(t, 1.0, testutil.ToFloat64(first.exports.WithLabelValues(KindRaw, "allowed")))
}

func TestGate_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	var logs bytes.Buffer

	allow := NewGate(operational(), WithPolicy(pqcfips.AllowPlaintext), WithMetrics(metrics))
	block := NewGate(operational(), WithPolicy(pqcfips.BlockPlaintext), WithMetrics(metrics),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	idle := NewGate(state.New(), WithMetrics(metrics))

	_, _ = allow.GuardSharedSecret(pqcfips.SharedSecret(secret))
	_, _ = block.GuardKEMSecretKey(pqcfips.KEMSecretKey(secret))
	_, _ = idle.GuardSignSecretKey(pqcfips.SignSecretKey(secret))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exports.WithLabelValues(KindSharedSecret, "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exports.WithLabelValues(KindKEMSecretKey, "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.exports.WithLabelValues(KindSignSecretKey, "not_operational")))

	assert.Contains(t, logs.String(), "csp export refused")
	assert.NotContains(t, logs.String(), "deadbeef")
}
