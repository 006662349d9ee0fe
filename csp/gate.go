// Package csp gates the release of critical security parameters (secret
// keys and shared secrets) on module state and the build's export policy.
package csp

import (
	"log/slog"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/state"
)

// Secret kinds used in logs and metrics.
const (
	KindRaw           = "raw"
	KindKEMSecretKey  = "kem_secret_key"
	KindSignSecretKey = "sign_secret_key"
	KindSharedSecret  = "shared_secret"
)

// Gate decides whether secret bytes may leave the module. The policy is
// fixed at construction.
type Gate struct {
	machine *state.Machine
	policy  pqcfips.ExportPolicy
	logger  *slog.Logger
	metrics *Metrics
}

// Option customizes a Gate.
type Option func(*Gate)

// WithPolicy pins the export policy instead of the build default.
func WithPolicy(p pqcfips.ExportPolicy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithLogger injects a slog Logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics attaches export metrics.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate returns a gate reading machine. The policy defaults to
// pqcfips.BuildExportPolicy().
func NewGate(machine *state.Machine, opts ...Option) *Gate {
	g := &Gate{
		machine: machine,
		policy:  pqcfips.BuildExportPolicy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.machine == nil {
		g.machine = state.New()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Policy returns the gate's export policy.
func (g *Gate) Policy() pqcfips.ExportPolicy { return g.policy }

// CheckExportAllowed consults the policy only: it returns
// pqcfips.ErrExportBlocked under BlockPlaintext and nil otherwise, whatever
// the module state.
func (g *Gate) CheckExportAllowed() error {
	if g.policy == pqcfips.BlockPlaintext {
		return pqcfips.ErrExportBlocked
	}
	return nil
}

func (g *Gate) guard(kind string, secret []byte) ([]byte, error) {
	if err := g.machine.CheckOperational(); err != nil {
		return nil, g.refuse(kind, "not_operational", err)
	}
	if err := g.CheckExportAllowed(); err != nil {
		return nil, g.refuse(kind, "blocked", err)
	}
	g.metrics.observe(kind, "allowed")
	return append([]byte(nil), secret...), nil
}

func (g *Gate) refuse(kind, outcome string, err error) error {
	g.metrics.observe(kind, outcome)
	g.logger.Warn("csp export refused", "kind", kind, "policy", g.policy.String(), "error", err)
	return err
}

// GuardExport returns a copy of secret when the module is Operational and
// the policy allows plaintext export. Otherwise it returns the state error
// unchanged, or pqcfips.ErrExportBlocked.
func (g *Gate) GuardExport(secret []byte) ([]byte, error) {
	return g.guard(KindRaw, secret)
}

// GuardKEMSecretKey is GuardExport for an ML-KEM decapsulation key.
func (g *Gate) GuardKEMSecretKey(sk pqcfips.KEMSecretKey) (pqcfips.KEMSecretKey, error) {
	return g.guard(KindKEMSecretKey, sk)
}

// GuardSignSecretKey is GuardExport for an ML-DSA signing key.
func (g *Gate) GuardSignSecretKey(sk pqcfips.SignSecretKey) (pqcfips.SignSecretKey, error) {
	return g.guard(KindSignSecretKey, sk)
}

// GuardSharedSecret is GuardExport for a KEM shared secret.
func (g *Gate) GuardSharedSecret(ss pqcfips.SharedSecret) (pqcfips.SharedSecret, error) {
	return g.guard(KindSharedSecret, ss)
}
