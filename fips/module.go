// Package fips composes the state machine, POST orchestrator, export gate
// and primitive providers into one injectable module instance. Every
// approved service refuses to run unless the module is Operational.
package fips

import (
	"fmt"
	"log/slog"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/aead"
	"github.com/BackendStack21/pqc-fips-go/config"
	"github.com/BackendStack21/pqc-fips-go/core"
	"github.com/BackendStack21/pqc-fips-go/csp"
	"github.com/BackendStack21/pqc-fips-go/kem"
	"github.com/BackendStack21/pqc-fips-go/pct"
	"github.com/BackendStack21/pqc-fips-go/post"
	"github.com/BackendStack21/pqc-fips-go/sign"
	"github.com/BackendStack21/pqc-fips-go/state"
	"github.com/BackendStack21/pqc-fips-go/utils"
	"github.com/prometheus/client_golang/prometheus"
)

// Module is one independent compliance boundary.
type Module struct {
	machine *state.Machine
	post    *post.Orchestrator
	gate    *csp.Gate

	kem    pqcfips.KEM
	signer pqcfips.Signer
	strict bool
	cipher aead.Algorithm
	logger *slog.Logger
}

type options struct {
	cfg        *config.Config
	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    bool
	policy     *pqcfips.ExportPolicy
	hasher     pqcfips.Hasher
	kem        pqcfips.KEM
	signer     pqcfips.Signer
}

// Option customizes a Module.
type Option func(*options)

// WithConfig supplies settings; the default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger injects a slog Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer enables metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
		o.metrics = true
	}
}

// WithExportPolicy pins the CSP export policy instead of the build default.
func WithExportPolicy(p pqcfips.ExportPolicy) Option {
	return func(o *options) { o.policy = &p }
}

// WithProviders replaces the primitive providers. Nil arguments keep the
// defaults.
func WithProviders(h pqcfips.Hasher, k pqcfips.KEM, s pqcfips.Signer) Option {
	return func(o *options) {
		o.hasher, o.kem, o.signer = h, k, s
	}
}

// New builds a Module in the Uninitialized state. Call SelfTest before
// using any service.
func New(opts ...Option) (*Module, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}
	families, err := o.cfg.ParsedFamilies()
	if err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}
	cipher, err := o.cfg.CipherAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.kem == nil {
		o.kem = kem.New()
	}
	if o.signer == nil {
		o.signer = sign.New()
	}

	if err := core.ValidateKEM(o.kem, core.MLKEM1024Params); err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}
	if err := core.ValidateSigner(o.signer, core.MLDSA65Params); err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}

	var postMetrics *post.Metrics
	var cspMetrics *csp.Metrics
	if o.metrics || o.cfg.Metrics.Enabled {
		postMetrics = post.NewMetrics(o.registerer)
		cspMetrics = csp.NewMetrics(o.registerer)
	}

	machine := state.New()
	gateOpts := []csp.Option{csp.WithLogger(o.logger), csp.WithMetrics(cspMetrics)}
	if o.policy != nil {
		gateOpts = append(gateOpts, csp.WithPolicy(*o.policy))
	}

	m := &Module{
		machine: machine,
		post: post.New(machine, post.Config{
			Strict:   o.cfg.Strict,
			Families: families,
			Hasher:   o.hasher,
			KEM:      o.kem,
			Signer:   o.signer,
			Logger:   o.logger,
			Metrics:  postMetrics,
		}),
		gate:   csp.NewGate(machine, gateOpts...),
		kem:    o.kem,
		signer: o.signer,
		strict: o.cfg.Strict,
		cipher: cipher,
		logger: o.logger,
	}
	return m, nil
}

// =============================================================================
// State and self-test
// =============================================================================

// State returns the current module state.
func (m *Module) State() pqcfips.ModuleState { return m.machine.State() }

// CheckOperational returns nil only when the module is Operational.
func (m *Module) CheckOperational() error { return m.machine.CheckOperational() }

// Reset returns the module to Uninitialized.
func (m *Module) Reset() pqcfips.ModuleState { return m.machine.Reset() }

// Strict reports whether the module runs under strict policy.
func (m *Module) Strict() bool { return m.strict }

// ExportPolicy returns the CSP export policy.
func (m *Module) ExportPolicy() pqcfips.ExportPolicy { return m.gate.Policy() }

// SelfTest runs POST.
func (m *Module) SelfTest() error { return m.post.Run() }

// SelfTestWithSeeds runs POST without reading the entropy source.
func (m *Module) SelfTestWithSeeds(seeds post.Seeds) error { return m.post.RunWithSeeds(seeds) }

// SelfTestReport runs POST and returns its report. A nil seeds reads the
// entropy source.
func (m *Module) SelfTestReport(seeds *post.Seeds) *post.Report { return m.post.RunWithReport(seeds) }

// SelfTestOrExit runs POST and terminates the process on failure.
func (m *Module) SelfTestOrExit() { m.post.RunOrExit() }

// =============================================================================
// ML-KEM services
// =============================================================================

// GenerateKEMKeyPair generates a PCT-validated key pair.
func (m *Module) GenerateKEMKeyPair() (*pqcfips.KEMKeyPair, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	seed, err := utils.SecureRandomBytes(m.kem.SeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	encSeed, err := utils.SecureRandomBytes(m.kem.EncapsulationSeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(encSeed)
	return m.kemKeyPair(seed, encSeed)
}

// GenerateKEMKeyPairFromSeed generates a PCT-validated key pair from
// explicit keygen and PCT seeds.
func (m *Module) GenerateKEMKeyPairFromSeed(seed, pctSeed []byte) (*pqcfips.KEMKeyPair, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return m.kemKeyPair(seed, pctSeed)
}

func (m *Module) kemKeyPair(seed, pctSeed []byte) (*pqcfips.KEMKeyPair, error) {
	kp, err := m.kem.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	if err := pct.KEMWithSeed(m.kem, kp, pctSeed); err != nil {
		utils.Zeroize(kp.SecretKey)
		m.logger.Error("kem pair-wise consistency test failed", "family", m.kem.Family(), "error", err)
		return nil, err
	}
	return kp, nil
}

// Encapsulate encapsulates to pk with fresh randomness.
func (m *Module) Encapsulate(pk pqcfips.KEMPublicKey) (*pqcfips.EncapsulationResult, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	seed, err := utils.SecureRandomBytes(m.kem.EncapsulationSeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return m.encapsulate(pk, seed)
}

// EncapsulateDeterministic encapsulates to pk with an explicit seed.
func (m *Module) EncapsulateDeterministic(pk pqcfips.KEMPublicKey, seed []byte) (*pqcfips.EncapsulationResult, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return m.encapsulate(pk, seed)
}

func (m *Module) encapsulate(pk pqcfips.KEMPublicKey, seed []byte) (*pqcfips.EncapsulationResult, error) {
	ct, ss, err := m.kem.Encapsulate(pk, seed)
	if err != nil {
		return nil, err
	}
	return &pqcfips.EncapsulationResult{SharedSecret: ss, Ciphertext: ct}, nil
}

// Decapsulate recovers a shared secret.
func (m *Module) Decapsulate(sk pqcfips.KEMSecretKey, ct pqcfips.KEMCiphertext) (pqcfips.SharedSecret, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return m.kem.Decapsulate(sk, ct)
}

// Encrypt seals plaintext to pk as a KEM+DEM envelope.
func (m *Module) Encrypt(pk pqcfips.KEMPublicKey, plaintext []byte) (*pqcfips.EncryptedMessage, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	seed, err := utils.SecureRandomBytes(m.kem.EncapsulationSeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return kem.EncryptWith(m.kem, pk, plaintext, seed)
}

// Decrypt opens an envelope produced by Encrypt.
func (m *Module) Decrypt(sk pqcfips.KEMSecretKey, msg *pqcfips.EncryptedMessage) ([]byte, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return kem.DecryptWith(m.kem, sk, msg)
}

// =============================================================================
// ML-DSA services
// =============================================================================

// GenerateSignKeyPair generates a PCT-validated key pair.
func (m *Module) GenerateSignKeyPair() (*pqcfips.SignKeyPair, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	seed, err := utils.SecureRandomBytes(m.signer.SeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	rnd, err := utils.SecureRandomBytes(pqcfips.MLDSASignSeedSize)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(rnd)
	return m.signKeyPair(seed, rnd)
}

// GenerateSignKeyPairFromSeed generates a PCT-validated key pair from
// explicit keygen and PCT seeds.
func (m *Module) GenerateSignKeyPairFromSeed(seed, pctSeed []byte) (*pqcfips.SignKeyPair, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return m.signKeyPair(seed, pctSeed)
}

func (m *Module) signKeyPair(seed, pctSeed []byte) (*pqcfips.SignKeyPair, error) {
	kp, err := m.signer.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	if err := pct.SignatureWithSeed(m.signer, kp, pctSeed); err != nil {
		utils.Zeroize(kp.SecretKey)
		m.logger.Error("signature pair-wise consistency test failed", "family", m.signer.Family(), "error", err)
		return nil, err
	}
	return kp, nil
}

// Sign signs msg with fresh per-signature randomness.
func (m *Module) Sign(sk pqcfips.SignSecretKey, msg []byte) (pqcfips.Signature, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	rnd, err := utils.SecureRandomBytes(pqcfips.MLDSASignSeedSize)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(rnd)
	return m.signer.Sign(sk, msg, rnd)
}

// SignDeterministic signs msg with explicit randomness.
func (m *Module) SignDeterministic(sk pqcfips.SignSecretKey, msg, rnd []byte) (pqcfips.Signature, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	return m.signer.Sign(sk, msg, rnd)
}

// Verify returns pqcfips.ErrVerificationFailure when sig does not verify.
func (m *Module) Verify(pk pqcfips.SignPublicKey, msg []byte, sig pqcfips.Signature) error {
	if err := m.CheckOperational(); err != nil {
		return err
	}
	if !m.signer.Verify(pk, msg, sig) {
		return pqcfips.NewError(pqcfips.KindVerificationFailure, string(m.signer.Family()), nil)
	}
	return nil
}

// =============================================================================
// AEAD services
// =============================================================================

// Cipher returns the default AEAD.
func (m *Module) Cipher() aead.Algorithm { return m.cipher }

func (m *Module) checkCipher(alg aead.Algorithm) error {
	if !aead.Approved(alg, m.strict) {
		return pqcfips.NewError(pqcfips.KindAEADOperationFailed, string(alg), fmt.Errorf("not approved in strict mode"))
	}
	return nil
}

// Seal encrypts with the default AEAD.
func (m *Module) Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	return m.SealWith(m.cipher, key, nonce, plaintext, aad)
}

// Open decrypts with the default AEAD.
func (m *Module) Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	return m.OpenWith(m.cipher, key, nonce, ciphertext, aad)
}

// SealWith encrypts with alg. In strict mode only AES-256-GCM is accepted.
func (m *Module) SealWith(alg aead.Algorithm, key, nonce, plaintext, aad []byte) ([]byte, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	if err := m.checkCipher(alg); err != nil {
		return nil, err
	}
	return aead.Seal(alg, key, nonce, plaintext, aad)
}

// OpenWith decrypts with alg. In strict mode only AES-256-GCM is accepted.
func (m *Module) OpenWith(alg aead.Algorithm, key, nonce, ciphertext, aad []byte) ([]byte, error) {
	if err := m.CheckOperational(); err != nil {
		return nil, err
	}
	if err := m.checkCipher(alg); err != nil {
		return nil, err
	}
	return aead.Open(alg, key, nonce, ciphertext, aad)
}

// =============================================================================
// CSP export
// =============================================================================

// ExportKEMSecretKey releases sk through the export gate.
func (m *Module) ExportKEMSecretKey(sk pqcfips.KEMSecretKey) (pqcfips.KEMSecretKey, error) {
	return m.gate.GuardKEMSecretKey(sk)
}

// ExportSignSecretKey releases sk through the export gate.
func (m *Module) ExportSignSecretKey(sk pqcfips.SignSecretKey) (pqcfips.SignSecretKey, error) {
	return m.gate.GuardSignSecretKey(sk)
}

// ExportSharedSecret releases ss through the export gate.
func (m *Module) ExportSharedSecret(ss pqcfips.SharedSecret) (pqcfips.SharedSecret, error) {
	return m.gate.GuardSharedSecret(ss)
}

// CheckExportAllowed reports whether the export policy permits plaintext
// export. It does not consult the module state; the Export methods do.
func (m *Module) CheckExportAllowed() error { return m.gate.CheckExportAllowed() }
