// Package pqcfips is a FIPS 140-3 style compliance layer for post-quantum
// key encapsulation and signatures.
//
// The root package only declares the shared vocabulary: module states,
// export policy, algorithm families, byte-level key types and the
// capability interfaces implemented by the primitive bindings in kem/ and
// sign/. Behaviour lives in the subpackages.
package pqcfips

// =============================================================================
// Module State
// =============================================================================

// ModuleState is the health state of a cryptographic module instance.
//
// Transitions within one POST run are
// Uninitialized -> SelfTestInProgress -> {Operational, Error}.
// Operational and Error are only left through an explicit reset or the
// start of a new POST run.
type ModuleState uint32

const (
	// StateUninitialized is the state before any POST has run.
	StateUninitialized ModuleState = iota
	// StateSelfTestInProgress is held while POST is executing.
	StateSelfTestInProgress
	// StateOperational means the last POST passed.
	StateOperational
	// StateError means the last POST failed.
	StateError
)

func (s ModuleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSelfTestInProgress:
		return "self_test_in_progress"
	case StateOperational:
		return "operational"
	default:
		return "error"
	}
}

// States lists every module state in transition order.
var States = []ModuleState{
	StateUninitialized,
	StateSelfTestInProgress,
	StateOperational,
	StateError,
}

// =============================================================================
// Export Policy
// =============================================================================

// ExportPolicy decides whether raw CSP bytes may leave the module.
type ExportPolicy uint8

const (
	// AllowPlaintext releases secret bytes unmodified once operational.
	AllowPlaintext ExportPolicy = iota
	// BlockPlaintext refuses every plaintext export.
	BlockPlaintext
)

func (p ExportPolicy) String() string {
	if p == BlockPlaintext {
		return "block_plaintext"
	}
	return "allow_plaintext"
}

// BuildExportPolicy returns the export policy compiled into this binary.
func BuildExportPolicy() ExportPolicy {
	if FIPSMode() {
		return BlockPlaintext
	}
	return AllowPlaintext
}

// =============================================================================
// Algorithm Families
// =============================================================================

// Family identifies an asymmetric algorithm family covered by KAT and PCT.
type Family string

const (
	// FamilyMLKEM1024 is ML-KEM-1024 (FIPS 203).
	FamilyMLKEM1024 Family = "ml-kem-1024"
	// FamilyMLDSA65 is ML-DSA-65 (FIPS 204).
	FamilyMLDSA65 Family = "ml-dsa-65"
)

// AllFamilies lists the families enabled by default.
var AllFamilies = []Family{FamilyMLKEM1024, FamilyMLDSA65}

// =============================================================================
// Sizes
// =============================================================================

const (
	MLKEM1024PublicKeySize     = 1568
	MLKEM1024SecretKeySize     = 3168
	MLKEM1024CiphertextSize    = 1568
	MLKEM1024SharedSecretSize  = 32
	MLKEMKeyGenSeedSize        = 64
	MLKEMEncapsulationSeedSize = 32

	MLDSA65PublicKeySize = 1952
	MLDSA65SecretKeySize = 4032
	MLDSA65SignatureSize = 3309
	MLDSAKeyGenSeedSize  = 32
	MLDSASignSeedSize    = 32

	AESKeySize   = 32
	AESNonceSize = 12
)

// =============================================================================
// KEM Types
// =============================================================================

// KEMPublicKey is a packed ML-KEM-1024 encapsulation key.
type KEMPublicKey []byte

// KEMSecretKey is a packed ML-KEM-1024 decapsulation key.
type KEMSecretKey []byte

// KEMCiphertext is an ML-KEM-1024 ciphertext.
type KEMCiphertext []byte

// SharedSecret is a 32-byte KEM shared secret.
type SharedSecret []byte

// KEMKeyPair contains both halves of an ML-KEM-1024 key pair.
type KEMKeyPair struct {
	PublicKey KEMPublicKey
	SecretKey KEMSecretKey
}

// EncapsulationResult contains the result of KEM encapsulation.
type EncapsulationResult struct {
	SharedSecret SharedSecret
	Ciphertext   KEMCiphertext
}

// EncryptedMessage is a KEM+DEM envelope.
type EncryptedMessage struct {
	Ciphertext KEMCiphertext
	Nonce      []byte
	Encrypted  []byte
}

// =============================================================================
// Signature Types
// =============================================================================

// SignPublicKey is a packed ML-DSA-65 verification key.
type SignPublicKey []byte

// SignSecretKey is a packed ML-DSA-65 signing key.
type SignSecretKey []byte

// Signature is an ML-DSA-65 signature.
type Signature []byte

// SignKeyPair contains both halves of an ML-DSA-65 key pair.
type SignKeyPair struct {
	PublicKey SignPublicKey
	SecretKey SignSecretKey
}

// =============================================================================
// Capability Providers
// =============================================================================

// Hasher provides the SHA-3 family primitives checked by the CASTs.
type Hasher interface {
	SHA3256(input []byte) []byte
	SHA3512(input []byte) []byte
	Shake128(input []byte, outputLen int) []byte
	Shake256(input []byte, outputLen int) []byte
}

// KEM is a key-encapsulation provider with explicit-seed entry points.
type KEM interface {
	Family() Family
	PublicKeySize() int
	SecretKeySize() int
	CiphertextSize() int
	SharedSecretSize() int
	SeedSize() int
	EncapsulationSeedSize() int

	// KeyGen derives a key pair deterministically from seed.
	KeyGen(seed []byte) (*KEMKeyPair, error)
	// Encapsulate derives a ciphertext and shared secret deterministically from seed.
	Encapsulate(pk KEMPublicKey, seed []byte) (KEMCiphertext, SharedSecret, error)
	Decapsulate(sk KEMSecretKey, ct KEMCiphertext) (SharedSecret, error)
}

// Signer is a signature provider with explicit-seed entry points.
type Signer interface {
	Family() Family
	PublicKeySize() int
	SecretKeySize() int
	SignatureSize() int
	SeedSize() int

	// KeyGen derives a key pair deterministically from seed.
	KeyGen(seed []byte) (*SignKeyPair, error)
	// Sign signs msg. rnd is per-signature randomness of SeedSize bytes;
	// a provider whose backend takes no caller randomness may validate it
	// and then sign deterministically.
	Sign(sk SignSecretKey, msg []byte, rnd []byte) (Signature, error)
	Verify(pk SignPublicKey, msg []byte, sig Signature) bool
}
