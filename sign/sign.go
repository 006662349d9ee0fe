// Package sign binds ML-DSA-65 (FIPS 204) from cloudflare/circl to the
// module's Signer capability and adds PCT-validating constructors.
package sign

import (
	"fmt"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/pct"
	"github.com/BackendStack21/pqc-fips-go/utils"
	circlsign "github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// Scheme is the ML-DSA-65 provider. It is stateless and safe for
// concurrent use.
type Scheme struct {
	scheme circlsign.Scheme
}

// New returns the ML-DSA-65 provider.
func New() *Scheme {
	return &Scheme{scheme: mldsa65.Scheme()}
}

// Default is the provider used by the package-level functions.
var Default = New()

var _ pqcfips.Signer = (*Scheme)(nil)

func (s *Scheme) Family() pqcfips.Family { return pqcfips.FamilyMLDSA65 }
func (s *Scheme) PublicKeySize() int     { return s.scheme.PublicKeySize() }
func (s *Scheme) SecretKeySize() int     { return s.scheme.PrivateKeySize() }
func (s *Scheme) SignatureSize() int     { return s.scheme.SignatureSize() }
func (s *Scheme) SeedSize() int          { return s.scheme.SeedSize() }

// KeyGen derives a key pair from a 32-byte seed. An all-zero seed panics
// with pqcfips.ErrZeroSeed.
func (s *Scheme) KeyGen(seed []byte) (*pqcfips.SignKeyPair, error) {
	if err := pqcfips.CheckLength("ml-dsa-65 keygen seed", seed, s.SeedSize()); err != nil {
		return nil, err
	}
	pqcfips.MustNonZeroSeed(seed)

	local := utils.Clone(seed)
	defer utils.Zeroize(local)

	pk, sk := s.scheme.DeriveKey(local)
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ml-dsa-65: pack public key: %w", err)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ml-dsa-65: pack secret key: %w", err)
	}
	return &pqcfips.SignKeyPair{PublicKey: pkBytes, SecretKey: skBytes}, nil
}

func (s *Scheme) privateKey(sk pqcfips.SignSecretKey) (*mldsa65.PrivateKey, error) {
	if err := pqcfips.CheckLength("ml-dsa-65 secret key", sk, s.SecretKeySize()); err != nil {
		return nil, err
	}
	priv, err := s.scheme.UnmarshalBinaryPrivateKey(sk)
	if err != nil {
		return nil, pqcfips.NewError(pqcfips.KindInvalidKeyLength, "ml-dsa-65 secret key", err)
	}
	key, ok := priv.(*mldsa65.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("ml-dsa-65: unexpected private key type %T", priv)
	}
	return key, nil
}

// Sign produces a signature with caller-supplied 32-byte randomness. The
// randomness is validated and consumed; the signature itself uses the
// deterministic ML-DSA variant, so equal (sk, msg) pairs sign identically.
// An all-zero rnd panics with pqcfips.ErrZeroSeed.
func (s *Scheme) Sign(sk pqcfips.SignSecretKey, msg []byte, rnd []byte) (pqcfips.Signature, error) {
	if err := pqcfips.CheckLength("ml-dsa-65 sign seed", rnd, pqcfips.MLDSASignSeedSize); err != nil {
		return nil, err
	}
	pqcfips.MustNonZeroSeed(rnd)

	local := utils.Clone(rnd)
	defer utils.Zeroize(local)

	priv, err := s.privateKey(sk)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, s.SignatureSize())
	if err := mldsa65.SignTo(priv, msg, nil, false, sig); err != nil {
		return nil, fmt.Errorf("ml-dsa-65: sign: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of msg under pk.
// Malformed keys and signatures simply fail verification.
func (s *Scheme) Verify(pk pqcfips.SignPublicKey, msg []byte, sig pqcfips.Signature) bool {
	if len(pk) != s.PublicKeySize() || len(sig) != s.SignatureSize() {
		return false
	}
	pub, err := s.scheme.UnmarshalBinaryPublicKey(pk)
	if err != nil {
		return false
	}
	return s.scheme.Verify(pub, msg, sig, nil)
}

// GenerateKeyPair generates a key pair from fresh OS randomness.
// The pair is NOT consistency-tested; see GenerateKeyPairWithPCT.
func GenerateKeyPair() (*pqcfips.SignKeyPair, error) {
	seed, err := utils.SecureRandomBytes(Default.SeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return Default.KeyGen(seed)
}

// GenerateKeyPairFromSeed generates a deterministic key pair from seed.
// The pair is NOT consistency-tested.
func GenerateKeyPairFromSeed(seed []byte) (*pqcfips.SignKeyPair, error) {
	return Default.KeyGen(seed)
}

// GenerateKeyPairWithPCT generates a key pair and runs the pair-wise
// consistency test before returning it.
func GenerateKeyPairWithPCT() (*pqcfips.SignKeyPair, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := pct.Signature(Default, kp); err != nil {
		utils.Zeroize(kp.SecretKey)
		return nil, err
	}
	return kp, nil
}

// GenerateKeyPairFromSeedWithPCT is GenerateKeyPairWithPCT with explicit key
// generation and PCT signing seeds. It never reads the entropy source.
func GenerateKeyPairFromSeedWithPCT(seed, pctSeed []byte) (*pqcfips.SignKeyPair, error) {
	kp, err := Default.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	if err := pct.SignatureWithSeed(Default, kp, pctSeed); err != nil {
		utils.Zeroize(kp.SecretKey)
		return nil, err
	}
	return kp, nil
}

// Sign produces a hedged (randomized) ML-DSA-65 signature.
func Sign(sk pqcfips.SignSecretKey, msg []byte) (pqcfips.Signature, error) {
	priv, err := Default.privateKey(sk)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, Default.SignatureSize())
	if err := mldsa65.SignTo(priv, msg, nil, true, sig); err != nil {
		return nil, fmt.Errorf("ml-dsa-65: sign: %w", err)
	}
	return sig, nil
}

// SignDeterministic signs msg with explicit randomness. It never reads the
// entropy source.
func SignDeterministic(sk pqcfips.SignSecretKey, msg, rnd []byte) (pqcfips.Signature, error) {
	return Default.Sign(sk, msg, rnd)
}

// Verify reports whether sig is a valid signature of msg under pk.
func Verify(pk pqcfips.SignPublicKey, msg []byte, sig pqcfips.Signature) bool {
	return Default.Verify(pk, msg, sig)
}

// CheckSignature is Verify returning pqcfips.ErrVerificationFailure on a
// bad signature.
func CheckSignature(pk pqcfips.SignPublicKey, msg []byte, sig pqcfips.Signature) error {
	if !Default.Verify(pk, msg, sig) {
		return pqcfips.NewError(pqcfips.KindVerificationFailure, "ml-dsa-65", nil)
	}
	return nil
}
