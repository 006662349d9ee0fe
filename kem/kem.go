// Package kem binds ML-KEM-1024 (FIPS 203) from cloudflare/circl to the
// module's KEM capability and adds PCT-validating constructors and a
// KEM+DEM envelope.
package kem

import (
	"fmt"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/pct"
	"github.com/BackendStack21/pqc-fips-go/utils"
	circlkem "github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"
)

// Scheme is the ML-KEM-1024 provider. It is stateless and safe for
// concurrent use.
type Scheme struct {
	scheme circlkem.Scheme
}

// New returns the ML-KEM-1024 provider.
func New() *Scheme {
	return &Scheme{scheme: mlkem1024.Scheme()}
}

// Default is the provider used by the package-level functions.
var Default = New()

var _ pqcfips.KEM = (*Scheme)(nil)

func (s *Scheme) Family() pqcfips.Family     { return pqcfips.FamilyMLKEM1024 }
func (s *Scheme) PublicKeySize() int         { return s.scheme.PublicKeySize() }
func (s *Scheme) SecretKeySize() int         { return s.scheme.PrivateKeySize() }
func (s *Scheme) CiphertextSize() int        { return s.scheme.CiphertextSize() }
func (s *Scheme) SharedSecretSize() int      { return s.scheme.SharedKeySize() }
func (s *Scheme) SeedSize() int              { return s.scheme.SeedSize() }
func (s *Scheme) EncapsulationSeedSize() int { return s.scheme.EncapsulationSeedSize() }

// KeyGen derives a key pair from a 64-byte seed. An all-zero seed panics
// with pqcfips.ErrZeroSeed.
func (s *Scheme) KeyGen(seed []byte) (*pqcfips.KEMKeyPair, error) {
	if err := pqcfips.CheckLength("ml-kem-1024 keygen seed", seed, s.SeedSize()); err != nil {
		return nil, err
	}
	pqcfips.MustNonZeroSeed(seed)

	local := utils.Clone(seed)
	defer utils.Zeroize(local)

	pk, sk := s.scheme.DeriveKeyPair(local)
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ml-kem-1024: pack public key: %w", err)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("ml-kem-1024: pack secret key: %w", err)
	}
	return &pqcfips.KEMKeyPair{PublicKey: pkBytes, SecretKey: skBytes}, nil
}

// Encapsulate derives a ciphertext and shared secret from pk and a 32-byte
// seed. An all-zero seed panics with pqcfips.ErrZeroSeed.
func (s *Scheme) Encapsulate(pk pqcfips.KEMPublicKey, seed []byte) (pqcfips.KEMCiphertext, pqcfips.SharedSecret, error) {
	if err := pqcfips.CheckLength("ml-kem-1024 public key", pk, s.PublicKeySize()); err != nil {
		return nil, nil, err
	}
	if err := pqcfips.CheckLength("ml-kem-1024 encapsulation seed", seed, s.EncapsulationSeedSize()); err != nil {
		return nil, nil, err
	}
	pqcfips.MustNonZeroSeed(seed)

	local := utils.Clone(seed)
	defer utils.Zeroize(local)

	pub, err := s.scheme.UnmarshalBinaryPublicKey(pk)
	if err != nil {
		return nil, nil, pqcfips.NewError(pqcfips.KindInvalidKeyLength, "ml-kem-1024 public key", err)
	}
	ct, ss, err := s.scheme.EncapsulateDeterministically(pub, local)
	if err != nil {
		return nil, nil, fmt.Errorf("ml-kem-1024: encapsulate: %w", err)
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret. A ciphertext that was not produced
// for sk yields a different secret, not an error (implicit rejection).
func (s *Scheme) Decapsulate(sk pqcfips.KEMSecretKey, ct pqcfips.KEMCiphertext) (pqcfips.SharedSecret, error) {
	if err := pqcfips.CheckLength("ml-kem-1024 secret key", sk, s.SecretKeySize()); err != nil {
		return nil, err
	}
	if err := pqcfips.CheckLength("ml-kem-1024 ciphertext", ct, s.CiphertextSize()); err != nil {
		return nil, err
	}
	priv, err := s.scheme.UnmarshalBinaryPrivateKey(sk)
	if err != nil {
		return nil, pqcfips.NewError(pqcfips.KindDecapsulationFailure, "ml-kem-1024 secret key", err)
	}
	ss, err := s.scheme.Decapsulate(priv, ct)
	if err != nil {
		return nil, pqcfips.NewError(pqcfips.KindDecapsulationFailure, "ml-kem-1024", err)
	}
	return ss, nil
}

// GenerateKeyPair generates a key pair from fresh OS randomness.
// The pair is NOT consistency-tested; see GenerateKeyPairWithPCT.
func GenerateKeyPair() (*pqcfips.KEMKeyPair, error) {
	seed, err := utils.SecureRandomBytes(Default.SeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return Default.KeyGen(seed)
}

// GenerateKeyPairFromSeed generates a deterministic key pair from seed.
// The pair is NOT consistency-tested.
func GenerateKeyPairFromSeed(seed []byte) (*pqcfips.KEMKeyPair, error) {
	return Default.KeyGen(seed)
}

// GenerateKeyPairWithPCT generates a key pair and runs the pair-wise
// consistency test before returning it.
func GenerateKeyPairWithPCT() (*pqcfips.KEMKeyPair, error) {
	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := pct.KEM(Default, kp); err != nil {
		utils.Zeroize(kp.SecretKey)
		return nil, err
	}
	return kp, nil
}

// GenerateKeyPairFromSeedWithPCT is GenerateKeyPairWithPCT with explicit key
// generation and PCT encapsulation seeds. It never reads the entropy source.
func GenerateKeyPairFromSeedWithPCT(seed, pctSeed []byte) (*pqcfips.KEMKeyPair, error) {
	kp, err := Default.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	if err := pct.KEMWithSeed(Default, kp, pctSeed); err != nil {
		utils.Zeroize(kp.SecretKey)
		return nil, err
	}
	return kp, nil
}

// Encapsulate generates a shared secret and ciphertext with fresh randomness.
func Encapsulate(pk pqcfips.KEMPublicKey) (*pqcfips.EncapsulationResult, error) {
	seed, err := utils.SecureRandomBytes(Default.EncapsulationSeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return EncapsulateDeterministic(pk, seed)
}

// EncapsulateDeterministic performs deterministic encapsulation.
func EncapsulateDeterministic(pk pqcfips.KEMPublicKey, seed []byte) (*pqcfips.EncapsulationResult, error) {
	ct, ss, err := Default.Encapsulate(pk, seed)
	if err != nil {
		return nil, err
	}
	return &pqcfips.EncapsulationResult{SharedSecret: ss, Ciphertext: ct}, nil
}

// Decapsulate recovers the shared secret from a ciphertext.
func Decapsulate(sk pqcfips.KEMSecretKey, ct pqcfips.KEMCiphertext) (pqcfips.SharedSecret, error) {
	return Default.Decapsulate(sk, ct)
}
