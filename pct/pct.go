// Package pct implements the pair-wise consistency tests run on every freshly
// generated asymmetric key pair before it is handed to a caller.
package pct

import (
	"errors"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/utils"
)

// SignatureMessage is the domain-separated message signed by the signature PCT.
const SignatureMessage = "FIPS 140-3 Pair-wise Consistency Test"

var (
	errSharedSecretMismatch = errors.New("shared secrets differ")
	errSignatureRejected    = errors.New("signature over test message rejected")
	errNilKeyPair           = errors.New("nil key pair")
)

func failure(f pqcfips.Family, step string, cause error) error {
	return pqcfips.NewError(pqcfips.KindConsistencyFailure, string(f)+" pct: "+step, cause)
}

// KEM encapsulates to the public half with fresh randomness, decapsulates
// with the secret half and requires both shared secrets to match.
func KEM(k pqcfips.KEM, kp *pqcfips.KEMKeyPair) error {
	seed, err := utils.SecureRandomBytes(k.EncapsulationSeedSize())
	if err != nil {
		return failure(k.Family(), "randomness", err)
	}
	defer utils.Zeroize(seed)
	return KEMWithSeed(k, kp, seed)
}

// KEMWithSeed is KEM with caller-supplied encapsulation randomness.
// It never reads the entropy source.
func KEMWithSeed(k pqcfips.KEM, kp *pqcfips.KEMKeyPair, seed []byte) error {
	if kp == nil {
		return failure(k.Family(), "input", errNilKeyPair)
	}
	ct, ss, err := k.Encapsulate(kp.PublicKey, seed)
	if err != nil {
		return failure(k.Family(), "encapsulate", err)
	}
	defer utils.Zeroize(ss)

	recovered, err := k.Decapsulate(kp.SecretKey, ct)
	if err != nil {
		return failure(k.Family(), "decapsulate", err)
	}
	defer utils.Zeroize(recovered)

	if !utils.ConstantTimeEqual(ss, recovered) {
		return failure(k.Family(), "compare", errSharedSecretMismatch)
	}
	return nil
}

// Signature signs SignatureMessage with the secret half using fresh
// randomness and verifies it with the public half.
func Signature(s pqcfips.Signer, kp *pqcfips.SignKeyPair) error {
	rnd, err := utils.SecureRandomBytes(pqcfips.MLDSASignSeedSize)
	if err != nil {
		return failure(s.Family(), "randomness", err)
	}
	defer utils.Zeroize(rnd)
	return SignatureWithSeed(s, kp, rnd)
}

// SignatureWithSeed is Signature with caller-supplied signing randomness.
// It never reads the entropy source.
func SignatureWithSeed(s pqcfips.Signer, kp *pqcfips.SignKeyPair, rnd []byte) error {
	if kp == nil {
		return failure(s.Family(), "input", errNilKeyPair)
	}
	msg := []byte(SignatureMessage)
	sig, err := s.Sign(kp.SecretKey, msg, rnd)
	if err != nil {
		return failure(s.Family(), "sign", err)
	}
	if !s.Verify(kp.PublicKey, msg, sig) {
		return failure(s.Family(), "verify", errSignatureRejected)
	}
	return nil
}
