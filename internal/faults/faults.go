// Package faults wraps real primitive providers and injects a single,
// selectable defect so the self-test, PCT and POST failure paths can be
// exercised against otherwise correct algorithms.
package faults

import (
	"errors"
	"sync/atomic"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
)

// ErrInjected is returned by providers configured to fail outright.
var ErrInjected = errors.New("injected fault")

func flipped(b []byte) []byte {
	out := append([]byte(nil), b...)
	if len(out) > 0 {
		out[0] ^= 0x01
	}
	return out
}

// Hasher corrupts the output of one named primitive ("sha3-256",
// "sha3-512", "shake128" or "shake256").
type Hasher struct {
	pqcfips.Hasher
	Corrupt string
}

func (h Hasher) pick(name string, out []byte) []byte {
	if h.Corrupt == name {
		return flipped(out)
	}
	return out
}

func (h Hasher) SHA3256(in []byte) []byte { return h.pick("sha3-256", h.Hasher.SHA3256(in)) }
func (h Hasher) SHA3512(in []byte) []byte { return h.pick("sha3-512", h.Hasher.SHA3512(in)) }
func (h Hasher) Shake128(in []byte, n int) []byte {
	return h.pick("shake128", h.Hasher.Shake128(in, n))
}
func (h Hasher) Shake256(in []byte, n int) []byte {
	return h.pick("shake256", h.Hasher.Shake256(in, n))
}

// KEMFault selects the defect injected by KEM.
type KEMFault int

const (
	KEMOK KEMFault = iota
	// KEMShortPublicKey truncates every generated public key.
	KEMShortPublicKey
	// KEMZeroSecretKey returns an all-zero secret key of the right size.
	KEMZeroSecretKey
	// KEMUnstableKeyGen corrupts every keygen after the first.
	KEMUnstableKeyGen
	// KEMUnstableEncapsulate corrupts every encapsulation after the first.
	KEMUnstableEncapsulate
	// KEMSharedSecretMismatch corrupts every decapsulated secret.
	KEMSharedSecretMismatch
	// KEMIgnoresSecretKey decapsulates with the first secret key it saw.
	KEMIgnoresSecretKey
	// KEMFailEncapsulate returns ErrInjected from Encapsulate.
	KEMFailEncapsulate
)

// KEM wraps a real KEM provider with one fault.
type KEM struct {
	pqcfips.KEM
	Fault KEMFault

	keygens atomic.Int32
	encaps  atomic.Int32
	pinned  pqcfips.KEMSecretKey
}

func (k *KEM) KeyGen(seed []byte) (*pqcfips.KEMKeyPair, error) {
	kp, err := k.KEM.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	switch k.Fault {
	case KEMShortPublicKey:
		kp.PublicKey = kp.PublicKey[:len(kp.PublicKey)-1]
	case KEMZeroSecretKey:
		kp.SecretKey = make(pqcfips.KEMSecretKey, len(kp.SecretKey))
	case KEMUnstableKeyGen:
		if k.keygens.Add(1) > 1 {
			kp.PublicKey = flipped(kp.PublicKey)
		}
	}
	return kp, nil
}

func (k *KEM) Encapsulate(pk pqcfips.KEMPublicKey, seed []byte) (pqcfips.KEMCiphertext, pqcfips.SharedSecret, error) {
	if k.Fault == KEMFailEncapsulate {
		return nil, nil, ErrInjected
	}
	ct, ss, err := k.KEM.Encapsulate(pk, seed)
	if err != nil {
		return nil, nil, err
	}
	if k.Fault == KEMUnstableEncapsulate && k.encaps.Add(1) > 1 {
		ct = flipped(ct)
	}
	return ct, ss, nil
}

func (k *KEM) Decapsulate(sk pqcfips.KEMSecretKey, ct pqcfips.KEMCiphertext) (pqcfips.SharedSecret, error) {
	if k.Fault == KEMIgnoresSecretKey {
		if k.pinned == nil {
			k.pinned = append(pqcfips.KEMSecretKey(nil), sk...)
		}
		sk = k.pinned
	}
	ss, err := k.KEM.Decapsulate(sk, ct)
	if err != nil {
		return nil, err
	}
	if k.Fault == KEMSharedSecretMismatch {
		return flipped(ss), nil
	}
	return ss, nil
}

// SignerFault selects the defect injected by Signer.
type SignerFault int

const (
	SignerOK SignerFault = iota
	// SignerShortSecretKey truncates every generated secret key.
	SignerShortSecretKey
	// SignerZeroPublicKey returns an all-zero public key of the right size.
	SignerZeroPublicKey
	// SignerUnstableKeyGen corrupts every keygen after the first.
	SignerUnstableKeyGen
	// SignerShortSignature truncates every signature.
	SignerShortSignature
	// SignerRejectAll makes Verify always fail.
	SignerRejectAll
	// SignerAcceptAll makes Verify always succeed.
	SignerAcceptAll
	// SignerFailSign returns ErrInjected from Sign.
	SignerFailSign
)

// Signer wraps a real signature provider with one fault.
type Signer struct {
	pqcfips.Signer
	Fault SignerFault

	keygens atomic.Int32
}

func (s *Signer) KeyGen(seed []byte) (*pqcfips.SignKeyPair, error) {
	kp, err := s.Signer.KeyGen(seed)
	if err != nil {
		return nil, err
	}
	switch s.Fault {
	case SignerShortSecretKey:
		kp.SecretKey = kp.SecretKey[:len(kp.SecretKey)-1]
	case SignerZeroPublicKey:
		kp.PublicKey = make(pqcfips.SignPublicKey, len(kp.PublicKey))
	case SignerUnstableKeyGen:
		if s.keygens.Add(1) > 1 {
			kp.SecretKey = flipped(kp.SecretKey)
		}
	}
	return kp, nil
}

func (s *Signer) Sign(sk pqcfips.SignSecretKey, msg, rnd []byte) (pqcfips.Signature, error) {
	if s.Fault == SignerFailSign {
		return nil, ErrInjected
	}
	sig, err := s.Signer.Sign(sk, msg, rnd)
	if err != nil {
		return nil, err
	}
	if s.Fault == SignerShortSignature {
		sig = sig[:len(sig)-1]
	}
	return sig, nil
}

func (s *Signer) Verify(pk pqcfips.SignPublicKey, msg []byte, sig pqcfips.Signature) bool {
	switch s.Fault {
	case SignerRejectAll:
		return false
	case SignerAcceptAll:
		return true
	}
	return s.Signer.Verify(pk, msg, sig)
}
