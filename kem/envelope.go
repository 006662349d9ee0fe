package kem

import (
	"fmt"
	"io"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/aead"
	"github.com/BackendStack21/pqc-fips-go/utils"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// Domain separation labels for the envelope key schedule.
const (
	DomainEnvelopeKey   = "pqc-fips-go/v1/envelope/key"
	DomainEnvelopeNonce = "pqc-fips-go/v1/envelope/nonce"
)

// deriveEnvelopeKeys expands the shared secret into an AES-256 key and a
// 96-bit nonce, salted with the KEM ciphertext.
func deriveEnvelopeKeys(ss pqcfips.SharedSecret, ct pqcfips.KEMCiphertext) (key, nonce []byte, err error) {
	key = make([]byte, aead.KeySize)
	if _, err = io.ReadFull(hkdf.New(sha3.New256, ss, ct, []byte(DomainEnvelopeKey)), key); err != nil {
		return nil, nil, fmt.Errorf("derive envelope key: %w", err)
	}
	nonce = make([]byte, aead.NonceSize)
	if _, err = io.ReadFull(hkdf.New(sha3.New256, ss, ct, []byte(DomainEnvelopeNonce)), nonce); err != nil {
		utils.Zeroize(key)
		return nil, nil, fmt.Errorf("derive envelope nonce: %w", err)
	}
	return key, nonce, nil
}

// Encrypt seals plaintext to pk with ML-KEM-1024 and AES-256-GCM.
func Encrypt(pk pqcfips.KEMPublicKey, plaintext []byte) (*pqcfips.EncryptedMessage, error) {
	seed, err := utils.SecureRandomBytes(Default.EncapsulationSeedSize())
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(seed)
	return EncryptDeterministic(pk, plaintext, seed)
}

// EncryptDeterministic is Encrypt with an explicit encapsulation seed. Each
// seed yields a fresh shared secret, so the derived nonce is never reused
// unless the seed is.
func EncryptDeterministic(pk pqcfips.KEMPublicKey, plaintext, seed []byte) (*pqcfips.EncryptedMessage, error) {
	return EncryptWith(Default, pk, plaintext, seed)
}

// EncryptWith seals plaintext to pk through the KEM provider k.
func EncryptWith(k pqcfips.KEM, pk pqcfips.KEMPublicKey, plaintext, seed []byte) (*pqcfips.EncryptedMessage, error) {
	ct, ss, err := k.Encapsulate(pk, seed)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(ss)

	key, nonce, err := deriveEnvelopeKeys(ss, ct)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(key)

	sealed, err := aead.EncryptAES256GCM(key, nonce, plaintext, ct)
	if err != nil {
		return nil, err
	}
	return &pqcfips.EncryptedMessage{Ciphertext: ct, Nonce: nonce, Encrypted: sealed}, nil
}

// Decrypt opens an envelope produced by Encrypt.
func Decrypt(sk pqcfips.KEMSecretKey, msg *pqcfips.EncryptedMessage) ([]byte, error) {
	return DecryptWith(Default, sk, msg)
}

// DecryptWith opens an envelope through the KEM provider k.
func DecryptWith(k pqcfips.KEM, sk pqcfips.KEMSecretKey, msg *pqcfips.EncryptedMessage) ([]byte, error) {
	if msg == nil {
		return nil, pqcfips.NewError(pqcfips.KindAEADOperationFailed, "envelope", fmt.Errorf("nil message"))
	}
	if err := pqcfips.CheckLength("envelope nonce", msg.Nonce, aead.NonceSize); err != nil {
		return nil, err
	}
	ss, err := k.Decapsulate(sk, msg.Ciphertext)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(ss)

	key, nonce, err := deriveEnvelopeKeys(ss, msg.Ciphertext)
	if err != nil {
		return nil, err
	}
	defer utils.Zeroize(key)

	if !utils.ConstantTimeEqual(nonce, msg.Nonce) {
		return nil, pqcfips.NewError(pqcfips.KindAEADOperationFailed, "envelope nonce", fmt.Errorf("nonce does not match key schedule"))
	}
	return aead.DecryptAES256GCM(key, nonce, msg.Encrypted, msg.Ciphertext)
}
