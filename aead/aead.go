// Package aead provides the symmetric authenticated ciphers used for the
// KEM+DEM envelope and the module's seal/open services.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strings"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm identifies an AEAD construction.
type Algorithm string

const (
	// AES256GCM is AES-256 in Galois/Counter mode (SP 800-38D).
	AES256GCM Algorithm = "aes-256-gcm"
	// ChaCha20Poly1305 is RFC 8439 ChaCha20-Poly1305. It is not an approved
	// algorithm and is refused in strict mode.
	ChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

const (
	KeySize   = pqcfips.AESKeySize
	NonceSize = pqcfips.AESNonceSize
	TagSize   = 16
)

// ParseAlgorithm accepts the canonical names and a few common spellings.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "aes-256-gcm", "aes256gcm", "aes-gcm", "":
		return AES256GCM, nil
	case "chacha20-poly1305", "chacha20poly1305", "chacha":
		return ChaCha20Poly1305, nil
	}
	return "", fmt.Errorf("aead: unknown algorithm %q", name)
}

// Approved reports whether alg may be used. In strict mode only AES-256-GCM
// is permitted.
func Approved(alg Algorithm, strict bool) bool {
	switch alg {
	case AES256GCM:
		return true
	case ChaCha20Poly1305:
		return !strict
	}
	return false
}

func failure(alg Algorithm, op string, cause error) error {
	return pqcfips.NewError(pqcfips.KindAEADOperationFailed, string(alg)+" "+op, cause)
}

func newAEAD(alg Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(key), KeySize)
	}
	switch alg {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	}
	return nil, fmt.Errorf("unknown algorithm %q", alg)
}

// Seal encrypts and authenticates plaintext. The result is ciphertext||tag.
// The nonce must never be reused with the same key.
func Seal(alg Algorithm, key, nonce, plaintext, aad []byte) ([]byte, error) {
	c, err := newAEAD(alg, key)
	if err != nil {
		return nil, failure(alg, "seal", err)
	}
	if len(nonce) != c.NonceSize() {
		return nil, failure(alg, "seal", fmt.Errorf("nonce is %d bytes, want %d", len(nonce), c.NonceSize()))
	}
	return c.Seal(nil, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext produced by Seal. Any tampering
// with the key, nonce, ciphertext or aad yields an AEAD failure.
func Open(alg Algorithm, key, nonce, ciphertext, aad []byte) ([]byte, error) {
	c, err := newAEAD(alg, key)
	if err != nil {
		return nil, failure(alg, "open", err)
	}
	if len(nonce) != c.NonceSize() {
		return nil, failure(alg, "open", fmt.Errorf("nonce is %d bytes, want %d", len(nonce), c.NonceSize()))
	}
	if len(ciphertext) < c.Overhead() {
		return nil, failure(alg, "open", fmt.Errorf("ciphertext shorter than tag"))
	}
	pt, err := c.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, failure(alg, "open", err)
	}
	return pt, nil
}

// EncryptAES256GCM is Seal with AES-256-GCM.
func EncryptAES256GCM(key, nonce, plaintext, aad []byte) ([]byte, error) {
	return Seal(AES256GCM, key, nonce, plaintext, aad)
}

// DecryptAES256GCM is Open with AES-256-GCM.
func DecryptAES256GCM(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	return Open(AES256GCM, key, nonce, ciphertext, aad)
}
