package kem

import (
	"bytes"
	"errors"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("test message")

	enc, err := Encrypt(kp.PublicKey, msg)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	dec, err := Decrypt(kp.SecretKey, enc)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(msg, dec) {
		t.Error("decrypted message does not match")
	}

	enc.Encrypted[0] ^= 1
	if _, err := Decrypt(kp.SecretKey, enc); !errors.Is(err, pqcfips.ErrAEADOperationFailed) {
		t.Errorf("tampered payload: got %v", err)
	}
}

func TestEnvelope_Deterministic(t *testing.T) {
	kp, _ := GenerateKeyPairFromSeed(seq(64, 1))
	a, err := EncryptDeterministic(kp.PublicKey, []byte("x"), seq(32, 7))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := EncryptDeterministic(kp.PublicKey, []byte("x"), seq(32, 7))
	if !bytes.Equal(a.Encrypted, b.Encrypted) || !bytes.Equal(a.Nonce, b.Nonce) {
		t.Error("deterministic envelope differs")
	}
}

func TestEnvelope_Tampering(t *testing.T) {
	kp, _ := GenerateKeyPairFromSeed(seq(64, 1))
	enc, _ := EncryptDeterministic(kp.PublicKey, []byte("payload"), seq(32, 2))

	badNonce := *enc
	badNonce.Nonce = append([]byte(nil), enc.Nonce...)
	badNonce.Nonce[0] ^= 1
	if _, err := Decrypt(kp.SecretKey, &badNonce); !errors.Is(err, pqcfips.ErrAEADOperationFailed) {
		t.Errorf("bad nonce: got %v", err)
	}

	badCT := *enc
	badCT.Ciphertext = append(pqcfips.KEMCiphertext(nil), enc.Ciphertext...)
	badCT.Ciphertext[10] ^= 1
	if _, err := Decrypt(kp.SecretKey, &badCT); err == nil {
		t.Error("modified KEM ciphertext should fail")
	}

	if _, err := Decrypt(kp.SecretKey, nil); !errors.Is(err, pqcfips.ErrAEADOperationFailed) {
		t.Errorf("nil message: got %v", err)
	}
}
