package kem

import (
	"bytes"
	"errors"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/core"
	"github.com/BackendStack21/pqc-fips-go/utils"
)

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestScheme_Sizes(t *testing.T) {
	if err := core.ValidateKEM(New(), core.MLKEM1024Params); err != nil {
		t.Fatal(err)
	}
}

func TestKEM_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	res, err := Encapsulate(kp.PublicKey)
	if err != nil {
		t.Fatalf("Encapsulate failed: %v", err)
	}
	ss, err := Decapsulate(kp.SecretKey, res.Ciphertext)
	if err != nil {
		t.Fatalf("Decapsulate failed: %v", err)
	}
	if !bytes.Equal(ss, res.SharedSecret) {
		t.Error("shared secrets differ")
	}
}

func TestKEM_Deterministic(t *testing.T) {
	seed := seq(pqcfips.MLKEMKeyGenSeedSize, 0)
	kp1, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatal(err)
	}
	kp2, err := GenerateKeyPairFromSeed(seed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(kp1.PublicKey, kp2.PublicKey) || !bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Fatal("key generation is not deterministic")
	}

	enc := bytes.Repeat(seq(16, 0), 2)
	r1, err := EncapsulateDeterministic(kp1.PublicKey, enc)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := EncapsulateDeterministic(kp1.PublicKey, enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r1.Ciphertext, r2.Ciphertext) || !bytes.Equal(r1.SharedSecret, r2.SharedSecret) {
		t.Fatal("encapsulation is not deterministic")
	}
	if seed[0] != 0 || seed[63] != 63 {
		t.Error("caller seed was modified")
	}
}

func TestKEM_ImplicitRejection(t *testing.T) {
	kp, _ := GenerateKeyPairFromSeed(seq(64, 1))
	res, _ := EncapsulateDeterministic(kp.PublicKey, seq(32, 9))

	bad := append(pqcfips.KEMCiphertext(nil), res.Ciphertext...)
	bad[0] ^= 1
	ss, err := Decapsulate(kp.SecretKey, bad)
	if err != nil {
		t.Fatalf("Decapsulate failed: %v", err)
	}
	if bytes.Equal(ss, res.SharedSecret) {
		t.Error("modified ciphertext should yield a different shared secret")
	}

	other, _ := GenerateKeyPairFromSeed(bytes.Repeat([]byte{0xff}, 64))
	ss, err = Decapsulate(other.SecretKey, res.Ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ss, res.SharedSecret) {
		t.Error("wrong key should yield a different shared secret")
	}
}

func TestKEM_InvalidLengths(t *testing.T) {
	kp, _ := GenerateKeyPairFromSeed(seq(64, 1))
	res, _ := EncapsulateDeterministic(kp.PublicKey, seq(32, 1))

	cases := map[string]func() error{
		"short seed": func() error { _, err := GenerateKeyPairFromSeed(seq(63, 1)); return err },
		"long seed":  func() error { _, err := GenerateKeyPairFromSeed(seq(65, 1)); return err },
		"public key": func() error { _, err := EncapsulateDeterministic(kp.PublicKey[1:], seq(32, 1)); return err },
		"enc seed":   func() error { _, err := EncapsulateDeterministic(kp.PublicKey, seq(31, 1)); return err },
		"secret key": func() error { _, err := Decapsulate(kp.SecretKey[:100], res.Ciphertext); return err },
		"ciphertext": func() error { _, err := Decapsulate(kp.SecretKey, res.Ciphertext[:100]); return err },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, pqcfips.ErrInvalidKeyLength) {
				t.Errorf("got %v, want invalid key length", err)
			}
		})
	}
}

func TestKEM_ZeroSeedPanics(t *testing.T) {
	check := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r != pqcfips.ErrZeroSeed {
					t.Errorf("recovered %v, want ErrZeroSeed", r)
				}
			}()
			fn()
		})
	}
	check("keygen", func() { _, _ = GenerateKeyPairFromSeed(make([]byte, 64)) })

	kp, _ := GenerateKeyPairFromSeed(seq(64, 1))
	check("encapsulate", func() { _, _ = EncapsulateDeterministic(kp.PublicKey, make([]byte, 32)) })
}

func TestKEM_WithPCT(t *testing.T) {
	kp, err := GenerateKeyPairWithPCT()
	if err != nil {
		t.Fatalf("GenerateKeyPairWithPCT failed: %v", err)
	}
	if len(kp.PublicKey) != pqcfips.MLKEM1024PublicKeySize {
		t.Errorf("public key is %d bytes", len(kp.PublicKey))
	}

	kp2, err := GenerateKeyPairFromSeedWithPCT(seq(64, 3), seq(32, 5))
	if err != nil {
		t.Fatal(err)
	}
	kp3, _ := GenerateKeyPairFromSeed(seq(64, 3))
	if !bytes.Equal(kp2.PublicKey, kp3.PublicKey) {
		t.Error("PCT constructor changed the derived key")
	}
}

func TestKEM_RandError(t *testing.T) {
	orig := utils.RandReader
	utils.RandReader = errorReader{}
	defer func() { utils.RandReader = orig }()

	if _, err := GenerateKeyPair(); err == nil {
		t.Error("expected error from GenerateKeyPair")
	}
	if _, err := GenerateKeyPairWithPCT(); err == nil {
		t.Error("expected error from GenerateKeyPairWithPCT")
	}

	// Explicit-seed entry points never read the entropy source.
	if _, err := GenerateKeyPairFromSeedWithPCT(seq(64, 1), seq(32, 1)); err != nil {
		t.Errorf("seeded PCT keygen touched the entropy source: %v", err)
	}
}
