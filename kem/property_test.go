package kem

import (
	"bytes"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/utils"
)

// fit copies b into an n-byte seed, skipping inputs that give an all-zero seed.
func fit(t *testing.T, b []byte, n int) []byte {
	t.Helper()
	out := make([]byte, n)
	copy(out, b)
	if utils.IsAllZero(out) {
		t.Skip("all-zero seed")
	}
	return out
}

func FuzzKeyGenDeterministic(f *testing.F) {
	f.Add(seq(64, 1))
	f.Add([]byte{0x01})
	f.Add(bytes.Repeat([]byte{0xff}, 64))

	f.Fuzz(func(t *testing.T, raw []byte) {
		seed := fit(t, raw, pqcfips.MLKEMKeyGenSeedSize)
		kp1, err := GenerateKeyPairFromSeed(seed)
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		kp2, err := GenerateKeyPairFromSeed(seed)
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		if !bytes.Equal(kp1.PublicKey, kp2.PublicKey) || !bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
			t.Fatal("same seed produced different key pairs")
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add(seq(64, 1), seq(32, 2))
	f.Add([]byte{0x01}, []byte{0x02})

	f.Fuzz(func(t *testing.T, rawSeed, rawEnc []byte) {
		kp, err := GenerateKeyPairFromSeed(fit(t, rawSeed, pqcfips.MLKEMKeyGenSeedSize))
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		res, err := EncapsulateDeterministic(kp.PublicKey, fit(t, rawEnc, pqcfips.MLKEMEncapsulationSeedSize))
		if err != nil {
			t.Fatalf("encapsulate failed: %v", err)
		}
		ss, err := Decapsulate(kp.SecretKey, res.Ciphertext)
		if err != nil {
			t.Fatalf("decapsulate failed: %v", err)
		}
		if !bytes.Equal(ss, res.SharedSecret) {
			t.Fatal("decapsulated secret differs from encapsulated secret")
		}
	})
}

func FuzzDistinctSeeds(f *testing.F) {
	f.Add(seq(64, 1), seq(64, 2))
	f.Add([]byte{0x01}, []byte{0x02})

	f.Fuzz(func(t *testing.T, rawA, rawB []byte) {
		a := fit(t, rawA, pqcfips.MLKEMKeyGenSeedSize)
		b := fit(t, rawB, pqcfips.MLKEMKeyGenSeedSize)
		if bytes.Equal(a, b) {
			t.Skip("identical seeds")
		}
		kpA, err := GenerateKeyPairFromSeed(a)
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		kpB, err := GenerateKeyPairFromSeed(b)
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		if bytes.Equal(kpA.PublicKey, kpB.PublicKey) || bytes.Equal(kpA.SecretKey, kpB.SecretKey) {
			t.Fatal("distinct seeds produced equal keys")
		}
	})
}
