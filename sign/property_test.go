package sign

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

func FuzzSignVerify(f *testing.F) {
	f.Add(seq(32, 1), []byte("FIPS 140-3 KAT"), []byte("FIPS 140-3 KAX"))
	f.Add([]byte{0x07}, []byte{}, []byte{0x00})

	f.Fuzz(func(t *testing.T, rawSeed, msg, other []byte) {
		kp, err := GenerateKeyPairFromSeed(fit(t, rawSeed, pqcfips.MLDSAKeyGenSeedSize))
		if err != nil {
			t.Fatalf("keygen failed: %v", err)
		}
		sig, err := Sign(kp.SecretKey, msg)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		if !Verify(kp.PublicKey, msg, sig) {
			t.Fatal("signature over msg did not verify")
		}
		if !bytes.Equal(msg, other) && Verify(kp.PublicKey, other, sig) {
			t.Fatal("signature verified for a different message")
		}
	})
}

func FuzzKeyGenDeterministic(f *testing.F) {
	f.Add(seq(32, 1))
	f.Add([]byte{0x01})

	f.Fuzz(func(t *testing.T, raw []byte) {
		seed := fit(t, raw, pqcfips.MLDSAKeyGenSeedSize)
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

func FuzzDistinctSeeds(f *testing.F) {
	f.Add(seq(32, 1), seq(32, 2))

	f.Fuzz(func(t *testing.T, rawA, rawB []byte) {
		a := fit(t, rawA, pqcfips.MLDSAKeyGenSeedSize)
		b := fit(t, rawB, pqcfips.MLDSAKeyGenSeedSize)
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
