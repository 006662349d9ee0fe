package selftest

import (
	"bytes"
	"errors"
	"fmt"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/core"
	"github.com/BackendStack21/pqc-fips-go/utils"
)

// KATMessage is the message signed by the signature KAT.
const KATMessage = "FIPS 140-3 KAT"

// katTamperedMessage differs from KATMessage in its final byte.
const katTamperedMessage = "FIPS 140-3 KAX"

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// KEMKATSeed is the fixed key generation seed 0x00..0x3f.
func KEMKATSeed() []byte { return sequence(pqcfips.MLKEMKeyGenSeedSize) }

// KEMKATEncapsulationSeed is 00112233..eeff repeated to 32 bytes.
func KEMKATEncapsulationSeed() []byte {
	half := mustHex("00112233445566778899aabbccddeeff")
	return append(half, half...)
}

// SignatureKATSeed is the fixed key generation seed 0x00..0x1f.
func SignatureKATSeed() []byte { return sequence(pqcfips.MLDSAKeyGenSeedSize) }

// SignatureKATSignSeed is 32 bytes of 0x01.
func SignatureKATSignSeed() []byte { return bytes.Repeat([]byte{0x01}, pqcfips.MLDSASignSeedSize) }

func katFailure(f pqcfips.Family, check string, cause error) error {
	return pqcfips.NewError(pqcfips.KindSelfTestFailure, "kat "+string(f)+": "+check, cause)
}

func checkSize(what string, b []byte, want int) error {
	if len(b) != want {
		return fmt.Errorf("%s is %d bytes, want %d", what, len(b), want)
	}
	return nil
}

// RunKEMKAT derives a key pair from the fixed seed and checks sizes,
// non-zero keys, determinism of keys, ciphertext and shared secret, one
// round trip, and that a wrong key decapsulates to a different secret.
func RunKEMKAT(k pqcfips.KEM) error {
	params := core.MLKEM1024Params
	if k == nil {
		return katFailure(params.Family, "provider", errors.New("nil KEM provider"))
	}
	fam := k.Family()
	seed := KEMKATSeed()
	encSeed := KEMKATEncapsulationSeed()
	wrongSeed := bytes.Repeat([]byte{0xff}, pqcfips.MLKEMKeyGenSeedSize)
	defer utils.ZeroizeAll(seed, encSeed, wrongSeed)

	kp, err := k.KeyGen(seed)
	if err != nil {
		return katFailure(fam, "keygen", err)
	}
	defer utils.Zeroize(kp.SecretKey)

	if err := checkSize("public key", kp.PublicKey, params.PublicKeySize); err != nil {
		return katFailure(fam, "public key size", err)
	}
	if err := checkSize("secret key", kp.SecretKey, params.SecretKeySize); err != nil {
		return katFailure(fam, "secret key size", err)
	}
	if utils.IsAllZero(kp.PublicKey) || utils.IsAllZero(kp.SecretKey) {
		return katFailure(fam, "non-zero keys", errors.New("all-zero key material"))
	}

	again, err := k.KeyGen(seed)
	if err != nil {
		return katFailure(fam, "keygen determinism", err)
	}
	defer utils.Zeroize(again.SecretKey)
	if !bytes.Equal(kp.PublicKey, again.PublicKey) || !utils.ConstantTimeEqual(kp.SecretKey, again.SecretKey) {
		return katFailure(fam, "keygen determinism", errors.New("re-derived keys differ"))
	}

	ct, ss, err := k.Encapsulate(kp.PublicKey, encSeed)
	if err != nil {
		return katFailure(fam, "encapsulate", err)
	}
	defer utils.Zeroize(ss)
	if err := checkSize("ciphertext", ct, params.CiphertextSize); err != nil {
		return katFailure(fam, "ciphertext size", err)
	}
	if err := checkSize("shared secret", ss, params.SharedSecretSize); err != nil {
		return katFailure(fam, "shared secret size", err)
	}

	ct2, ss2, err := k.Encapsulate(kp.PublicKey, encSeed)
	if err != nil {
		return katFailure(fam, "encapsulate determinism", err)
	}
	defer utils.Zeroize(ss2)
	if !bytes.Equal(ct, ct2) || !utils.ConstantTimeEqual(ss, ss2) {
		return katFailure(fam, "encapsulate determinism", errors.New("re-encapsulation differs"))
	}

	recovered, err := k.Decapsulate(kp.SecretKey, ct)
	if err != nil {
		return katFailure(fam, "decapsulate", err)
	}
	defer utils.Zeroize(recovered)
	if !utils.ConstantTimeEqual(ss, recovered) {
		return katFailure(fam, "round trip", errors.New("shared secrets differ"))
	}

	wrong, err := k.KeyGen(wrongSeed)
	if err != nil {
		return katFailure(fam, "wrong-key keygen", err)
	}
	defer utils.Zeroize(wrong.SecretKey)
	rejected, err := k.Decapsulate(wrong.SecretKey, ct)
	if err != nil {
		return katFailure(fam, "wrong-key decapsulate", err)
	}
	defer utils.Zeroize(rejected)
	if utils.ConstantTimeEqual(ss, rejected) {
		return katFailure(fam, "wrong-key rejection", errors.New("wrong key recovered the shared secret"))
	}
	return nil
}

// RunSignatureKAT derives a key pair from the fixed seed and checks sizes,
// non-zero keys, determinism, that KATMessage signs and verifies, and that
// a tampered message and a wrong key are both rejected.
func RunSignatureKAT(s pqcfips.Signer) error {
	params := core.MLDSA65Params
	if s == nil {
		return katFailure(params.Family, "provider", errors.New("nil signature provider"))
	}
	fam := s.Family()
	seed := SignatureKATSeed()
	rnd := SignatureKATSignSeed()
	wrongSeed := bytes.Repeat([]byte{0xff}, pqcfips.MLDSAKeyGenSeedSize)
	defer utils.ZeroizeAll(seed, rnd, wrongSeed)

	kp, err := s.KeyGen(seed)
	if err != nil {
		return katFailure(fam, "keygen", err)
	}
	defer utils.Zeroize(kp.SecretKey)

	if err := checkSize("public key", kp.PublicKey, params.PublicKeySize); err != nil {
		return katFailure(fam, "public key size", err)
	}
	if err := checkSize("secret key", kp.SecretKey, params.SecretKeySize); err != nil {
		return katFailure(fam, "secret key size", err)
	}
	if utils.IsAllZero(kp.PublicKey) || utils.IsAllZero(kp.SecretKey) {
		return katFailure(fam, "non-zero keys", errors.New("all-zero key material"))
	}

	again, err := s.KeyGen(seed)
	if err != nil {
		return katFailure(fam, "keygen determinism", err)
	}
	defer utils.Zeroize(again.SecretKey)
	if !bytes.Equal(kp.PublicKey, again.PublicKey) || !utils.ConstantTimeEqual(kp.SecretKey, again.SecretKey) {
		return katFailure(fam, "keygen determinism", errors.New("re-derived keys differ"))
	}

	msg := []byte(KATMessage)
	sig, err := s.Sign(kp.SecretKey, msg, rnd)
	if err != nil {
		return katFailure(fam, "sign", err)
	}
	if err := checkSize("signature", sig, params.SignatureSize); err != nil {
		return katFailure(fam, "signature size", err)
	}
	if !s.Verify(kp.PublicKey, msg, sig) {
		return katFailure(fam, "verify", errors.New("signature rejected"))
	}
	if s.Verify(kp.PublicKey, []byte(katTamperedMessage), sig) {
		return katFailure(fam, "tampered message", errors.New("signature accepted for tampered message"))
	}

	wrong, err := s.KeyGen(wrongSeed)
	if err != nil {
		return katFailure(fam, "wrong-key keygen", err)
	}
	defer utils.Zeroize(wrong.SecretKey)
	if s.Verify(wrong.PublicKey, msg, sig) {
		return katFailure(fam, "wrong-key rejection", errors.New("signature accepted under wrong key"))
	}
	return nil
}

// RunKATs runs the KAT of every family in families, in order, stopping at
// the first failure.
func RunKATs(k pqcfips.KEM, s pqcfips.Signer, families []pqcfips.Family) error {
	for _, f := range families {
		var err error
		switch f {
		case pqcfips.FamilyMLKEM1024:
			err = RunKEMKAT(k)
		case pqcfips.FamilyMLDSA65:
			err = RunSignatureKAT(s)
		default:
			err = katFailure(f, "family", errors.New("unsupported family"))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
