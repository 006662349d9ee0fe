// Package core provides parameter sets and validation for the approved algorithms.
package core

import (
	"errors"
	"fmt"
	"strings"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
)

// KEMParams describes the byte sizes of an ML-KEM parameter set.
type KEMParams struct {
	Family                Family
	PublicKeySize         int `json:"public_key_size"`
	SecretKeySize         int `json:"secret_key_size"`
	CiphertextSize        int `json:"ciphertext_size"`
	SharedSecretSize      int `json:"shared_secret_size"`
	SeedSize              int `json:"seed_size"`
	EncapsulationSeedSize int `json:"encapsulation_seed_size"`
	SecurityCategory      int `json:"security_category"`
}

// SignParams describes the byte sizes of an ML-DSA parameter set.
type SignParams struct {
	Family           Family
	PublicKeySize    int `json:"public_key_size"`
	SecretKeySize    int `json:"secret_key_size"`
	SignatureSize    int `json:"signature_size"`
	SeedSize         int `json:"seed_size"`
	SignSeedSize     int `json:"sign_seed_size"`
	SecurityCategory int `json:"security_category"`
}

// Family is an alias kept local so parameter tables read naturally.
type Family = pqcfips.Family

// MLKEM1024Params is the FIPS 203 ML-KEM-1024 parameter set.
var MLKEM1024Params = KEMParams{
	Family:                pqcfips.FamilyMLKEM1024,
	PublicKeySize:         pqcfips.MLKEM1024PublicKeySize,
	SecretKeySize:         pqcfips.MLKEM1024SecretKeySize,
	CiphertextSize:        pqcfips.MLKEM1024CiphertextSize,
	SharedSecretSize:      pqcfips.MLKEM1024SharedSecretSize,
	SeedSize:              pqcfips.MLKEMKeyGenSeedSize,
	EncapsulationSeedSize: pqcfips.MLKEMEncapsulationSeedSize,
	SecurityCategory:      5,
}

// MLDSA65Params is the FIPS 204 ML-DSA-65 parameter set.
var MLDSA65Params = SignParams{
	Family:           pqcfips.FamilyMLDSA65,
	PublicKeySize:    pqcfips.MLDSA65PublicKeySize,
	SecretKeySize:    pqcfips.MLDSA65SecretKeySize,
	SignatureSize:    pqcfips.MLDSA65SignatureSize,
	SeedSize:         pqcfips.MLDSAKeyGenSeedSize,
	SignSeedSize:     pqcfips.MLDSASignSeedSize,
	SecurityCategory: 3,
}

// ParseFamily maps a case-insensitive family name to a Family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(pqcfips.FamilyMLKEM1024), "mlkem1024", "kyber1024":
		return pqcfips.FamilyMLKEM1024, nil
	case string(pqcfips.FamilyMLDSA65), "mldsa65", "dilithium3":
		return pqcfips.FamilyMLDSA65, nil
	default:
		return "", fmt.Errorf("unknown algorithm family: %q", name)
	}
}

// ParseFamilies parses a list of family names, dropping duplicates.
// An empty list yields every family.
func ParseFamilies(names []string) ([]Family, error) {
	if len(names) == 0 {
		return append([]Family(nil), pqcfips.AllFamilies...), nil
	}
	seen := make(map[Family]bool, len(names))
	out := make([]Family, 0, len(names))
	for _, name := range names {
		f, err := ParseFamily(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// ValidateKEM checks that a provider reports the sizes of params.
func ValidateKEM(k pqcfips.KEM, params KEMParams) error {
	if k == nil {
		return errors.New("nil KEM provider")
	}
	checks := []struct {
		name      string
		got, want int
	}{
		{"public key", k.PublicKeySize(), params.PublicKeySize},
		{"secret key", k.SecretKeySize(), params.SecretKeySize},
		{"ciphertext", k.CiphertextSize(), params.CiphertextSize},
		{"shared secret", k.SharedSecretSize(), params.SharedSecretSize},
		{"seed", k.SeedSize(), params.SeedSize},
		{"encapsulation seed", k.EncapsulationSeedSize(), params.EncapsulationSeedSize},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%s %s size is %d, want %d", params.Family, c.name, c.got, c.want)
		}
	}
	return nil
}

// ValidateSigner checks that a provider reports the sizes of params.
func ValidateSigner(s pqcfips.Signer, params SignParams) error {
	if s == nil {
		return errors.New("nil signature provider")
	}
	checks := []struct {
		name      string
		got, want int
	}{
		{"public key", s.PublicKeySize(), params.PublicKeySize},
		{"secret key", s.SecretKeySize(), params.SecretKeySize},
		{"signature", s.SignatureSize(), params.SignatureSize},
		{"seed", s.SeedSize(), params.SeedSize},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%s %s size is %d, want %d", params.Family, c.name, c.got, c.want)
		}
	}
	return nil
}
