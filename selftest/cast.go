// Package selftest holds the conditional algorithm self-tests (CAST) for the
// SHA-3 primitives and the known-answer tests (KAT) for the asymmetric
// families.
//
// Every runner is a pure function of its inputs and returns the first
// failure it meets as a pqcfips.ErrSelfTestFailure.
package selftest

import (
	"bytes"
	"encoding/hex"
	"fmt"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
)

// Algorithm names a hash or XOF primitive covered by a CAST.
type Algorithm string

const (
	SHA3_256 Algorithm = "sha3-256"
	SHA3_512 Algorithm = "sha3-512"
	SHAKE128 Algorithm = "shake128"
	SHAKE256 Algorithm = "shake256"
)

// Vector is a fixed CAST input and its expected digest.
type Vector struct {
	Algorithm Algorithm
	Input     []byte
	Expected  []byte
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Empty-message digests from FIPS 202. Order is the execution order.
var castVectors = []Vector{
	{
		Algorithm: SHA3_256,
		Input:     []byte{},
		Expected:  mustHex("a7ffc6f8bf1ed76651c14756a061d662f580ff4de43b49fa82d80a4b80f8434a"),
	},
	{
		Algorithm: SHA3_512,
		Input:     []byte{},
		Expected: mustHex("a69f73cca23a9ac5c8b567dc185a756e97c982164fe25859e0d1dcc1475c80a6" +
			"15b2123af1f5f94c11e3e9402c3ac558f500199d95b6d3e301758586281dcd26"),
	},
	{
		Algorithm: SHAKE128,
		Input:     []byte{},
		Expected:  mustHex("7f9c2ba4e88f827d616045507605853ed73b8093f6efbc88eb1a6eacfa66ef26"),
	},
	{
		Algorithm: SHAKE256,
		Input:     []byte{},
		Expected: mustHex("46b9dd2b0ba88d13233b3feb743eeb243fcd52ea62b81b82b50c27646ed5762f" +
			"d75dc4ddd8c0f200cb05019d67b592f6fc821c49479ab48640292eacb3b7c4be"),
	},
}

// CASTVectors returns a copy of the built-in vectors in execution order.
func CASTVectors() []Vector {
	out := make([]Vector, len(castVectors))
	for i, v := range castVectors {
		out[i] = Vector{
			Algorithm: v.Algorithm,
			Input:     append([]byte(nil), v.Input...),
			Expected:  append([]byte(nil), v.Expected...),
		}
	}
	return out
}

func castFailure(alg Algorithm, cause error) error {
	return pqcfips.NewError(pqcfips.KindSelfTestFailure, "cast "+string(alg), cause)
}

// RunCAST checks one vector against h.
func RunCAST(h pqcfips.Hasher, v Vector) error {
	if h == nil {
		return castFailure(v.Algorithm, fmt.Errorf("nil hasher"))
	}
	var got []byte
	switch v.Algorithm {
	case SHA3_256:
		got = h.SHA3256(v.Input)
	case SHA3_512:
		got = h.SHA3512(v.Input)
	case SHAKE128:
		got = h.Shake128(v.Input, len(v.Expected))
	case SHAKE256:
		got = h.Shake256(v.Input, len(v.Expected))
	default:
		return castFailure(v.Algorithm, fmt.Errorf("unknown algorithm"))
	}
	if !bytes.Equal(got, v.Expected) {
		return castFailure(v.Algorithm, fmt.Errorf("digest mismatch: got %x", got))
	}
	return nil
}

// RunCASTs runs every built-in vector in order and stops at the first
// mismatch.
func RunCASTs(h pqcfips.Hasher) error {
	for _, v := range castVectors {
		if err := RunCAST(h, v); err != nil {
			return err
		}
	}
	return nil
}
