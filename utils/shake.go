package utils

import (
	"sync"

	"golang.org/x/crypto/sha3"
)

var shake256Pool = sync.Pool{
	New: func() interface{} {
		return sha3.NewShake256()
	},
}

var shake128Pool = sync.Pool{
	New: func() interface{} {
		return sha3.NewShake128()
	},
}

// Shake256 computes the SHAKE256 extendable output function (XOF).
// It takes an input byte slice and generates an output of the specified length.
func Shake256(input []byte, outputLen int) []byte {
	h := shake256Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake256Pool.Put(h)
	}()

	h.Write(input)
	output := make([]byte, outputLen)
	_, _ = h.Read(output)
	return output
}

// Shake128 computes the SHAKE128 extendable output function (XOF).
func Shake128(input []byte, outputLen int) []byte {
	h := shake128Pool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shake128Pool.Put(h)
	}()

	h.Write(input)
	output := make([]byte, outputLen)
	_, _ = h.Read(output)
	return output
}

// SHA3256 computes the SHA3-256 cryptographic hash of the input.
// It returns a 32-byte hash.
func SHA3256(input []byte) []byte {
	h := sha3.New256()
	h.Write(input)
	return h.Sum(nil)
}

// SHA3512 computes the SHA3-512 cryptographic hash of the input.
// It returns a 64-byte hash.
func SHA3512(input []byte) []byte {
	h := sha3.New512()
	h.Write(input)
	return h.Sum(nil)
}

// SHA3 is the Hasher backed by golang.org/x/crypto/sha3.
type SHA3 struct{}

func (SHA3) SHA3256(input []byte) []byte                 { return SHA3256(input) }
func (SHA3) SHA3512(input []byte) []byte                 { return SHA3512(input) }
func (SHA3) Shake128(input []byte, outputLen int) []byte { return Shake128(input, outputLen) }
func (SHA3) Shake256(input []byte, outputLen int) []byte { return Shake256(input, outputLen) }
