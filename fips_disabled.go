//go:build !fips
// +build !fips

package pqcfips

// FIPSMode reports whether the binary was built in FIPS mode.
// When false, POST runs CASTs and PCTs only and plaintext CSP export is allowed.
func FIPSMode() bool { return false }
