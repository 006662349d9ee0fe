//go:build fips
// +build fips

package pqcfips

// FIPSMode reports whether the binary was built in FIPS mode.
// When true, known-answer tests run during POST and plaintext CSP export is blocked.
func FIPSMode() bool { return true }
