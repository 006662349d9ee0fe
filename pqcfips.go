// Package pqcfips is a FIPS 140-3 style compliance layer in front of the
// ML-KEM-1024 and ML-DSA-65 post-quantum primitives and the AES-256-GCM AEAD.
// No operation that relies on secret material is trusted until the module has
// passed its pre-operational self-tests.
package pqcfips

// Version of the pqc-fips Go implementation.
const Version = "0.1.0"

// API summary:
//
// Module lifecycle:
//   - fips.New(opts...) - Compose a module instance (state, POST, CSP gate)
//   - Module.SelfTest() - Run the pre-operational self-tests
//   - Module.SelfTestWithSeeds(seeds) - Same, without touching the OS entropy source
//   - Module.SelfTestReport(seeds) - Same, returning a per-step report
//   - Module.SelfTestOrExit() - Terminate the process if POST fails
//   - Module.State() / Module.CheckOperational() / Module.Reset()
//
// Self-tests:
//   - selftest.RunCASTs(h) - Hash and XOF known-output checks
//   - selftest.RunKEMKAT(k) / selftest.RunSignatureKAT(s) - Known-answer tests
//   - pct.KEM(k, kp) / pct.Signature(s, kp) - Pair-wise consistency tests
//
// Key Encapsulation (ML-KEM-1024):
//   - kem.GenerateKeyPairWithPCT() - Fresh key pair, PCT validated
//   - kem.Encapsulate(pk) / kem.Decapsulate(sk, ct)
//   - kem.Encrypt(pk, plaintext) / kem.Decrypt(sk, msg)
//   - Module.Encrypt(pk, plaintext) / Module.Decrypt(sk, msg) - Same, gated on state
//
// Digital Signatures (ML-DSA-65):
//   - sign.GenerateKeyPairWithPCT() - Fresh key pair, PCT validated
//   - sign.Sign(sk, message) / sign.Verify(pk, message, sig)
//
// CSP export:
//   - csp.NewGate(machine).GuardExport(secret)
//   - Gate.CheckExportAllowed() - Policy-only check
