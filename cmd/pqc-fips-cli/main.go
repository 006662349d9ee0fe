// Package main provides the pqc-fips-cli command line interface for the
// FIPS 140-3 module: self-tests, ML-KEM-1024, ML-DSA-65 and AEAD services.
package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/aead"
	"github.com/BackendStack21/pqc-fips-go/config"
	"github.com/BackendStack21/pqc-fips-go/fips"
	"github.com/BackendStack21/pqc-fips-go/kem"
	"github.com/BackendStack21/pqc-fips-go/selftest"
	"github.com/BackendStack21/pqc-fips-go/sign"
	"github.com/BackendStack21/pqc-fips-go/utils"
)

const (
	version = "0.1.0"
	appName = "pqc-fips-cli"
)

// OutputFormat represents the encoding of binary fields.
type OutputFormat string

const (
	FormatHex    OutputFormat = "hex"
	FormatBase64 OutputFormat = "base64"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	ConfigFile   string
	Strict       bool
	OutputFormat OutputFormat
	OutputFile   string
	Verbose      bool
	Timing       bool
}

// KEMKeyPairExport represents an exported KEM key pair
type KEMKeyPairExport struct {
	Family    string `json:"family"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SignKeyPairExport represents an exported signature key pair
type SignKeyPairExport struct {
	Family    string `json:"family"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key,omitempty"`
	CreatedAt string `json:"created_at"`
}

// EncapsulationExport represents an exported encapsulation result
type EncapsulationExport struct {
	Ciphertext   string `json:"ciphertext"`
	SharedSecret string `json:"shared_secret,omitempty"`
}

// SignatureExport represents an exported signature
type SignatureExport struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// EncryptedExport represents a KEM+DEM envelope
type EncryptedExport struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Encrypted  string `json:"encrypted"`
}

// SealedExport represents an AEAD output
type SealedExport struct {
	Algorithm  string `json:"algorithm"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("pqc-fips library version %s (fips build: %t)\n", pqcfips.Version, pqcfips.FIPSMode())
	case "post":
		handlePOST(os.Args[2:])
	case "selftest":
		handleSelfTest(os.Args[2:])
	case "kem":
		handleKEM(os.Args[2:])
	case "sign":
		handleSign(os.Args[2:])
	case "aead":
		handleAEAD(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - FIPS 140-3 post-quantum module CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    post        Run the pre-operational self-test and print its report
    selftest    Run the CASTs or KATs only
    kem         ML-KEM-1024 operations
    sign        ML-DSA-65 operations
    aead        AES-256-GCM / ChaCha20-Poly1305 operations
    version     Show version information
    help        Show this help message

GLOBAL OPTIONS:
    --config <file>         Load settings from a .toml, .yaml or .json file
    --strict                Force strict policy (KATs, AES-256-GCM only)
    --format, -f <fmt>      Binary encoding: hex or base64 (default base64)
    --output, -o <file>     Write output to file (mode 0600)
    --verbose               Log module activity to stderr
    --timing, -t            Print operation timing to stderr

EXAMPLES:
    %s post --strict
    %s kem keygen --output keypair.json
    %s kem encrypt --public-key keypair.json --message "Hello"
    %s sign sign --secret-key keypair.json --message "Hello"
`, appName, appName, appName, appName, appName, appName)
}

// =============================================================================
// Module setup
// =============================================================================

func parseConfig(args []string) CLIConfig {
	cfg := CLIConfig{OutputFormat: FormatBase64}

	format := getArg(args, "--format", "-f")
	switch format {
	case "hex":
		cfg.OutputFormat = FormatHex
	case "base64", "":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s'. Must be one of: hex, base64\n", format)
		os.Exit(1)
	}

	cfg.ConfigFile = getArg(args, "--config", "")
	cfg.Strict = hasFlag(args, "--strict", "")
	cfg.OutputFile = getArg(args, "--output", "-o")
	cfg.Verbose = hasFlag(args, "--verbose", "")
	cfg.Timing = hasFlag(args, "--timing", "-t")
	return cfg
}

func loadModuleConfig(cli CLIConfig) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if cli.ConfigFile != "" {
		cfg, err = config.Load(cli.ConfigFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cli.Strict {
		cfg.Strict = true
	}
	return cfg
}

func newModule(cli CLIConfig) *fips.Module {
	cfg := loadModuleConfig(cli)
	if !cli.Verbose {
		cfg.Log.Level = "error"
	}
	m, err := fips.New(fips.WithConfig(cfg), fips.WithLogger(cfg.NewLogger(os.Stderr)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating module: %v\n", err)
		os.Exit(1)
	}
	return m
}

// operationalModule builds a module and runs POST, terminating on failure.
func operationalModule(cli CLIConfig) *fips.Module {
	m := newModule(cli)
	start := time.Now()
	m.SelfTestOrExit()
	if cli.Timing {
		fmt.Fprintf(os.Stderr, "POST took: %v\n", time.Since(start))
	}
	return m
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}

// =============================================================================
// POST and self-tests
// =============================================================================

func handlePOST(args []string) {
	if hasFlag(args, "--help", "-h") {
		fmt.Printf("USAGE: %s post [--config file] [--strict] [--output file]\n", appName)
		return
	}
	cli := parseConfig(args)
	m := newModule(cli)
	report := m.SelfTestReport(nil)

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fail("marshaling report", err)
	}
	writeOutput(output, cli.OutputFile)
	if !report.Passed() {
		os.Exit(1)
	}
}

func handleSelfTest(args []string) {
	if len(args) < 1 || args[0] == "help" || args[0] == "--help" {
		fmt.Printf("USAGE: %s selftest <cast|kat|all>\n", appName)
		if len(args) < 1 {
			os.Exit(1)
		}
		return
	}

	var err error
	switch args[0] {
	case "cast":
		err = selftest.RunCASTs(utils.SHA3{})
	case "kat":
		err = selftest.RunKATs(kem.New(), sign.New(), pqcfips.AllFamilies)
	case "all":
		if err = selftest.RunCASTs(utils.SHA3{}); err == nil {
			err = selftest.RunKATs(kem.New(), sign.New(), pqcfips.AllFamilies)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown selftest subcommand: %s\n", args[0])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: PASS\n", args[0])
}

// =============================================================================
// KEM
// =============================================================================

func handleKEM(args []string) {
	if len(args) < 1 {
		printKEMUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	switch subcommand {
	case "keygen":
		kemKeygen(args[1:])
	case "encapsulate", "encap":
		kemEncapsulate(args[1:])
	case "decapsulate", "decap":
		kemDecapsulate(args[1:])
	case "encrypt", "enc":
		kemEncrypt(args[1:])
	case "decrypt", "dec":
		kemDecrypt(args[1:])
	case "help", "--help", "-h":
		printKEMUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown KEM subcommand: %s\n", subcommand)
		printKEMUsage()
		os.Exit(1)
	}
}

func printKEMUsage() {
	fmt.Printf(`USAGE:
    %s kem <SUBCOMMAND> [OPTIONS]

SUBCOMMANDS:
    keygen        Generate a PCT-validated ML-KEM-1024 key pair
    encapsulate   Encapsulate to --public-key
    decapsulate   Decapsulate --ciphertext with --secret-key
    encrypt       Seal --message to --public-key (ML-KEM + AES-256-GCM)
    decrypt       Open --ciphertext with --secret-key
`, appName)
}

func kemKeygen(args []string) {
	cli := parseConfig(args)
	m := operationalModule(cli)

	start := time.Now()
	kp, err := m.GenerateKEMKeyPair()
	if err != nil {
		fail("generating key pair", err)
	}
	defer utils.Zeroize(kp.SecretKey)
	if cli.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", time.Since(start))
	}

	export := KEMKeyPairExport{
		Family:    string(pqcfips.FamilyMLKEM1024),
		PublicKey: encodeBytes(kp.PublicKey, cli.OutputFormat),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	sk, err := m.ExportKEMSecretKey(kp.SecretKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secret key not exported: %v\n", err)
	} else {
		export.SecretKey = encodeBytes(sk, cli.OutputFormat)
		utils.Zeroize(sk)
	}
	writeJSON(export, cli.OutputFile)
}

func kemEncapsulate(args []string) {
	cli := parseConfig(args)
	pk := mustLoad(getArg(args, "--public-key", "-p"), "public_key")
	m := operationalModule(cli)

	res, err := m.Encapsulate(pk)
	if err != nil {
		fail("encapsulating", err)
	}
	defer utils.Zeroize(res.SharedSecret)

	export := EncapsulationExport{Ciphertext: encodeBytes(res.Ciphertext, cli.OutputFormat)}
	if ss, err := m.ExportSharedSecret(res.SharedSecret); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: shared secret not exported: %v\n", err)
	} else {
		export.SharedSecret = encodeBytes(ss, cli.OutputFormat)
		utils.Zeroize(ss)
	}
	writeJSON(export, cli.OutputFile)
}

func kemDecapsulate(args []string) {
	cli := parseConfig(args)
	sk := mustLoad(getArg(args, "--secret-key", "-s"), "secret_key")
	defer utils.Zeroize(sk)
	ct := mustLoad(getArg(args, "--ciphertext", "-c"), "ciphertext")
	m := operationalModule(cli)

	ss, err := m.Decapsulate(sk, ct)
	if err != nil {
		fail("decapsulating", err)
	}
	defer utils.Zeroize(ss)
	out, err := m.ExportSharedSecret(ss)
	if err != nil {
		fail("exporting shared secret", err)
	}
	writeJSON(map[string]string{"shared_secret": encodeBytes(out, cli.OutputFormat)}, cli.OutputFile)
	utils.Zeroize(out)
}

func kemEncrypt(args []string) {
	cli := parseConfig(args)
	pk := mustLoad(getArg(args, "--public-key", "-p"), "public_key")
	message := getArg(args, "--message", "-m")
	m := operationalModule(cli)

	enc, err := m.Encrypt(pk, []byte(message))
	if err != nil {
		fail("encrypting", err)
	}
	writeJSON(EncryptedExport{
		Ciphertext: encodeBytes(enc.Ciphertext, cli.OutputFormat),
		Nonce:      encodeBytes(enc.Nonce, cli.OutputFormat),
		Encrypted:  encodeBytes(enc.Encrypted, cli.OutputFormat),
	}, cli.OutputFile)
}

func kemDecrypt(args []string) {
	cli := parseConfig(args)
	sk := mustLoad(getArg(args, "--secret-key", "-s"), "secret_key")
	defer utils.Zeroize(sk)
	path := getArg(args, "--ciphertext", "-c")
	msg := &pqcfips.EncryptedMessage{
		Ciphertext: mustLoad(path, "ciphertext"),
		Nonce:      mustLoad(path, "nonce"),
		Encrypted:  mustLoad(path, "encrypted"),
	}
	m := operationalModule(cli)

	pt, err := m.Decrypt(sk, msg)
	if err != nil {
		fail("decrypting", err)
	}
	writeOutput(pt, cli.OutputFile)
}

// =============================================================================
// Signatures
// =============================================================================

func handleSign(args []string) {
	if len(args) < 1 {
		printSignUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	switch subcommand {
	case "keygen":
		signKeygen(args[1:])
	case "sign":
		signSign(args[1:])
	case "verify":
		signVerify(args[1:])
	case "help", "--help", "-h":
		printSignUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown sign subcommand: %s\n", subcommand)
		printSignUsage()
		os.Exit(1)
	}
}

func printSignUsage() {
	fmt.Printf(`USAGE:
    %s sign <SUBCOMMAND> [OPTIONS]

SUBCOMMANDS:
    keygen   Generate a PCT-validated ML-DSA-65 key pair
    sign     Sign --message with --secret-key
    verify   Verify --signature over --message with --public-key
`, appName)
}

func signKeygen(args []string) {
	cli := parseConfig(args)
	m := operationalModule(cli)

	start := time.Now()
	kp, err := m.GenerateSignKeyPair()
	if err != nil {
		fail("generating key pair", err)
	}
	defer utils.Zeroize(kp.SecretKey)
	if cli.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", time.Since(start))
	}

	export := SignKeyPairExport{
		Family:    string(pqcfips.FamilyMLDSA65),
		PublicKey: encodeBytes(kp.PublicKey, cli.OutputFormat),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	sk, err := m.ExportSignSecretKey(kp.SecretKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secret key not exported: %v\n", err)
	} else {
		export.SecretKey = encodeBytes(sk, cli.OutputFormat)
		utils.Zeroize(sk)
	}
	writeJSON(export, cli.OutputFile)
}

func signSign(args []string) {
	cli := parseConfig(args)
	sk := mustLoad(getArg(args, "--secret-key", "-s"), "secret_key")
	defer utils.Zeroize(sk)
	message := getArg(args, "--message", "-m")
	m := operationalModule(cli)

	sig, err := m.Sign(sk, []byte(message))
	if err != nil {
		fail("signing", err)
	}
	writeJSON(SignatureExport{
		Message:   base64.StdEncoding.EncodeToString([]byte(message)),
		Signature: encodeBytes(sig, cli.OutputFormat),
	}, cli.OutputFile)
}

func signVerify(args []string) {
	cli := parseConfig(args)
	pk := mustLoad(getArg(args, "--public-key", "-p"), "public_key")
	sigPath := getArg(args, "--signature", "-g")
	sig := mustLoad(sigPath, "signature")
	message := getArg(args, "--message", "-m")
	if message == "" && sigPath != "" {
		if raw, err := loadKeyFromFile(sigPath, "message"); err == nil {
			message = string(raw)
		}
	}
	m := operationalModule(cli)

	err := m.Verify(pk, []byte(message), sig)
	writeJSON(map[string]bool{"valid": err == nil}, "")
	if err != nil {
		os.Exit(1)
	}
}

// =============================================================================
// AEAD
// =============================================================================

func handleAEAD(args []string) {
	if len(args) < 1 || args[0] == "help" || args[0] == "--help" {
		fmt.Printf(`USAGE:
    %s aead <seal|open> --key <hex> [--nonce <hex>] [--alg aes-256-gcm|chacha20-poly1305]
        seal: --message <text> [--aad <text>]
        open: --ciphertext <file> [--aad <text>]
`, appName)
		if len(args) < 1 {
			os.Exit(1)
		}
		return
	}

	cli := parseConfig(args[1:])
	key, err := hex.DecodeString(getArg(args, "--key", "-k"))
	if err != nil {
		fail("decoding key", err)
	}
	defer utils.Zeroize(key)
	alg := aead.AES256GCM
	if name := getArg(args, "--alg", "-a"); name != "" {
		if alg, err = aead.ParseAlgorithm(name); err != nil {
			fail("parsing algorithm", err)
		}
	}
	aad := []byte(getArg(args, "--aad", ""))
	m := operationalModule(cli)

	switch args[0] {
	case "seal":
		nonce, err := nonceArg(args)
		if err != nil {
			fail("reading nonce", err)
		}
		ct, err := m.SealWith(alg, key, nonce, []byte(getArg(args, "--message", "-m")), aad)
		if err != nil {
			fail("sealing", err)
		}
		writeJSON(SealedExport{
			Algorithm:  string(alg),
			Nonce:      hex.EncodeToString(nonce),
			Ciphertext: encodeBytes(ct, cli.OutputFormat),
		}, cli.OutputFile)
	case "open":
		path := getArg(args, "--ciphertext", "-c")
		ct := mustLoad(path, "ciphertext")
		nonce := mustLoad(path, "nonce")
		pt, err := m.OpenWith(alg, key, nonce, ct, aad)
		if err != nil {
			fail("opening", err)
		}
		writeOutput(pt, cli.OutputFile)
	default:
		fmt.Fprintf(os.Stderr, "Unknown aead subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// nonceArg returns --nonce or a fresh random nonce.
func nonceArg(args []string) ([]byte, error) {
	if s := getArg(args, "--nonce", "-n"); s != "" {
		return hex.DecodeString(s)
	}
	return utils.SecureRandomBytes(aead.NonceSize)
}

// =============================================================================
// Helpers
// =============================================================================

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || (short != "" && args[i] == short) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || (short != "" && arg == short) {
			return true
		}
	}
	return false
}

func encodeBytes(data []byte, format OutputFormat) string {
	if format == FormatHex {
		return hex.EncodeToString(data)
	}
	return base64.StdEncoding.EncodeToString(data)
}

func decodeString(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if data, err := hex.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return nil, fmt.Errorf("unable to decode string")
}

func mustLoad(filename, field string) []byte {
	if filename == "" {
		fmt.Fprintf(os.Stderr, "Error: missing input file for %s\n", field)
		os.Exit(1)
	}
	data, err := loadKeyFromFile(filename, field)
	if err != nil {
		fail("loading "+field, err)
	}
	return data
}

// loadKeyFromFile reads field from a JSON export, or the whole file as a
// hex or base64 blob.
func loadKeyFromFile(filename, field string) ([]byte, error) {
	const maxInputFileSize = 1 << 20

	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxInputFileSize {
		return nil, fmt.Errorf("input file too large: %d > %d bytes", info.Size(), maxInputFileSize)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil {
		val, ok := fields[field].(string)
		if !ok {
			return nil, fmt.Errorf("field %q not found", field)
		}
		if field == "message" {
			return base64.StdEncoding.DecodeString(val)
		}
		return decodeString(val)
	}
	return decodeString(string(data))
}

func writeJSON(v any, filename string) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("marshaling output", err)
	}
	writeOutput(output, filename)
}

func writeOutput(data []byte, filename string) {
	if filename == "" {
		fmt.Println(string(data))
		return
	}
	// Key material: owner read-write only, even under a permissive umask.
	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		fail("creating output file", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		fail("writing output file", err)
	}
	if err := os.Chmod(filename, 0o600); err != nil {
		fail("setting file permissions", err)
	}
}
