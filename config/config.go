// Package config loads module settings from TOML, YAML or JSON files and
// PQC_FIPS_* environment variables.
//
// The CSP export policy is deliberately absent: it is fixed by the build.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/aead"
	"github.com/BackendStack21/pqc-fips-go/core"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnvOverrides.
const (
	EnvStrict    = "PQC_FIPS_STRICT"
	EnvFamilies  = "PQC_FIPS_FAMILIES"
	EnvCipher    = "PQC_FIPS_CIPHER"
	EnvLogLevel  = "PQC_FIPS_LOG_LEVEL"
	EnvLogFormat = "PQC_FIPS_LOG_FORMAT"
	EnvMetrics   = "PQC_FIPS_METRICS"
)

// Config holds the runtime settings of a module instance.
type Config struct {
	// Strict enables KATs during POST and restricts ciphers to AES-256-GCM.
	Strict bool `toml:"strict" yaml:"strict" json:"strict"`
	// Families lists the asymmetric families covered by KAT and PCT.
	Families []string `toml:"families" yaml:"families" json:"families"`
	// Cipher is the default AEAD for seal/open.
	Cipher  string        `toml:"cipher" yaml:"cipher" json:"cipher"`
	Log     LogConfig     `toml:"log" yaml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics" json:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"`
}

// MetricsConfig toggles Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled" json:"enabled"`
}

// Default returns the settings compiled into this build.
func Default() *Config {
	families := make([]string, 0, len(pqcfips.AllFamilies))
	for _, f := range pqcfips.AllFamilies {
		families = append(families, string(f))
	}
	return &Config{
		Strict:   pqcfips.FIPSMode(),
		Families: families,
		Cipher:   string(aead.AES256GCM),
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path on top of Default, applies environment overrides and
// validates the result. The decoder is chosen by file extension.
func Load(path string) (*Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = LoadTOML(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	case ".json":
		err = LoadJSON(cfg, path)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv returns Default with environment overrides applied.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode TOML: %w", err)
	}
	return nil
}

// LoadYAML decodes a YAML file into cfg.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read YAML: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode YAML: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read JSON: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// ApplyEnvOverrides overwrites fields from PQC_FIPS_* variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvStrict); v != "" {
		c.Strict = parseBool(v)
	}
	if v := os.Getenv(EnvFamilies); v != "" {
		var families []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				families = append(families, f)
			}
		}
		c.Families = families
	}
	if v := os.Getenv(EnvCipher); v != "" {
		c.Cipher = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvMetrics); v != "" {
		c.Metrics.Enabled = parseBool(v)
	}
}

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks families, cipher and logging settings.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := core.ParseFamilies(c.Families); err != nil {
		errs = append(errs, ValidationError{Field: "families", Message: err.Error()})
	}
	alg, err := aead.ParseAlgorithm(c.Cipher)
	switch {
	case err != nil:
		errs = append(errs, ValidationError{Field: "cipher", Message: err.Error()})
	case !aead.Approved(alg, c.Strict):
		errs = append(errs, ValidationError{Field: "cipher", Message: fmt.Sprintf("%s is not approved in strict mode", alg)})
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("invalid format %q, must be text or json", c.Log.Format)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParsedFamilies returns the configured families; empty means all.
func (c *Config) ParsedFamilies() ([]pqcfips.Family, error) {
	return core.ParseFamilies(c.Families)
}

// CipherAlgorithm returns the configured AEAD.
func (c *Config) CipherAlgorithm() (aead.Algorithm, error) {
	return aead.ParseAlgorithm(c.Cipher)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid level %q", s)
}

// NewLogger builds a slog Logger writing to w in the configured format.
// Invalid settings fall back to info level and text output.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
