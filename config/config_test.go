package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/aead"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, pqcfips.FIPSMode(), cfg.Strict)
	assert.Equal(t, []string{"ml-kem-1024", "ml-dsa-65"}, cfg.Families)
	assert.Equal(t, string(aead.AES256GCM), cfg.Cipher)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Formats(t *testing.T) {
	cases := map[string]string{
		"module.toml": `
strict = true
families = ["ml-dsa-65"]

[log]
level = "debug"
format = "json"

[metrics]
enabled = true
`,
		"module.yaml": `
strict: true
families: [ml-dsa-65]
log:
  level: debug
  format: json
metrics:
  enabled: true
`,
		"module.json": `{"strict": true, "families": ["ml-dsa-65"],
 "log": {"level": "debug", "format": "json"}, "metrics": {"enabled": true}}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, name, content))
			require.NoError(t, err)
			assert.True(t, cfg.Strict)
			assert.Equal(t, []string{"ml-dsa-65"}, cfg.Families)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, "json", cfg.Log.Format)
			assert.True(t, cfg.Metrics.Enabled)
			// Unset fields keep their defaults.
			assert.Equal(t, string(aead.AES256GCM), cfg.Cipher)

			fams, err := cfg.ParsedFamilies()
			require.NoError(t, err)
			assert.Equal(t, []pqcfips.Family{pqcfips.FamilyMLDSA65}, fams)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "module.ini", "strict=1"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "strict = [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "families: ["))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", "{"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Families = []string{"rsa"}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"
	cfg.Cipher = "rc4"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.Equal(t, map[string]bool{"families": true, "log.level": true, "log.format": true, "cipher": true}, fields)
}

func TestValidate_StrictCipher(t *testing.T) {
	cfg := Default()
	cfg.Cipher = string(aead.ChaCha20Poly1305)
	cfg.Strict = false
	assert.NoError(t, cfg.Validate())

	cfg.Strict = true
	assert.ErrorContains(t, cfg.Validate(), "not approved in strict mode")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvStrict, "true")
	t.Setenv(EnvFamilies, " ml-kem-1024 , ,mldsa65")
	t.Setenv(EnvCipher, "aes-256-gcm")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvMetrics, "1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []string{"ml-kem-1024", "mldsa65"}, cfg.Families)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvStrict, "0")
	cfg, err := Load(writeFile(t, "m.toml", "strict = true\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Strict)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv(EnvFamilies, "rsa-2048")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	log := cfg.NewLogger(&buf)

	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Log = LogConfig{Level: "debug", Format: "text"}
	cfg.NewLogger(&buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}
