package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envSource(env map[string]string) *source {
	return &source{lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

func TestDefaults(t *testing.T) {
	cfg, err := envSource(nil).load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8001", cfg.Addr())
	assert.Equal(t, ModeScore, cfg.Decision.Mode)
	assert.Equal(t, "distilbert-base-uncased-finetuned-sst-2-english", cfg.Decision.ModelName)
	assert.Equal(t, 0.8, cfg.Decision.Threshold)
	assert.Empty(t, cfg.Decision.SuspiciousLabels)
	assert.Equal(t, BackendHF, cfg.Score.Backend)
	assert.Equal(t, []string{"NEGATIVE", "POSITIVE"}, cfg.Score.ONNXLabels)
	assert.Equal(t, GeneratorLiteral, cfg.Generator.Kind)
	assert.Equal(t, 30*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, 60, cfg.Service.RateLimit)
	assert.False(t, cfg.Service.Preload)
	assert.False(t, cfg.Service.TrustProxy)
	assert.Empty(t, cfg.TLS.Domains)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, cfg.Decision.ModelName, cfg.ModelIdentity())
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := envSource(map[string]string{
		"AI_SCORE_THRESHOLD":    "0.65",
		"AI_SUSPICIOUS_LABELS":  " NEGATIVE , ,toxic ",
		"AI_DECISION_MODE":      "RULES",
		"AI_GENERATOR":          "bedrock",
		"BEDROCK_MODEL":         "my-bedrock-model",
		"AI_GENERATION_TIMEOUT": "5s",
		"AI_SERVICE_PORT":       "9000",
		"AI_PRELOAD":            "true",
	}).load()
	require.NoError(t, err)

	assert.Equal(t, 0.65, cfg.Decision.Threshold)
	assert.Equal(t, []string{"NEGATIVE", "toxic"}, cfg.Decision.SuspiciousLabels)
	assert.Equal(t, ModeRules, cfg.Decision.Mode)
	assert.Equal(t, 5*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, 9000, cfg.Service.Port)
	assert.True(t, cfg.Service.Preload)
	assert.Equal(t, "my-bedrock-model", cfg.ModelIdentity())
}

func TestModelIdentityLiteral(t *testing.T) {
	cfg, err := envSource(map[string]string{"AI_DECISION_MODE": "rules"}).load()
	require.NoError(t, err)
	assert.Equal(t, "literal-rules", cfg.ModelIdentity())
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"threshold not a number", map[string]string{"AI_SCORE_THRESHOLD": "high"}},
		{"threshold NaN", map[string]string{"AI_SCORE_THRESHOLD": "NaN"}},
		{"port", map[string]string{"AI_SERVICE_PORT": "eighty"}},
		{"port range", map[string]string{"AI_SERVICE_PORT": "70000"}},
		{"mode", map[string]string{"AI_DECISION_MODE": "vibes"}},
		{"backend", map[string]string{"AI_SCORE_BACKEND": "tensorflow"}},
		{"generator", map[string]string{"AI_GENERATOR": "openai"}},
		{"timeout", map[string]string{"AI_GENERATION_TIMEOUT": "30"}},
		{"preload", map[string]string{"AI_PRELOAD": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := envSource(tt.env).load()
			assert.Error(t, err)
		})
	}
}

func TestLoadWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
AI_SCORE_THRESHOLD: 0.9
AI_SUSPICIOUS_LABELS: [NEGATIVE, toxic]
HF_MODEL_NAME: from-file
AI_SERVICE_PORT: 8100
AI_PRELOAD: true
`), 0o644))

	t.Setenv("AI_CONFIG_FILE", path)
	t.Setenv("HF_MODEL_NAME", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Decision.Threshold)
	assert.Equal(t, []string{"NEGATIVE", "toxic"}, cfg.Decision.SuspiciousLabels)
	assert.Equal(t, "from-env", cfg.Decision.ModelName, "environment wins over file")
	assert.Equal(t, 8100, cfg.Service.Port)
	assert.True(t, cfg.Service.Preload)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("AI_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestEmptyEnvClearsFileList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
AI_SUSPICIOUS_LABELS: [NEGATIVE]
HF_MODEL_NAME: from-file
`), 0o644))

	t.Setenv("AI_CONFIG_FILE", path)
	t.Setenv("AI_SUSPICIOUS_LABELS", "")
	t.Setenv("HF_MODEL_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Decision.SuspiciousLabels, "empty environment value clears the file's list")
	assert.Equal(t, "distilbert-base-uncased-finetuned-sst-2-english", cfg.Decision.ModelName,
		"empty scalar falls back to the default")
}

func TestFileListUsedWhenEnvUnset(t *testing.T) {
	src := envSource(nil)
	src.file = map[string]string{"AI_SUSPICIOUS_LABELS": "NEGATIVE,toxic"}
	cfg, err := src.load()
	require.NoError(t, err)
	assert.Equal(t, []string{"NEGATIVE", "toxic"}, cfg.Decision.SuspiciousLabels)
}
