// Package config reads the service configuration once at startup.
//
// Every key is an environment variable. When AI_CONFIG_FILE names a YAML file,
// its top-level keys (the same names) fill in keys the environment does not
// set, so the effective precedence is environment, then file, then default.
// A key set to the empty string counts as set: list keys become empty and
// other keys take their default.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Decision modes.
const (
	ModeScore = "score"
	ModeRules = "rules"
)

// Score backends.
const (
	BackendHF   = "hf"
	BackendONNX = "onnx"
)

// Generators for the rules mode.
const (
	GeneratorLiteral   = "literal"
	GeneratorAnthropic = "anthropic"
	GeneratorBedrock   = "bedrock"
)

// Config holds all service configuration.
type Config struct {
	Service   ServiceConfig
	Decision  DecisionConfig
	Score     ScoreConfig
	Generator GeneratorConfig
	TLS       TLSConfig
	LogLevel  string
}

// ServiceConfig holds listener and request-path settings.
type ServiceConfig struct {
	Host      string
	Port      int
	RateLimit  int // requests per minute per client on /analyze; 0 disables
	Preload    bool
	TrustProxy bool // take client addresses from forwarding headers
}

// DecisionConfig selects the strategy and its parameters.
type DecisionConfig struct {
	Mode             string
	ModelName        string
	Threshold        float64
	SuspiciousLabels []string
}

// ScoreConfig configures the text-classification backend.
type ScoreConfig struct {
	Backend         string
	HFAPIURL        string
	HFToken         string
	ONNXModelPath   string
	ONNXVocabPath   string
	ONNXLibraryPath string
	ONNXLabels      []string
}

// GeneratorConfig configures the rules-mode generator.
type GeneratorConfig struct {
	Kind            string
	AnthropicAPIKey string
	AnthropicModel  string
	AWSRegion       string
	BedrockModel    string
	Timeout         time.Duration
}

// TLSConfig enables the certmagic listener when Domains is non-empty.
type TLSConfig struct {
	Domains     []string
	ACMEEmail   string
	ACMEStaging bool
}

// Addr is the plain HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

// ModelIdentity is the model name reported in verdicts and /health.
func (c Config) ModelIdentity() string {
	if c.Decision.Mode == ModeScore {
		return c.Decision.ModelName
	}
	switch c.Generator.Kind {
	case GeneratorAnthropic:
		return c.Generator.AnthropicModel
	case GeneratorBedrock:
		return c.Generator.BedrockModel
	default:
		return "literal-rules"
	}
}

// Load reads configuration from the environment and the optional config file.
func Load() (Config, error) {
	src := source{lookup: os.LookupEnv}
	if path := os.Getenv("AI_CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return src.load()
}

func (s *source) load() (Config, error) {
	cfg := Config{
		Service: ServiceConfig{
			Host:       s.str("AI_SERVICE_HOST", "127.0.0.1"),
			Port:       s.intVal("AI_SERVICE_PORT", 8001),
			RateLimit:  s.intVal("AI_RATE_LIMIT", 60),
			Preload:    s.boolVal("AI_PRELOAD", false),
			TrustProxy: s.boolVal("AI_TRUST_PROXY", false),
		},
		Decision: DecisionConfig{
			Mode:             strings.ToLower(s.str("AI_DECISION_MODE", ModeScore)),
			ModelName:        s.str("HF_MODEL_NAME", "distilbert-base-uncased-finetuned-sst-2-english"),
			Threshold:        s.floatVal("AI_SCORE_THRESHOLD", 0.8),
			SuspiciousLabels: s.list("AI_SUSPICIOUS_LABELS", ""),
		},
		Score: ScoreConfig{
			Backend:         strings.ToLower(s.str("AI_SCORE_BACKEND", BackendHF)),
			HFAPIURL:        s.str("HF_API_URL", "https://api-inference.huggingface.co/models"),
			HFToken:         s.str("HF_API_TOKEN", ""),
			ONNXModelPath:   s.str("AI_ONNX_MODEL_PATH", "models/model.onnx"),
			ONNXVocabPath:   s.str("AI_ONNX_VOCAB_PATH", "models/vocab.txt"),
			ONNXLibraryPath: s.str("AI_ONNX_LIBRARY", ""),
			ONNXLabels:      s.list("AI_ONNX_LABELS", "NEGATIVE,POSITIVE"),
		},
		Generator: GeneratorConfig{
			Kind:            strings.ToLower(s.str("AI_GENERATOR", GeneratorLiteral)),
			AnthropicAPIKey: s.str("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  s.str("ANTHROPIC_MODEL", "claude-haiku-4-5"),
			AWSRegion:       s.str("AWS_REGION", "eu-west-1"),
			BedrockModel:    s.str("BEDROCK_MODEL", "global.anthropic.claude-haiku-4-5-20251001-v1:0"),
			Timeout:         s.duration("AI_GENERATION_TIMEOUT", 30*time.Second),
		},
		TLS: TLSConfig{
			Domains:     s.list("AI_TLS_DOMAINS", ""),
			ACMEEmail:   s.str("ACME_EMAIL", ""),
			ACMEStaging: s.boolVal("ACME_STAGING", false),
		},
		LogLevel: strings.ToLower(s.str("LOG_LEVEL", "info")),
	}
	if len(s.errs) > 0 {
		return Config{}, errors.Join(s.errs...)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.Decision.Mode {
	case ModeScore, ModeRules:
	default:
		errs = append(errs, fmt.Errorf("AI_DECISION_MODE: unknown mode %q", c.Decision.Mode))
	}
	switch c.Score.Backend {
	case BackendHF, BackendONNX:
	default:
		errs = append(errs, fmt.Errorf("AI_SCORE_BACKEND: unknown backend %q", c.Score.Backend))
	}
	switch c.Generator.Kind {
	case GeneratorLiteral, GeneratorAnthropic, GeneratorBedrock:
	default:
		errs = append(errs, fmt.Errorf("AI_GENERATOR: unknown generator %q", c.Generator.Kind))
	}
	if math.IsNaN(c.Decision.Threshold) || math.IsInf(c.Decision.Threshold, 0) {
		errs = append(errs, fmt.Errorf("AI_SCORE_THRESHOLD: must be finite"))
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		errs = append(errs, fmt.Errorf("AI_SERVICE_PORT: %d out of range", c.Service.Port))
	}
	return errors.Join(errs...)
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case []any:
			parts := make([]string, len(val))
			for i, p := range val {
				parts[i] = fmt.Sprint(p)
			}
			out[k] = strings.Join(parts, ",")
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// source resolves a key against the environment and then the file.
type source struct {
	lookup func(string) (string, bool)
	file   map[string]string
	errs   []error
}

// raw returns the value of the first layer that sets key.
func (s *source) raw(key string) (string, bool) {
	if v, ok := s.lookup(key); ok {
		return v, true
	}
	v, ok := s.file[key]
	return v, ok
}

func (s *source) str(key, fallback string) string {
	if v, ok := s.raw(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func (s *source) intVal(key string, fallback int) int {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (s *source) floatVal(key string, fallback float64) float64 {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func (s *source) boolVal(key string, fallback bool) bool {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (s *source) duration(key string, fallback time.Duration) time.Duration {
	v := s.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

// list splits a comma-separated value, trimming entries and dropping blanks.
func (s *source) list(key, fallback string) []string {
	v, ok := s.raw(key)
	if !ok {
		v = fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
