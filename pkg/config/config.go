// Package config loads application configuration from a YAML file with
// environment-variable precedence, and exposes the router's stage flags as an
// explicit immutable value rather than ambient lookups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults for the routing pipeline.
const (
	DefaultMaxRows           = 500
	DefaultAgentMaxPromptLen = 180
	DefaultModel             = "gpt-5.2-instant"
	DefaultTemperature       = 0.1
)

// Pipeline holds the routing stage flags. It is established at construction
// time and never mutated afterwards, so each stage combination is unit
// testable deterministically.
type Pipeline struct {
	FastIntents       bool    `yaml:"fast_intents"`
	FastSQL           bool    `yaml:"fast_sql"`
	LLMRouting        bool    `yaml:"llm_routing"`
	StrictMode        bool    `yaml:"strict_mode"`
	MaxRows           int     `yaml:"max_rows"`
	AgentMaxPromptLen int     `yaml:"agent_max_prompt_len"`
	Temperature       float64 `yaml:"temperature"`
}

// DefaultPipeline returns the pipeline flags with every stage enabled.
func DefaultPipeline() Pipeline {
	return Pipeline{
		FastIntents:       true,
		FastSQL:           true,
		LLMRouting:        true,
		StrictMode:        true,
		MaxRows:           DefaultMaxRows,
		AgentMaxPromptLen: DefaultAgentMaxPromptLen,
		Temperature:       DefaultTemperature,
	}
}

// LLM holds language-model client configuration.
type LLM struct {
	Adapter string `yaml:"adapter"` // openai | anthropic | google | mock
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // OpenAI-compatible runtimes (e.g. local Ollama)
}

// Config is the full application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string

	DatabasePath  string
	GroundingPath string

	Pipeline Pipeline
	LLM      LLM
	LogLevel string

	ConfigDir string
}

// FileConfig is the on-disk shape of ~/.floorsense/config.yaml.
type FileConfig struct {
	APIKeys struct {
		Anthropic string `yaml:"anthropic"`
		OpenAI    string `yaml:"openai"`
		Google    string `yaml:"google"`
	} `yaml:"api_keys"`
	Database  string    `yaml:"database"`
	Grounding string    `yaml:"grounding"`
	Pipeline  *Pipeline `yaml:"pipeline"`
	LLM       LLM       `yaml:"llm"`
	LogLevel  string    `yaml:"log_level"`
}

// Load reads configuration from the config file and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return loadFrom(filepath.Join(configDir, "config.yaml"), configDir)
}

// LoadFile reads configuration from a specific YAML file.
func LoadFile(path string) (*Config, error) {
	return loadFrom(path, filepath.Dir(path))
}

func loadFrom(path, configDir string) (*Config, error) {
	fileConfig := loadFileConfig(path)

	pipeline := DefaultPipeline()
	if fileConfig.Pipeline != nil {
		pipeline = *fileConfig.Pipeline
		if pipeline.MaxRows <= 0 {
			pipeline.MaxRows = DefaultMaxRows
		}
		if pipeline.AgentMaxPromptLen <= 0 {
			pipeline.AgentMaxPromptLen = DefaultAgentMaxPromptLen
		}
		if pipeline.Temperature <= 0 {
			pipeline.Temperature = DefaultTemperature
		}
	}
	applyPipelineEnv(&pipeline)

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DatabasePath:    getEnvOrDefault("FLOORSENSE_DB", fileConfig.Database),
		GroundingPath:   getEnvOrDefault("FLOORSENSE_GROUNDING", fileConfig.Grounding),
		Pipeline:        pipeline,
		LLM:             fileConfig.LLM,
		LogLevel:        getEnvOrDefault("FLOORSENSE_LOG_LEVEL", fileConfig.LogLevel),
		ConfigDir:       configDir,
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(configDir, "floorsense.db")
	}
	if cfg.GroundingPath == "" {
		cfg.GroundingPath = filepath.Join(configDir, "grounding.json")
	}
	if cfg.LLM.Adapter == "" {
		cfg.LLM.Adapter = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if base := os.Getenv("FLOORSENSE_LLM_BASE_URL"); base != "" {
		cfg.LLM.BaseURL = base
	}
	if model := os.Getenv("FLOORSENSE_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// applyPipelineEnv lets the stage flags be toggled per process, mirroring the
// file fields. "0"/"false" disables, "1"/"true" enables.
func applyPipelineEnv(p *Pipeline) {
	setBoolEnv("FLOORSENSE_FAST_INTENTS", &p.FastIntents)
	setBoolEnv("FLOORSENSE_FAST_SQL", &p.FastSQL)
	setBoolEnv("FLOORSENSE_LLM_ROUTING", &p.LLMRouting)
	setBoolEnv("FLOORSENSE_STRICT_MODE", &p.StrictMode)
	if v := os.Getenv("FLOORSENSE_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.MaxRows = n
		}
	}
}

func setBoolEnv(name string, target *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".floorsense")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
