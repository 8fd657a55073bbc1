package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/zara/internal/llm"
	"github.com/normanking/zara/internal/orchestrator"
)

// Config holds all application configuration for the Zara voice assistant.
// It is loaded from ~/.zara/config.yaml and can be overridden by environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Assistant AssistantConfig `mapstructure:"assistant" yaml:"assistant"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains configuration for the HTTP and WebSocket server.
type ServerConfig struct {
	// Addr is the listen address for the orb UI and WebSocket endpoint (e.g., ":5000")
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LLMConfig contains configuration for the generation backend.
type LLMConfig struct {
	// Provider is the generation backend to use (currently only "gemini")
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Endpoint is the API endpoint URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKey is the authentication key for the provider.
	// Can be overridden with ZARA_LLM_API_KEY.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the specific model to use with this provider
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// MinRequestIntervalSec is the minimum number of seconds between upstream
	// generation calls. Commands arriving inside the window are answered from
	// the offline responder instead.
	MinRequestIntervalSec int `mapstructure:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

// ToProviderConfig converts LLMConfig to llm.ProviderConfig for use by the llm package.
func (c LLMConfig) ToProviderConfig() *llm.ProviderConfig {
	cfg := llm.DefaultConfig(c.Provider)
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.Model != "" {
		cfg.Model = c.Model
	}
	cfg.APIKey = c.APIKey
	return cfg
}

// MinRequestInterval returns the throttle window as a duration.
// A zero or negative setting falls back to the package default.
func (c LLMConfig) MinRequestInterval() time.Duration {
	if c.MinRequestIntervalSec <= 0 {
		return llm.DefaultMinRequestInterval
	}
	return time.Duration(c.MinRequestIntervalSec) * time.Second
}

// AssistantConfig contains configuration for conversation behavior.
type AssistantConfig struct {
	// WelcomeMessage is the greeting announced on startup and replayed to
	// each new browser connection
	WelcomeMessage string `mapstructure:"welcome_message" yaml:"welcome_message"`
	// ConversationLog is the path of the conversation transcript file.
	// Empty disables transcript recording.
	ConversationLog string `mapstructure:"conversation_log" yaml:"conversation_log,omitempty"`
	// SpeechCommand is an optional local text-to-speech command (e.g., "espeak-ng").
	// The reply text is passed as the final argument. Empty leaves speech
	// to the browser's synthesis engine.
	SpeechCommand string `mapstructure:"speech_command" yaml:"speech_command,omitempty"`
	// SpeechArgs are extra arguments placed before the text when SpeechCommand is set
	SpeechArgs []string `mapstructure:"speech_args" yaml:"speech_args,omitempty"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory where dated log files are written
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Console mirrors logs to stderr in a human-readable format
	Console bool `mapstructure:"console" yaml:"console"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	gemini := llm.DefaultConfig("gemini")

	return &Config{
		Server: ServerConfig{
			Addr: ":5000",
		},
		LLM: LLMConfig{
			Provider:              "gemini",
			Endpoint:              gemini.Endpoint,
			Model:                 gemini.Model,
			APIKey:                "",
			MinRequestIntervalSec: int(llm.DefaultMinRequestInterval / time.Second),
		},
		Assistant: AssistantConfig{
			WelcomeMessage:  orchestrator.DefaultWelcomeMessage,
			ConversationLog: "~/.zara/conversation_log.txt",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Dir:     "~/.zara/logs",
			Console: true,
		},
	}
}

// Load reads configuration from the default location (~/.zara/config.yaml).
// If the file does not exist, it is created with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".zara", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path.
// If the file does not exist, it is created with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	// Example: ZARA_LLM_API_KEY
	v.SetEnvPrefix("ZARA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Assistant.ConversationLog = expandPath(cfg.Assistant.ConversationLog)
	cfg.Logging.Dir = expandPath(cfg.Logging.Dir)

	return &cfg, nil
}

// Save writes the current configuration to the default location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".zara", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Zara data directory path (~/.zara).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".zara")
}

// GetConfigPath returns the full path to the config file.
func (c *Config) GetConfigPath() string {
	return filepath.Join(c.GetDataDir(), "config.yaml")
}

// EnsureDirectories creates all directories the assistant writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		expandPath(c.Logging.Dir),
	}
	if c.Assistant.ConversationLog != "" {
		dirs = append(dirs, filepath.Dir(expandPath(c.Assistant.ConversationLog)))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider cannot be empty")
	}
	if c.LLM.Provider != "gemini" {
		return fmt.Errorf("unsupported llm provider '%s', must be 'gemini'", c.LLM.Provider)
	}
	if c.LLM.MinRequestIntervalSec < 0 {
		return fmt.Errorf("llm.min_request_interval_sec cannot be negative")
	}

	if c.Assistant.WelcomeMessage == "" {
		return fmt.Errorf("assistant.welcome_message cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
