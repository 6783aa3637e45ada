// Package config loads and validates privacy-gateway configuration:
// entity/conversation store backends, detector and replacer selection, and
// the ambient logging/metrics sections. Adapted from the teacher's
// internal/config.Config structure and Load()/sanitizeConfigPath guard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Ingress           IngressConfig           `yaml:"ingress"`
	TLS               TLSConfig               `yaml:"tls"`
	EntityStore       EntityStoreConfig       `yaml:"entity_store"`
	ConversationStore ConversationStoreConfig `yaml:"conversation_store"`
	Detector          DetectorConfig          `yaml:"detector"`
	Replacer          ReplacerConfig          `yaml:"replacer"`
	KV                KVConfig                `yaml:"kv"`
	TTL               TTLConfig               `yaml:"ttl"`
	Pseudonym         PseudonymConfig         `yaml:"pseudonym"`
	LLM               LLMConfig               `yaml:"llm"`
	Logging           LoggingConfig           `yaml:"logging"`
	Metrics           MetricsConfig           `yaml:"metrics"`
}

// IngressConfig contains reverse-proxy listener settings.
type IngressConfig struct {
	Listen   string `yaml:"listen"`
	Upstream string `yaml:"upstream"`
}

// TLSConfig contains TLS/CA certificate settings for the ingress listener.
type TLSConfig struct {
	CACert string `yaml:"ca_cert"`
	CAKey  string `yaml:"ca_key"`
}

// EntityStoreConfig selects and configures the Entity Store backend.
type EntityStoreConfig struct {
	Backend string      `yaml:"backend"` // "redis", "bbolt", "encryption"
	Bbolt   BboltConfig `yaml:"bbolt"`
	// MasterKeyEnv names the environment variable holding the master secret
	// for the encryption-native backend; the key itself is never written to
	// the config file.
	MasterKeyEnv string `yaml:"master_key_env"`
}

// ConversationStoreConfig selects and configures the Conversation Store
// backend.
type ConversationStoreConfig struct {
	Backend string      `yaml:"backend"` // "redis", "bbolt"
	Bbolt   BboltConfig `yaml:"bbolt"`
}

// BboltConfig points at an embedded database file.
type BboltConfig struct {
	Path string `yaml:"path"`
}

// KVConfig is shared Redis connection configuration for backends that use
// it (Entity Store and Conversation Store may point at the same database
// safely, per spec §9's key-namespace resolution).
type KVConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- intentional field for Redis auth config
	DB       int    `yaml:"db"`
}

// TTLConfig is the mapping/conversation expiry applied when the backend is
// Redis (bbolt backends are not TTL'd; they rely on explicit Clear).
type TTLConfig struct {
	EntityStore       time.Duration `yaml:"entity_store"`
	ConversationStore time.Duration `yaml:"conversation_store"`
}

// DetectorConfig selects and configures the Detector backend.
type DetectorConfig struct {
	Backend   string        `yaml:"backend"` // "regex", "remote"
	Threshold float64       `yaml:"threshold"`
	Remote    RemoteDetectorConfig `yaml:"remote"`
}

// RemoteDetectorConfig configures the HTTP RPC detector backend.
type RemoteDetectorConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Attempts     uint          `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// ReplacerConfig selects the Replacer strategy.
type ReplacerConfig struct {
	Strategy     string `yaml:"strategy"` // "numbered", "pseudonym", "hash", "encryption"
	MasterKeyEnv string `yaml:"master_key_env"`
}

// PseudonymConfig configures the pseudonym Replacer strategy.
type PseudonymConfig struct {
	Locale string `yaml:"locale"`
}

// LLMConfig configures the wrapped LLM client.
type LLMConfig struct {
	Provider     string `yaml:"provider"` // "anthropic"
	APIKeyEnv    string `yaml:"api_key_env"`
	Model        string `yaml:"model"`
	MaxTokens    int64  `yaml:"max_tokens"`
}

// LoggingConfig contains structured-logging settings, carried over from
// the teacher.
type LoggingConfig struct {
	Level string      `yaml:"level"`
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig contains audit-trail settings, carried over from the
// teacher's internal/audit, re-scoped from secret interception to privacy
// events.
type AuditConfig struct {
	Enabled               bool `yaml:"enabled"`
	IncludeEntityLabels   bool `yaml:"include_entity_labels"`
	IncludePlaceholders   bool `yaml:"include_placeholders"`
}

// MetricsConfig contains Prometheus metrics settings, carried over from
// the teacher.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Port     int    `yaml:"port"`
}

// DefaultConfig returns a configuration with sensible defaults: bbolt
// backends (no external dependencies) and the regex detector, so the
// binary runs out of the box for local development.
func DefaultConfig() *Config {
	return &Config{
		Ingress: IngressConfig{Listen: ":8443"},
		TLS: TLSConfig{
			CACert: "./certs/ca.crt",
			CAKey:  "./certs/ca.key",
		},
		EntityStore: EntityStoreConfig{
			Backend: "bbolt",
			Bbolt:   BboltConfig{Path: "./data/entities.db"},
		},
		ConversationStore: ConversationStoreConfig{
			Backend: "bbolt",
			Bbolt:   BboltConfig{Path: "./data/conversations.db"},
		},
		KV: KVConfig{Address: "localhost:6379", DB: 0},
		TTL: TTLConfig{
			EntityStore:       30 * 24 * time.Hour,
			ConversationStore: 30 * 24 * time.Hour,
		},
		Detector: DetectorConfig{
			Backend:   "regex",
			Threshold: 0.5,
			Remote: RemoteDetectorConfig{
				Attempts:     3,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     5 * time.Second,
			},
		},
		Replacer: ReplacerConfig{Strategy: "numbered"},
		Pseudonym: PseudonymConfig{Locale: "en"},
		LLM: LLMConfig{
			Provider:  "anthropic",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			MaxTokens: 4096,
		},
		Logging: LoggingConfig{
			Level: "info",
			Audit: AuditConfig{Enabled: true, IncludeEntityLabels: true},
		},
		Metrics: MetricsConfig{Enabled: true, Endpoint: "/metrics", Port: 9090},
	}
}

// Load loads configuration from a YAML file named by CONFIG_PATH (default
// "config.yaml"), resolved against CONFIG_BASE_DIR (default the working
// directory) and guarded against path traversal, same as the teacher's
// Load/sanitizeConfigPath.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	baseDir := os.Getenv("CONFIG_BASE_DIR")
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	safePath, err := sanitizeConfigPath(configPath, baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(safePath) //#nosec G304,G703 -- path is validated by sanitizeConfigPath to be within baseDir
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// sanitizeConfigPath validates that path resolves to somewhere within
// baseDir, rejecting path traversal.
func sanitizeConfigPath(path, baseDir string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	var targetPath string
	if filepath.IsAbs(path) {
		targetPath = filepath.Clean(path)
	} else {
		targetPath = filepath.Clean(filepath.Join(absBase, path))
	}

	relPath, err := filepath.Rel(absBase, targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve relative path: %w", err)
	}

	if len(relPath) >= 2 && relPath[:2] == ".." {
		return "", fmt.Errorf("path traversal detected: path escapes base directory")
	}

	return targetPath, nil
}
