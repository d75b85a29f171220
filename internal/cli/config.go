package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no explicit
// config path is given.
const DefaultConfigFile = ".maquette.yaml"

// Duration wraps time.Duration so the config file can say "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the CLI-level settings. Everything is optional: the zero value
// runs against the local bridge with the default model.
type Config struct {
	// BridgeURL points at the host bridge.
	BridgeURL string `yaml:"bridge_url"`

	// APIKey authenticates against the planner API. The GEMINI_API_KEY
	// environment variable takes precedence.
	APIKey string `yaml:"api_key"`

	// Model selects the planner model.
	Model string `yaml:"model"`

	// MaxTurns bounds the correction loop per session.
	MaxTurns int `yaml:"max_turns"`

	// Timeout bounds each planner and bridge call.
	Timeout Duration `yaml:"timeout"`

	// StateDir enables file-backed session persistence when set.
	StateDir string `yaml:"state_dir"`

	// RedisURL enables Redis-backed persistence and distributed locking when
	// set. Takes precedence over StateDir.
	RedisURL string `yaml:"redis_url"`

	// TranscriptDir mirrors structured logs into per-run transcript files.
	TranscriptDir string `yaml:"transcript_dir"`

	// EncryptionKey seals archived sessions with AES-256-GCM when set. Hex
	// encoded, 64 characters. Only the session ID and status stay readable.
	EncryptionKey string `yaml:"encryption_key"`

	// FallbackEncryptionKeys are previous keys tried on decryption, enabling
	// key rotation without re-encrypting the archive. Hex encoded.
	FallbackEncryptionKeys []string `yaml:"fallback_encryption_keys"`

	// RedactPatterns are regular expressions masked out of scripts, traces
	// and answers before a session is persisted.
	RedactPatterns []string `yaml:"redact_patterns"`

	// RulesPath loads context resolution rules from a YAML file instead of
	// the built-in rule set. Only the serve command reads it.
	RulesPath string `yaml:"rules_path"`
}

// LoadConfig reads the config file at path. An empty path falls back to
// DefaultConfigFile, and a missing default file is not an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Environment wins over file for the credential.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}

	return cfg, nil
}
