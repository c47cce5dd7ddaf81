package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backends a store can be built on.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config models recordkeep.yml.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Store struct {
		Backend string `yaml:"backend"`
		// Name of the in-memory SQLite database; ignored by the memory backend.
		Name string `yaml:"name"`
		// FirstID is the first identity the allocator issues.
		FirstID uint64 `yaml:"first_id"`
	} `yaml:"store"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Seed []SeedRecord `yaml:"seed"`
}

// SeedRecord is a record loaded into the store at startup.
type SeedRecord struct {
	// RecordID is the record's own id; the store identity is minted on save.
	RecordID   uint64            `yaml:"record_id" json:"record_id,omitempty"`
	Name       string            `yaml:"name" json:"name"`
	Contact    string            `yaml:"contact" json:"contact"`
	Roles      []string          `yaml:"roles" json:"roles,omitempty"`
	Attributes map[string]string `yaml:"attributes" json:"attributes,omitempty"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("config.store.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Store.Backend)
	}
	if c.Store.Backend == BackendSQLite && strings.TrimSpace(c.Store.Name) == "" {
		return fmt.Errorf("config.store.name is required for the sqlite backend")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is invalid", c.Log.Level)
	}
	for i, s := range c.Seed {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("config.seed[%d].name is required", i)
		}
		for k := range s.Attributes {
			if k == "" {
				return fmt.Errorf("config.seed[%d] has empty attribute key", i)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "recordkeep.yml")
}

// Load reads and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses raw YAML over the defaults and validates the result.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseSeed decodes a YAML (or JSON) list of records, as served to
// `rk record import`.
func ParseSeed(data []byte) ([]SeedRecord, error) {
	var seed []SeedRecord
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("invalid records yaml: %w", err)
	}
	for i, s := range seed {
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("record %d: name is required", i)
		}
	}
	return seed, nil
}

const defaultTemplate = `server:
  addr: 127.0.0.1:8080
  base_path: /v0

store:
  backend: memory
  name: recordkeep
  first_id: 0

auth:
  jwt_secret: ""

log:
  level: info
  development: false

seed: []
`
