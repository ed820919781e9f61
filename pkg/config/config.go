package config

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssargent/tablekv/pkg/codec"
	"github.com/ssargent/tablekv/pkg/schema"
	"gopkg.in/yaml.v3"
)

// Config represents the tablekv configuration
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	Port     int           `yaml:"port"`
	Bind     string        `yaml:"bind"`
	Security Security      `yaml:"security"`
	Logging  Logging       `yaml:"logging"`
	Tables   []TableConfig `yaml:"tables"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// TableConfig describes one table: its identity, versions and the columns
// in the order they are stored.
type TableConfig struct {
	Name          string         `yaml:"name"`
	ID            int64          `yaml:"id"`
	SchemaVersion int32          `yaml:"schema_version"`
	CodecVersion  uint8          `yaml:"codec_version,omitempty"`
	ByteOrder     string         `yaml:"byte_order,omitempty"`
	Columns       []ColumnConfig `yaml:"columns"`
}

// ColumnConfig describes a column. A dropped column keeps its place in the
// stored layout but is never decoded.
type ColumnConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type,omitempty"`
	Key     bool   `yaml:"key,omitempty"`
	Index   int    `yaml:"index"`
	Dropped bool   `yaml:"dropped,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Logging: Logging{
			Level: "info",
		},
		Tables: []TableConfig{
			{
				Name:          "users",
				ID:            1,
				SchemaVersion: 1,
				Columns: []ColumnConfig{
					{Name: "id", Type: "string", Key: true, Index: 0},
					{Name: "name", Type: "string", Index: 1},
					{Name: "age", Type: "int", Index: 2},
					{Name: "tags", Type: "string_list", Index: 3},
				},
			},
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// writes it to configPath.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./tablekv.yaml"
	}

	// For Linux/macOS, use ~/.config/tablekv/config.yaml
	configDir := filepath.Join(homeDir, ".config", "tablekv")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate checks that table names and ids are unique and that every table
// builds a valid schema.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Tables))
	ids := make(map[int64]bool, len(c.Tables))
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("table %d has no name", i)
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate table name %q", t.Name)
		}
		if ids[t.ID] {
			return fmt.Errorf("table %q: duplicate id %d", t.Name, t.ID)
		}
		names[t.Name] = true
		ids[t.ID] = true

		columns, err := t.Schema()
		if err != nil {
			return err
		}
		if err := columns.Validate(); err != nil {
			return fmt.Errorf("table %q: %w", t.Name, err)
		}
		if _, err := t.Order(); err != nil {
			return err
		}
	}
	return nil
}

// Table returns the table with the given name.
func (c *Config) Table(name string) (*TableConfig, bool) {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// Schema builds the table's columns in stored order. Dropped columns are
// nil entries.
func (t *TableConfig) Schema() (schema.Columns, error) {
	columns := make(schema.Columns, len(t.Columns))
	for i, cc := range t.Columns {
		if cc.Dropped {
			continue
		}
		typ, err := schema.ParseType(cc.Type)
		if err != nil {
			return nil, fmt.Errorf("table %q column %q: %w", t.Name, cc.Name, err)
		}
		col, err := schema.New(typ, cc.Name, cc.Index, cc.Key)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
		columns[i] = col
	}
	return columns, nil
}

// Order returns the byte order named by ByteOrder. Empty means big endian.
func (t *TableConfig) Order() (binary.ByteOrder, error) {
	switch t.ByteOrder {
	case "", "big":
		return binary.BigEndian, nil
	case "little":
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("table %q: unknown byte order %q", t.Name, t.ByteOrder)
}

// CodecOptions returns the codec options the table's settings imply.
func (t *TableConfig) CodecOptions() ([]codec.Option, error) {
	order, err := t.Order()
	if err != nil {
		return nil, err
	}
	opts := []codec.Option{codec.WithByteOrder(order)}
	if t.CodecVersion != 0 {
		opts = append(opts, codec.WithCodecVersion(t.CodecVersion))
	}
	return opts, nil
}

// Width returns the number of logical columns, which is the size of a
// decoded row.
func (t *TableConfig) Width() int { return len(t.Columns) }

// ColumnIndex returns the logical index of the named present column.
func (t *TableConfig) ColumnIndex(name string) (int, bool) {
	for _, cc := range t.Columns {
		if cc.Name == name && !cc.Dropped {
			return cc.Index, true
		}
	}
	return 0, false
}

// ColumnNames returns column names by logical index. Dropped columns have
// an empty name.
func (t *TableConfig) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for _, cc := range t.Columns {
		if !cc.Dropped && cc.Index >= 0 && cc.Index < len(names) {
			names[cc.Index] = cc.Name
		}
	}
	return names
}
