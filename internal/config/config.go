package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultMaxAgeDays is the attachment retention used when none is configured.
const DefaultMaxAgeDays = 30

// Config represents the main configuration for pxs.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	LogLevel    string            `toml:"log_level"` // "debug", "info", "warn" or "error"
	Attachments AttachmentsConfig `toml:"attachments"`
	Metadata    MetadataConfig    `toml:"metadata"`
	Blobs       BlobsConfig       `toml:"blobs"`
	Encryption  EncryptionConfig  `toml:"encryption"`
	Resources   ResourcesConfig   `toml:"resources"`
}

// AttachmentsConfig holds attachment lifecycle settings.
type AttachmentsConfig struct {
	Dir             string `toml:"dir"`
	MaxAgeDays      int    `toml:"max_age_days"`
	AllowDuplicates bool   `toml:"allow_duplicates"`
}

// MaxAge returns the retention period, falling back to DefaultMaxAgeDays.
func (c AttachmentsConfig) MaxAge() time.Duration {
	days := c.MaxAgeDays
	if days <= 0 {
		days = DefaultMaxAgeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// MetadataConfig selects the attachment metadata store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MetadataConfig struct {
	Type string `toml:"type"`           // "json" (default), "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // document or database file; unused for memory
}

// BlobsConfig selects where attachment bytes are stored.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobsConfig struct {
	Type string `toml:"type"` // "filesystem" (default), "memory" or "s3"

	// Filesystem-specific; defaults to attachments.dir.
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ResourcesConfig describes the resource catalog.
type ResourcesConfig struct {
	Root         string            `toml:"root"`
	Ignore       []string          `toml:"ignore"`
	DisplayNames map[string]string `toml:"display_names,omitempty"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	attachments := filepath.Join(baseDir, "attachments")
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Attachments: AttachmentsConfig{
			Dir:        attachments,
			MaxAgeDays: DefaultMaxAgeDays,
		},
		Metadata: MetadataConfig{
			Type: "json",
			Path: filepath.Join(attachments, "metadata.json"),
		},
		Blobs: BlobsConfig{
			Type: "filesystem",
			Dir:  attachments,
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "pxs.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "pxs.key"),
		},
		Resources: ResourcesConfig{
			Root:   filepath.Join(baseDir, "resources"),
			Ignore: []string{".git", ".DS_Store", "*.swp"},
		},
	}
}

// Validate checks for settings that would fail later in a confusing way.
func (c *Config) Validate() error {
	if c.Attachments.MaxAgeDays < 0 {
		return fmt.Errorf("attachments.max_age_days must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %q", c.LogLevel)
	}
	if c.Blobs.Type == "s3" && c.Blobs.S3Bucket == "" {
		return fmt.Errorf("blobs.s3_bucket is required for s3 blob storage")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to path through a temp file and rename.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pxs-config-*")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	m := &Manager{}
	if err := m.Write(tmp, cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Init writes cfg to a new config file at path. An existing file is never
// overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
