package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvStorageDSN overrides Config.StorageDSN when set.
const EnvStorageDSN = "TABSTASH_STORAGE_DSN"

// Config holds application configuration loaded from config.json.
// Store behavior (limits, eviction, pinned tabs) lives in Settings instead,
// because it is persisted alongside the groups.
type Config struct {
	// StorageDSN selects the storage backend (sqlite://, postgres://, file://, memory://).
	// Empty means sqlite in the base directory.
	StorageDSN string `json:"storage_dsn,omitempty"`

	// HTTPBind is the address the web server binds to
	HTTPBind string `json:"http_bind,omitempty"`

	// HTTPPort is the port the web server listens on
	HTTPPort int `json:"http_port,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "group".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// BackupDir is where automatic backups are written. Empty means <base>/backups.
	BackupDir string `json:"backup_dir,omitempty"`

	// BackupS3 sends automatic backups to an S3 bucket instead of BackupDir.
	BackupS3 *S3Config `json:"backup_s3,omitempty"`
}

// S3Config configures the S3 backup sink.
type S3Config struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTPBind: "127.0.0.1",
		HTTPPort: 8742,
		LogLevel: "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tabstash.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvStorageDSN)); dsn != "" {
		cfg.StorageDSN = dsn
	}
	return cfg, nil
}

// ResolveStorageDSN returns the configured DSN, defaulting to sqlite in baseDir.
func (c *Config) ResolveStorageDSN(baseDir string) string {
	if c != nil && strings.TrimSpace(c.StorageDSN) != "" {
		return strings.TrimSpace(c.StorageDSN)
	}
	return "sqlite://" + baseDir
}

// ResolveBackupDir returns the backup directory, defaulting to baseDir/backups.
func (c *Config) ResolveBackupDir(baseDir string) string {
	if c != nil && strings.TrimSpace(c.BackupDir) != "" {
		return c.BackupDir
	}
	return filepath.Join(baseDir, "backups")
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	if err := validateConfigDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.StorageDSN = overlay.StorageDSN
	if result.StorageDSN == "" {
		result.StorageDSN = base.StorageDSN
	}

	result.HTTPBind = overlay.HTTPBind
	if result.HTTPBind == "" {
		result.HTTPBind = base.HTTPBind
	}

	result.HTTPPort = overlay.HTTPPort
	if result.HTTPPort == 0 {
		result.HTTPPort = base.HTTPPort
	}

	result.LogLevel = overlay.LogLevel
	if result.LogLevel == "" {
		result.LogLevel = base.LogLevel
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.BackupDir = overlay.BackupDir
	if result.BackupDir == "" {
		result.BackupDir = base.BackupDir
	}

	result.BackupS3 = overlay.BackupS3
	if result.BackupS3 == nil {
		result.BackupS3 = base.BackupS3
	}

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
