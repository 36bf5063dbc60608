// Package config manages skylock's on-disk configuration: engine profile,
// KDF parameters, worker/rate-limit tuning, retention policy, and storage
// backend selection.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/skylock/skylock/internal/crypto"
	apperrors "github.com/skylock/skylock/internal/errors"
)

// KDFProfile names one of the two Argon2id cost presets.
type KDFProfile string

const (
	KDFProfileBalanced KDFProfile = "balanced"
	KDFProfileParanoid KDFProfile = "paranoid"
)

// KDFParams are the Argon2id parameters bound into every manifest this
// engine produces. The canonical definition lives in internal/crypto;
// config only names the two presets operators choose between.
type KDFParams = crypto.KDFParams

// BalancedKDFParams is the default profile: 64 MiB / t=4 / p=4.
func BalancedKDFParams() KDFParams {
	return crypto.BalancedKDFParams()
}

// ParanoidKDFParams is the high-cost profile: 512 MiB / t=8 / p=8.
func ParanoidKDFParams() KDFParams {
	return crypto.ParanoidKDFParams()
}

// ParamsForProfile resolves a named profile to concrete KDF parameters.
// Unknown profiles fall back to KDFProfileBalanced.
func ParamsForProfile(p KDFProfile) KDFParams {
	if p == KDFProfileParanoid {
		return ParanoidKDFParams()
	}
	return BalancedKDFParams()
}

// RetentionPolicy configures the GFS planner (internal/retention).
type RetentionPolicy struct {
	Hourly  int `json:"hourly"`
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
	Yearly  int `json:"yearly"`
	// MinKeep is the hard floor the engine refuses to delete below,
	// regardless of what the bucket rules above would otherwise permit.
	MinKeep int `json:"min_keep"`
}

// DefaultRetentionPolicy matches the grandfather-father-son defaults.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{Daily: 7, Weekly: 4, Monthly: 6, Yearly: 1, MinKeep: 3}
}

// StorageBackendKind selects which Backend implementation the engine talks
// to. Production WebDAV/SFTP/S3 clients are external and out of scope; this
// enum only names what skylock itself implements.
type StorageBackendKind string

const (
	StorageBackendLocal StorageBackendKind = "local"
	StorageBackendHTTP  StorageBackendKind = "http"
)

// StorageConfig configures the chosen backend and, for StorageBackendHTTP,
// the reference server's own limits when this node also hosts it.
type StorageConfig struct {
	Kind StorageBackendKind `json:"kind"`

	// LocalPath roots a LocalBackend (StorageBackendLocal).
	LocalPath string `json:"local_path,omitempty"`

	// HTTPEndpoint is the base URL of a remote HTTPServer
	// (StorageBackendHTTP).
	HTTPEndpoint string `json:"http_endpoint,omitempty"`

	// The following only matter when this node also runs the reference
	// HTTPServer (internal/storage/httpserver.go) to serve its own
	// storage.
	ServeAppendOnly     bool  `json:"serve_append_only,omitempty"`
	ServeQuotaBytes     int64 `json:"serve_quota_bytes,omitempty"`
	ServeMaxDiskUsagePct int   `json:"serve_max_disk_usage_pct,omitempty"`
	ServeListenAddr     string `json:"serve_listen_addr,omitempty"`
}

// EngineConfig tunes the backup pipeline's concurrency, compression, and
// bandwidth behavior.
type EngineConfig struct {
	// WorkerCount is the number of cooperative worker tasks; default 4,
	// hard-capped at 32 by the engine regardless of what is configured
	// here.
	WorkerCount int `json:"worker_count"`

	// CompressionLevel selects a zstd level in {0 (none), 1 (fast), 3
	// (balanced, default), 6 (good), 9 (best)} or any custom 0-22 value.
	CompressionLevel int `json:"compression_level"`

	// CompressMinBytes records a plaintext size threshold for attempting
	// compression (default 10 MiB). The backup engine does not read it; it
	// always applies compress.MinSizeToAttempt (also 10 MiB).
	CompressMinBytes int64 `json:"compress_min_bytes"`

	// MaxBytesPerSec throttles upload bandwidth via a token bucket; 0
	// means unthrottled.
	MaxBytesPerSec int64 `json:"max_bytes_per_sec"`
}

// DefaultEngineConfig matches the backup engine's stated defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WorkerCount:       4,
		CompressionLevel:  3,
		CompressMinBytes:  10 * 1024 * 1024,
		MaxBytesPerSec:    0,
	}
}

// Config is skylock's on-disk configuration.
type Config struct {
	// Identity
	Name       string `json:"name"`
	PublicKey  []byte `json:"public_key,omitempty"`
	PrivateKey []byte `json:"private_key,omitempty"`

	// KDFProfile names the Argon2id cost preset new backups are created
	// with; existing manifests carry their own kdf_params and are
	// unaffected by later profile changes.
	KDFProfile KDFProfile `json:"kdf_profile"`

	Engine    EngineConfig    `json:"engine"`
	Retention RetentionPolicy `json:"retention"`
	Storage   StorageConfig   `json:"storage"`

	// BackupPaths seeds `skylock backup` when no paths are given on the
	// command line. BackupExclude is stored but not read by the backup
	// command; no exclusion patterns are applied.
	BackupPaths   []string `json:"backup_paths,omitempty"`
	BackupExclude []string `json:"backup_exclude,omitempty"`

	// SigningEnabled controls whether manifests are Ed25519-signed on
	// upload and verified on restore.
	SigningEnabled bool `json:"signing_enabled"`

	// ConfigDir is where this file lives; not persisted into the file
	// itself.
	ConfigDir string `json:"-"`
}

// DefaultConfigDir returns ~/.skylock.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".skylock")
}

// New returns a Config populated with every documented default.
func New(name string) *Config {
	return &Config{
		Name:           name,
		KDFProfile:     KDFProfileBalanced,
		Engine:         DefaultEngineConfig(),
		Retention:      DefaultRetentionPolicy(),
		Storage:        StorageConfig{Kind: StorageBackendLocal},
		SigningEnabled: true,
	}
}

// Load loads configuration from configDir/config.json. An empty configDir
// resolves to DefaultConfigDir.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	configPath := filepath.Join(configDir, "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrNotInitialized
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ConfigDir = configDir
	return &cfg, nil
}

// Exists reports whether a config file is present in configDir.
func Exists(configDir string) bool {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	configPath := filepath.Join(configDir, "config.json")
	_, err := os.Stat(configPath)
	return err == nil
}

// Save atomically writes the configuration to ConfigDir/config.json with
// 0600 permissions, creating ConfigDir (0700) if needed.
func (c *Config) Save() error {
	if c.ConfigDir == "" {
		c.ConfigDir = DefaultConfigDir()
	}

	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	configPath := filepath.Join(c.ConfigDir, "config.json")
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, configPath)
}

// KDFParams resolves this config's active profile to concrete parameters.
func (c *Config) KDFParams() KDFParams {
	return ParamsForProfile(c.KDFProfile)
}

// SetBackupTargets updates the default backup source paths/exclusions and
// persists the change.
func (c *Config) SetBackupTargets(paths, exclude []string) error {
	c.BackupPaths = paths
	c.BackupExclude = exclude
	return c.Save()
}
