// Package integrity provides scheduled verification configuration
package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/logging"
)

// VerificationConfig holds settings for scheduled integrity verification
type VerificationConfig struct {
	// Enabled controls whether scheduled verification is active
	Enabled bool `json:"enabled"`

	// Interval between verification checks (e.g., "1h", "24h", "168h" for weekly)
	Interval string `json:"interval"`

	// CheckType: "quick" (existence/merkle only) or "full" (content hash verification)
	CheckType string `json:"checkType"`

	// AlertOnCorruption enables corruption alerts
	AlertOnCorruption bool `json:"alertOnCorruption"`

	// AlertWebhook is an optional URL named in the logged corruption alert;
	// no HTTP request is sent to it
	AlertWebhook string `json:"alertWebhook,omitempty"`

	// LastCheck records when verification last ran
	LastCheck *time.Time `json:"lastCheck,omitempty"`

	// LastResult stores the outcome of the last check
	LastResult *CheckResult `json:"lastResult,omitempty"`

	// ConsecutiveFailures counts failed checks recorded since the last
	// passing one
	ConsecutiveFailures int `json:"consecutiveFailures"`
}

// DefaultVerificationConfig returns sensible defaults
func DefaultVerificationConfig() *VerificationConfig {
	return &VerificationConfig{
		Enabled:           false,
		Interval:          "6h",
		CheckType:         "quick",
		AlertOnCorruption: true,
	}
}

// ParseInterval parses the interval string into a time.Duration
func (c *VerificationConfig) ParseInterval() (time.Duration, error) {
	if c.Interval == "" {
		return 6 * time.Hour, nil
	}
	return time.ParseDuration(c.Interval)
}

// Validate checks that the configuration is valid
func (c *VerificationConfig) Validate() error {
	if c.CheckType != "" && c.CheckType != "quick" && c.CheckType != "full" {
		return fmt.Errorf("invalid checkType: must be 'quick' or 'full'")
	}

	if c.Interval != "" {
		d, err := time.ParseDuration(c.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		if d < time.Minute {
			return fmt.Errorf("interval must be at least 1 minute")
		}
		if d > 30*24*time.Hour {
			return fmt.Errorf("interval must not exceed 30 days")
		}
	}

	return nil
}

// ConfigManager handles loading/saving verification configuration
type ConfigManager struct {
	basePath   string
	configPath string
	config     *VerificationConfig
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(basePath string) (*ConfigManager, error) {
	cm := &ConfigManager{
		basePath:   basePath,
		configPath: filepath.Join(basePath, "verification-config.json"),
	}

	if err := cm.load(); err != nil {
		cm.config = DefaultVerificationConfig()
	}

	return cm, nil
}

// load reads configuration from disk
func (cm *ConfigManager) load() error {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return err
	}

	cm.config = &VerificationConfig{}
	return json.Unmarshal(data, cm.config)
}

// Save writes configuration to disk
func (cm *ConfigManager) Save() error {
	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cm.configPath, data, 0600)
}

// Get returns the current configuration
func (cm *ConfigManager) Get() *VerificationConfig {
	return cm.config
}

// Update updates the configuration with new values
func (cm *ConfigManager) Update(cfg *VerificationConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.LastCheck == nil && cm.config.LastCheck != nil {
		cfg.LastCheck = cm.config.LastCheck
	}
	if cfg.LastResult == nil && cm.config.LastResult != nil {
		cfg.LastResult = cm.config.LastResult
	}

	cm.config = cfg
	return cm.Save()
}

// RecordCheck records the result of a verification check
func (cm *ConfigManager) RecordCheck(result *CheckResult) error {
	now := time.Now()
	cm.config.LastCheck = &now
	cm.config.LastResult = result

	if result.Passed {
		cm.config.ConsecutiveFailures = 0
	} else {
		cm.config.ConsecutiveFailures++
	}

	return cm.Save()
}

// ManagedScheduledChecker wraps ScheduledChecker with configuration management
type ManagedScheduledChecker struct {
	checker       *Checker
	configManager *ConfigManager
	scheduler     *ScheduledChecker
	source        ManifestSource
	masterKey     *crypto.SecretBytes
}

// NewManagedScheduledChecker creates a managed scheduled checker that
// verifies whatever source currently resolves to. masterKey is only
// required when CheckType is "full".
func NewManagedScheduledChecker(basePath string, checker *Checker, source ManifestSource, masterKey *crypto.SecretBytes) (*ManagedScheduledChecker, error) {
	cm, err := NewConfigManager(basePath)
	if err != nil {
		return nil, err
	}

	msc := &ManagedScheduledChecker{
		checker:       checker,
		configManager: cm,
		source:        source,
		masterKey:     masterKey,
	}

	return msc, nil
}

// GetConfig returns the current verification configuration
func (msc *ManagedScheduledChecker) GetConfig() *VerificationConfig {
	return msc.configManager.Get()
}

// UpdateConfig updates the verification configuration
func (msc *ManagedScheduledChecker) UpdateConfig(cfg *VerificationConfig) error {
	if err := msc.configManager.Update(cfg); err != nil {
		return err
	}

	msc.restartScheduler()
	return nil
}

// Start starts the scheduled checker based on current config
func (msc *ManagedScheduledChecker) Start() error {
	config := msc.configManager.Get()
	if !config.Enabled {
		return nil
	}

	return msc.startScheduler()
}

// Stop stops the scheduled checker
func (msc *ManagedScheduledChecker) Stop() {
	if msc.scheduler != nil {
		msc.scheduler.Stop()
		msc.scheduler = nil
	}
}

func (msc *ManagedScheduledChecker) startScheduler() error {
	config := msc.configManager.Get()

	interval, err := config.ParseInterval()
	if err != nil {
		return err
	}

	msc.scheduler = NewScheduledChecker(msc.checker, msc.source, msc.masterKey, config.CheckType, interval)

	msc.scheduler.SetCorruptionCallback(func(result *CheckResult) {
		_ = msc.configManager.RecordCheck(result)
		if config.AlertOnCorruption {
			msc.sendAlert(result, msc.checker.FailureStreak())
		}
	})

	msc.scheduler.Start()
	return nil
}

func (msc *ManagedScheduledChecker) restartScheduler() {
	msc.Stop()
	_ = msc.Start()
}

func (msc *ManagedScheduledChecker) sendAlert(result *CheckResult, streak int) {
	config := msc.configManager.Get()

	logging.Error("integrity alert: corruption detected",
		logging.String("backupId", result.BackupID),
		logging.Int("corruptFiles", result.CorruptFiles),
		logging.Int("missingFiles", result.MissingFiles),
		logging.Int("consecutiveFailures", streak))

	if config.AlertWebhook != "" && streak > 0 {
		logging.Warn("would POST to webhook", logging.String("webhook", config.AlertWebhook))
	}
}

// RunManualCheck performs a manual integrity check against whatever
// the configured ManifestSource currently resolves to.
func (msc *ManagedScheduledChecker) RunManualCheck(ctx context.Context, checkType string) (*CheckResult, error) {
	m, err := msc.source()
	if err != nil {
		return nil, fmt.Errorf("integrity: resolve manifest: %w", err)
	}

	var result *CheckResult
	switch checkType {
	case "full":
		result, err = msc.checker.FullCheck(ctx, m, msc.masterKey)
	default:
		result, err = msc.checker.QuickCheck(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	_ = msc.configManager.RecordCheck(result)
	return result, nil
}

// GetChecker returns the underlying Checker for direct access
func (msc *ManagedScheduledChecker) GetChecker() *Checker {
	return msc.checker
}

// GetHistory returns recent check results
func (msc *ManagedScheduledChecker) GetHistory(limit int) []CheckResult {
	return msc.checker.GetHistory(limit)
}
