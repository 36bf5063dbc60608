// Package cli implements skylock's command-line interface: cobra commands
// for initializing a vault, running backups, restoring and verifying
// them, planning and applying retention, and inspecting the signed
// backup catalog.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/cli/runner"
	"github.com/skylock/skylock/internal/config"
	"github.com/skylock/skylock/internal/logging"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var (
	cfg    *config.Config
	cfgErr error

	// runners is a package-level var (not set inside func init) so Go's
	// dependency-ordered variable initialization guarantees it's ready
	// before any command var below that calls runners.Xxx().Wrap(...).
	runners = runner.NewBuilder(Config)
)

// backupRoot is the prefix under which every backup's ciphertext objects
// and manifest live on the storage backend, matching the
// {backup_root}/{backup_id}/... layout the reference storage server and
// backup engine tests use.
const backupRoot = "backups"

var rootCmd = &cobra.Command{
	Use:   "skylock",
	Short: "Encrypted, integrity-verified client-side backup",
	Long: `skylock encrypts files on the client before they ever leave this
machine, signs the resulting manifest with the owner's key, and keeps a
signed catalog of every backup it has ever made so a compromised or
careless storage host can't silently tamper with or delete one without
it showing up on the next integrity check.`,
}

func init() {
	cobra.OnInitialize(initLogging, initConfig)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func initLogging() {
	logging.InitDefault()
}

func initConfig() {
	cfg, cfgErr = config.Load("")
}

// Config returns the currently loaded config (cfg, cfgErr), satisfying
// runner.ConfigProvider.
func Config() (*config.Config, error) {
	return cfg, cfgErr
}

// Execute runs the CLI, exiting the process with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version string reported by `skylock --version`.
func SetVersion(v string) {
	Version = v
	rootCmd.Version = v
}
