package runner

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/skylock/skylock/internal/config"
	"github.com/skylock/skylock/internal/storage"
)

// PassphraseEnvVar is checked before falling back to an interactive
// prompt, mirroring how restic-family tools resolve their repository
// password.
const PassphraseEnvVar = "SKYLOCK_PASSPHRASE"

// CommandContext provides shared dependencies to command handlers.
// Dependencies that require I/O (the storage backend) are lazily built on
// first access so commands that never call Backend (init) don't pay for
// it.
type CommandContext struct {
	Config    *config.Config
	ConfigErr error

	backend     storage.Backend
	backendOnce sync.Once
	backendErr  error
}

// NewContext creates a new CommandContext with the given config.
func NewContext(cfg *config.Config, cfgErr error) *CommandContext {
	return &CommandContext{Config: cfg, ConfigErr: cfgErr}
}

// HasConfig returns true if config is loaded successfully.
func (c *CommandContext) HasConfig() bool {
	return c.Config != nil && c.ConfigErr == nil
}

// SaveConfig saves the configuration with standardized error wrapping.
func (c *CommandContext) SaveConfig() error {
	if c.Config == nil {
		return ErrNotInitialized
	}
	if err := c.Config.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Backend lazily constructs the storage backend named by the loaded
// config, wrapped with retry handling the same way the backup engine
// wraps it.
func (c *CommandContext) Backend() (storage.Backend, error) {
	c.backendOnce.Do(func() {
		if c.Config == nil {
			c.backendErr = ErrNotInitialized
			return
		}
		switch c.Config.Storage.Kind {
		case config.StorageBackendLocal:
			local := c.Config.Storage.LocalPath
			if local == "" {
				local = c.Config.ConfigDir + "/objects"
			}
			b, err := storage.NewLocalBackend(local)
			if err != nil {
				c.backendErr = err
				return
			}
			c.backend = storage.NewRetryingBackend(b)
		default:
			c.backendErr = fmt.Errorf("unsupported storage backend kind %q", c.Config.Storage.Kind)
		}
	})
	return c.backend, c.backendErr
}

// ResolvePassphrase resolves the vault passphrase: an explicit flag value
// takes priority, then the SKYLOCK_PASSPHRASE environment variable, then
// an interactive stdin prompt. Nothing in this codebase's dependency set
// offers a no-echo terminal read, so the prompt falls back to a plain
// line read off stdin.
func ResolvePassphrase(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(PassphraseEnvVar); env != "" {
		return env, nil
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", ErrNoPassphrase
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrNoPassphrase
	}
	return line, nil
}
