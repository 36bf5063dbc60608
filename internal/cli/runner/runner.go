package runner

import (
	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/config"
)

// ConfigProvider returns the currently loaded config and any load error,
// decoupling the runner from cli's package-level globals.
type ConfigProvider func() (*config.Config, error)

// CommandRunner chains interceptors around a command handler.
type CommandRunner struct {
	interceptors   []Interceptor
	configProvider ConfigProvider
}

// NewRunner creates a CommandRunner backed by the given config provider.
func NewRunner(provider ConfigProvider) *CommandRunner {
	return &CommandRunner{configProvider: provider}
}

// Use appends interceptors to the chain and returns the runner for
// chaining.
func (r *CommandRunner) Use(interceptors ...Interceptor) *CommandRunner {
	r.interceptors = append(r.interceptors, interceptors...)
	return r
}

// CommandFunc is the signature every command handler implements.
type CommandFunc func(ctx *CommandContext, cmd *cobra.Command, args []string) error

// Wrap produces a cobra RunE with the interceptor chain applied around fn.
func (r *CommandRunner) Wrap(fn CommandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, cfgErr := r.configProvider()
		ctx := NewContext(cfg, cfgErr)

		chain := func() error { return fn(ctx, cmd, args) }
		for i := len(r.interceptors) - 1; i >= 0; i-- {
			interceptor := r.interceptors[i]
			next := chain
			chain = func() error { return interceptor(ctx, cmd, args, next) }
		}
		return chain()
	}
}

// Builder constructs runners with common interceptor combinations, so
// each command file names the access level it needs instead of repeating
// the interceptor list.
type Builder struct {
	provider ConfigProvider
}

// NewBuilder creates a Builder backed by the given config provider.
func NewBuilder(provider ConfigProvider) *Builder {
	return &Builder{provider: provider}
}

// Base creates a runner with just logging.
func (b *Builder) Base() *CommandRunner {
	return NewRunner(b.provider).Use(WithLogging())
}

// Config creates a runner that requires config to be loaded.
func (b *Builder) Config() *CommandRunner {
	return NewRunner(b.provider).Use(WithLogging(), RequireConfig())
}

// Signed creates a runner that requires config plus an owner signing key,
// for commands that must sign what they write (backup, catalog updates).
func (b *Builder) Signed() *CommandRunner {
	return NewRunner(b.provider).Use(WithLogging(), RequireConfig(), RequireSigningKey())
}

// Uninitialized creates a runner that can run without configuration
// (init).
func (b *Builder) Uninitialized() *CommandRunner {
	return NewRunner(b.provider).Use(WithLogging(), AllowUninitialized())
}
