package runner

import (
	"github.com/spf13/cobra"

	"github.com/skylock/skylock/internal/logging"
)

// Interceptor wraps command execution, the same shape every retry/backoff
// wrapper in the storage and engine packages uses: take the next step as
// a closure, decide whether and how to call it.
type Interceptor func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error

// RequireConfig ensures configuration is loaded before executing the
// command.
func RequireConfig() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		if ctx.ConfigErr != nil {
			return ctx.ConfigErr
		}
		if ctx.Config == nil {
			return ErrNotInitialized
		}
		return next()
	}
}

// RequireSigningKey ensures the loaded config has an owner signing key.
// Implicitly requires config to be loaded.
func RequireSigningKey() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		if ctx.ConfigErr != nil {
			return ctx.ConfigErr
		}
		if ctx.Config == nil {
			return ErrNotInitialized
		}
		if len(ctx.Config.PrivateKey) == 0 {
			return ErrNoSigningKey
		}
		return next()
	}
}

// WithLogging logs command execution at debug level, success or failure.
func WithLogging() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		logging.Debug("cli command", logging.String("cmd", cmd.Name()))
		err := next()
		if err != nil {
			logging.Debug("cli error", logging.String("cmd", cmd.Name()), logging.Err(err))
		}
		return err
	}
}

// AllowUninitialized marks that a command can run without configuration.
// It is a no-op interceptor that documents intent in the Builder method
// that installs it.
func AllowUninitialized() Interceptor {
	return func(ctx *CommandContext, cmd *cobra.Command, args []string, next func() error) error {
		return next()
	}
}
