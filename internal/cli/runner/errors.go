// Package runner provides an interceptor-based command execution framework
// for the CLI. It mirrors the middleware pattern used elsewhere in the
// backup pipeline (engine worker retries, storage retry wrapping), applied
// here to cobra command handlers.
package runner

import "errors"

var (
	// ErrNotInitialized is returned when a command needs configuration
	// but none has been loaded yet.
	ErrNotInitialized = errors.New("skylock not initialized - run 'skylock init' first")

	// ErrNoPassphrase is returned when a command needs the vault
	// passphrase but none could be resolved.
	ErrNoPassphrase = errors.New("no passphrase available - set SKYLOCK_PASSPHRASE or pass --passphrase")

	// ErrNoSigningKey is returned when a command needs the owner's
	// Ed25519 signing key but the loaded config has none.
	ErrNoSigningKey = errors.New("no signing key found in config")
)
