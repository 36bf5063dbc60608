// Package errors provides the sentinel and typed errors used across
// skylock's crypto, engine, and restore packages.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error at the boundary of the system, independent of
// the specific failure underneath it. Callers that need to decide "retry,
// surface to the operator, or abort" switch on Kind rather than on error
// strings.
type Kind string

const (
	KindConfig         Kind = "config"
	KindIO             Kind = "io"
	KindNetwork        Kind = "network"
	KindAuth           Kind = "auth"
	KindCrypto         Kind = "crypto"
	KindPathValidation Kind = "path_validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindRateLimited    Kind = "rate_limited"
	KindCanceled       Kind = "canceled"
)

// CryptoReason narrows KindCrypto to the specific failure inside the
// crypto core.
type CryptoReason string

const (
	ReasonWrongKey            CryptoReason = "wrong_key"
	ReasonTagMismatch         CryptoReason = "tag_mismatch"
	ReasonHashMismatch        CryptoReason = "hash_mismatch"
	ReasonSizeLimit           CryptoReason = "size_limit"
	ReasonVersionUnsupported  CryptoReason = "version_unsupported"
	ReasonRateLimited         CryptoReason = "rate_limited"
	ReasonSigning             CryptoReason = "signing"
	ReasonRollback            CryptoReason = "rollback"
)

// CryptoError is the typed error returned by the crypto core. It always
// carries KindCrypto plus a CryptoReason so callers can errors.As into it
// without string-matching the message.
type CryptoError struct {
	Reason CryptoReason
	Err    error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("crypto: %s", e.Reason)
}

func (e *CryptoError) Unwrap() error { return e.Err }

func (e *CryptoError) Kind() Kind { return KindCrypto }

// NewCryptoError builds a CryptoError, optionally wrapping a lower-level
// cause.
func NewCryptoError(reason CryptoReason, cause error) *CryptoError {
	return &CryptoError{Reason: reason, Err: cause}
}

// Error is a general boundary error carrying a Kind plus a wrapped cause.
type Error struct {
	K   Kind
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.K, e.Err)
	}
	return string(e.K)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Kind() Kind { return e.K }

// New wraps err with kind k. If err is nil, New returns nil.
func New(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{K: k, Err: err}
}

// Newf wraps a formatted message with kind k.
func Newf(k Kind, format string, args ...any) error {
	return &Error{K: k, Err: fmt.Errorf(format, args...)}
}

// kinder is implemented by Error and CryptoError.
type kinder interface {
	Kind() Kind
}

// KindOf walks err's Unwrap chain looking for a Kind. Returns "" if none
// of the chain implements kinder.
func KindOf(err error) Kind {
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// Is reports whether err's Kind chain contains k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

// Sentinel errors for conditions that don't need a Kind wrapper because
// callers already know which package raised them.
var (
	// ErrNotInitialized is returned when skylock has not been initialized
	// in the given config directory.
	ErrNotInitialized = errors.New("skylock not initialized")

	// ErrBackupNotFound is returned when a backup_id has no known manifest.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrResumeStateNotFound is returned when no resumable backup matches
	// the requested source paths.
	ErrResumeStateNotFound = errors.New("no resume state found")

	// ErrChainVersionStale is returned when a manifest's
	// backup_chain_version does not exceed the locally recorded chain
	// state — the anti-rollback check in internal/chain.
	ErrChainVersionStale = errors.New("backup chain version is not newer than chain state")

	// ErrRetentionDryRun marks a retention planning pass that reported
	// but did not act; not a failure, used to short-circuit deletion.
	ErrRetentionDryRun = errors.New("retention dry run: no objects deleted")
)
