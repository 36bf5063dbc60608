package cli

import "fmt"

// cmdErrorf builds a plain command-usage error, distinct from the
// sentinel errors in internal/errors which classify pipeline failures.
func cmdErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
