// Command skylock is the CLI entrypoint: encrypted, integrity-verified
// client-side backup with a signed catalog and anti-rollback chain.
package main

import (
	"github.com/skylock/skylock/internal/cli"
)

var version = "0.1.0"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
