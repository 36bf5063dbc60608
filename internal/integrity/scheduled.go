package integrity

import (
	"context"
	"sync"
	"time"

	"github.com/skylock/skylock/internal/crypto"
	"github.com/skylock/skylock/internal/manifest"
)

// ManifestSource resolves the backup a ScheduledChecker should check
// next, e.g. "the most recent locally known manifest".
type ManifestSource func() (*manifest.BackupManifest, error)

// ScheduledChecker runs periodic integrity checks against whatever
// ManifestSource currently returns.
type ScheduledChecker struct {
	checker   *Checker
	source    ManifestSource
	masterKey *crypto.SecretBytes
	checkType string // "quick" or "full"
	interval  time.Duration
	stopChan  chan struct{}
	running   bool
	mu        sync.Mutex

	onCorruption func(result *CheckResult)
}

// NewScheduledChecker creates a scheduled checker. checkType selects
// QuickCheck ("quick") or FullCheck ("full"); FullCheck requires
// masterKey.
func NewScheduledChecker(checker *Checker, source ManifestSource, masterKey *crypto.SecretBytes, checkType string, interval time.Duration) *ScheduledChecker {
	return &ScheduledChecker{
		checker:   checker,
		source:    source,
		masterKey: masterKey,
		checkType: checkType,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// SetCorruptionCallback sets a callback invoked whenever a check fails.
func (sc *ScheduledChecker) SetCorruptionCallback(cb func(result *CheckResult)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.onCorruption = cb
}

// Start begins scheduled checking in a background goroutine.
func (sc *ScheduledChecker) Start() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.running {
		return
	}
	sc.running = true
	go sc.run()
}

// Stop stops scheduled checking.
func (sc *ScheduledChecker) Stop() {
	sc.mu.Lock()
	if !sc.running {
		sc.mu.Unlock()
		return
	}
	sc.running = false
	sc.mu.Unlock()
	close(sc.stopChan)
}

func (sc *ScheduledChecker) run() {
	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	sc.runCheck()
	for {
		select {
		case <-ticker.C:
			sc.runCheck()
		case <-sc.stopChan:
			return
		}
	}
}

func (sc *ScheduledChecker) runCheck() {
	m, err := sc.source()
	if err != nil {
		return
	}

	ctx := context.Background()
	var result *CheckResult
	if sc.checkType == "full" {
		result, err = sc.checker.FullCheck(ctx, m, sc.masterKey)
	} else {
		result, err = sc.checker.QuickCheck(ctx, m)
	}
	if err != nil {
		return
	}

	sc.mu.Lock()
	cb := sc.onCorruption
	sc.mu.Unlock()
	if !result.Passed && cb != nil {
		cb(result)
	}
}
