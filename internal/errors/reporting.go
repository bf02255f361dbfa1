package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorReporter receives enhanced errors for external reporting.
// Implementations must be safe for concurrent use and must not call back
// into this package while handling an error.
type ErrorReporter interface {
	ReportError(err *EnhancedError)
}

var (
	reporterMu         sync.RWMutex
	reporter           ErrorReporter
	hasActiveReporting atomic.Bool
)

// SetReporter installs an external error reporter. Passing nil disables
// reporting and restores the fast path in Build.
func SetReporter(r ErrorReporter) {
	reporterMu.Lock()
	reporter = r
	reporterMu.Unlock()
	hasActiveReporting.Store(r != nil)
}

// report forwards the error to the active reporter, if any.
func report(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()

	if r == nil || ee.IsReported() {
		return
	}
	r.ReportError(ee)
	ee.MarkReported()
}
