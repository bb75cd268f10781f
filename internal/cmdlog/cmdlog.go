package cmdlog

import (
	"time"

	"insta/internal/logging"
	"insta/internal/metrics"
)

// Run executes one CLI command, counting it and logging the outcome.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	fields := map[string]any{"took_ms": time.Since(start).Milliseconds()}
	if err != nil {
		metrics.IncCommandError(cmd)
		fields["error"] = err.Error()
		logging.Error(cmd+"_error", fields)
	} else {
		logging.Debug(cmd+"_ok", fields)
	}
	return err
}
