package executor

import (
	"fmt"
	"io"
	"os"
)

// ExecutorOptions configures join execution.
type ExecutorOptions struct {
	// Logging
	EnableDebugLogging bool
	DebugWriter        io.Writer // Destination for debug lines (default: os.Stderr)

	// Build side
	DefaultHashTableSize int // Hash table presize when the build size is unknown. If 0, uses 256.
	MaxBuildRows         int // Build rows allowed before failing with ErrResourceExhausted (0 = unlimited)

	// Probe side
	ProbeWorkers   int // Parallel probe workers (0 or 1 = probe serially)
	ProbeBatchSize int // Probe rows per worker batch (default: 256)
}

// DefaultExecutorOptions returns serial execution with no build limit.
func DefaultExecutorOptions() ExecutorOptions {
	return ExecutorOptions{
		DefaultHashTableSize: 256,
		ProbeBatchSize:       256,
	}
}

func (o ExecutorOptions) probeBatchSize() int {
	if o.ProbeBatchSize <= 0 {
		return 256
	}
	return o.ProbeBatchSize
}

func (o ExecutorOptions) debugf(format string, args ...interface{}) {
	if !o.EnableDebugLogging {
		return
	}
	w := o.DebugWriter
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, format+"\n", args...)
}
