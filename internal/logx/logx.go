package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"buildpack/internal/paths"
)

// New creates a logger that writes to a timestamped file inside the layout's
// logs directory. Every line carries a short run id so concurrent builds
// sharing a cache volume can be told apart. When mirror is non-nil the log is
// copied there as well. The returned closer should be closed when logging is
// no longer needed.
func New(l paths.Layout, mirror io.Writer) (*log.Logger, io.Closer, string, error) {
	if err := os.MkdirAll(l.LogsDir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("ensure logs directory: %w", err)
	}

	runID := uuid.NewString()[:8]
	filename := time.Now().Format("20060102-150405") + "-" + runID + ".log"
	file, err := os.OpenFile(filepath.Join(l.LogsDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open log file: %w", err)
	}

	var out io.Writer = file
	if mirror != nil {
		out = io.MultiWriter(file, mirror)
	}

	logger := log.New(out, "["+runID+"] ", log.LstdFlags|log.Lmicroseconds)
	return logger, file, runID, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
