// Package output handles all valkyrie CLI output formatting.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// NewLogger returns a stderr logger whose level follows the -v count:
// 0 errors only, 1 warnings, 2 info, 3 or more debug.
func NewLogger(w io.Writer, verbosity int, noColor bool) *log.Logger {
	level := log.ErrorLevel
	switch {
	case verbosity >= 3:
		level = log.DebugLevel
	case verbosity == 2:
		level = log.InfoLevel
	case verbosity == 1:
		level = log.WarnLevel
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbosity >= 3,
		TimeFormat:      time.TimeOnly,
	})
	if noColor {
		logger.SetColorProfile(termenv.Ascii)
	}
	return logger
}

// Progress reports batch progress through a logger.
type Progress struct {
	logger *log.Logger
	start  time.Time
}

// NewProgress creates a progress reporter.
func NewProgress(logger *log.Logger) *Progress {
	return &Progress{
		logger: logger,
		start:  time.Now(),
	}
}

// Stage logs a stage header.
func (p *Progress) Stage(num, total int, msg string) {
	p.logger.Info(msg, "stage", fmt.Sprintf("%d/%d", num, total))
}

// Detail logs per-item detail at debug level.
func (p *Progress) Detail(msg string) {
	p.logger.Debug(msg)
}

// Warn logs a warning.
func (p *Progress) Warn(msg string) {
	p.logger.Warn(msg)
}

// Complete logs the elapsed time.
func (p *Progress) Complete() {
	p.logger.Info("Completed", "elapsed", time.Since(p.start).Round(100*time.Millisecond))
}
