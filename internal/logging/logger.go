package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel  // Minimum log level to output
	Format LogFormat // Output format (json or text)
	Output io.Writer // Output destination (defaults to stderr)
	Quiet  bool      // If true, suppress non-error output
}

// Logger wraps slog.Logger with clusterun-specific logging helpers
type Logger struct {
	logger *slog.Logger
	config Config
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: convertLogLevel(config.Level),
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		config: config,
	}
}

// NewLoggerFromConfig creates a logger from application configuration
func NewLoggerFromConfig(logLevel, logFormat string, quiet bool) *Logger {
	var level LogLevel
	switch logLevel {
	case "error":
		level = LevelError
	default:
		level = LevelInfo
	}

	var format LogFormat
	switch logFormat {
	case "json":
		format = FormatJSON
	default:
		format = FormatText
	}

	return NewLogger(Config{Level: level, Format: format, Quiet: quiet})
}

// convertLogLevel converts our LogLevel to slog.Level
func convertLogLevel(level LogLevel) slog.Level {
	if level == LevelError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	if l.config.Quiet {
		return // Suppress non-error output in quiet mode
	}
	l.logger.Info(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// IsQuiet returns whether the logger is in quiet mode
func (l *Logger) IsQuiet() bool {
	return l.config.Quiet
}

// LogConfigLoad logs configuration loading events
func (l *Logger) LogConfigLoad(source string) {
	l.Info("configuration loaded",
		"source", source,
	)
}

// LogPlan logs the resolved execution plan
func (l *Logger) LogPlan(mode string, size int, selected int, groups int) {
	l.Info("execution plan resolved",
		"mode", mode,
		"total_permutations", size,
		"selected", selected,
		"groups", groups,
	)
}

// LogPermutation logs the execution of one permutation
func (l *Logger) LogPermutation(index int, exitCode int, duration time.Duration) {
	l.Info("permutation executed",
		"index", index,
		"exit_code", exitCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogPermutationError logs a permutation whose command could not be run
func (l *Logger) LogPermutationError(index int, err error) {
	l.Error("permutation execution failed",
		"index", index,
		"error", err.Error(),
	)
}

// LogRunComplete logs the completion of a local run
func (l *Logger) LogRunComplete(total int, failed int, duration time.Duration) {
	l.Info("run completed",
		"total", total,
		"failed", failed,
		"total_duration_ms", duration.Milliseconds(),
	)
}

// LogSubmission logs a successful job submission
func (l *Logger) LogSubmission(jobName string, jobNumber int, indexCount int, jobID string) {
	l.Info("job submitted",
		"job_name", jobName,
		"job_number", jobNumber,
		"index_count", indexCount,
		"job_id", jobID,
	)
}

// LogSubmissionError logs a failed job submission
func (l *Logger) LogSubmissionError(jobName string, jobNumber int, err error) {
	l.Error("job submission failed",
		"job_name", jobName,
		"job_number", jobNumber,
		"error", err.Error(),
	)
}

// LogResolve logs a symbol resolution from an external code file
func (l *Logger) LogResolve(path string, name string) {
	l.Info("symbol resolved",
		"path", path,
		"name", name,
	)
}
