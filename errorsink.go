// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import "log/slog"

// ErrorCategory describes which stage of delivery failed.
type ErrorCategory int

const (
	// CategoryGeneric covers failures outside the write path: connection
	// establishment, encoding, and publishing after close.
	CategoryGeneric = ErrorCategory(iota)

	// CategoryWrite covers failed writes on an open connection.
	CategoryWrite

	// CategoryFlush covers failed flushes after a successful write.
	CategoryFlush

	// CategoryClose covers best-effort close diagnostics.
	CategoryClose
)

// String returns the category name.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryWrite:
		return "write"
	case CategoryFlush:
		return "flush"
	case CategoryClose:
		return "close"
	default:
		return "generic"
	}
}

// ErrorSink receives delivery failures.
//
// The [*SocketSink] never returns delivery errors to the publishing
// caller; it funnels them here instead, synchronously within the failing
// Publish or Close call. A caller that inspects its sink immediately
// after a publish therefore sees a deterministic result.
//
// Implementations should be cheap and must not call back into the
// [*SocketSink] that is reporting: Report runs while the sink's internal
// lock is held.
type ErrorSink interface {
	Report(msg string, cause error, category ErrorCategory)
}

// ErrorSinkFunc adapts a function to the [ErrorSink] interface.
type ErrorSinkFunc func(msg string, cause error, category ErrorCategory)

var _ ErrorSink = ErrorSinkFunc(nil)

// Report implements [ErrorSink].
func (f ErrorSinkFunc) Report(msg string, cause error, category ErrorCategory) {
	f(msg, cause, category)
}

// DefaultErrorSink returns the default [ErrorSink] to use.
//
// The default discards all reports, consistent with [DefaultSLogger]:
// the package stays silent unless explicitly configured.
func DefaultErrorSink() ErrorSink {
	return ErrorSinkFunc(func(msg string, cause error, category ErrorCategory) {
		// nothing
	})
}

// NewSLoggerErrorSink returns an [ErrorSink] that emits one structured
// "deliveryError" event per report on the given logger.
//
// The cfg argument contains the common configuration for logship operations.
func NewSLoggerErrorSink(cfg *Config, logger SLogger) ErrorSink {
	classifier := cfg.ErrClassifier
	timeNow := cfg.TimeNow
	return ErrorSinkFunc(func(msg string, cause error, category ErrorCategory) {
		logger.Info(
			"deliveryError",
			slog.String("category", category.String()),
			slog.Any("err", cause),
			slog.String("errClass", classifier.Classify(cause)),
			slog.String("message", msg),
			slog.Time("t", timeNow()),
		)
	})
}
