// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorCategory names are stable: sinks key off them.
func TestErrorCategoryString(t *testing.T) {
	assert.Equal(t, "generic", CategoryGeneric.String())
	assert.Equal(t, "write", CategoryWrite.String())
	assert.Equal(t, "flush", CategoryFlush.String())
	assert.Equal(t, "close", CategoryClose.String())
}

// The default sink discards without panicking.
func TestDefaultErrorSink(t *testing.T) {
	sink := DefaultErrorSink()
	require.NotNil(t, sink)
	sink.Report("dropped record", errors.New("boom"), CategoryWrite)
	sink.Report("no cause", nil, CategoryGeneric)
}

// ErrorSinkFunc forwards to the wrapped function.
func TestErrorSinkFunc(t *testing.T) {
	var gotMsg string
	var gotCause error
	var gotCategory ErrorCategory

	sink := ErrorSinkFunc(func(msg string, cause error, category ErrorCategory) {
		gotMsg, gotCause, gotCategory = msg, cause, category
	})

	wantErr := errors.New("peer reset")
	sink.Report("cannot deliver", wantErr, CategoryWrite)

	assert.Equal(t, "cannot deliver", gotMsg)
	assert.Same(t, wantErr, gotCause)
	assert.Equal(t, CategoryWrite, gotCategory)
}

// The SLogger-backed sink emits one deliveryError event per report.
func TestNewSLoggerErrorSink(t *testing.T) {
	logger, records := newCapturingLogger()
	sink := NewSLoggerErrorSink(NewConfig(), logger)

	sink.Report("cannot flush", errors.New("broken pipe"), CategoryFlush)

	require.Len(t, *records, 1)
	record := (*records)[0]
	assert.Equal(t, "deliveryError", record.Message)
	assert.Equal(t, slog.LevelInfo, record.Level)

	attrs := map[string]slog.Value{}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value
		return true
	})
	assert.Equal(t, "flush", attrs["category"].String())
	assert.Equal(t, "cannot flush", attrs["message"].String())
}
