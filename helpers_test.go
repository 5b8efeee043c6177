// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
	"github.com/bassosimone/tlsstub"
)

// newCapturingLogger returns a logger that captures all log records into the
// returned slice. The caller can inspect the slice after exercising the code
// under test to verify which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

// newMockTLSEngine returns a [*tlsstub.FuncTLSEngine] that wraps the given
// [TLSConn]. The engine's ClientFunc returns the conn and NameFunc
// returns "mock".
func newMockTLSEngine(conn TLSConn) *tlsstub.FuncTLSEngine[TLSConn] {
	return &tlsstub.FuncTLSEngine[TLSConn]{
		ClientFunc: func(c net.Conn, config *tls.Config) TLSConn {
			return conn
		},
		NameFunc: func() string {
			return "mock"
		},
		ParrotFunc: func() string {
			return ""
		},
	}
}

// newMinimalConn returns a [*netstub.FuncConn] with only LocalAddrFunc and
// RemoteAddrFunc set. This is the minimum needed for code that calls
// [safeconn.LocalAddr], [safeconn.RemoteAddr], and [safeconn.Network]
// during construction.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		LocalAddrFunc:  func() net.Addr { return &net.TCPAddr{} },
		RemoteAddrFunc: func() net.Addr { return &net.TCPAddr{} },
	}
}

// newWritableConn returns a [*netstub.FuncConn] that accepts writes,
// ignores deadlines, and closes without error.
func newWritableConn() *netstub.FuncConn {
	conn := newMinimalConn()
	conn.WriteFunc = func(data []byte) (int, error) { return len(data), nil }
	conn.CloseFunc = func() error { return nil }
	conn.SetWriteDeaFunc = func(tm time.Time) error { return nil }
	return conn
}

// newFixedDialer returns a [*netstub.FuncDialer] that always hands out
// the given conn.
func newFixedDialer(conn net.Conn) *netstub.FuncDialer {
	return &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return conn, nil
		},
	}
}

// reportRecord is one ErrorSink invocation captured by newRecordingSink.
type reportRecord struct {
	msg      string
	cause    error
	category ErrorCategory
}

// newRecordingSink returns an [ErrorSink] that appends every report to
// the returned slice, preserving invocation order.
func newRecordingSink() (ErrorSink, *[]reportRecord) {
	var reports []reportRecord
	sink := ErrorSinkFunc(func(msg string, cause error, category ErrorCategory) {
		reports = append(reports, reportRecord{msg: msg, cause: cause, category: category})
	})
	return sink, &reports
}

// newTestSink constructs a sink over the given dialer with a recording
// error sink, for exercising the publish path without real sockets.
func newTestSink(dialer Dialer, target Target) (*SocketSink, *[]reportRecord) {
	cfg := NewConfig()
	cfg.Dialer = dialer
	sink, err := NewSocketSink(cfg, target, DefaultSLogger())
	if err != nil {
		panic(err)
	}
	reporter, reports := newRecordingSink()
	sink.SetErrorSink(reporter)
	return sink, reports
}
