// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/runtimex"
)

// ErrSinkClosed indicates a publish attempted after Close.
var ErrSinkClosed = errors.New("logship: sink is closed")

// NewSocketSink returns a new [*SocketSink] delivering to the given target.
//
// The cfg argument contains the common configuration for logship operations.
//
// The target argument is where to deliver records; an invalid target
// (empty host, zero port) is rejected here, loudly, so that delivery
// failures later on can stay quiet.
//
// The logger argument is the [SLogger] to use for structured logging.
//
// The sink starts with AutoFlush enabled, UTF-8 encoding, and a
// discarding error sink; use the mutators to change any of these.
func NewSocketSink(cfg *Config, target Target, logger SLogger) (*SocketSink, error) {
	runtimex.Assert(cfg != nil)
	runtimex.Assert(logger != nil)
	if err := target.validate(); err != nil {
		return nil, err
	}
	encoder, err := newTextEncoder("")
	runtimex.Assert(err == nil)
	return &SocketSink{
		autoFlush:     true,
		closed:        false,
		conn:          nil,
		dialer:        cfg.Dialer,
		encoder:       encoder,
		errClassifier: cfg.ErrClassifier,
		errorSink:     DefaultErrorSink(),
		logger:        logger,
		mu:            sync.Mutex{},
		target:        target,
		timeNow:       cfg.TimeNow,
		tlsEngine:     nil,
	}, nil
}

// SocketSink ships formatted log records to a remote collector.
//
// The sink owns at most one live [Conn] at a time, opened lazily on the
// first publish and replaced when the target changes or a write fails.
// All methods are safe for concurrent use: one internal lock serializes
// publishes, target mutations, and teardown, so a record is never
// written to a connection that is concurrently being closed, and two
// publishes racing to reconnect never leak a connection.
//
// Construct via [NewSocketSink].
type SocketSink struct {
	// mu guards every other field. Publish holds it for the whole
	// encode-acquire-write-flush sequence.
	mu sync.Mutex

	// autoFlush flushes stream conns after every record when set.
	autoFlush bool

	// closed records that Close ran; publishes after that are reported
	// as [ErrSinkClosed] and dropped.
	closed bool

	// conn is the single live connection, or nil (Empty state).
	conn Conn

	// spanID correlates log events of the current connection.
	spanID string

	// target is where the next connection is opened.
	target Target

	// encoder converts record text to wire bytes.
	encoder *textEncoder

	// errorSink receives delivery failures.
	errorSink ErrorSink

	// tlsEngine overrides [TLSEngineStdlib] when non-nil.
	tlsEngine TLSEngine

	// dialer, errClassifier, logger, and timeNow are the ambient
	// dependencies captured from the Config at construction.
	dialer        Dialer
	errClassifier ErrClassifier
	logger        SLogger
	timeNow       func() time.Time
}

// Publish delivers one formatted record.
//
// Publish never returns an error to the caller: encoding failures,
// connect failures, and write/flush failures are reported to the
// configured [ErrorSink], synchronously, and the record is dropped.
// There is no retry within a call; a later Publish opens a fresh
// connection if this one discovered a broken or absent one.
//
// Publish blocks for at most the configured connect and write timeouts.
// The ctx bounds connection establishment together with
// [Target.ConnectTimeout]; it does not cancel an in-flight write.
func (s *SocketSink) Publish(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.errorSink.Report("publish on closed sink", ErrSinkClosed, CategoryGeneric)
		return
	}
	data, err := s.encoder.Encode(text)
	if err != nil {
		// No I/O happened: the connection, if any, stays valid.
		s.errorSink.Report("cannot encode record as "+s.encoder.Name(), err, CategoryGeneric)
		return
	}
	conn, err := s.acquireLocked(ctx)
	if err != nil {
		s.errorSink.Report("cannot connect to "+s.target.Address(), err, CategoryGeneric)
		return
	}
	if _, err := conn.Write(data); err != nil {
		s.invalidateOnIOFailureLocked()
		s.errorSink.Report("cannot deliver record to "+s.target.Address(), err, CategoryWrite)
		return
	}
	if s.autoFlush {
		if err := conn.Flush(); err != nil {
			s.invalidateOnIOFailureLocked()
			s.errorSink.Report("cannot flush record to "+s.target.Address(), err, CategoryFlush)
			return
		}
	}
}

// Close flushes and closes the current connection, if any, and marks the
// sink closed. Close is idempotent and never fails loudly: flush and
// close problems are reported to the [ErrorSink] as best-effort
// diagnostics. Publishing after Close reports [ErrSinkClosed].
func (s *SocketSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.conn != nil {
		if err := s.conn.Flush(); err != nil {
			s.errorSink.Report("cannot flush "+s.target.Address()+" on close", err, CategoryFlush)
		}
	}
	s.invalidateLocked()
	s.closed = true
}

// acquireLocked returns the live connection, opening one against the
// current target snapshot if the holder is empty. The caller must hold mu.
func (s *SocketSink) acquireLocked(ctx context.Context) (Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	spanID := NewSpanID()
	conn, err := s.transportLocked().Open(ctx, s.target, spanID)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	s.spanID = spanID
	return conn, nil
}

// invalidateLocked closes the current connection, if any, and empties
// the holder. Close errors are reported, never returned: closing a dead
// socket must not itself fail the caller. The caller must hold mu.
func (s *SocketSink) invalidateLocked() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.errorSink.Report("cannot close connection to "+s.target.Address(), err, CategoryClose)
	}
	s.conn = nil
	s.spanID = ""
}

// invalidateOnIOFailureLocked invalidates after a failed write or flush.
//
// Datagram conns are exempt: UDP gives no delivery feedback, so a write
// error there is a local condition and the cached destination stays.
// Only a target change replaces a datagram conn.
func (s *SocketSink) invalidateOnIOFailureLocked() {
	if s.target.Protocol == ProtocolUDP {
		return
	}
	s.invalidateLocked()
}

// transportLocked builds the [Transport] for the current target protocol.
// The caller must hold mu.
func (s *SocketSink) transportLocked() Transport {
	cfg := &Config{
		Dialer:        s.dialer,
		ErrClassifier: s.errClassifier,
		TimeNow:       s.timeNow,
	}
	switch s.target.Protocol {
	case ProtocolTLS:
		txp := NewTLSTransport(cfg, s.logger)
		if s.tlsEngine != nil {
			txp.Engine = s.tlsEngine
		}
		return txp
	case ProtocolUDP:
		return NewDatagramTransport(cfg, s.logger)
	default:
		return NewStreamTransport(cfg, s.logger)
	}
}

// Target returns a snapshot of the current target.
//
// The snapshot is a copy: mutating the sink afterwards does not change
// it, and a reader never observes a half-applied mutation.
func (s *SocketSink) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// SetTarget replaces the whole target atomically.
//
// Like every target mutator, it closes the current connection first and
// lets the next publish reconnect against the new target. An invalid
// target is rejected and the previous one kept, though the connection is
// already gone by then.
func (s *SocketSink) SetTarget(target Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	if err := target.validate(); err != nil {
		return err
	}
	s.target = target
	return nil
}

// SetProtocol switches the delivery protocol. Non-blocking: the current
// connection is closed and the next publish opens a fresh one using the
// new protocol's transport.
func (s *SocketSink) SetProtocol(protocol Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.Protocol = protocol
}

// SetHost changes the collector host. Non-blocking; reconnects lazily.
func (s *SocketSink) SetHost(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.Host = host
}

// SetPort changes the collector port. Non-blocking; reconnects lazily.
func (s *SocketSink) SetPort(port uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.Port = port
}

// SetConnectTimeout changes the bound on connection establishment.
func (s *SocketSink) SetConnectTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.ConnectTimeout = timeout
}

// SetWriteTimeout changes the per-write deadline on stream connections.
func (s *SocketSink) SetWriteTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.WriteTimeout = timeout
}

// SetTLSConfig changes the TLS trust material used by [ProtocolTLS].
// This is how callers inject custom roots or client certificates.
func (s *SocketSink) SetTLSConfig(config *tls.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.target.TLSConfig = config
}

// SetTLSEngine replaces the TLS implementation used by [ProtocolTLS].
// Passing nil restores [TLSEngineStdlib].
func (s *SocketSink) SetTLSEngine(engine TLSEngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.tlsEngine = engine
}

// SetAutoFlush controls whether stream conns flush after every record.
// Disabling it batches records in the connection buffer until Close.
// This does not touch the current connection.
func (s *SocketSink) SetAutoFlush(autoFlush bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoFlush = autoFlush
}

// SetEncoding selects the character set used to encode records, by IANA
// name. Unknown names fail loudly and leave the sink unchanged. The
// connection is untouched: encoding is a local concern.
func (s *SocketSink) SetEncoding(name string) error {
	encoder, err := newTextEncoder(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encoder = encoder
	return nil
}

// SetErrorSink replaces the failure report destination. Passing nil
// restores the discarding default.
func (s *SocketSink) SetErrorSink(sink ErrorSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sink == nil {
		sink = DefaultErrorSink()
	}
	s.errorSink = sink
}
