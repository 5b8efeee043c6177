// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// Dialer abstracts the [*net.Dialer] behavior.
//
// By making transports depend on an abstract implementation we allow
// for unit testing and for using alternative dialers.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Conn is one live channel to the collector.
//
// A Conn is exclusively owned by the [*SocketSink] that opened it and is
// never handed to publishing callers. Write delivers one record's bytes;
// Flush pushes buffered bytes to the wire (a no-op for datagram conns);
// Close releases the socket. A Conn, once closed, is never written again.
type Conn interface {
	Write(data []byte) (int, error)
	Flush() error
	Close() error
}

// Transport knows how to open a protocol-specific [Conn] to a [Target].
//
// Implementations must return either a valid [Conn] or an error, never
// both, and must not retain the target beyond the call. The spanID
// argument correlates the connection's log events: pass the same value
// the caller will use for subsequent operations on the conn.
type Transport interface {
	Open(ctx context.Context, target Target, spanID string) (Conn, error)
}

// NewStreamTransport returns a new [*StreamTransport].
//
// The cfg argument contains the common configuration for logship operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewStreamTransport(cfg *Config, logger SLogger) *StreamTransport {
	return &StreamTransport{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// StreamTransport opens plaintext TCP connections.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Open].
type StreamTransport struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewStreamTransport] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewStreamTransport] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewStreamTransport] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewStreamTransport] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Transport = &StreamTransport{}

// Open implements [Transport] by dialing a TCP connection.
func (op *StreamTransport) Open(ctx context.Context, target Target, spanID string) (Conn, error) {
	conn, err := dialTarget(ctx, op.Dialer, op.ErrClassifier, op.Logger, op.TimeNow, target, spanID)
	if err != nil {
		return nil, err
	}
	return newStreamConn(conn, target, spanID, op.ErrClassifier, op.Logger, op.TimeNow), nil
}

// dialTarget dials the target with connect-timeout and logging common to
// all transports.
func dialTarget(ctx context.Context, dialer Dialer, classifier ErrClassifier,
	logger SLogger, timeNow func() time.Time, target Target, spanID string) (net.Conn, error) {
	if target.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.ConnectTimeout)
		defer cancel()
	}
	network, address := target.Protocol.network(), target.Address()
	t0 := timeNow()
	deadline, _ := ctx.Deadline()
	logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", network),
		slog.String("remoteAddr", address),
		slog.String("spanID", spanID),
		slog.Time("t", t0),
	)
	conn, err := dialer.DialContext(ctx, network, address)
	logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", classifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", network),
		slog.String("remoteAddr", address),
		slog.String("spanID", spanID),
		slog.Time("t0", t0),
		slog.Time("t", timeNow()),
	)
	return conn, err
}

// newStreamConn wraps a stream socket with buffering and I/O logging.
func newStreamConn(conn net.Conn, target Target, spanID string,
	classifier ErrClassifier, logger SLogger, timeNow func() time.Time) *streamConn {
	return &streamConn{
		bw:            bufio.NewWriter(conn),
		closeonce:     sync.Once{},
		conn:          conn,
		errClassifier: classifier,
		laddr:         safeconn.LocalAddr(conn),
		logger:        logger,
		protocol:      target.Protocol.String(),
		raddr:         safeconn.RemoteAddr(conn),
		spanID:        spanID,
		timeNow:       timeNow,
		writeTimeout:  target.WriteTimeout,
	}
}

// streamConn is a buffered stream [Conn].
//
// Records accumulate in the [*bufio.Writer] until Flush. The sink
// flushes after every record when AutoFlush is set, and before closing
// otherwise.
type streamConn struct {
	bw            *bufio.Writer
	closeonce     sync.Once
	conn          net.Conn
	errClassifier ErrClassifier
	laddr         string
	logger        SLogger
	protocol      string
	raddr         string
	spanID        string
	timeNow       func() time.Time
	writeTimeout  time.Duration
}

var _ Conn = &streamConn{}

// Write implements [Conn].
func (c *streamConn) Write(data []byte) (int, error) {
	c.setWriteDeadline()
	count, err := c.bw.Write(data)
	c.logIO("write", count, err)
	return count, err
}

// Flush implements [Conn].
func (c *streamConn) Flush() error {
	c.setWriteDeadline()
	err := c.bw.Flush()
	c.logIO("flush", 0, err)
	return err
}

// Close implements [Conn].
//
// Subsequent calls return [net.ErrClosed], consistent with Go's standard
// library behavior for closed connections.
func (c *streamConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		err = c.conn.Close()
		c.logIO("close", 0, err)
	})
	return
}

func (c *streamConn) setWriteDeadline() {
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(c.timeNow().Add(c.writeTimeout))
	}
}

func (c *streamConn) logIO(event string, count int, err error) {
	c.logger.Debug(
		event,
		slog.Int("count", count),
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.String("spanID", c.spanID),
		slog.Time("t", c.timeNow()),
	)
}
