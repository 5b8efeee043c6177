// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewDatagramTransport returns a new [*DatagramTransport].
//
// The cfg argument contains the common configuration for logship operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewDatagramTransport(cfg *Config, logger SLogger) *DatagramTransport {
	return &DatagramTransport{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// DatagramTransport opens UDP sockets.
//
// "Opening" only resolves the remote address and binds a local datagram
// socket. There is no handshake, so Open cannot detect that the
// collector is unreachable, and most delivery failures are invisible:
// only local resource errors surface from Write. The sink accordingly
// never invalidates a datagram conn on write failure; the conn is just
// a cached destination replaced on target change.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Open].
type DatagramTransport struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewDatagramTransport] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewDatagramTransport] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewDatagramTransport] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewDatagramTransport] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Transport = &DatagramTransport{}

// Open implements [Transport] by resolving the target and binding a
// local datagram socket.
func (op *DatagramTransport) Open(ctx context.Context, target Target, spanID string) (Conn, error) {
	conn, err := dialTarget(ctx, op.Dialer, op.ErrClassifier, op.Logger, op.TimeNow, target, spanID)
	if err != nil {
		return nil, err
	}
	return &datagramConn{
		closeonce:     sync.Once{},
		conn:          conn,
		errClassifier: op.ErrClassifier,
		laddr:         safeconn.LocalAddr(conn),
		logger:        op.Logger,
		raddr:         safeconn.RemoteAddr(conn),
		spanID:        spanID,
		timeNow:       op.TimeNow,
	}, nil
}

// datagramConn sends one datagram per Write. There is no buffering, so
// Flush is a no-op.
type datagramConn struct {
	closeonce     sync.Once
	conn          net.Conn
	errClassifier ErrClassifier
	laddr         string
	logger        SLogger
	raddr         string
	spanID        string
	timeNow       func() time.Time
}

var _ Conn = &datagramConn{}

// Write implements [Conn].
func (c *datagramConn) Write(data []byte) (int, error) {
	count, err := c.conn.Write(data)
	c.logIO("write", count, err)
	return count, err
}

// Flush implements [Conn].
func (c *datagramConn) Flush() error {
	return nil
}

// Close implements [Conn].
//
// Subsequent calls return [net.ErrClosed], consistent with Go's standard
// library behavior for closed connections.
func (c *datagramConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		err = c.conn.Close()
		c.logIO("close", 0, err)
	})
	return
}

func (c *datagramConn) logIO(event string, count int, err error) {
	c.logger.Debug(
		event,
		slog.Int("count", count),
		slog.Any("err", err),
		slog.String("errClass", c.errClassifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", "udp"),
		slog.String("remoteAddr", c.raddr),
		slog.String("spanID", c.spanID),
		slog.Time("t", c.timeNow()),
	)
}
