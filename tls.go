// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/bassosimone/safeconn"
)

// TLSEngine is the engine to create a new [TLSConn].
//
// The engine is the pluggable trust-and-handshake policy: replace it to
// use an alternative TLS implementation, the way the original handler
// accepted a custom socket factory.
type TLSEngine interface {
	// Client builds a new client [TLSConn].
	Client(conn net.Conn, config *tls.Config) TLSConn

	// Name returns the engine name.
	Name() string
}

// TLSEngineStdlib implements [TLSEngine] for the standard library.
//
// The zero value is ready to use.
type TLSEngineStdlib struct{}

var _ TLSEngine = TLSEngineStdlib{}

// Client implements [TLSEngine].
//
// This function uses [tls.Client] to build a new [*tls.Conn].
func (TLSEngineStdlib) Client(conn net.Conn, config *tls.Config) TLSConn {
	return tls.Client(conn, config)
}

// Name implements [TLSEngine].
//
// This function returns "stdlib".
func (TLSEngineStdlib) Name() string {
	return "stdlib"
}

// TLSConn abstracts over [*tls.Conn].
//
// By using an abstraction we allow for alternative TLS implementations.
type TLSConn interface {
	// ConnectionState returns the connection state.
	ConnectionState() tls.ConnectionState

	// HandshakeContext performs the handshake unless interrupted by the context.
	HandshakeContext(ctx context.Context) error

	// Embedding Conn means we can use this type as a [net.Conn].
	net.Conn
}

// NewTLSTransport returns a new [*TLSTransport].
//
// The cfg argument contains the common configuration for logship operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewTLSTransport(cfg *Config, logger SLogger) *TLSTransport {
	return &TLSTransport{
		Dialer:        cfg.Dialer,
		Engine:        TLSEngineStdlib{},
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// TLSTransport opens TCP connections and performs a TLS handshake over
// them before handing the conn to the sink.
//
// The handshake honors [Target.ConnectTimeout] along with the dial: a
// target whose collector accepts TCP but stalls the handshake still
// fails within the configured bound.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Open].
type TLSTransport struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewTLSTransport] from [Config.Dialer].
	Dialer Dialer

	// Engine is the [TLSEngine] to use to handshake.
	//
	// Set by [NewTLSTransport] to [TLSEngineStdlib].
	Engine TLSEngine

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewTLSTransport] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewTLSTransport] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewTLSTransport] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Transport = &TLSTransport{}

// Open implements [Transport] by dialing TCP and handshaking.
func (op *TLSTransport) Open(ctx context.Context, target Target, spanID string) (Conn, error) {
	runtimex.Assert(op.Engine != nil)
	if target.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.ConnectTimeout)
		defer cancel()
	}
	// Avoid a second timeout layer inside dialTarget: the deadline now
	// covers both the dial and the handshake.
	plain := target
	plain.ConnectTimeout = 0
	conn, err := dialTarget(ctx, op.Dialer, op.ErrClassifier, op.Logger, op.TimeNow, plain, spanID)
	if err != nil {
		return nil, err
	}
	tconn, err := op.handshake(ctx, conn, target, spanID)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return newStreamConn(tconn, target, spanID, op.ErrClassifier, op.Logger, op.TimeNow), nil
}

// handshake performs the TLS handshake over an established conn.
func (op *TLSTransport) handshake(ctx context.Context, conn net.Conn, target Target, spanID string) (TLSConn, error) {
	config := target.tlsConfig().Clone()
	if config.ServerName == "" {
		config.ServerName = target.Host
	}
	config.Time = op.TimeNow
	tconn := op.Engine.Client(conn, config)
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logHandshakeStart(conn, t0, deadline, config, spanID)
	err := tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()
	op.logHandshakeDone(conn, t0, deadline, config, err, state, spanID)
	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}

func (op *TLSTransport) logHandshakeStart(
	conn net.Conn, t0 time.Time, deadline time.Time, config *tls.Config, spanID string) {
	op.Logger.Info(
		"tlsHandshakeStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", spanID),
		slog.Time("t", t0),
		slog.String("tlsEngineName", op.Engine.Name()),
		slog.String("tlsServerName", config.ServerName),
		slog.Bool("tlsSkipVerify", config.InsecureSkipVerify),
	)
}

func (op *TLSTransport) logHandshakeDone(conn net.Conn, t0 time.Time,
	deadline time.Time, config *tls.Config, err error, state tls.ConnectionState, spanID string) {
	op.Logger.Info(
		"tlsHandshakeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.String("spanID", spanID),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
		slog.String("tlsCipherSuite", tls.CipherSuiteName(state.CipherSuite)),
		slog.String("tlsEngineName", op.Engine.Name()),
		slog.String("tlsNegotiatedProtocol", state.NegotiatedProtocol),
		slog.String("tlsServerName", config.ServerName),
		slog.Bool("tlsSkipVerify", config.InsecureSkipVerify),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
	)
}
