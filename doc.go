// SPDX-License-Identifier: GPL-3.0-or-later

// Package logship delivers formatted log records to a remote collector
// over TCP, TLS, or UDP.
//
// # Core Abstraction
//
// The package is built around the [*SocketSink] type:
//
//	sink, err := logship.NewSocketSink(cfg, target, logger)
//	...
//	sink.Publish(ctx, "formatted record\n")
//
// A [*SocketSink] lazily opens a connection to its [Target] on first
// publish, caches it across calls, and tears it down and reopens it when
// the target changes or a write fails. Delivery is best effort: a record
// that cannot be delivered is reported to the configured [ErrorSink] and
// dropped, never thrown back at the logging caller. A logging subsystem
// must not destabilize the application that is merely trying to log.
//
// # Transports
//
// Three [Transport] implementations back the three protocols:
//
//   - [StreamTransport]: plaintext TCP with buffered writes
//   - [TLSTransport]: TCP plus a TLS handshake via a pluggable [TLSEngine]
//   - [DatagramTransport]: UDP, one datagram per record
//
// Stream transports buffer via [bufio.Writer]; set AutoFlush on the sink
// to flush after every record. UDP has no handshake and no delivery
// feedback: opening only resolves the remote address, and a failed write
// never invalidates the cached socket. Do not expect the reconnect logic
// to mask an unreachable UDP collector.
//
// # Connection Lifecycle
//
// The sink owns at most one live connection at any instant. Whoever
// replaces it closes the previous one first, on every code path: target
// mutation, write or flush failure, and Close. Callers never receive a
// reference to the connection.
//
// Target mutators (SetHost, SetPort, SetProtocol, ...) are non-blocking:
// they close the current connection and record the new target; the next
// publish reconnects. A mutation racing with a publish is serialized by
// the sink's internal lock, so a record is never written to a connection
// that is concurrently being torn down.
//
// # Errors
//
// Expected failures (connection refused, peer reset, handshake failure,
// unencodable text) are ordinary values funneled to the [ErrorSink]
// together with an [ErrorCategory]. The only loud failures are
// construction and mutation with invalid input (unknown protocol name,
// unknown encoding name), which return errors to their direct caller.
//
// # Observability
//
// All operations support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled. Connection lifecycle
// events (connectStart/connectDone, tlsHandshakeStart/tlsHandshakeDone)
// are emitted at [slog.LevelInfo]; per-record I/O events (write, flush,
// close) at [slog.LevelDebug]. Events from the same connection share a
// spanID (UUIDv7, see [NewSpanID]) for correlation. Error classification
// is configurable via [ErrClassifier]; the default uses errclass.
//
// # Timeout and Context Philosophy
//
// Operations never modify the context they receive, except that a
// nonzero [Target.ConnectTimeout] bounds connection establishment via
// [context.WithTimeout] layered on the caller's context. Writes are
// bounded by [Target.WriteTimeout] through write deadlines. There is no
// cancellation of an in-flight write once started.
//
// # Design Boundaries
//
// The following are out of scope and belong to higher-level packages:
//
//   - Record formatting and framing (supply already-formatted text)
//   - Buffering or async dispatch upstream of Publish
//   - Guaranteed delivery, retry queues, acknowledgements
//
// The sink writes exactly the encoded bytes of each record, with no
// extra framing, and drops what it cannot deliver.
package logship
