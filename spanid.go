// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way. The [*SocketSink] assigns a span to each connection lifetime: the
// connect (and TLS handshake), every write and flush on that connection,
// and its eventual close all share one span ID.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
