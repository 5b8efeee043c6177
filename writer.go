// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"context"
	"io"
)

// Writer adapts the sink to [io.Writer] so that formatter layers that
// emit bytes (e.g., [log.Logger] or a pattern formatter) can feed it
// directly. Each Write publishes one record.
//
// The returned writer never reports an error and always claims the full
// length: delivery failures go to the sink's [ErrorSink], consistent
// with [SocketSink.Publish]. Writes use [context.Background]; use
// Publish directly when you need a caller-controlled context.
func (s *SocketSink) Writer() io.Writer {
	return &sinkWriter{sink: s}
}

// sinkWriter is the [io.Writer] returned by [SocketSink.Writer].
type sinkWriter struct {
	sink *SocketSink
}

var _ io.Writer = &sinkWriter{}

// Write implements [io.Writer].
func (w *sinkWriter) Write(data []byte) (int, error) {
	w.sink.Publish(context.Background(), string(data))
	return len(data), nil
}
