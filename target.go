// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"
)

// Target describes where to deliver records.
//
// Target is a value type: the [*SocketSink] copies it on every read and
// write, so a caller holding a Target snapshot never observes a
// half-applied mutation.
type Target struct {
	// Protocol selects the transport.
	Protocol Protocol

	// Host is the collector host name or IP address.
	Host string

	// Port is the collector port.
	Port uint16

	// ConnectTimeout bounds connection establishment, including the TLS
	// handshake for [ProtocolTLS]. Zero means no timeout beyond the
	// caller's context.
	ConnectTimeout time.Duration

	// WriteTimeout bounds each write on a stream connection via a write
	// deadline. Zero means no deadline.
	WriteTimeout time.Duration

	// TLSConfig is the TLS configuration for [ProtocolTLS]. Nil selects
	// an empty [*tls.Config], which verifies the peer against the system
	// trust store. Override to inject custom trust material.
	TLSConfig *tls.Config
}

// Address returns the host:port string to dial.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// validate reports whether the target could ever be dialed.
func (t Target) validate() error {
	if t.Host == "" {
		return errors.New("logship: target host is empty")
	}
	if t.Port == 0 {
		return errors.New("logship: target port is zero")
	}
	return nil
}

// tlsConfig returns the configured [*tls.Config] or an empty one.
func (t Target) tlsConfig() *tls.Config {
	if t.TLSConfig != nil {
		return t.TLSConfig
	}
	return &tls.Config{}
}
