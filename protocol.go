// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import "fmt"

// Protocol selects the transport used to reach the collector.
type Protocol int

const (
	// ProtocolTCP is a plaintext stream connection.
	ProtocolTCP = Protocol(iota)

	// ProtocolTLS is an encrypted stream connection.
	ProtocolTLS

	// ProtocolUDP is a connectionless datagram socket.
	ProtocolUDP
)

// ParseProtocol maps a protocol name to a [Protocol].
//
// Recognized names are "tcp", "tls", and "udp" (case-sensitive).
// Unknown names return an error: an invalid protocol is a configuration
// mistake and the one kind of failure this package reports loudly.
func ParseProtocol(name string) (Protocol, error) {
	switch name {
	case "tcp":
		return ProtocolTCP, nil
	case "tls":
		return ProtocolTLS, nil
	case "udp":
		return ProtocolUDP, nil
	default:
		return 0, fmt.Errorf("logship: unknown protocol: %q", name)
	}
}

// String returns the protocol name accepted by [ParseProtocol].
func (p Protocol) String() string {
	switch p {
	case ProtocolTLS:
		return "tls"
	case ProtocolUDP:
		return "udp"
	default:
		return "tcp"
	}
}

// network returns the network name to pass to a [Dialer].
func (p Protocol) network() string {
	if p == ProtocolUDP {
		return "udp"
	}
	return "tcp"
}
