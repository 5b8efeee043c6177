// SPDX-License-Identifier: GPL-3.0-or-later

package logship

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// textEncoder converts formatted records into the byte sequence shipped
// on the wire.
//
// The zero value encodes UTF-8, which never fails. A non-UTF-8 encoder
// fails on runes the character set cannot represent; the sink reports
// such failures without touching the connection, since no I/O happened.
type textEncoder struct {
	// name is the IANA name this encoder was built from, for display.
	name string

	// enc is the non-UTF-8 encoding, or nil for the UTF-8 fast path.
	enc encoding.Encoding
}

// newTextEncoder resolves an IANA character set name.
//
// The empty string, "utf-8", and "UTF-8" select the never-failing UTF-8
// fast path. Unknown names return an error: like an unknown protocol,
// a bad encoding name is a configuration mistake reported loudly.
func newTextEncoder(name string) (*textEncoder, error) {
	switch name {
	case "", "utf-8", "UTF-8":
		return &textEncoder{name: "utf-8", enc: nil}, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("logship: unknown encoding: %q", name)
	}
	return &textEncoder{name: name, enc: enc}, nil
}

// Name returns the IANA name of the character set.
func (te *textEncoder) Name() string {
	return te.name
}

// Encode converts text to bytes in the configured character set.
//
// Unrepresentable runes cause an error and no partial output is used.
func (te *textEncoder) Encode(text string) ([]byte, error) {
	if te.enc == nil {
		return []byte(text), nil
	}
	return te.enc.NewEncoder().Bytes([]byte(text))
}
