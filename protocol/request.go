package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Request is an outbound chat record. Only set fields appear in the encoded
// map; the server treats absent and empty keys differently for some
// operations, so the omitempty tags are load-bearing.
type Request struct {
	Kind        RequestKind `msgpack:"request_type"`
	Handle      uint32      `msgpack:"request_handle,omitempty"`
	Session     any         `msgpack:"session,omitempty"`
	Channel     string      `msgpack:"channel,omitempty"`
	Message     string      `msgpack:"message,omitempty"`
	Username    string      `msgpack:"username,omitempty"`
	ToUsername  string      `msgpack:"to_username,omitempty"`
	Description string      `msgpack:"description,omitempty"`
	Offset      int         `msgpack:"offset,omitempty"`
}

// Encode serializes the request as a msgpack map.
func (r *Request) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return data, nil
}

// NewHandle draws a random non-zero correlation handle. A reply echoing the
// handle is a direct reply to this request; zero is reserved to mean "no
// handle".
func NewHandle() (uint32, error) {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate request handle: %w", err)
		}
		if handle := binary.LittleEndian.Uint32(buf[:]); handle != 0 {
			return handle, nil
		}
	}
}
