package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageType identifies the kind of a protocol datagram. The values and
// layouts are fixed by the peer; see the size constants below.
type MessageType byte

const (
	// MessageInitiation is the first handshake datagram, initiator to
	// responder.
	MessageInitiation MessageType = 0x1
	// MessageResponse is the second handshake datagram, responder to
	// initiator.
	MessageResponse MessageType = 0x2
	// MessageTransportData carries an encrypted application payload.
	MessageTransportData MessageType = 0x4
)

// Wire sizes. Every datagram starts with a one-byte type and three reserved
// zero bytes.
const (
	// InitiationSize is the fixed length of a handshake initiation:
	// header(4) + sender index(4) + ephemeral(32) + encrypted static(48) +
	// encrypted timestamp(28) + mac1(16) + cookie(16).
	InitiationSize = 148

	// ResponseSize is the fixed length of a handshake response:
	// header(4) + sender index(4) + receiver index(4) + ephemeral(32) +
	// encrypted empty(16) + mac1(16) + cookie(16).
	ResponseSize = 92

	// DataHeaderSize is the length of a transport-data header:
	// header(4) + receiver index(4) + counter(8).
	DataHeaderSize = 16

	// MacSize is the length of the keyed-hash authentication tag.
	MacSize = 16

	// CookieSize is the length of the (always zero) trailing cookie field.
	CookieSize = 16
)

// ErrTruncated indicates a datagram shorter than its fixed header.
var ErrTruncated = errors.New("datagram too short")

// Response is the parsed form of a handshake response datagram. Fields are
// raw; cryptographic verification belongs to the handshake engine.
type Response struct {
	SenderIndex    uint32
	ReceiverIndex  uint32
	Ephemeral      [32]byte
	EncryptedEmpty [16]byte
	Mac1           [16]byte
}

// ParseResponse validates the length and type of a handshake response and
// splits it into fields. MacOffset marks how much of the datagram the mac1
// tag covers.
func ParseResponse(data []byte) (*Response, error) {
	if len(data) != ResponseSize {
		return nil, fmt.Errorf("handshake response: length %d, want %d", len(data), ResponseSize)
	}
	if MessageType(data[0]) != MessageResponse {
		return nil, fmt.Errorf("handshake response: message type %#x, want %#x", data[0], byte(MessageResponse))
	}

	r := &Response{
		SenderIndex:   binary.LittleEndian.Uint32(data[4:8]),
		ReceiverIndex: binary.LittleEndian.Uint32(data[8:12]),
	}
	copy(r.Ephemeral[:], data[12:44])
	copy(r.EncryptedEmpty[:], data[44:60])
	copy(r.Mac1[:], data[60:76])
	return r, nil
}

// ResponseMacOffset is the number of leading response bytes covered by mac1.
const ResponseMacOffset = 60

// BuildDataHeader writes the transport-data header for the given receiver
// index and counter into a fresh slice, leaving the ciphertext to be
// appended.
func BuildDataHeader(receiverIndex uint32, counter uint64) []byte {
	header := make([]byte, DataHeaderSize)
	header[0] = byte(MessageTransportData)
	binary.LittleEndian.PutUint32(header[4:8], receiverIndex)
	binary.LittleEndian.PutUint64(header[8:16], counter)
	return header
}

// ParseDataHeader extracts the receiver index, counter and ciphertext from a
// transport-data datagram.
func ParseDataHeader(data []byte) (receiverIndex uint32, counter uint64, ciphertext []byte, err error) {
	if len(data) < DataHeaderSize {
		return 0, 0, nil, ErrTruncated
	}
	if MessageType(data[0]) != MessageTransportData {
		return 0, 0, nil, fmt.Errorf("transport data: message type %#x, want %#x", data[0], byte(MessageTransportData))
	}
	receiverIndex = binary.LittleEndian.Uint32(data[4:8])
	counter = binary.LittleEndian.Uint64(data[8:16])
	return receiverIndex, counter, data[16:], nil
}
