package transport

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wgchat/crypto"
)

// Keys is the output of a completed handshake: one key per direction plus
// the session indices both sides allocated.
type Keys struct {
	Send        [32]byte
	Recv        [32]byte
	LocalIndex  uint32
	RemoteIndex uint32
}

// Codec replay/decrypt errors. Both are recoverable: the offending datagram
// is dropped and the session stays up.
var (
	ErrReplay  = errors.New("transport: replayed or out-of-order counter")
	ErrDecrypt = errors.New("transport: payload authentication failed")
)

// Codec frames and encrypts outgoing application payloads and decrypts and
// replay-checks incoming ones. One Codec lives for the duration of one
// established session.
//
// Nonces derive from the send counter, so the counter must never repeat for
// a given key; Encode holds the counter and the seal under one lock.
type Codec struct {
	mu   sync.Mutex
	keys Keys

	sendCounter uint64

	// recvFloor is the highest counter accepted so far; recvSeen marks
	// whether any datagram has been accepted yet.
	recvFloor uint64
	recvSeen  bool
}

// NewCodec creates a transport codec from the keys of a completed handshake.
func NewCodec(keys Keys) *Codec {
	return &Codec{keys: keys}
}

// Encode encrypts payload under the send key and frames it as a
// transport-data datagram addressed to the remote session index. The send
// counter increments by exactly one per call.
func (c *Codec) Encode(payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter := c.sendCounter
	ciphertext, err := crypto.AEADSeal(c.keys.Send, counter, payload, nil)
	if err != nil {
		return nil, err
	}
	c.sendCounter++

	frame := BuildDataHeader(c.keys.RemoteIndex, counter)
	return append(frame, ciphertext...), nil
}

// Decode parses a transport-data datagram, rejects replays, and decrypts
// the payload with the receive key.
//
// The accept rule is strict greater-than against the highest counter seen:
// duplicates and older-than-floor datagrams return ErrReplay, while newer
// reordered datagrams are accepted and become the new floor. There is no
// sliding window, so a legitimately reordered datagram that arrives after a
// newer one is lost. That matches the peer's behaviour and is accepted
// here; see the package tests.
func (c *Codec) Decode(frame []byte) ([]byte, error) {
	_, counter, ciphertext, err := ParseDataHeader(frame)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recvSeen && counter <= c.recvFloor {
		logrus.WithFields(logrus.Fields{
			"function": "Decode",
			"counter":  counter,
			"floor":    c.recvFloor,
		}).Warn("Dropping replayed or out-of-order datagram")
		return nil, ErrReplay
	}

	payload, err := crypto.AEADOpen(c.keys.Recv, counter, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	c.recvFloor = counter
	c.recvSeen = true
	return payload, nil
}

// SendCounter reports the next counter Encode will use.
func (c *Codec) SendCounter() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCounter
}
