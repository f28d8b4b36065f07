// Package handshake implements the initiator side of the Noise IKpsk2
// handshake as the chat server instantiates it (the WireGuard construction:
// BLAKE2s transcript, ChaCha20-Poly1305, Curve25519, TAI64N timestamps,
// keyed-hash mac1 and a zero cookie field).
//
// An Engine is single-use: Begin emits the initiation datagram, Consume
// validates the response and yields the transport keys, and any failure is
// terminal. A reconnect builds a fresh Engine with fresh ephemeral material.
//
// Example:
//
//	engine := handshake.NewEngine(identity)
//	initiation, err := engine.Begin()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// ... send initiation, receive 92-byte response ...
//	keys, err := engine.Consume(response)
package handshake
