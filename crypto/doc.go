// Package crypto implements the cryptographic primitives for the chat
// protocol: Curve25519 Diffie-Hellman, BLAKE2s hashing and MACs,
// ChaCha20-Poly1305 authenticated encryption with counter-derived nonces,
// TAI64N timestamps, and the HKDF-style key-derivation chain used by the
// handshake.
//
// All primitives are thin wrappers over golang.org/x/crypto; the package
// exists so the handshake and transport layers never touch a cipher
// directly.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	shared, err := crypto.DH(keys.Private, peerPublic)
package crypto
