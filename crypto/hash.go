package crypto

import (
	"crypto/hmac"
	"hash"

	"golang.org/x/crypto/blake2s"
)

// Protocol constants, hashed into the transcript before any key exchange.
// The peer uses the WireGuard construction verbatim, so these must match
// byte-for-byte.
var (
	Construction = []byte("Noise_IKpsk2_25519_ChaChaPoly_BLAKE2s")
	Identifier   = []byte("WireGuard v1 zx2c4 Jason@zx2c4.com")
	LabelMac1    = []byte("mac1----")
)

// Hash computes the BLAKE2s-256 digest of the input.
func Hash(data ...[]byte) [32]byte {
	h, _ := blake2s.New256(nil)
	for _, d := range data {
		h.Write(d)
	}
	var sum [32]byte
	h.Sum(sum[:0])
	return sum
}

// HMAC computes HMAC-BLAKE2s over the input with the given key.
func HMAC(key []byte, data ...[]byte) [32]byte {
	mac := hmac.New(func() hash.Hash {
		h, _ := blake2s.New256(nil)
		return h
	}, key)
	for _, d := range data {
		mac.Write(d)
	}
	var sum [32]byte
	mac.Sum(sum[:0])
	return sum
}

// Mac computes a 16-byte keyed BLAKE2s MAC over the input. Used for the
// mac1 field of handshake datagrams.
func Mac(key [32]byte, data []byte) [16]byte {
	h, _ := blake2s.New128(key[:])
	h.Write(data)
	var sum [16]byte
	h.Sum(sum[:0])
	return sum
}

// MixHash returns Hash(h || data), the transcript-hash update rule.
func MixHash(h [32]byte, data []byte) [32]byte {
	return Hash(h[:], data)
}
