package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// TagSize is the ChaCha20-Poly1305 authentication tag length.
const TagSize = chacha20poly1305.Overhead

// ErrDecrypt indicates an AEAD open failure (invalid tag or ciphertext).
var ErrDecrypt = errors.New("aead decryption failed")

// counterNonce builds the 96-bit nonce for a given counter: four zero bytes
// followed by the counter in little-endian. Nonce uniqueness therefore
// reduces to never reusing a counter under the same key.
func counterNonce(counter uint64) [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:], counter)
	return nonce
}

// AEADSeal encrypts plaintext with ChaCha20-Poly1305 under the given key and
// counter-derived nonce, authenticating authtext. The tag is appended to the
// returned ciphertext.
func AEADSeal(key [32]byte, counter uint64, plaintext, authtext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := counterNonce(counter)
	return aead.Seal(nil, nonce[:], plaintext, authtext), nil
}

// AEADOpen decrypts ciphertext (with trailing tag) produced by AEADSeal.
// Returns ErrDecrypt if authentication fails.
func AEADOpen(key [32]byte, counter uint64, ciphertext, authtext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := counterNonce(counter)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, authtext)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
