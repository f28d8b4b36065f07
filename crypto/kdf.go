package crypto

// The handshake advances a chaining key through an HKDF-style construction
// built on HMAC-BLAKE2s. Kdf1/Kdf2/Kdf3 mirror the one-, two- and
// three-output expansions of the WireGuard key schedule.

// Kdf1 derives a new chaining key from input material.
func Kdf1(chainingKey [32]byte, input []byte) [32]byte {
	temp := HMAC(chainingKey[:], input)
	defer ZeroKey(&temp)
	return HMAC(temp[:], []byte{0x01})
}

// Kdf2 derives a new chaining key and one output key from input material.
func Kdf2(chainingKey [32]byte, input []byte) (newChain, key [32]byte) {
	temp := HMAC(chainingKey[:], input)
	defer ZeroKey(&temp)
	newChain = HMAC(temp[:], []byte{0x01})
	key = HMAC(temp[:], newChain[:], []byte{0x02})
	return newChain, key
}

// Kdf3 derives a new chaining key, an intermediate transcript value, and an
// output key. Used for the pre-shared-key step of the handshake response.
func Kdf3(chainingKey [32]byte, input []byte) (newChain, tau, key [32]byte) {
	temp := HMAC(chainingKey[:], input)
	defer ZeroKey(&temp)
	newChain = HMAC(temp[:], []byte{0x01})
	tau = HMAC(temp[:], newChain[:], []byte{0x02})
	key = HMAC(temp[:], tau[:], []byte{0x03})
	return newChain, tau, key
}

// DeriveTransportKeys expands the final chaining key into the two transport
// keys. The zero-length input distinguishes this from a handshake Kdf2 step.
func DeriveTransportKeys(chainingKey [32]byte) (first, second [32]byte) {
	return Kdf2(chainingKey, nil)
}
