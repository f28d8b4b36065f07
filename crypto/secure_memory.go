package crypto

// ZeroBytes overwrites a byte slice with zeros. Used to wipe key material
// once it is no longer needed.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroKey overwrites a 32-byte key with zeros.
func ZeroKey(key *[32]byte) {
	ZeroBytes(key[:])
}
