package crypto

import (
	"encoding/base64"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Identity holds the immutable static key material for a connection: the
// local static key pair and the single trusted remote static public key.
// It is constructed once at startup and passed to the handshake engine;
// nothing mutates it afterwards.
type Identity struct {
	StaticKeyPair KeyPair
	RemoteStatic  [32]byte
}

// NewIdentity builds an Identity from base64-encoded key material, the form
// keys are stored in on disk.
func NewIdentity(privateKeyBase64, remotePublicBase64 string) (*Identity, error) {
	private, err := decodeKey(privateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid local private key: %w", err)
	}

	remote, err := decodeKey(remotePublicBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid remote public key: %w", err)
	}

	return NewIdentityFromKeys(private, remote)
}

// NewIdentityFromKeys builds an Identity from raw 32-byte keys.
func NewIdentityFromKeys(privateKey, remotePublic [32]byte) (*Identity, error) {
	keyPair, err := FromSecretKey(privateKey)
	if err != nil {
		return nil, err
	}
	if isZeroKey(remotePublic) {
		return nil, fmt.Errorf("invalid remote public key: all zeros")
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewIdentityFromKeys",
		"local_public":  fmt.Sprintf("%x", keyPair.Public[:8]),
		"remote_public": fmt.Sprintf("%x", remotePublic[:8]),
	}).Debug("Identity initialized")

	return &Identity{
		StaticKeyPair: *keyPair,
		RemoteStatic:  remotePublic,
	}, nil
}

func decodeKey(encoded string) ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return key, fmt.Errorf("base64 decode failed: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
