package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NotNil(t, keyPair)

	assert.False(t, isZeroKey(keyPair.Public), "public key must not be zero")
	assert.False(t, isZeroKey(keyPair.Private), "private key must not be zero")

	keyPair2, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, keyPair.Public, keyPair2.Public,
		"two generated key pairs must differ")
}

func TestFromSecretKey(t *testing.T) {
	cases := []struct {
		name      string
		secretKey [32]byte
		wantError bool
	}{
		{
			name:      "valid key",
			secretKey: [32]byte{1, 2, 3, 4, 5, 6, 7, 8},
			wantError: false,
		},
		{
			name:      "zero key",
			secretKey: [32]byte{},
			wantError: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyPair, err := FromSecretKey(tc.secretKey)
			if tc.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.secretKey, keyPair.Private)
			assert.False(t, isZeroKey(keyPair.Public))
		})
	}
}

func TestDHAgreement(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	ab, err := DH(alice.Private, bob.Public)
	require.NoError(t, err)
	ba, err := DH(bob.Private, alice.Public)
	require.NoError(t, err)

	assert.Equal(t, ab, ba, "shared secrets must agree")
	assert.False(t, isZeroKey(ab))
}

func TestHashAndMixHash(t *testing.T) {
	h1 := Hash([]byte("abc"))
	h2 := Hash([]byte("ab"), []byte("c"))
	assert.Equal(t, h1, h2, "multi-part hashing must match concatenation")

	mixed := MixHash(h1, []byte("more"))
	direct := Hash(h1[:], []byte("more"))
	assert.Equal(t, direct, mixed)
	assert.NotEqual(t, h1, mixed)
}

func TestMacIsKeyed(t *testing.T) {
	var key1, key2 [32]byte
	key1[0] = 1
	key2[0] = 2

	msg := []byte("handshake datagram")
	m1 := Mac(key1, msg)
	m2 := Mac(key2, msg)
	assert.NotEqual(t, m1, m2, "different keys must produce different MACs")
	assert.Equal(t, m1, Mac(key1, msg), "MAC must be deterministic")
}

func TestKdfChain(t *testing.T) {
	var chain [32]byte
	copy(chain[:], bytes.Repeat([]byte{0x11}, 32))
	input := []byte("input material")

	// Kdf1/Kdf2/Kdf3 share the same first expansion step.
	c1 := Kdf1(chain, input)
	c2, k2 := Kdf2(chain, input)
	c3, tau, k3 := Kdf3(chain, input)

	assert.Equal(t, c1, c2)
	assert.Equal(t, c1, c3)
	assert.Equal(t, k2, tau, "second Kdf3 output matches the Kdf2 key slot")
	assert.NotEqual(t, k2, k3)
	assert.NotEqual(t, c1, k2)

	// Distinct input material diverges the chain.
	other := Kdf1(chain, []byte("other material"))
	assert.NotEqual(t, c1, other)
}

func TestDeriveTransportKeys(t *testing.T) {
	var chain [32]byte
	chain[5] = 0xAA

	send, recv := DeriveTransportKeys(chain)
	assert.NotEqual(t, send, recv)

	send2, recv2 := DeriveTransportKeys(chain)
	assert.Equal(t, send, send2)
	assert.Equal(t, recv, recv2)
}

func TestAEADRoundTrip(t *testing.T) {
	var key [32]byte
	key[0] = 0x42

	cases := []struct {
		name      string
		plaintext []byte
		authtext  []byte
	}{
		{"empty plaintext", nil, []byte("transcript")},
		{"short", []byte("hi"), nil},
		{"longer", bytes.Repeat([]byte{0xAB}, 300), []byte("aad")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct, err := AEADSeal(key, 7, tc.plaintext, tc.authtext)
			require.NoError(t, err)
			assert.Len(t, ct, len(tc.plaintext)+TagSize)

			pt, err := AEADOpen(key, 7, ct, tc.authtext)
			require.NoError(t, err)
			assert.Equal(t, len(tc.plaintext), len(pt))
			// Normalize nil vs empty before comparing.
			assert.Equal(t, append([]byte{}, tc.plaintext...), append([]byte{}, pt...))
		})
	}
}

func TestAEADOpenFailsClosed(t *testing.T) {
	var key [32]byte
	key[0] = 0x42

	ct, err := AEADSeal(key, 1, []byte("payload"), []byte("aad"))
	require.NoError(t, err)

	// Wrong counter.
	_, err = AEADOpen(key, 2, ct, []byte("aad"))
	assert.ErrorIs(t, err, ErrDecrypt)

	// Wrong authtext.
	_, err = AEADOpen(key, 1, ct, []byte("bad"))
	assert.ErrorIs(t, err, ErrDecrypt)

	// Flipped ciphertext bit.
	ct[0] ^= 0x01
	_, err = AEADOpen(key, 1, ct, []byte("aad"))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCounterNonceLayout(t *testing.T) {
	nonce := counterNonce(0x0102030405060708)
	assert.Equal(t, []byte{0, 0, 0, 0}, nonce[:4], "low 32 bits must be zero")
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(nonce[4:]))
}

func TestTimestampEncoding(t *testing.T) {
	at := time.Unix(1700000000, 123456789)
	ts := timestampAt(at)

	secs := binary.BigEndian.Uint64(ts[0:8])
	nanos := binary.BigEndian.Uint32(ts[8:12])
	assert.Equal(t, uint64(1700000000)+tai64nOffset, secs)
	assert.Equal(t, uint32(123456789), nanos)

	later := timestampAt(at.Add(time.Second))
	assert.True(t, bytes.Compare(later[:], ts[:]) > 0,
		"timestamps must be monotonic under byte comparison")
}

func TestNewIdentity(t *testing.T) {
	local, err := GenerateKeyPair()
	require.NoError(t, err)
	remote, err := GenerateKeyPair()
	require.NoError(t, err)

	id, err := NewIdentity(
		base64.StdEncoding.EncodeToString(local.Private[:]),
		base64.StdEncoding.EncodeToString(remote.Public[:]),
	)
	require.NoError(t, err)
	assert.Equal(t, local.Public, id.StaticKeyPair.Public)
	assert.Equal(t, remote.Public, id.RemoteStatic)

	_, err = NewIdentity("not base64!!!", base64.StdEncoding.EncodeToString(remote.Public[:]))
	assert.Error(t, err)

	_, err = NewIdentity(base64.StdEncoding.EncodeToString([]byte("short")),
		base64.StdEncoding.EncodeToString(remote.Public[:]))
	assert.Error(t, err)
}

func TestZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3}
	ZeroBytes(b)
	assert.Equal(t, []byte{0, 0, 0}, b)

	var key [32]byte
	key[3] = 9
	ZeroKey(&key)
	assert.True(t, isZeroKey(key))
}
