package handshake

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wgchat/crypto"
	"github.com/opd-ai/wgchat/transport"
)

// State tracks the engine through its single handshake attempt.
type State uint8

const (
	// StateIdle means Begin has not been called.
	StateIdle State = iota
	// StateInitiated means the initiation datagram has been emitted and a
	// response is awaited.
	StateInitiated
	// StateEstablished means transport keys have been derived. Terminal.
	StateEstablished
	// StateFailed means the handshake failed. Terminal; the caller must
	// build a fresh Engine to retry.
	StateFailed
)

var (
	// ErrState is returned when Begin or Consume is called in the wrong
	// state.
	ErrState = errors.New("handshake: invalid state for operation")
	// ErrFailed wraps every fatal verification failure.
	ErrFailed = errors.New("handshake: failed")
)

// zeroPSK is the pre-shared value mixed into the response derivation. The
// deployment trusts a single fixed peer and provisions no PSK, so the value
// is all zeros on both sides.
var zeroPSK [32]byte

// Engine runs the initiator side of one handshake attempt and produces the
// transport keys. It is not safe for concurrent use; the session client
// drives it from the receive path only.
type Engine struct {
	identity *crypto.Identity
	state    State

	ephemeral  *crypto.KeyPair
	chainKey   [32]byte
	hash       [32]byte
	localIndex uint32
}

// NewEngine creates an idle engine bound to the given identity.
func NewEngine(identity *crypto.Identity) *Engine {
	return &Engine{identity: identity}
}

// State reports the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// LocalIndex reports the session index chosen by Begin.
func (e *Engine) LocalIndex() uint32 {
	return e.localIndex
}

// Begin constructs the initiation datagram: transcript setup, ephemeral
// generation, the two DH-derived AEAD fields (encrypted static key and
// encrypted timestamp), the keyed-hash mac1 and the zero cookie. The engine
// moves to StateInitiated.
func (e *Engine) Begin() ([]byte, error) {
	if e.state != StateIdle {
		return nil, ErrState
	}

	chain := crypto.Hash(crypto.Construction)
	hash := crypto.Hash(chain[:], crypto.Identifier)
	hash = crypto.MixHash(hash, e.identity.RemoteStatic[:])

	ephemeral, err := crypto.GenerateKeyPair()
	if err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	e.ephemeral = ephemeral

	chain = crypto.Kdf1(chain, ephemeral.Public[:])
	hash = crypto.MixHash(hash, ephemeral.Public[:])

	dhEphemeralStatic, err := crypto.DH(ephemeral.Private, e.identity.RemoteStatic)
	if err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	chain, key1 := crypto.Kdf2(chain, dhEphemeralStatic[:])
	crypto.ZeroKey(&dhEphemeralStatic)

	encryptedStatic, err := crypto.AEADSeal(key1, 0, e.identity.StaticKeyPair.Public[:], hash[:])
	crypto.ZeroKey(&key1)
	if err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	hash = crypto.MixHash(hash, encryptedStatic)

	dhStaticStatic, err := crypto.DH(e.identity.StaticKeyPair.Private, e.identity.RemoteStatic)
	if err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	chain, key2 := crypto.Kdf2(chain, dhStaticStatic[:])
	crypto.ZeroKey(&dhStaticStatic)

	timestamp := crypto.Timestamp()
	encryptedTimestamp, err := crypto.AEADSeal(key2, 0, timestamp[:], hash[:])
	crypto.ZeroKey(&key2)
	if err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	hash = crypto.MixHash(hash, encryptedTimestamp)

	e.chainKey = chain
	e.hash = hash

	if err := binary.Read(rand.Reader, binary.LittleEndian, &e.localIndex); err != nil {
		e.state = StateFailed
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	// header(4) + index(4) + ephemeral(32) + enc static(48) + enc ts(28)
	body := make([]byte, 0, transport.InitiationSize)
	body = append(body, byte(transport.MessageInitiation), 0, 0, 0)
	body = binary.LittleEndian.AppendUint32(body, e.localIndex)
	body = append(body, ephemeral.Public[:]...)
	body = append(body, encryptedStatic...)
	body = append(body, encryptedTimestamp...)

	mac1Key := crypto.Hash(crypto.LabelMac1, e.identity.RemoteStatic[:])
	mac1 := crypto.Mac(mac1Key, body)

	datagram := append(body, mac1[:]...)
	datagram = append(datagram, make([]byte, transport.CookieSize)...)

	logrus.WithFields(logrus.Fields{
		"function":    "Begin",
		"local_index": e.localIndex,
		"length":      len(datagram),
	}).Debug("Handshake initiation constructed")

	e.state = StateInitiated
	return datagram, nil
}

// Consume validates the responder's 92-byte datagram and derives the
// transport keys. Any verification failure is fatal: the engine moves to
// StateFailed and its key material is wiped.
func (e *Engine) Consume(response []byte) (*transport.Keys, error) {
	if e.state != StateInitiated {
		return nil, ErrState
	}

	parsed, err := transport.ParseResponse(response)
	if err != nil {
		return nil, e.fail(err)
	}
	if parsed.ReceiverIndex != e.localIndex {
		return nil, e.fail(fmt.Errorf("receiver index %d, want %d", parsed.ReceiverIndex, e.localIndex))
	}

	mac1Key := crypto.Hash(crypto.LabelMac1, e.identity.StaticKeyPair.Public[:])
	mac1 := crypto.Mac(mac1Key, response[:transport.ResponseMacOffset])
	if !hmac.Equal(mac1[:], parsed.Mac1[:]) {
		return nil, e.fail(errors.New("mac1 verification failed"))
	}

	chain := crypto.Kdf1(e.chainKey, parsed.Ephemeral[:])
	hash := crypto.MixHash(e.hash, parsed.Ephemeral[:])

	dhEphemeralEphemeral, err := crypto.DH(e.ephemeral.Private, parsed.Ephemeral)
	if err != nil {
		return nil, e.fail(err)
	}
	chain = crypto.Kdf1(chain, dhEphemeralEphemeral[:])
	crypto.ZeroKey(&dhEphemeralEphemeral)

	dhStaticEphemeral, err := crypto.DH(e.identity.StaticKeyPair.Private, parsed.Ephemeral)
	if err != nil {
		return nil, e.fail(err)
	}
	chain = crypto.Kdf1(chain, dhStaticEphemeral[:])
	crypto.ZeroKey(&dhStaticEphemeral)

	chain, tau, emptyKey := crypto.Kdf3(chain, zeroPSK[:])
	hash = crypto.MixHash(hash, tau[:])
	crypto.ZeroKey(&tau)

	// The empty field proves the responder completed the same transcript.
	decrypted, err := crypto.AEADOpen(emptyKey, 0, parsed.EncryptedEmpty[:], hash[:])
	crypto.ZeroKey(&emptyKey)
	if err != nil {
		return nil, e.fail(errors.New("empty-field authentication failed"))
	}
	if len(decrypted) != 0 {
		return nil, e.fail(errors.New("empty field carried unexpected payload"))
	}
	hash = crypto.MixHash(hash, decrypted)

	sendKey, recvKey := crypto.DeriveTransportKeys(chain)
	crypto.ZeroKey(&chain)
	keys := &transport.Keys{
		Send:        sendKey,
		Recv:        recvKey,
		LocalIndex:  e.localIndex,
		RemoteIndex: parsed.SenderIndex,
	}

	e.discardSecrets()
	e.state = StateEstablished

	logrus.WithFields(logrus.Fields{
		"function":     "Consume",
		"local_index":  keys.LocalIndex,
		"remote_index": keys.RemoteIndex,
	}).Info("Handshake established")

	return keys, nil
}

// fail records a fatal handshake error, wipes secrets and reports the
// wrapped cause.
func (e *Engine) fail(cause error) error {
	e.discardSecrets()
	e.state = StateFailed
	logrus.WithFields(logrus.Fields{
		"function": "fail",
		"error":    cause,
	}).Error("Handshake failed")
	return fmt.Errorf("%w: %v", ErrFailed, cause)
}

// discardSecrets wipes ephemeral and chaining material once it can no
// longer be needed.
func (e *Engine) discardSecrets() {
	if e.ephemeral != nil {
		crypto.ZeroKey(&e.ephemeral.Private)
		e.ephemeral = nil
	}
	crypto.ZeroKey(&e.chainKey)
	crypto.ZeroKey(&e.hash)
}
