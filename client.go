package wgchat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/wgchat/crypto"
	"github.com/opd-ai/wgchat/handshake"
	"github.com/opd-ai/wgchat/protocol"
	"github.com/opd-ai/wgchat/transport"
)

// SessionState tracks the client through its connection lifecycle.
type SessionState uint8

const (
	// StateDisconnected means no connection attempt is in flight.
	StateDisconnected SessionState = iota
	// StateHandshaking means the initiation has been sent and the
	// handshake response is awaited.
	StateHandshaking
	// StateAwaitingSession means transport keys exist and the connect
	// request has been issued.
	StateAwaitingSession
	// StateConnected means the server acknowledged the session.
	StateConnected
	// StateShuttingDown means teardown has begun.
	StateShuttingDown
)

var (
	// ErrNotConnected is returned for requests issued outside
	// StateConnected.
	ErrNotConnected = errors.New("wgchat: not connected")
	// ErrAlreadyStarted is returned when Connect is called twice.
	ErrAlreadyStarted = errors.New("wgchat: connection already started")
	// ErrConnectTimeout is returned when the server does not complete the
	// handshake and session setup in time.
	ErrConnectTimeout = errors.New("wgchat: connect timed out")
	// ErrClosed is returned when the session failed or was closed while
	// connecting.
	ErrClosed = errors.New("wgchat: session closed")
)

// Client is the session client: it owns the handshake, the transport
// codec, the cached user/channel views and the keep-alive task. A Client
// is single-use; build a new one to reconnect.
type Client struct {
	identity *crypto.Identity
	opts     *Options
	log      *logrus.Logger

	mu              sync.Mutex
	state           SessionState
	trans           transport.Transport
	codec           *transport.Codec
	engine          *handshake.Engine
	session         any
	username        string
	callbacks       callbacks
	connected       chan struct{}
	connectedClosed bool

	users    UserDirectory
	channels ChannelCache

	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	keepAliveOnce sync.Once

	// send forwards an assembled request to the wire; tests substitute a
	// recorder here.
	send func(*protocol.Request) error
	// dial builds the datagram transport; tests substitute a loopback.
	dial func(addr string) (transport.Transport, error)
}

// New creates a disconnected client for the given identity and options.
func New(identity *crypto.Identity, opts *Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Client{
		identity: identity,
		opts:     opts,
		log:      logger,
	}
	c.send = c.encodeAndSend
	c.dial = func(addr string) (transport.Transport, error) {
		return transport.NewUDPTransport(addr)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username reports the server-confirmed username, empty before connect.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Session reports the opaque server session identifier.
func (c *Client) Session() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Users exposes the cached user directory.
func (c *Client) Users() *UserDirectory {
	return &c.users
}

// Channels exposes the cached channel view.
func (c *Client) Channels() *ChannelCache {
	return &c.channels
}

// Connect dials the server, runs the handshake and waits for the session
// acknowledgement. On any error the client is left closed.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateHandshaking
	c.connected = make(chan struct{})
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	trans, err := c.dial(c.opts.ServerAddr)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}
	trans.RegisterHandler(transport.MessageResponse, c.handleHandshakeResponse)
	trans.RegisterHandler(transport.MessageTransportData, c.handleTransportData)
	trans.RegisterErrorHandler(c.handleSocketError)

	engine := handshake.NewEngine(c.identity)
	initiation, err := engine.Begin()
	if err != nil {
		trans.Close()
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.trans = trans
	c.engine = engine
	c.mu.Unlock()

	trans.Start()
	if err := trans.Send(initiation); err != nil {
		c.Close()
		return err
	}

	c.log.WithFields(logrus.Fields{
		"server":      c.opts.ServerAddr,
		"local_index": engine.LocalIndex(),
	}).Info("Handshake initiated")

	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	case <-time.After(c.opts.ConnectTimeout):
		c.Close()
		return ErrConnectTimeout
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Close tears the session down: a best-effort disconnect notice if
// connected, a bounded grace delay, then socket close. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		previous := c.state
		c.state = StateShuttingDown
		trans := c.trans
		cancel := c.cancel
		c.mu.Unlock()

		if previous == StateConnected {
			if sendErr := c.submit(&protocol.Request{Kind: protocol.RequestDisconnect}); sendErr != nil {
				c.log.WithError(sendErr).Warn("Disconnect notice failed")
			}
			time.Sleep(c.opts.DisconnectGrace)
		}

		if cancel != nil {
			cancel()
		}
		if trans != nil {
			err = trans.Close()
		}

		c.setState(StateDisconnected)
		c.notifyConnectionState(EventDisconnected, "")
		c.log.Info("Session closed")
	})
	return err
}

// fatal initiates teardown from the receive path. Teardown runs on its own
// goroutine because closing the transport joins the receive loop that
// called us.
func (c *Client) fatal(reason string) {
	c.log.WithField("reason", reason).Error("Fatal session error")
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	go c.Close()
}

func (c *Client) setState(state SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// handleSocketError reacts to a socket-level read failure. Before transport
// keys exist the handshake cannot complete, so the failure is fatal; once
// keys exist the session may recover when the peer responds again, so the
// failure is only surfaced.
func (c *Client) handleSocketError(err error) {
	if c.State() == StateHandshaking {
		c.notify(NoticeCritical, "Connection failed: "+err.Error())
		c.fatal("socket error before handshake completion")
		return
	}
	c.notify(NoticeError, "Socket error: "+err.Error())
}

// handleHandshakeResponse drives the handshake engine with the responder's
// datagram. A verification failure is fatal: fresh ephemeral material is
// required for any retry, so the whole client shuts down.
func (c *Client) handleHandshakeResponse(data []byte) {
	c.mu.Lock()
	engine := c.engine
	state := c.state
	c.mu.Unlock()

	if state != StateHandshaking || engine == nil {
		c.log.WithField("state", state).Warn("Unexpected handshake response, dropping")
		return
	}

	keys, err := engine.Consume(data)
	if err != nil {
		c.notify(NoticeCritical, "Handshake failed: "+err.Error())
		c.fatal("handshake response rejected")
		return
	}

	c.mu.Lock()
	c.codec = transport.NewCodec(*keys)
	c.engine = nil
	c.state = StateAwaitingSession
	c.mu.Unlock()

	c.notify(NoticeHighlight, "Secure channel established.")

	if err := c.submit(&protocol.Request{Kind: protocol.RequestConnect}); err != nil {
		c.notify(NoticeCritical, "Session request failed: "+err.Error())
		c.fatal("connect request failed")
	}
}

// handleTransportData decodes one data datagram and dispatches the record.
// Codec errors are recoverable: the datagram is dropped and the session
// stays up.
func (c *Client) handleTransportData(data []byte) {
	c.mu.Lock()
	codec := c.codec
	c.mu.Unlock()

	if codec == nil {
		c.log.Warn("Transport data before handshake completion, dropping")
		return
	}

	payload, err := codec.Decode(data)
	if err != nil {
		switch {
		case errors.Is(err, transport.ErrReplay):
			c.log.Debug("Replayed datagram ignored")
		case errors.Is(err, transport.ErrDecrypt):
			c.notify(NoticeError, "Dropped datagram that failed authentication.")
		default:
			c.notify(NoticeError, "Dropped malformed datagram: "+err.Error())
		}
		return
	}

	record, err := protocol.Decode(payload)
	if err != nil {
		c.notify(NoticeError, "Unreadable server record: "+err.Error())
		return
	}
	c.dispatch(record)
}

// submit fills in the session id and a fresh correlation handle, then hands
// the request to the send path. Fire-and-forget: no reply is awaited.
func (c *Client) submit(req *protocol.Request) error {
	c.mu.Lock()
	if c.session != nil && req.Kind != protocol.RequestConnect {
		req.Session = c.session
	}
	send := c.send
	c.mu.Unlock()

	if req.Handle == 0 {
		handle, err := protocol.NewHandle()
		if err != nil {
			return err
		}
		req.Handle = handle
	}
	return send(req)
}

func (c *Client) encodeAndSend(req *protocol.Request) error {
	c.mu.Lock()
	codec := c.codec
	trans := c.trans
	c.mu.Unlock()

	if codec == nil || trans == nil {
		return ErrNotConnected
	}

	payload, err := req.Encode()
	if err != nil {
		return err
	}
	frame, err := codec.Encode(payload)
	if err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"kind":   req.Kind,
		"handle": req.Handle,
	}).Debug("Request sent")
	return trans.Send(frame)
}
