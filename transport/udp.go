package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxDatagramSize bounds a single read. Payloads are chat records, far
// below common MTUs; 64 KiB accepts anything the socket can deliver.
const maxDatagramSize = 65535

// Handler processes one inbound datagram of a registered message type.
// Handlers run on the single receive goroutine, one datagram at a time.
type Handler func(data []byte)

// ErrorHandler receives socket-level read failures. Like Handler it runs on
// the receive goroutine; the loop keeps reading after reporting.
type ErrorHandler func(err error)

// Transport is the datagram endpoint the session client talks through.
// The UDP implementation below is the production one; tests substitute
// their own.
type Transport interface {
	RegisterHandler(messageType MessageType, handler Handler)
	RegisterErrorHandler(handler ErrorHandler)
	Send(data []byte) error
	Start()
	Close() error
}

// UDPTransport is a connected UDP socket bound to one fixed remote address
// with per-message-type dispatch. It satisfies the Transport interface.
type UDPTransport struct {
	conn     net.Conn
	handlers map[MessageType]Handler
	onError  ErrorHandler
	mu       sync.RWMutex
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewUDPTransport dials the remote address. The receive loop does not run
// until Start is called, so handlers can be registered first.
func NewUDPTransport(remoteAddr string) (*UDPTransport, error) {
	conn, err := net.Dial("udp", remoteAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &UDPTransport{
		conn:     conn,
		handlers: make(map[MessageType]Handler),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// RegisterHandler registers a handler for a specific message type,
// replacing any previous one.
func (t *UDPTransport) RegisterHandler(messageType MessageType, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[messageType] = handler
}

// RegisterErrorHandler registers the read-failure handler, replacing any
// previous one.
func (t *UDPTransport) RegisterErrorHandler(handler ErrorHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = handler
}

// Start launches the receive loop. Calling Start twice is a no-op.
func (t *UDPTransport) Start() {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()
	go t.receiveLoop()
}

// Send transmits one datagram to the fixed remote address.
func (t *UDPTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

// Close stops the receive loop and closes the socket.
func (t *UDPTransport) Close() error {
	t.cancel()
	err := t.conn.Close()
	t.mu.RLock()
	started := t.started
	t.mu.RUnlock()
	if started {
		<-t.done
	}
	return err
}

func (t *UDPTransport) receiveLoop() {
	defer close(t.done)
	buf := make([]byte, maxDatagramSize)

	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Connected UDP surfaces ICMP failures (port unreachable and
			// friends) as read errors; the socket itself is still usable.
			// Report and keep reading.
			logrus.WithFields(logrus.Fields{
				"function": "receiveLoop",
				"error":    err,
			}).Warn("UDP read failed")
			t.mu.RLock()
			onError := t.onError
			t.mu.RUnlock()
			if onError != nil {
				onError(err)
			}
			continue
		}
		if n == 0 {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		t.dispatch(data)
	}
}

func (t *UDPTransport) dispatch(data []byte) {
	messageType := MessageType(data[0])

	t.mu.RLock()
	handler, ok := t.handlers[messageType]
	t.mu.RUnlock()

	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":     "dispatch",
			"message_type": messageType,
			"length":       len(data),
		}).Warn("No handler for message type, dropping datagram")
		return
	}
	handler(data)
}
