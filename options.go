package wgchat

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Options contains configuration for creating a Client.
type Options struct {
	// ServerAddr is the host:port of the chat server.
	ServerAddr string

	// PingInterval is the keep-alive period once connected.
	PingInterval time.Duration

	// ConnectTimeout bounds how long Connect waits for the handshake and
	// session acknowledgement.
	ConnectTimeout time.Duration

	// DisconnectGrace is how long Close waits after the best-effort
	// disconnect notice before tearing the socket down.
	DisconnectGrace time.Duration

	// Logger receives structured client logs. Defaults to the standard
	// logrus logger.
	Logger *logrus.Logger
}

// NewOptions creates Options with defaults for the given server address.
func NewOptions(serverAddr string) *Options {
	return &Options{
		ServerAddr:      serverAddr,
		PingInterval:    25 * time.Second,
		ConnectTimeout:  15 * time.Second,
		DisconnectGrace: 200 * time.Millisecond,
		Logger:          logrus.StandardLogger(),
	}
}
