package wgchat

import (
	"context"
	"time"

	"github.com/opd-ai/wgchat/protocol"
)

// startKeepAlive arms the keep-alive task. Called on the first connect
// acknowledgement; subsequent acks are no-ops.
func (c *Client) startKeepAlive() {
	c.keepAliveOnce.Do(func() {
		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		go c.keepAliveLoop(ctx)
	})
}

// keepAliveLoop pings the server at a fixed interval while the session is
// connected. The first ping goes out immediately; the ticker paces the
// rest. It sleeps between ticks and exits when the client context is
// cancelled.
func (c *Client) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	c.ping()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("Keep-alive task stopped")
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				continue
			}
			c.ping()
		}
	}
}

func (c *Client) ping() {
	if err := c.submit(&protocol.Request{Kind: protocol.RequestPing}); err != nil {
		c.log.WithError(err).Warn("Keep-alive ping failed")
	}
}
