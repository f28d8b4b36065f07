package wgchat

import "github.com/opd-ai/wgchat/protocol"

// The outbound API. Every method is fire-and-forget: the request is
// encrypted and sent, and any reply arrives later through the dispatcher.
// A lost datagram simply produces no reply; reissue the call to retry.

func (c *Client) request(req *protocol.Request) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateConnected {
		return ErrNotConnected
	}
	return c.submit(req)
}

// Ping sends a keep-alive no-op.
func (c *Client) Ping() error {
	return c.request(&protocol.Request{Kind: protocol.RequestPing})
}

// CreateChannel asks the server to create a channel. The description is
// optional.
func (c *Client) CreateChannel(name, description string) error {
	return c.request(&protocol.Request{
		Kind:        protocol.RequestChannelCreate,
		Channel:     name,
		Description: description,
	})
}

// ListChannels requests one page of the channel list.
func (c *Client) ListChannels(offset int) error {
	return c.request(&protocol.Request{
		Kind:   protocol.RequestChannelList,
		Offset: offset,
	})
}

// ChannelInfo requests a channel's description and member list.
func (c *Client) ChannelInfo(name string) error {
	return c.request(&protocol.Request{
		Kind:    protocol.RequestChannelInfo,
		Channel: name,
	})
}

// JoinChannel joins a channel.
func (c *Client) JoinChannel(name string) error {
	return c.request(&protocol.Request{
		Kind:    protocol.RequestChannelJoin,
		Channel: name,
	})
}

// LeaveChannel leaves a channel.
func (c *Client) LeaveChannel(name string) error {
	return c.request(&protocol.Request{
		Kind:    protocol.RequestChannelLeave,
		Channel: name,
	})
}

// SendChannelMessage sends a message to a channel.
func (c *Client) SendChannelMessage(channel, text string) error {
	return c.request(&protocol.Request{
		Kind:    protocol.RequestChannelMessage,
		Channel: channel,
		Message: text,
	})
}

// SendDirectMessage sends a message to a single user.
func (c *Client) SendDirectMessage(to, text string) error {
	return c.request(&protocol.Request{
		Kind:       protocol.RequestUserMessage,
		ToUsername: to,
		Message:    text,
	})
}

// Whois requests a snapshot of another user.
func (c *Client) Whois(username string) error {
	return c.request(&protocol.Request{
		Kind:     protocol.RequestWhois,
		Username: username,
	})
}

// Whoami requests a snapshot of our own session.
func (c *Client) Whoami() error {
	return c.request(&protocol.Request{Kind: protocol.RequestWhoami})
}

// SetUsername asks the server to rename us. The local identity only
// changes once the server confirms.
func (c *Client) SetUsername(name string) error {
	return c.request(&protocol.Request{
		Kind:     protocol.RequestSetUsername,
		Username: name,
	})
}

// ListUsers requests one page of the online user list.
func (c *Client) ListUsers(offset int) error {
	return c.request(&protocol.Request{
		Kind:   protocol.RequestUserList,
		Offset: offset,
	})
}
