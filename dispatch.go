package wgchat

import (
	"fmt"
	"strings"

	"github.com/opd-ai/wgchat/protocol"
)

// dispatch routes one decoded record. Records are processed strictly in
// arrival order on the receive goroutine; nothing here blocks on a reply.
// The switch is exhaustive over the protocol's concrete types, so a new
// kind cannot fall through silently: it must land in *protocol.Unknown or
// fail to compile.
func (c *Client) dispatch(record protocol.Message) {
	switch msg := record.(type) {
	case *protocol.ConnectAck:
		c.handleConnectAck(msg)
	case *protocol.OKReply:
		c.notify(NoticeSuccess, "Server OK: "+msg.Text)
	case *protocol.ErrorReply:
		c.notify(NoticeCritical, "Server error: "+msg.Text)
	case *protocol.ChannelCreateAck:
		c.handleChannelCreate(msg)
	case *protocol.ChannelListAck:
		c.handleChannelList(msg)
	case *protocol.ChannelInfoAck:
		c.handleChannelInfo(msg)
	case *protocol.ChannelJoinAck:
		c.handleChannelJoin(msg)
	case *protocol.ChannelLeaveAck:
		c.handleChannelLeave(msg)
	case *protocol.ChannelMessage:
		c.handleChannelMessage(msg)
	case *protocol.WhoisAck:
		c.handleWhois(msg)
	case *protocol.WhoamiAck:
		c.handleWhoami(msg)
	case *protocol.DirectMessage:
		c.handleDirectMessage(msg)
	case *protocol.SetUsernameAck:
		c.handleSetUsername(msg)
	case *protocol.UserListAck:
		c.handleUserList(msg)
	case *protocol.ServerPush:
		c.handleServerPush(msg)
	case *protocol.Shutdown:
		c.handleShutdown(msg)
	case *protocol.PingAck:
		c.log.Debug("Ping acknowledged")
	case *protocol.Unknown:
		c.notify(NoticeError, fmt.Sprintf("Unhandled response kind %d", msg.RawKind))
	default:
		c.notify(NoticeError, fmt.Sprintf("Unhandled record type %T", record))
	}
}

func (c *Client) handleConnectAck(ack *protocol.ConnectAck) {
	c.mu.Lock()
	c.session = ack.Session
	c.username = ack.Username
	c.state = StateConnected
	var connected chan struct{}
	if c.connected != nil && !c.connectedClosed {
		connected = c.connected
		c.connectedClosed = true
	}
	c.mu.Unlock()

	if connected != nil {
		close(connected)
	}

	c.notifyConnectionState(EventConnected, ack.Username)
	c.startKeepAlive()
	c.refreshUsers()
}

func (c *Client) handleChannelCreate(ack *protocol.ChannelCreateAck) {
	c.channels.Add(ack.Channel)
	text := fmt.Sprintf("Channel '%s' created.", ack.Channel)
	if ack.Description != "" {
		text += fmt.Sprintf(" Description: '%s'", ack.Description)
	}
	c.notify(NoticeHighlight, text)
}

func (c *Client) handleChannelList(ack *protocol.ChannelListAck) {
	c.channels.ReplaceList(ack.Channels, ack.NextPage)

	c.mu.Lock()
	callback := c.callbacks.channelList
	c.mu.Unlock()
	if callback != nil {
		callback(c.channels.Snapshot(), ack.NextPage)
	}
}

func (c *Client) handleChannelInfo(ack *protocol.ChannelInfoAck) {
	c.channels.StoreInfo(ChannelInfo{
		Name:        ack.Channel,
		Description: ack.Description,
		Members:     ack.Members,
	})

	description := ack.Description
	if description == "" {
		description = "(no description)"
	}
	members := "(none)"
	if len(ack.Members) > 0 {
		members = strings.Join(ack.Members, ", ")
	}
	c.notify(NoticeInfo, fmt.Sprintf("Channel %s: %s. Members: %s",
		ack.Channel, description, members))
}

func (c *Client) handleChannelJoin(ack *protocol.ChannelJoinAck) {
	self := c.Username()

	switch {
	case ack.Solicited():
		text := fmt.Sprintf("Joined channel '%s'.", ack.Channel)
		if ack.Topic != "" {
			text += fmt.Sprintf(" Topic: '%s'", ack.Topic)
		}
		c.notify(NoticeHighlight, text)
		for _, backlog := range ack.Backlog {
			c.deliverChannelMessage(ack.Channel, backlog.From, backlog.Text)
		}
		c.refreshUsers()
	case ack.Username != "" && ack.Username != self:
		c.notify(NoticeInfo, fmt.Sprintf("User '%s' joined channel '%s'.",
			ack.Username, ack.Channel))
		c.refreshUsers()
	default:
		// Unsolicited echo of our own join; the solicited ack already
		// covered it.
		c.log.WithField("channel", ack.Channel).Debug("Duplicate self-join ignored")
	}
}

func (c *Client) handleChannelLeave(ack *protocol.ChannelLeaveAck) {
	self := c.Username()

	switch {
	case ack.Solicited():
		c.notify(NoticeInfo, fmt.Sprintf("Left channel '%s'.", ack.Channel))
		c.refreshUsers()
	case ack.Username == self && ack.Username != "":
		c.notify(NoticeHighlight, fmt.Sprintf("You were removed from channel '%s'.", ack.Channel))
		c.refreshUsers()
	case ack.Username != "":
		c.notify(NoticeInfo, fmt.Sprintf("User '%s' left channel '%s'.",
			ack.Username, ack.Channel))
		c.refreshUsers()
	}
}

func (c *Client) handleChannelMessage(msg *protocol.ChannelMessage) {
	if msg.Channel == "" || msg.From == "" || msg.Text == "" {
		return
	}
	c.deliverChannelMessage(msg.Channel, msg.From, msg.Text)
}

func (c *Client) deliverChannelMessage(channel, from, text string) {
	c.mu.Lock()
	callback := c.callbacks.channelMessage
	own := from == c.username
	c.mu.Unlock()
	if callback != nil {
		callback(channel, from, text, own)
	}
}

func (c *Client) handleWhois(ack *protocol.WhoisAck) {
	var b strings.Builder
	fmt.Fprintf(&b, "Whois %s:", ack.Username)
	if ack.Status != "" {
		fmt.Fprintf(&b, " status %s.", ack.Status)
	}
	if ack.Session != nil {
		fmt.Fprintf(&b, " Session %v.", ack.Session)
	}
	if len(ack.Channels) > 0 {
		fmt.Fprintf(&b, " Channels: %s.", strings.Join(ack.Channels, ", "))
	}
	if ack.Transport != "" {
		fmt.Fprintf(&b, " Transport: %s.", ack.Transport)
	}
	if ack.PublicKey != "" {
		fmt.Fprintf(&b, " Public key: %s", ack.PublicKey)
	}
	c.notify(NoticeInfo, b.String())
}

func (c *Client) handleWhoami(ack *protocol.WhoamiAck) {
	username := ack.Username
	session := ack.Session
	c.mu.Lock()
	if username == "" {
		username = c.username
	}
	if session == nil {
		session = c.session
	}
	c.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s (session %v).", username, session)
	if ack.Status != "" {
		fmt.Fprintf(&b, " Status: %s.", ack.Status)
	}
	if len(ack.Channels) > 0 {
		fmt.Fprintf(&b, " Channels: %s.", strings.Join(ack.Channels, ", "))
	}
	if ack.Transport != "" {
		fmt.Fprintf(&b, " Transport: %s.", ack.Transport)
	}
	c.notify(NoticeInfo, b.String())
}

// handleSetUsername reconciles the four rename shapes: our confirmed
// rename, a third-party rename, an unsolicited self rename, and the
// idempotent repeat.
func (c *Client) handleSetUsername(ack *protocol.SetUsernameAck) {
	c.mu.Lock()
	self := c.username
	c.mu.Unlock()

	switch {
	case ack.Solicited() && ack.NewName != "":
		c.mu.Lock()
		c.username = ack.NewName
		c.mu.Unlock()
		c.users.Rename(ack.OldName, ack.NewName)
		c.notify(NoticeHighlight, fmt.Sprintf("Username changed to '%s'.", ack.NewName))
		c.emitUserList()
		c.refreshUsers()

	case ack.OldName != "" && ack.NewName != "" && ack.OldName != self:
		c.users.Rename(ack.OldName, ack.NewName)
		c.notify(NoticeInfo, fmt.Sprintf("User '%s' is now known as '%s'.",
			ack.OldName, ack.NewName))
		c.emitUserList()
		c.refreshUsers()

	case ack.NewName != "" && ack.OldName == "" && !ack.Solicited():
		if ack.NewName == self {
			// Repeat of a rename already applied.
			c.log.WithField("username", self).Debug("Idempotent rename ignored")
			return
		}
		c.mu.Lock()
		c.username = ack.NewName
		c.mu.Unlock()
		c.notify(NoticeHighlight, fmt.Sprintf("Username is now '%s'.", ack.NewName))
		c.refreshUsers()

	default:
		c.notify(NoticeInfo, "Set username acknowledged: "+ack.Text)
	}
}

func (c *Client) handleUserList(ack *protocol.UserListAck) {
	c.users.Replace(ack.Users, c.Username(), ack.NextPage)
	c.emitUserList()

	if ack.NextPage {
		c.notify(NoticeHighlight, fmt.Sprintf(
			"Showing %d users; more are available.", len(c.users.Snapshot())))
	}
}

func (c *Client) handleServerPush(push *protocol.ServerPush) {
	self := c.Username()

	switch {
	case push.FromChannel != "" && push.FromInChan != "" && push.Text != "":
		c.deliverChannelMessage(push.FromChannel, push.FromInChan, push.Text)
	case push.FromUser != "" && push.ToUser == self && push.Text != "":
		c.deliverDirectMessage(push.FromUser, push.Text, false)
	case push.Text != "":
		c.notify(NoticeServer, push.Text)
	default:
		c.notify(NoticeError, "Unhandled server message format")
	}
}

// handleDirectMessage applies the echo rules: an unsolicited self-DM shows
// once, the solicited echo of an outgoing DM is suppressed (the caller
// displayed it optimistically), and anything from another user shows.
func (c *Client) handleDirectMessage(msg *protocol.DirectMessage) {
	self := c.Username()

	switch {
	case msg.From == self && (msg.To == self || msg.To == ""):
		if !msg.Solicited() {
			c.deliverDirectMessage(msg.From, msg.Text, true)
		}
	case msg.Solicited() && msg.From == self && msg.To != "":
		// Echo of a message we sent; already shown.
	case msg.From != "" && msg.From != self && msg.Text != "":
		c.deliverDirectMessage(msg.From, msg.Text, false)
	}
}

func (c *Client) deliverDirectMessage(from, text string, own bool) {
	c.mu.Lock()
	callback := c.callbacks.directMessage
	c.mu.Unlock()
	if callback != nil {
		callback(from, text, own)
	}
}

func (c *Client) handleShutdown(msg *protocol.Shutdown) {
	reason := msg.Reason
	if reason == "" {
		reason = "no reason given"
	}
	c.notify(NoticeCritical, "Server shutting down: "+reason)
	c.notifyConnectionState(EventShutdown, reason)
	c.fatal("server shutdown")
}

// refreshUsers re-queries the user list. Caches are never authoritative;
// every mutation event triggers a re-sync.
func (c *Client) refreshUsers() {
	if err := c.submit(&protocol.Request{Kind: protocol.RequestUserList}); err != nil {
		c.log.WithError(err).Warn("User list refresh failed")
	}
}

func (c *Client) emitUserList() {
	c.mu.Lock()
	callback := c.callbacks.userList
	c.mu.Unlock()
	if callback != nil {
		callback(c.users.Snapshot(), c.users.HasMore())
	}
}
