package wgchat

// NoticeKind classifies a human-readable notice for the presentation layer.
type NoticeKind uint8

const (
	// NoticeInfo is routine information.
	NoticeInfo NoticeKind = iota
	// NoticeSuccess is a positive server acknowledgement.
	NoticeSuccess
	// NoticeHighlight is information worth the user's attention.
	NoticeHighlight
	// NoticeServer is free-form text from the server.
	NoticeServer
	// NoticeError is a non-fatal protocol or application error.
	NoticeError
	// NoticeCritical is a fatal condition; the session is going away.
	NoticeCritical
)

// ConnectionEvent marks a session lifecycle change.
type ConnectionEvent uint8

const (
	// EventConnected fires when the server acknowledges the session.
	EventConnected ConnectionEvent = iota
	// EventShutdown fires when the server announces shutdown.
	EventShutdown
	// EventDisconnected fires when the local session closes.
	EventDisconnected
)

// NoticeCallback receives human-readable notices.
type NoticeCallback func(kind NoticeKind, text string)

// ChannelMessageCallback receives channel messages, including echoes of our
// own (own == true).
type ChannelMessageCallback func(channel, from, text string, own bool)

// DirectMessageCallback receives direct messages.
type DirectMessageCallback func(from, text string, own bool)

// UserListCallback receives the refreshed user directory; more marks server
// pagination.
type UserListCallback func(users []string, more bool)

// ChannelListCallback receives the refreshed channel list.
type ChannelListCallback func(channels []string, more bool)

// ConnectionStateCallback receives lifecycle changes.
type ConnectionStateCallback func(event ConnectionEvent, detail string)

type callbacks struct {
	notice          NoticeCallback
	channelMessage  ChannelMessageCallback
	directMessage   DirectMessageCallback
	userList        UserListCallback
	channelList     ChannelListCallback
	connectionState ConnectionStateCallback
}

// OnNotice sets the notice callback.
func (c *Client) OnNotice(callback NoticeCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.notice = callback
}

// OnChannelMessage sets the channel message callback.
func (c *Client) OnChannelMessage(callback ChannelMessageCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.channelMessage = callback
}

// OnDirectMessage sets the direct message callback.
func (c *Client) OnDirectMessage(callback DirectMessageCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.directMessage = callback
}

// OnUserList sets the user directory callback.
func (c *Client) OnUserList(callback UserListCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.userList = callback
}

// OnChannelList sets the channel list callback.
func (c *Client) OnChannelList(callback ChannelListCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.channelList = callback
}

// OnConnectionState sets the lifecycle callback.
func (c *Client) OnConnectionState(callback ConnectionStateCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks.connectionState = callback
}

// notify delivers a notice outside the client lock.
func (c *Client) notify(kind NoticeKind, text string) {
	c.mu.Lock()
	callback := c.callbacks.notice
	c.mu.Unlock()
	if callback != nil {
		callback(kind, text)
	}
}

func (c *Client) notifyConnectionState(event ConnectionEvent, detail string) {
	c.mu.Lock()
	callback := c.callbacks.connectionState
	c.mu.Unlock()
	if callback != nil {
		callback(event, detail)
	}
}
