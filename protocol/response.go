package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Message is one decoded inbound record. Exactly one concrete type exists
// per response kind, so dispatch can switch exhaustively.
type Message interface {
	Kind() ResponseKind
}

// Correlated carries the echoed correlation handle shared by reply-shaped
// records. A zero handle means the record arrived unsolicited.
type Correlated struct {
	Handle uint32
}

// Solicited reports whether the record is a direct reply to one of our
// requests.
func (c Correlated) Solicited() bool {
	return c.Handle != 0
}

// ErrorReply is an explicit server error, surfaced verbatim.
type ErrorReply struct {
	Correlated
	Text string
}

func (*ErrorReply) Kind() ResponseKind { return ResponseError }

// OKReply is a generic positive acknowledgement.
type OKReply struct {
	Correlated
	Text string
}

func (*OKReply) Kind() ResponseKind { return ResponseOK }

// ConnectAck confirms the session: it carries the session identifier and
// the server-assigned username.
type ConnectAck struct {
	Correlated
	Session  any
	Username string
	Text     string
}

func (*ConnectAck) Kind() ResponseKind { return ResponseConnect }

// PingAck acknowledges a keep-alive ping.
type PingAck struct {
	Correlated
}

func (*PingAck) Kind() ResponseKind { return ResponsePing }

// ChannelCreateAck confirms channel creation.
type ChannelCreateAck struct {
	Correlated
	Channel     string
	Description string
}

func (*ChannelCreateAck) Kind() ResponseKind { return ResponseChannelCreate }

// ChannelListAck carries one page of the channel list.
type ChannelListAck struct {
	Correlated
	Channels []string
	NextPage bool
}

func (*ChannelListAck) Kind() ResponseKind { return ResponseChannelList }

// ChannelInfoAck describes one channel.
type ChannelInfoAck struct {
	Correlated
	Channel     string
	Description string
	Members     []string
}

func (*ChannelInfoAck) Kind() ResponseKind { return ResponseChannelInfo }

// BacklogMessage is one recent channel message delivered with a join
// acknowledgement.
type BacklogMessage struct {
	From string
	Text string
}

// ChannelJoinAck confirms our own join (solicited) or notifies that a user
// joined (unsolicited).
type ChannelJoinAck struct {
	Correlated
	Channel  string
	Username string
	Topic    string
	Backlog  []BacklogMessage
}

func (*ChannelJoinAck) Kind() ResponseKind { return ResponseChannelJoin }

// ChannelLeaveAck is the symmetric leave record.
type ChannelLeaveAck struct {
	Correlated
	Channel  string
	Username string
}

func (*ChannelLeaveAck) Kind() ResponseKind { return ResponseChannelLeft }

// ChannelMessage is a message delivered to a channel, including the echo of
// our own.
type ChannelMessage struct {
	Correlated
	Channel string
	From    string
	Text    string
}

func (*ChannelMessage) Kind() ResponseKind { return ResponseChannelMessage }

// WhoisAck is a read-only snapshot of another user. The server emits two
// payload shapes (flat fields or a nested info map); Decode flattens both.
type WhoisAck struct {
	Correlated
	Username  string
	Status    string
	Channels  []string
	Transport string
	PublicKey string
	Session   any
}

func (*WhoisAck) Kind() ResponseKind { return ResponseWhois }

// WhoamiAck is a read-only snapshot of ourselves.
type WhoamiAck struct {
	Correlated
	Username  string
	Session   any
	Status    string
	Channels  []string
	Transport string
}

func (*WhoamiAck) Kind() ResponseKind { return ResponseWhoami }

// DirectMessage is a user-to-user message, including the echo of our own.
type DirectMessage struct {
	Correlated
	From string
	To   string
	Text string
}

func (*DirectMessage) Kind() ResponseKind { return ResponseUserMessage }

// SetUsernameAck covers every rename shape: our own confirmation, a
// third-party rename notification, and an unsolicited self rename.
type SetUsernameAck struct {
	Correlated
	OldName string
	NewName string
	Text    string
}

func (*SetUsernameAck) Kind() ResponseKind { return ResponseSetUsername }

// UserListAck carries one page of the user list.
type UserListAck struct {
	Correlated
	Users    []string
	NextPage bool
}

func (*UserListAck) Kind() ResponseKind { return ResponseUserList }

// ServerPush is an unsolicited server message: a channel message, a direct
// message, or free-form server text.
type ServerPush struct {
	Correlated
	Text        string
	FromChannel string
	FromInChan  string
	FromUser    string
	ToUser      string
}

func (*ServerPush) Kind() ResponseKind { return ResponseServerMessage }

// Shutdown announces server shutdown. Terminal for the session.
type Shutdown struct {
	Correlated
	Reason string
}

func (*Shutdown) Kind() ResponseKind { return ResponseServerShutdown }

// Unknown preserves records whose kind this client does not recognize.
type Unknown struct {
	Correlated
	RawKind ResponseKind
	Fields  map[string]any
}

func (u *Unknown) Kind() ResponseKind { return u.RawKind }

// Decode parses one decrypted transport payload into its concrete message
// type.
func Decode(payload []byte) (Message, error) {
	var raw map[string]any
	if err := msgpack.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	kind, ok := intField(raw, "response_type")
	if !ok {
		return nil, fmt.Errorf("record has no response_type field")
	}

	correlated := Correlated{Handle: uint32(intFieldOr(raw, 0, "response_handle"))}

	switch ResponseKind(kind) {
	case ResponseError:
		return &ErrorReply{correlated, stringField(raw, "error", "message")}, nil
	case ResponseOK:
		return &OKReply{correlated, stringField(raw, "message")}, nil
	case ResponseConnect:
		return &ConnectAck{
			Correlated: correlated,
			Session:    raw["session"],
			Username:   stringField(raw, "username"),
			Text:       stringField(raw, "message"),
		}, nil
	case ResponsePing:
		return &PingAck{correlated}, nil
	case ResponseChannelCreate:
		return &ChannelCreateAck{
			Correlated:  correlated,
			Channel:     stringField(raw, "channel"),
			Description: stringField(raw, "description"),
		}, nil
	case ResponseChannelList:
		return &ChannelListAck{
			Correlated: correlated,
			Channels:   stringListField(raw, "channels"),
			NextPage:   boolField(raw, "next_page"),
		}, nil
	case ResponseChannelInfo:
		return &ChannelInfoAck{
			Correlated:  correlated,
			Channel:     stringField(raw, "channel"),
			Description: stringField(raw, "description"),
			Members:     stringListField(raw, "members"),
		}, nil
	case ResponseChannelJoin:
		return decodeChannelJoin(raw, correlated), nil
	case ResponseChannelLeft:
		return &ChannelLeaveAck{
			Correlated: correlated,
			Channel:    stringField(raw, "channel"),
			Username:   stringField(raw, "username"),
		}, nil
	case ResponseChannelMessage:
		return &ChannelMessage{
			Correlated: correlated,
			Channel:    stringField(raw, "channel", "from_channel"),
			From:       stringField(raw, "username", "from_user_in_channel"),
			Text:       stringField(raw, "message"),
		}, nil
	case ResponseWhois:
		return decodeWhois(raw, correlated), nil
	case ResponseWhoami:
		return &WhoamiAck{
			Correlated: correlated,
			Username:   stringField(raw, "username", "user"),
			Session:    anyField(raw, "session", "session_id"),
			Status:     stringField(raw, "status"),
			Channels:   stringListField(raw, "channels"),
			Transport:  stringField(raw, "transport"),
		}, nil
	case ResponseUserMessage:
		return &DirectMessage{
			Correlated: correlated,
			From:       stringField(raw, "from_username"),
			To:         stringField(raw, "to_username"),
			Text:       stringField(raw, "message"),
		}, nil
	case ResponseSetUsername:
		return &SetUsernameAck{
			Correlated: correlated,
			OldName:    stringField(raw, "old_username"),
			NewName:    stringField(raw, "new_username", "username"),
			Text:       stringField(raw, "message"),
		}, nil
	case ResponseUserList:
		return &UserListAck{
			Correlated: correlated,
			Users:      stringListField(raw, "users"),
			NextPage:   boolField(raw, "next_page"),
		}, nil
	case ResponseServerMessage:
		return &ServerPush{
			Correlated:  correlated,
			Text:        stringField(raw, "message"),
			FromChannel: stringField(raw, "from_channel"),
			FromInChan:  stringField(raw, "from_user_in_channel"),
			FromUser:    stringField(raw, "from_user"),
			ToUser:      stringField(raw, "to_user"),
		}, nil
	case ResponseServerShutdown:
		return &Shutdown{correlated, stringField(raw, "message")}, nil
	default:
		return &Unknown{
			Correlated: correlated,
			RawKind:    ResponseKind(kind),
			Fields:     raw,
		}, nil
	}
}

func decodeChannelJoin(raw map[string]any, correlated Correlated) *ChannelJoinAck {
	ack := &ChannelJoinAck{
		Correlated: correlated,
		Channel:    stringField(raw, "channel"),
		Username:   stringField(raw, "username"),
		Topic:      stringField(raw, "topic", "description"),
	}

	// Some servers nest the topic one level down.
	if ack.Topic == "" {
		if info, ok := raw["info"].(map[string]any); ok {
			ack.Topic = stringField(info, "topic", "description")
		}
	}

	if backlog, ok := raw["messages"].([]any); ok {
		for _, entry := range backlog {
			if m, ok := entry.(map[string]any); ok {
				ack.Backlog = append(ack.Backlog, BacklogMessage{
					From: stringField(m, "from_user_in_channel"),
					Text: stringField(m, "message"),
				})
			}
		}
	}
	return ack
}

func decodeWhois(raw map[string]any, correlated Correlated) *WhoisAck {
	ack := &WhoisAck{Correlated: correlated}

	if info, ok := raw["info"].(map[string]any); ok {
		ack.Username = stringField(info, "username")
		if online, present := info["online"]; present {
			if asBool(online) {
				ack.Status = "online"
			} else {
				ack.Status = "offline"
			}
		}
		ack.Channels = stringListField(info, "channels")
		ack.Session = anyField(info, "session_id", "session")
		return ack
	}

	ack.Username = stringField(raw, "username")
	ack.Status = stringField(raw, "status")
	ack.Channels = stringListField(raw, "channels")
	ack.Transport = stringField(raw, "transport")
	ack.Session = anyField(raw, "session_id", "session")

	// The peer key arrives as either a byte string or text.
	switch key := raw["wireguard_public_key"].(type) {
	case []byte:
		if len(key) > 0 {
			ack.PublicKey = decodeKeyBytes(key)
		}
	case string:
		ack.PublicKey = key
	}
	return ack
}

// decodeKeyBytes renders a byte-string key as text when it is printable
// UTF-8, hex otherwise.
func decodeKeyBytes(key []byte) string {
	for _, b := range key {
		if b < 0x20 || b > 0x7E {
			return fmt.Sprintf("%x", key)
		}
	}
	return string(key)
}
