package wgchat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/wgchat/crypto"
	"github.com/opd-ai/wgchat/protocol"
)

// testHarness wraps a client whose send path records requests instead of
// touching the network. The recorder is locked: the keep-alive goroutine
// sends concurrently once a connect ack arms it.
type testHarness struct {
	client   *Client
	mu       sync.Mutex
	sent     []*protocol.Request
	notices  []string
	kinds    []NoticeKind
	channel  [][4]string // channel, from, text, own
	direct   [][3]string // from, text, own
	userList [][]string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	local, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	remote, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	identity, err := crypto.NewIdentityFromKeys(local.Private, remote.Public)
	require.NoError(t, err)

	h := &testHarness{}
	client := New(identity, NewOptions("127.0.0.1:1"))
	client.send = func(req *protocol.Request) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.sent = append(h.sent, req)
		return nil
	}
	client.OnNotice(func(kind NoticeKind, text string) {
		h.kinds = append(h.kinds, kind)
		h.notices = append(h.notices, text)
	})
	client.OnChannelMessage(func(channel, from, text string, own bool) {
		h.channel = append(h.channel, [4]string{channel, from, text, boolStr(own)})
	})
	client.OnDirectMessage(func(from, text string, own bool) {
		h.direct = append(h.direct, [3]string{from, text, boolStr(own)})
	})
	client.OnUserList(func(users []string, more bool) {
		h.userList = append(h.userList, users)
	})

	h.client = client
	return h
}

// connectAs puts the harness client into the connected state with a known
// identity, bypassing the network.
func (h *testHarness) connectAs(username string) {
	h.client.mu.Lock()
	h.client.state = StateConnected
	h.client.username = username
	h.client.session = int64(7)
	h.client.mu.Unlock()
}

// sentKinds lists the kinds of recorded outbound requests.
func (h *testHarness) sentKinds() []protocol.RequestKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]protocol.RequestKind, len(h.sent))
	for i, req := range h.sent {
		kinds[i] = req.Kind
	}
	return kinds
}

// sentRequests copies the recorded outbound requests.
func (h *testHarness) sentRequests() []*protocol.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*protocol.Request(nil), h.sent...)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestConnectAckEstablishesSession(t *testing.T) {
	h := newTestHarness(t)
	h.client.mu.Lock()
	h.client.state = StateAwaitingSession
	h.client.ctx, h.client.cancel = context.WithCancel(context.Background())
	h.client.connected = make(chan struct{})
	h.client.mu.Unlock()
	defer h.client.cancel()

	var events []ConnectionEvent
	h.client.OnConnectionState(func(event ConnectionEvent, detail string) {
		events = append(events, event)
	})

	h.client.dispatch(&protocol.ConnectAck{Username: "alice", Session: int64(42)})

	assert.Equal(t, StateConnected, h.client.State())
	assert.Equal(t, "alice", h.client.Username())
	assert.Equal(t, []ConnectionEvent{EventConnected}, events)

	select {
	case <-h.client.connected:
	default:
		t.Fatal("connected channel must be closed")
	}

	// A session acknowledgement triggers a user-list refresh. The armed
	// keep-alive task may have pinged already, so check containment.
	assert.Contains(t, h.sentKinds(), protocol.RequestUserList)

	// A duplicate ack must not close the channel twice.
	h.client.dispatch(&protocol.ConnectAck{Username: "alice", Session: int64(42)})
}

func TestRenameReconciliation(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")
	h.client.users.Replace([]string{"alice", "bob"}, "alice", false)

	// Third-party rename: no handle, old and new present.
	h.client.dispatch(&protocol.SetUsernameAck{OldName: "bob", NewName: "bobby"})

	assert.ElementsMatch(t, []string{"alice", "bobby"}, h.client.users.Snapshot(),
		"cache must replace the old name with the new one")
	assert.Equal(t, []protocol.RequestKind{protocol.RequestUserList}, h.sentKinds(),
		"exactly one refresh request must be emitted")
	assert.Equal(t, "alice", h.client.Username(), "own identity must be untouched")
}

func TestOwnRenameConfirmed(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")
	h.client.users.Replace([]string{"alice", "bob"}, "alice", false)

	h.client.dispatch(&protocol.SetUsernameAck{
		Correlated: protocol.Correlated{Handle: 99},
		OldName:    "alice",
		NewName:    "alicia",
	})

	assert.Equal(t, "alicia", h.client.Username())
	assert.ElementsMatch(t, []string{"alicia", "bob"}, h.client.users.Snapshot())
	assert.Equal(t, []protocol.RequestKind{protocol.RequestUserList}, h.sentKinds())
}

func TestUnsolicitedSelfRenameAppliedOnce(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.SetUsernameAck{NewName: "alice2"})
	assert.Equal(t, "alice2", h.client.Username())
	require.Len(t, h.sentKinds(), 1)

	// Idempotent repeat: no state change, no refresh, no notice.
	notices := len(h.notices)
	h.client.dispatch(&protocol.SetUsernameAck{NewName: "alice2"})
	assert.Equal(t, "alice2", h.client.Username())
	assert.Len(t, h.sentKinds(), 1)
	assert.Len(t, h.notices, notices)
}

func TestUserListForceIncludesSelf(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.UserListAck{Users: []string{"bob"}})

	assert.Equal(t, []string{"bob", "alice"}, h.client.users.Snapshot(),
		"local identity must be appended when the server omits it")
	require.Len(t, h.userList, 1)
	assert.Equal(t, []string{"bob", "alice"}, h.userList[0])
}

func TestUserListPaginationFlag(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.UserListAck{Users: []string{"bob"}, NextPage: true})
	assert.True(t, h.client.users.HasMore())
	assert.NotEmpty(t, h.notices, "pagination must be surfaced")
}

func TestChannelJoinSolicited(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.ChannelJoinAck{
		Correlated: protocol.Correlated{Handle: 5},
		Channel:    "general",
		Topic:      "the lobby",
		Backlog: []protocol.BacklogMessage{
			{From: "bob", Text: "hi"},
		},
	})

	require.Len(t, h.notices, 1, "exactly one join confirmation")
	assert.Contains(t, h.notices[0], "Joined channel 'general'")
	assert.Contains(t, h.notices[0], "the lobby")
	assert.Equal(t, []protocol.RequestKind{protocol.RequestUserList}, h.sentKinds(),
		"exactly one refresh request")
	require.Len(t, h.channel, 1, "backlog surfaces as channel messages")
	assert.Equal(t, [4]string{"general", "bob", "hi", "false"}, h.channel[0])
}

func TestChannelJoinPeerNotice(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.ChannelJoinAck{Channel: "general", Username: "bob"})

	require.Len(t, h.notices, 1)
	assert.Contains(t, h.notices[0], "User 'bob' joined channel 'general'")
	assert.Equal(t, []protocol.RequestKind{protocol.RequestUserList}, h.sentKinds())
}

func TestChannelJoinDuplicateSelfIgnored(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.ChannelJoinAck{Channel: "general", Username: "alice"})

	assert.Empty(t, h.notices, "unsolicited self-join is a processed duplicate")
	assert.Empty(t, h.sentKinds())
}

func TestChannelLeaveCases(t *testing.T) {
	cases := []struct {
		name       string
		ack        *protocol.ChannelLeaveAck
		wantNotice string
	}{
		{
			name: "solicited self leave",
			ack: &protocol.ChannelLeaveAck{
				Correlated: protocol.Correlated{Handle: 3},
				Channel:    "general",
			},
			wantNotice: "Left channel 'general'.",
		},
		{
			name:       "removed by server",
			ack:        &protocol.ChannelLeaveAck{Channel: "general", Username: "alice"},
			wantNotice: "You were removed from channel 'general'.",
		},
		{
			name:       "peer left",
			ack:        &protocol.ChannelLeaveAck{Channel: "general", Username: "bob"},
			wantNotice: "User 'bob' left channel 'general'.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHarness(t)
			h.connectAs("alice")

			h.client.dispatch(tc.ack)

			require.Len(t, h.notices, 1)
			assert.Equal(t, tc.wantNotice, h.notices[0])
			assert.Equal(t, []protocol.RequestKind{protocol.RequestUserList}, h.sentKinds())
		})
	}
}

func TestChannelMessageOwnershipTag(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.ChannelMessage{Channel: "general", From: "alice", Text: "mine"})
	h.client.dispatch(&protocol.ChannelMessage{Channel: "general", From: "bob", Text: "theirs"})

	require.Len(t, h.channel, 2)
	assert.Equal(t, [4]string{"general", "alice", "mine", "true"}, h.channel[0])
	assert.Equal(t, [4]string{"general", "bob", "theirs", "false"}, h.channel[1])
}

func TestDirectMessageEchoRules(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	// Solicited echo of our outgoing DM: suppressed.
	h.client.dispatch(&protocol.DirectMessage{
		Correlated: protocol.Correlated{Handle: 4},
		From:       "alice", To: "bob", Text: "hi bob",
	})
	assert.Empty(t, h.direct)

	// Unsolicited self-DM: shown once, tagged own.
	h.client.dispatch(&protocol.DirectMessage{From: "alice", To: "alice", Text: "note"})
	require.Len(t, h.direct, 1)
	assert.Equal(t, [3]string{"alice", "note", "true"}, h.direct[0])

	// Incoming DM from another user: shown.
	h.client.dispatch(&protocol.DirectMessage{From: "bob", To: "alice", Text: "hello"})
	require.Len(t, h.direct, 2)
	assert.Equal(t, [3]string{"bob", "hello", "false"}, h.direct[1])
}

func TestServerPushRouting(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.ServerPush{
		FromChannel: "general", FromInChan: "bob", Text: "in channel",
	})
	h.client.dispatch(&protocol.ServerPush{
		FromUser: "bob", ToUser: "alice", Text: "private",
	})
	h.client.dispatch(&protocol.ServerPush{Text: "motd"})

	require.Len(t, h.channel, 1)
	assert.Equal(t, "in channel", h.channel[0][2])
	require.Len(t, h.direct, 1)
	assert.Equal(t, "private", h.direct[0][1])
	require.Len(t, h.notices, 1)
	assert.Equal(t, NoticeServer, h.kinds[0])
	assert.Equal(t, "motd", h.notices[0])
}

func TestChannelListRefreshesCache(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	var lists [][]string
	h.client.OnChannelList(func(channels []string, more bool) {
		lists = append(lists, channels)
	})

	h.client.dispatch(&protocol.ChannelListAck{Channels: []string{"general", "dev"}})
	assert.Equal(t, []string{"general", "dev"}, h.client.channels.Snapshot())
	require.Len(t, lists, 1)

	h.client.dispatch(&protocol.ChannelInfoAck{
		Channel:     "general",
		Description: "the lobby",
		Members:     []string{"alice", "bob"},
	})
	info, ok := h.client.channels.Info("general")
	require.True(t, ok)
	assert.Equal(t, "the lobby", info.Description)
	assert.Equal(t, []string{"alice", "bob"}, info.Members)
}

func TestErrorAndOKSurfacedVerbatim(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.OKReply{Text: "all good"})
	h.client.dispatch(&protocol.ErrorReply{Text: "nope"})

	require.Len(t, h.notices, 2)
	assert.Equal(t, NoticeSuccess, h.kinds[0])
	assert.Contains(t, h.notices[0], "all good")
	assert.Equal(t, NoticeCritical, h.kinds[1])
	assert.Contains(t, h.notices[1], "nope")
	assert.Equal(t, StateConnected, h.client.State(), "ok/error change no state")
	assert.Empty(t, h.sentKinds())
}

func TestUnknownKindIsNonFatal(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	h.client.dispatch(&protocol.Unknown{RawKind: 999})

	require.Len(t, h.notices, 1)
	assert.Equal(t, NoticeError, h.kinds[0])
	assert.Equal(t, StateConnected, h.client.State())
}

func TestRequestsRequireConnection(t *testing.T) {
	h := newTestHarness(t)

	assert.ErrorIs(t, h.client.Ping(), ErrNotConnected)
	assert.ErrorIs(t, h.client.JoinChannel("general"), ErrNotConnected)
	assert.ErrorIs(t, h.client.SendDirectMessage("bob", "hi"), ErrNotConnected)
	assert.Empty(t, h.sentKinds())
}

func TestRequestsCarrySessionAndHandle(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")

	require.NoError(t, h.client.SendChannelMessage("general", "hello"))
	sent := h.sentRequests()
	require.Len(t, sent, 1)

	req := sent[0]
	assert.Equal(t, protocol.RequestChannelMessage, req.Kind)
	assert.Equal(t, int64(7), req.Session)
	assert.NotZero(t, req.Handle, "every request carries a correlation handle")
	assert.Equal(t, "general", req.Channel)
	assert.Equal(t, "hello", req.Message)
}

func TestKeepAlivePingsWhileConnected(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")
	h.client.opts.PingInterval = 10 * time.Millisecond

	sent := make(chan protocol.RequestKind, 16)
	h.client.send = func(req *protocol.Request) error {
		sent <- req.Kind
		return nil
	}

	h.client.mu.Lock()
	h.client.ctx, h.client.cancel = context.WithCancel(context.Background())
	h.client.mu.Unlock()
	h.client.startKeepAlive()

	select {
	case kind := <-sent:
		assert.Equal(t, protocol.RequestPing, kind)
	case <-time.After(time.Second):
		t.Fatal("keep-alive never pinged")
	}

	h.client.cancel()
	time.Sleep(30 * time.Millisecond)
	drained := len(sent)
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(sent), drained+1, "pings must stop after cancellation")
}

func TestKeepAliveFirstPingIsImmediate(t *testing.T) {
	h := newTestHarness(t)
	h.connectAs("alice")
	h.client.opts.PingInterval = time.Minute

	sent := make(chan protocol.RequestKind, 1)
	h.client.send = func(req *protocol.Request) error {
		select {
		case sent <- req.Kind:
		default:
		}
		return nil
	}

	h.client.mu.Lock()
	h.client.ctx, h.client.cancel = context.WithCancel(context.Background())
	h.client.mu.Unlock()
	defer h.client.cancel()
	h.client.startKeepAlive()

	select {
	case kind := <-sent:
		assert.Equal(t, protocol.RequestPing, kind)
	case <-time.After(time.Second):
		t.Fatal("first keep-alive ping must not wait a full interval")
	}
}
