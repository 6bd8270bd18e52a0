package chat_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmatos/relay/internal/chat"
)

func newDispatcher(t *testing.T, opts chat.Options) (*chat.Dispatcher, *chat.Registry) {
	t.Helper()
	reg := chat.NewRegistry(nil)
	router := chat.NewRouter(reg, nil)
	relay := chat.NewRelay(reg, nil)
	return chat.NewDispatcher(reg, router, relay, opts, nil), reg
}

func TestDispatcher_Register(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	res := d.Dispatch(st, "/register alice")
	assert.Equal(t, "Username registered", res.Reply)
	assert.Equal(t, "alice", st.Username)
	assert.Equal(t, 1, reg.Count())
}

func TestDispatcher_RegisterDuplicate(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})

	st1 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	st2 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:2")}

	d.Dispatch(st1, "/register alice")
	res := d.Dispatch(st2, "/register alice")

	assert.Equal(t, "Username already exists", res.Reply)
	assert.Empty(t, st2.Username, "failed registration must not bind a name")
}

func TestDispatcher_RegisterTwiceForbidden(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	d.Dispatch(st, "/register alice")
	res := d.Dispatch(st, "/register alice2")

	assert.Equal(t, "Already registered as alice", res.Reply)
	assert.Equal(t, 1, reg.Count(), "rejected re-registration must not leak an entry")
}

func TestDispatcher_UsageErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"/register", "Invalid command. Usage: /register <username>"},
		{"/msg", "Invalid command. Usage: /msg <username> <message>"},
		{"/msg bob", "Invalid command. Usage: /msg <username> <message>"},
		{"/file", "Invalid command. Usage: /file <username> <file>"},
		{"/file bob", "Invalid command. Usage: /file <username> <file>"},
	}

	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			res := d.Dispatch(st, tt.line)
			assert.Equal(t, tt.want, res.Reply)
			assert.False(t, res.Quit)
		})
	}
}

func TestDispatcher_UnknownVerbIgnored(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	res := d.Dispatch(st, "/frobnicate now")
	assert.Equal(t, chat.Result{}, res)
}

func TestDispatcher_Help(t *testing.T) {
	stream, _ := newDispatcher(t, chat.Options{})
	datagram, _ := newDispatcher(t, chat.Options{EnableBroadcast: true})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	res := stream.Dispatch(st, "/help")
	assert.True(t, strings.HasPrefix(res.Reply, "Commands:"))
	assert.NotContains(t, res.Reply, "/broadcast")

	res = datagram.Dispatch(st, "/help")
	assert.Contains(t, res.Reply, "/broadcast <message>")
}

func TestDispatcher_Users(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})

	st1 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	st2 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:2")}
	d.Dispatch(st1, "/register bob")
	d.Dispatch(st2, "/register alice")

	res := d.Dispatch(st1, "/users")
	assert.Equal(t, "Users:\nalice\nbob", res.Reply)
}

func TestDispatcher_MsgRequiresRegistration(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	res := d.Dispatch(st, "/msg bob hi")
	assert.Equal(t, "You must register first", res.Reply)
}

func TestDispatcher_MsgRoutesWithSpaces(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	bobPeer := newFakePeer("127.0.0.1:2")
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", bobPeer))

	res := d.Dispatch(alice, "/msg bob hi there")
	assert.Empty(t, res.Reply, "stream transport sends no routing ack")
	assert.Equal(t, []string{"alice: hi there"}, bobPeer.Lines())
}

func TestDispatcher_MsgAckOnDatagram(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{AckMessages: true})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", newFakePeer("127.0.0.1:2")))

	res := d.Dispatch(alice, "/msg bob hi")
	assert.Equal(t, "Message sent successfully", res.Reply)
}

func TestDispatcher_MsgUnknownUser(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	d.Dispatch(st, "/register alice")

	res := d.Dispatch(st, "/msg nobody hi")
	assert.Equal(t, "User not found", res.Reply)
}

func TestDispatcher_FileFlow(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	bobPeer := newFakePeer("127.0.0.1:2")
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", bobPeer))

	res := d.Dispatch(alice, "/file bob report.txt")
	require.NotNil(t, res.AwaitFile, "accepted /file must arm the transfer state machine")
	assert.Empty(t, res.Reply)
	assert.Equal(t, "alice", res.AwaitFile.Sender)
	assert.Equal(t, "bob", res.AwaitFile.Recipient)
	assert.Equal(t, "report.txt", res.AwaitFile.Filename)

	res.AwaitFile.Body = []byte("0123456789")
	done := d.CompleteFile(alice, res.AwaitFile)
	assert.Equal(t, "File sent successfully to bob", done.Reply)

	assert.Equal(t, []string{"FILE INCOMING from alice"}, bobPeer.Lines())
	files := bobPeer.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "report.txt", files[0].filename)
	assert.Equal(t, []byte("0123456789"), files[0].data)
}

func TestDispatcher_FileUnknownUserNeverArms(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	d.Dispatch(st, "/register alice")

	res := d.Dispatch(st, "/file nobody a.txt")
	assert.Equal(t, "User not found", res.Reply)
	assert.Nil(t, res.AwaitFile)
}

func TestDispatcher_FileTooLargeForRecipient(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	bobPeer := newFakePeer("127.0.0.1:2")
	bobPeer.limit = 8
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", bobPeer))

	res := d.Dispatch(alice, "/file bob big.bin")
	require.NotNil(t, res.AwaitFile)

	res.AwaitFile.Body = []byte("123456789") // one over bob's limit
	done := d.CompleteFile(alice, res.AwaitFile)
	assert.Equal(t, "File too large", done.Reply)
	assert.Empty(t, bobPeer.Files())
}

func TestDispatcher_BroadcastDisabledOnStream(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	bobPeer := newFakePeer("127.0.0.1:2")
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", bobPeer))

	res := d.Dispatch(alice, "/broadcast hi all")
	assert.Equal(t, chat.Result{}, res)
	assert.Empty(t, bobPeer.Lines())
}

func TestDispatcher_Broadcast(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{EnableBroadcast: true})

	alice := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	bobPeer := newFakePeer("127.0.0.1:2")
	d.Dispatch(alice, "/register alice")
	require.NoError(t, reg.Register("bob", bobPeer))

	res := d.Dispatch(alice, "/broadcast hello everyone")
	assert.Empty(t, res.Reply)
	assert.Equal(t, []string{"Broadcast message from alice: hello everyone"}, bobPeer.Lines())
}

func TestDispatcher_QuitTeardownIdempotent(t *testing.T) {
	d, reg := newDispatcher(t, chat.Options{QuitAck: "You have logged out"})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	d.Dispatch(st, "/register alice")
	res := d.Dispatch(st, "/quit")
	assert.True(t, res.Quit)
	assert.Equal(t, "You have logged out", res.Reply)
	assert.Equal(t, 0, reg.Count())

	// Quitting again, or a transport failure after /quit, must not corrupt
	// the registry.
	res = d.Dispatch(st, "/quit")
	assert.True(t, res.Quit)
	d.Teardown(st)
	assert.Equal(t, 0, reg.Count())
}

func TestDispatcher_QuitWithoutAck(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})
	st := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}

	res := d.Dispatch(st, "/quit")
	assert.True(t, res.Quit)
	assert.Empty(t, res.Reply)
}

func TestDispatcher_NameFreeAfterTeardown(t *testing.T) {
	d, _ := newDispatcher(t, chat.Options{})

	st1 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:1")}
	d.Dispatch(st1, "/register alice")
	d.Teardown(st1)

	st2 := &chat.ClientState{Peer: newFakePeer("127.0.0.1:2")}
	res := d.Dispatch(st2, "/register alice")
	assert.Equal(t, "Username registered", res.Reply)
}
