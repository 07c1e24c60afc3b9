package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmatch/go-bookmatch/internal/matching"
	"github.com/bookmatch/go-bookmatch/internal/testutil"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

type relayCall struct {
	roomId   int
	senderId int
	content  string
}

type fakeRelayer struct {
	msg   types.Message
	err   error
	calls []relayCall
}

func (r *fakeRelayer) Relay(roomId, senderId int, content string) (types.Message, error) {
	r.calls = append(r.calls, relayCall{roomId: roomId, senderId: senderId, content: content})
	return r.msg, r.err
}

func newTestClient(t *testing.T, cs *ChatServer, user types.User) *Client {
	return &Client{
		id:         "test-session",
		chatServer: cs,
		log:        testutil.TestLogger(t),
		user:       user,
		send:       make(chan *ServerMessage, 16),
		rooms:      make(map[string]int),
		stop:       make(chan struct{}),
	}
}

func recvEvent(t *testing.T, c *Client) *ServerMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	default:
		t.Fatal("expected a queued message")
		return nil
	}
}

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be queued")
		default:
			t.Error("expected a message to be queued, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_clientRooms(t *testing.T) {
	c := newTestClient(t, nil, types.User{Id: 1})

	_, ok := c.getRoom("abc")
	assert.False(t, ok)

	c.addRoom("abc", 7)
	id, ok := c.getRoom("abc")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	c.delRoom("abc")
	_, ok = c.getRoom("abc")
	assert.False(t, ok)
}

func Test_stopClient(t *testing.T) {
	c := &Client{stop: make(chan struct{})}

	c.stopClient()
	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}

	// stopping twice must not panic
	c.stopClient()
}

func Test_sendToRoom(t *testing.T) {
	t.Run("not joined", func(t *testing.T) {
		relay := &fakeRelayer{}
		cs := &ChatServer{relay: relay}
		c := newTestClient(t, cs, types.User{Id: 1})

		c.sendToRoom(&ClientMessage{Type: EventSendMessage, RoomId: "abc", Message: "hi"})

		event := recvEvent(t, c)
		assert.Equal(t, EventError, event.Type)
		assert.Equal(t, "room not joined", event.Error)
		assert.Empty(t, relay.calls, "relay must not be called for unjoined rooms")
	})

	t.Run("empty message", func(t *testing.T) {
		relay := &fakeRelayer{}
		cs := &ChatServer{relay: relay}
		c := newTestClient(t, cs, types.User{Id: 1})
		c.addRoom("abc", 7)

		c.sendToRoom(&ClientMessage{Type: EventSendMessage, RoomId: "abc"})

		event := recvEvent(t, c)
		assert.Equal(t, EventError, event.Type)
		assert.Empty(t, relay.calls)
	})

	t.Run("relays to the room's database id", func(t *testing.T) {
		relay := &fakeRelayer{msg: types.Message{Id: 9, Content: "hi"}}
		cs := &ChatServer{relay: relay}
		c := newTestClient(t, cs, types.User{Id: 1})
		c.addRoom("abc", 7)

		c.sendToRoom(&ClientMessage{Type: EventSendMessage, RoomId: "abc", Message: "hi"})

		require.Len(t, relay.calls, 1)
		assert.Equal(t, relayCall{roomId: 7, senderId: 1, content: "hi"}, relay.calls[0])
		assert.Empty(t, c.send, "success queues nothing; the broadcast comes through the hub")
	})

	t.Run("not a participant", func(t *testing.T) {
		relay := &fakeRelayer{err: matching.ErrNotParticipant}
		cs := &ChatServer{relay: relay}
		c := newTestClient(t, cs, types.User{Id: 1})
		c.addRoom("abc", 7)

		c.sendToRoom(&ClientMessage{Type: EventSendMessage, RoomId: "abc", Message: "hi"})

		event := recvEvent(t, c)
		assert.Equal(t, EventError, event.Type)
		assert.Equal(t, "not a participant of this room", event.Error)
	})

	t.Run("relay failure", func(t *testing.T) {
		relay := &fakeRelayer{err: errors.New("db down")}
		cs := &ChatServer{relay: relay}
		c := newTestClient(t, cs, types.User{Id: 1})
		c.addRoom("abc", 7)

		c.sendToRoom(&ClientMessage{Type: EventSendMessage, RoomId: "abc", Message: "hi"})

		event := recvEvent(t, c)
		assert.Equal(t, EventError, event.Type)
		assert.Equal(t, "failed to send message", event.Error)
	})
}

func Test_joinRoom_Validation(t *testing.T) {
	c := newTestClient(t, &ChatServer{joinChan: make(chan *ClientMessage, 1)}, types.User{Id: 1})

	c.joinRoom(&ClientMessage{Type: EventJoinRoom})
	event := recvEvent(t, c)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, "room_id is required", event.Error)
}

func Test_leaveRoom_NotJoined(t *testing.T) {
	c := newTestClient(t, &ChatServer{leaveChan: make(chan *ClientMessage, 1)}, types.User{Id: 1})

	c.leaveRoom(&ClientMessage{Type: EventLeaveRoom, RoomId: "abc"})
	event := recvEvent(t, c)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, "room not joined", event.Error)
}
