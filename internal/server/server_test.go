package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/matching"
	"github.com/bookmatch/go-bookmatch/internal/stats"
	"github.com/bookmatch/go-bookmatch/internal/testutil"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

func newTestChatServer(t *testing.T, db database.BookMatchRepository) *ChatServer {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	cs, err := NewChatServer(testutil.TestLogger(t), db, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

func recvEventWait(t *testing.T, c *Client) *ServerMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

func TestNewChatServer(t *testing.T) {
	db := &database.MockBookMatchRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Times(4)

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	assert.NoError(t, err, "expected no error creating ChatServer")
	require.NotNil(t, cs, "expected ChatServer to be non-nil")
	assert.Equal(t, logger, cs.log, "expected logger to be set")
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
	assert.NotNil(t, cs.userSessions, "expected userSessions map to be initialized")
	assert.NotNil(t, cs.rooms, "expected rooms map to be initialized")
	assert.NotNil(t, cs.joinChan, "expected joinChan to be initialized")
	assert.NotNil(t, cs.pushChan, "expected pushChan to be initialized")
	assert.NotNil(t, cs.broadcastChan, "expected broadcastChan to be initialized")
}

func TestNewChatServer_NilStats(t *testing.T) {
	cs, err := NewChatServer(testutil.TestLogger(t), &database.MockBookMatchRepository{}, nil)
	require.NoError(t, err)
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})
	cs.RegisterChan <- c
	assert.True(t, cs.PushToUser(1, types.Notification{Id: 1}))
}

func TestPushToUser(t *testing.T) {
	cs := newTestChatServer(t, &database.MockBookMatchRepository{})
	go cs.Run()
	defer cs.Shutdown()

	alice := types.User{Id: 1, Username: "alice"}
	first := newTestClient(t, cs, alice)
	second := newTestClient(t, cs, alice)
	cs.RegisterChan <- first
	cs.RegisterChan <- second

	delivered := cs.PushToUser(alice.Id, types.Notification{Id: 9, UserId: alice.Id, Type: types.NotificationNewMatch})
	assert.True(t, delivered, "expected delivery with live sessions")

	// every session of the user gets the event
	for _, c := range []*Client{first, second} {
		event := recvEventWait(t, c)
		assert.Equal(t, EventNewNotification, event.Type)
		require.NotNil(t, event.Notification)
		assert.Equal(t, 9, event.Notification.Id)
	}
}

func TestPushToUser_Offline(t *testing.T) {
	cs := newTestChatServer(t, &database.MockBookMatchRepository{})
	go cs.Run()
	defer cs.Shutdown()

	delivered := cs.PushToUser(42, types.Notification{Id: 1})
	assert.False(t, delivered, "expected no delivery without sessions")
}

func TestPushToUser_AfterDeregister(t *testing.T) {
	cs := newTestChatServer(t, &database.MockBookMatchRepository{})
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})
	cs.RegisterChan <- c
	require.True(t, cs.PushToUser(1, types.Notification{Id: 1}))

	cs.deRegisterChan <- c
	assert.False(t, cs.PushToUser(1, types.Notification{Id: 2}), "expected no delivery after deregistration")
}

func TestJoinAndBroadcast(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice, err := db.CreateAccount(database.CreateAccountParams{Username: "alice", EmailAddress: "alice@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := db.CreateAccount(database.CreateAccountParams{Username: "bob", EmailAddress: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	room, err := db.CreateRoom(database.CreateRoomParams{
		ExternalId:     "abc123",
		PairKey:        matching.PairKey(alice.Id, bob.Id),
		ParticipantIds: [2]int{alice.Id, bob.Id},
	})
	require.NoError(t, err)

	cs := newTestChatServer(t, db)
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: alice.Id, Username: "alice"})
	cs.RegisterChan <- c

	cs.joinChan <- &ClientMessage{Type: EventJoinRoom, RoomId: room.ExternalId, client: c}
	require.Eventually(t, func() bool {
		_, ok := c.getRoom(room.ExternalId)
		return ok
	}, time.Second, 5*time.Millisecond, "expected the join to be processed")

	cs.BroadcastToRoom(room.ExternalId, types.Message{Id: 1, RoomId: room.Id, Content: "hello"})

	event := recvEventWait(t, c)
	assert.Equal(t, EventNewMessage, event.Type)
	assert.Equal(t, room.ExternalId, event.RoomId)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hello", event.Message.Content)
}

func TestJoin_RoomNotFound(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	cs := newTestChatServer(t, db)
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})
	cs.RegisterChan <- c

	cs.joinChan <- &ClientMessage{Type: EventJoinRoom, RoomId: "nope", client: c}

	event := recvEventWait(t, c)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, "room not found", event.Error)
}

func TestJoin_NotParticipant(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice, err := db.CreateAccount(database.CreateAccountParams{Username: "alice", EmailAddress: "alice@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := db.CreateAccount(database.CreateAccountParams{Username: "bob", EmailAddress: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	mallory, err := db.CreateAccount(database.CreateAccountParams{Username: "mallory", EmailAddress: "mallory@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	room, err := db.CreateRoom(database.CreateRoomParams{
		ExternalId:     "abc123",
		PairKey:        matching.PairKey(alice.Id, bob.Id),
		ParticipantIds: [2]int{alice.Id, bob.Id},
	})
	require.NoError(t, err)

	cs := newTestChatServer(t, db)
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: mallory.Id, Username: "mallory"})
	cs.RegisterChan <- c

	cs.joinChan <- &ClientMessage{Type: EventJoinRoom, RoomId: room.ExternalId, client: c}

	event := recvEventWait(t, c)
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, "not a participant of this room", event.Error)
	_, joined := c.getRoom(room.ExternalId)
	assert.False(t, joined, "non-participants must not be joined")
}

func TestLeaveRoom(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice, err := db.CreateAccount(database.CreateAccountParams{Username: "alice", EmailAddress: "alice@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := db.CreateAccount(database.CreateAccountParams{Username: "bob", EmailAddress: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	room, err := db.CreateRoom(database.CreateRoomParams{
		ExternalId:     "abc123",
		PairKey:        matching.PairKey(alice.Id, bob.Id),
		ParticipantIds: [2]int{alice.Id, bob.Id},
	})
	require.NoError(t, err)

	cs := newTestChatServer(t, db)
	go cs.Run()
	defer cs.Shutdown()

	c := newTestClient(t, cs, types.User{Id: alice.Id, Username: "alice"})
	cs.RegisterChan <- c
	cs.joinChan <- &ClientMessage{Type: EventJoinRoom, RoomId: room.ExternalId, client: c}
	require.Eventually(t, func() bool {
		_, ok := c.getRoom(room.ExternalId)
		return ok
	}, time.Second, 5*time.Millisecond)

	cs.leaveChan <- &ClientMessage{Type: EventLeaveRoom, RoomId: room.ExternalId, client: c}
	require.Eventually(t, func() bool {
		_, ok := c.getRoom(room.ExternalId)
		return !ok
	}, time.Second, 5*time.Millisecond, "expected the leave to be processed")

	// broadcasts no longer reach the departed session
	cs.BroadcastToRoom(room.ExternalId, types.Message{Id: 1, Content: "hello"})
	require.True(t, cs.PushToUser(alice.Id, types.Notification{Id: 1}), "fence: hub has drained the broadcast")

	event := recvEventWait(t, c)
	assert.Equal(t, EventNewNotification, event.Type, "only the fence notification may arrive")
}

func TestShutdown(t *testing.T) {
	cs := newTestChatServer(t, &database.MockBookMatchRepository{})
	go cs.Run()

	c := newTestClient(t, cs, types.User{Id: 1, Username: "alice"})
	cs.RegisterChan <- c

	cs.Shutdown()

	select {
	case <-c.stop:
	default:
		t.Error("expected client stop channel to be closed on shutdown")
	}

	assert.False(t, cs.PushToUser(1, types.Notification{Id: 1}), "pushes after shutdown report undelivered")
}
