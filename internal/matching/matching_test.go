package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// fakePusher records pushed notifications and answers with a canned
// delivery result.
type fakePusher struct {
	deliver bool
	pushed  []types.Notification
	userIds []int
}

func (p *fakePusher) PushToUser(userId int, n types.Notification) bool {
	p.userIds = append(p.userIds, userId)
	p.pushed = append(p.pushed, n)
	return p.deliver
}

// fakeBroadcaster records room broadcasts.
type fakeBroadcaster struct {
	roomIds  []string
	messages []types.Message
}

func (b *fakeBroadcaster) BroadcastToRoom(roomExternalId string, msg types.Message) {
	b.roomIds = append(b.roomIds, roomExternalId)
	b.messages = append(b.messages, msg)
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "1:2", PairKey(1, 2))
	assert.Equal(t, "1:2", PairKey(2, 1), "pair key must not depend on argument order")
	assert.Equal(t, "7:7", PairKey(7, 7))
}

func TestToChatRoom(t *testing.T) {
	now := time.Now().UTC()
	room := &database.Room{
		Id:         3,
		ExternalId: "abc123",
		Participants: []database.User{
			{Id: 1, Username: "alice", EmailAddress: "alice@example.com"},
			{Id: 2, Username: "bob", EmailAddress: "bob@example.com"},
		},
		MatchedBooks: []database.Book{
			{Id: 10, OwnerId: 1, Title: "Dune", Author: "Herbert"},
		},
		Messages: []database.Message{
			{Id: 20, RoomId: 3, SenderId: 1, Content: "hi", CreatedAt: now, Sender: database.User{Id: 1, Username: "alice"}},
			{Id: 21, RoomId: 3, SenderId: 2, Content: "hello", CreatedAt: now.Add(time.Second), Sender: database.User{Id: 2, Username: "bob"}},
		},
	}

	cr := ToChatRoom(room)
	assert.Equal(t, 3, cr.Id)
	assert.Equal(t, "abc123", cr.ExternalId)
	assert.Len(t, cr.Participants, 2)
	assert.Len(t, cr.MatchedBooks, 1)
	assert.Len(t, cr.Messages, 2)
	assert.NotNil(t, cr.LastMessage, "expected last message to be set")
	assert.Equal(t, "hello", cr.LastMessage.Content)
}

func TestToChatRoom_NoMessages(t *testing.T) {
	cr := ToChatRoom(&database.Room{Id: 1, ExternalId: "x"})
	assert.NotNil(t, cr.Messages, "messages must marshal as an empty array, not null")
	assert.Nil(t, cr.LastMessage)
}
