package matching

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/testutil"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

func newTestResolver(t *testing.T, db database.BookMatchRepository, pusher Pusher) *RoomResolver {
	logger := testutil.TestLogger(t)
	return NewRoomResolver(logger, db, NewNotificationDispatcher(logger, db, pusher, nil))
}

func TestResolve_SelfChat(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice := seedUser(t, db, "alice")

	_, _, err := newTestResolver(t, db, nil).Resolve(alice.Id, alice.Id)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestResolve_CreatesRoom(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedBook(t, db, alice.Id, "Dune", "Herbert")
	seedBook(t, db, bob.Id, "dune", "herbert")
	seedBook(t, db, bob.Id, "Hyperion", "Simmons")

	pusher := &fakePusher{deliver: true}
	room, created, err := newTestResolver(t, db, pusher).Resolve(alice.Id, bob.Id)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, room.ExternalId)
	assert.Len(t, room.Participants, 2)
	require.Len(t, room.MatchedBooks, 1, "only the shared book is snapshotted")
	assert.Equal(t, "Dune", room.MatchedBooks[0].Title)
	assert.Empty(t, room.Messages)

	// the target is told about the new room, the requester is not
	bobNotifications, err := db.ListNotifications(bob.Id, 0)
	require.NoError(t, err)
	require.Len(t, bobNotifications, 1)
	assert.Equal(t, types.NotificationChatOpened, bobNotifications[0].Type)
	assert.Contains(t, bobNotifications[0].Content, "alice")
	assert.Equal(t, room.ExternalId, bobNotifications[0].RelatedId)
	assert.Equal(t, "/chats/"+room.ExternalId, bobNotifications[0].Link)

	aliceNotifications, err := db.ListNotifications(alice.Id, 0)
	require.NoError(t, err)
	assert.Empty(t, aliceNotifications)
}

func TestResolve_Idempotent(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	seedBook(t, db, alice.Id, "Dune", "Herbert")
	seedBook(t, db, bob.Id, "Dune", "Herbert")

	resolver := newTestResolver(t, db, nil)

	first, created, err := resolver.Resolve(alice.Id, bob.Id)
	require.NoError(t, err)
	require.True(t, created)

	// resolving from either side returns the same room, silently
	second, created, err := resolver.Resolve(bob.Id, alice.Id)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, first.ExternalId, second.ExternalId)

	bobNotifications, err := db.ListNotifications(bob.Id, 0)
	require.NoError(t, err)
	assert.Len(t, bobNotifications, 1, "repeat resolves must not re-notify")
}

func TestResolve_LostCreationRace(t *testing.T) {
	mockRepo := &database.MockBookMatchRepository{}
	defer mockRepo.AssertExpectations(t)

	winner := database.Room{Id: 9, ExternalId: "winner", PairKey: "1:2"}
	detail := database.Room{
		Id:         9,
		ExternalId: "winner",
		PairKey:    "1:2",
		Participants: []database.User{
			{Id: 1, Username: "alice"},
			{Id: 2, Username: "bob"},
		},
	}

	mockRepo.On("GetRoomByPairKey", "1:2").Return(database.Room{}, sql.ErrNoRows).Once()
	mockRepo.On("GetCommonBooks", 1, 2).Return([]database.Book{}, nil).Once()
	mockRepo.On("CreateRoom", mock.Anything).Return(database.Room{}, database.ErrRoomExists).Once()
	mockRepo.On("GetRoomByPairKey", "1:2").Return(winner, nil).Once()
	mockRepo.On("GetRoomDetail", 9).Return(&detail, nil).Once()

	pusher := &fakePusher{deliver: true}
	room, created, err := newTestResolver(t, mockRepo, pusher).Resolve(1, 2)
	require.NoError(t, err)
	assert.False(t, created, "the losing side of the race did not create the room")
	assert.Equal(t, "winner", room.ExternalId)
	assert.Empty(t, pusher.pushed, "only the winning resolve notifies")
}

func TestResolve_NotificationFailureIsNotFatal(t *testing.T) {
	mockRepo := &database.MockBookMatchRepository{}
	mockRepo.On("GetRoomByPairKey", "1:2").Return(database.Room{}, sql.ErrNoRows).Once()
	mockRepo.On("GetCommonBooks", 1, 2).Return([]database.Book{}, nil).Once()
	mockRepo.On("CreateRoom", mock.Anything).Return(database.Room{Id: 4, ExternalId: "r4"}, nil).Once()
	mockRepo.On("GetRoomDetail", 4).Return(&database.Room{Id: 4, ExternalId: "r4"}, nil).Once()
	mockRepo.On("GetAccountById", 1).Return(database.User{Id: 1, Username: "alice"}, nil).Once()
	mockRepo.On("CreateNotification", mock.Anything).Return(database.Notification{}, errors.New("db down")).Once()

	room, created, err := newTestResolver(t, mockRepo, nil).Resolve(1, 2)
	require.NoError(t, err, "a failed notification must not undo the room")
	assert.True(t, created)
	assert.Equal(t, "r4", room.ExternalId)
	mockRepo.AssertExpectations(t)
}

func TestResolve_ExternalIdFailure(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	resolver := newTestResolver(t, db, nil)
	resolver.generateExternalId = func() (string, error) {
		return "", errors.New("entropy exhausted")
	}

	_, _, err := resolver.Resolve(alice.Id, bob.Id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate room id")
}
