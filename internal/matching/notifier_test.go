package matching

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookmatch/go-bookmatch/internal/cache"
	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/testutil"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

func TestDispatch_PersistAndPush(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	pusher := &fakePusher{deliver: true}
	d := NewNotificationDispatcher(testutil.TestLogger(t), db, pusher, nil)

	res, err := d.Dispatch(database.CreateNotificationParams{
		UserId:  7,
		Type:    types.NotificationNewMatch,
		Title:   "New match",
		Content: "alice also owns \"Dune\". You can start chatting!",
		Link:    "/matches",
	})
	require.NoError(t, err)

	assert.True(t, res.Delivered, "expected live delivery to be reported")
	assert.NotZero(t, res.Notification.Id)
	assert.False(t, res.Notification.IsRead)
	require.Len(t, pusher.pushed, 1)
	assert.Equal(t, []int{7}, pusher.userIds)
	assert.Equal(t, res.Notification, pusher.pushed[0])

	// the row is durable independently of delivery
	stored, err := db.ListNotifications(7, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, types.NotificationNewMatch, stored[0].Type)
}

func TestDispatch_RecipientOffline(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	pusher := &fakePusher{deliver: false}
	d := NewNotificationDispatcher(testutil.TestLogger(t), db, pusher, nil)

	res, err := d.Dispatch(database.CreateNotificationParams{
		UserId: 3,
		Type:   types.NotificationNewMessage,
		Title:  "New message",
	})
	require.NoError(t, err)
	assert.False(t, res.Delivered, "offline recipient must not count as delivered")

	count, err := db.CountUnreadNotifications(3)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "notification must persist even when the push is dropped")
}

func TestDispatch_NoPusher(t *testing.T) {
	db := database.NewMemoryBookMatchRepository()
	d := NewNotificationDispatcher(testutil.TestLogger(t), db, nil, nil)

	res, err := d.Dispatch(database.CreateNotificationParams{UserId: 1, Type: types.NotificationChatOpened, Title: "New chat room"})
	require.NoError(t, err)
	assert.False(t, res.Delivered)
}

func TestDispatch_PersistenceFailure(t *testing.T) {
	mockRepo := &database.MockBookMatchRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("CreateNotification", mock.Anything).Return(database.Notification{}, errors.New("db down")).Once()

	pusher := &fakePusher{deliver: true}
	d := NewNotificationDispatcher(testutil.TestLogger(t), mockRepo, pusher, nil)

	_, err := d.Dispatch(database.CreateNotificationParams{UserId: 1, Type: types.NotificationNewMatch})
	require.Error(t, err)
	assert.Empty(t, pusher.pushed, "nothing may be pushed when the insert fails")
}

func TestDispatch_BumpsUnreadCache(t *testing.T) {
	srv := miniredis.RunT(t)
	unread := cache.NewUnreadCounter(srv.Addr(), testutil.TestLogger(t))
	t.Cleanup(func() { unread.Close() })

	db := database.NewMemoryBookMatchRepository()
	d := NewNotificationDispatcher(testutil.TestLogger(t), db, nil, unread)

	unread.Set(5, 2)
	_, err := d.Dispatch(database.CreateNotificationParams{UserId: 5, Type: types.NotificationNewMessage, Title: "New message"})
	require.NoError(t, err)

	count, ok := unread.Get(5)
	require.True(t, ok)
	assert.Equal(t, 3, count)
}
