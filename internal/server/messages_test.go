package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmatch/go-bookmatch/internal/types"
)

func TestNewMessageEvent(t *testing.T) {
	msg := types.Message{Id: 1, RoomId: 3, Content: "hi", Sender: types.User{Id: 2, Username: "alice"}}

	event := NewMessageEvent("abc123", msg)
	assert.Equal(t, EventNewMessage, event.Type)
	assert.Equal(t, "abc123", event.RoomId)
	require.NotNil(t, event.Message)
	assert.Equal(t, "hi", event.Message.Content)
	assert.False(t, event.Timestamp.IsZero())
	assert.Nil(t, event.Notification)
	assert.Empty(t, event.Error)
}

func TestNewNotificationEvent(t *testing.T) {
	n := types.Notification{Id: 4, UserId: 2, Type: types.NotificationNewMatch, Title: "New match"}

	event := NewNotificationEvent(n)
	assert.Equal(t, EventNewNotification, event.Type)
	require.NotNil(t, event.Notification)
	assert.Equal(t, 4, event.Notification.Id)
	assert.Nil(t, event.Message)
}

func TestErrorEvent(t *testing.T) {
	event := ErrorEvent("room not found")
	assert.Equal(t, EventError, event.Type)
	assert.Equal(t, "room not found", event.Error)
}

func TestServerMessageJSON(t *testing.T) {
	// empty envelope slots stay off the wire
	bytes, err := json.Marshal(ErrorEvent("boom"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(bytes, &decoded))
	assert.Equal(t, "error", decoded["type"])
	assert.Equal(t, "boom", decoded["error"])
	assert.NotContains(t, decoded, "message")
	assert.NotContains(t, decoded, "notification")
	assert.NotContains(t, decoded, "room_id")
}

func TestClientMessageJSON(t *testing.T) {
	raw := `{"type":"send-message","room_id":"abc123","message":"hello"}`

	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	assert.Equal(t, EventSendMessage, msg.Type)
	assert.Equal(t, "abc123", msg.RoomId)
	assert.Equal(t, "hello", msg.Message)
}
