package server

import (
	"time"

	"github.com/bookmatch/go-bookmatch/internal/types"
)

// Events a client may send.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
)

// Events the server emits.
const (
	EventNewMessage      = "new-message"
	EventNewNotification = "new-notification"
	EventError           = "error"
)

// ClientMessage is the envelope for everything a client sends over the
// socket. RoomId is always the room's external id.
type ClientMessage struct {
	Type    string `json:"type"`
	RoomId  string `json:"room_id,omitempty"`
	Message string `json:"message,omitempty"`
	client  *Client
}

// ServerMessage is the envelope for everything the server emits. One of
// Message, Notification or Error is set according to Type.
type ServerMessage struct {
	Type         string              `json:"type"`
	RoomId       string              `json:"room_id,omitempty"`
	Message      *types.Message      `json:"message,omitempty"`
	Notification *types.Notification `json:"notification,omitempty"`
	Error        string              `json:"error,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
}

func NewMessageEvent(roomExternalId string, msg types.Message) *ServerMessage {
	return &ServerMessage{
		Type:      EventNewMessage,
		RoomId:    roomExternalId,
		Message:   &msg,
		Timestamp: Now(),
	}
}

func NewNotificationEvent(n types.Notification) *ServerMessage {
	return &ServerMessage{
		Type:         EventNewNotification,
		Notification: &n,
		Timestamp:    Now(),
	}
}

func ErrorEvent(errMsg string) *ServerMessage {
	return &ServerMessage{
		Type:      EventError,
		Error:     errMsg,
		Timestamp: Now(),
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
