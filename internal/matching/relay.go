package matching

import (
	"errors"
	"fmt"
	"log"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// previewLimit caps the notification preview of a relayed message, in
// runes.
const previewLimit = 50

// ErrNotParticipant is returned when the sender does not belong to the
// room they are posting to.
var ErrNotParticipant = errors.New("sender is not a participant of the room")

// MessageRelay persists chat messages, broadcasts them to the room and
// notifies the other participant.
type MessageRelay struct {
	log         *log.Logger
	db          database.BookMatchRepository
	dispatcher  *NotificationDispatcher
	broadcaster Broadcaster
}

func NewMessageRelay(logger *log.Logger, db database.BookMatchRepository, dispatcher *NotificationDispatcher, broadcaster Broadcaster) *MessageRelay {
	return &MessageRelay{
		log:         logger,
		db:          db,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
	}
}

// Relay stores a message and fans it out: a room-wide broadcast of the
// hydrated message, then a new_message notification to the other
// participant with a preview of the content. Persistence failures
// abort before any broadcast. Failures after the message is stored are
// logged and swallowed; the message is already visible to the room.
func (mr *MessageRelay) Relay(roomId, senderId int, content string) (types.Message, error) {
	if !mr.db.IsParticipant(roomId, senderId) {
		return types.Message{}, ErrNotParticipant
	}

	room, err := mr.db.GetRoomById(roomId)
	if err != nil {
		return types.Message{}, fmt.Errorf("lookup room: %w", err)
	}

	dbMsg, err := mr.db.CreateMessage(database.CreateMessageParams{
		RoomId:   roomId,
		SenderId: senderId,
		Content:  content,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("save message: %w", err)
	}

	msg := ToMessage(dbMsg)
	senderName := fallbackUserLabel
	if sender, err := mr.db.GetAccountById(senderId); err == nil {
		senderName = sender.Username
		msg.Sender = ToUser(sender)
	} else {
		mr.log.Println("lookup sender:", err)
		msg.Sender = types.User{Id: senderId}
	}

	if mr.broadcaster != nil {
		mr.broadcaster.BroadcastToRoom(room.ExternalId, msg)
	}

	others, err := mr.db.GetOtherParticipants(roomId, senderId)
	if err != nil {
		mr.log.Println("lookup recipients for message notification:", err)
		return msg, nil
	}

	for _, recipient := range others {
		if _, err := mr.dispatcher.Dispatch(database.CreateNotificationParams{
			UserId:    recipient.Id,
			Type:      types.NotificationNewMessage,
			Title:     "New message",
			Content:   fmt.Sprintf("%s: %s", senderName, preview(content)),
			RelatedId: room.ExternalId,
			Link:      "/chats/" + room.ExternalId,
		}); err != nil {
			mr.log.Printf("dispatch message notification to user %d: %v", recipient.Id, err)
		}
	}

	return msg, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
