// Package matching implements the match-and-notify pipeline: finding
// users who share books, resolving chat rooms for matched pairs,
// dispatching notifications and relaying chat messages.
package matching

import (
	"fmt"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// fallbackUserLabel replaces a username when the profile lookup fails.
// Notification content is best-effort; a missing profile never aborts
// notification creation.
const fallbackUserLabel = "a user"

// Pusher delivers a payload to every live session belonging to one
// user. It reports whether at least one session accepted the payload.
type Pusher interface {
	PushToUser(userId int, notification types.Notification) bool
}

// Broadcaster delivers a message to every session joined to a room.
type Broadcaster interface {
	BroadcastToRoom(roomExternalId string, msg types.Message)
}

// PairKey returns the canonical key for an unordered user pair. The
// chat_rooms table carries a uniqueness constraint on it, so at most
// one room can ever exist per pair.
func PairKey(userA, userB int) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

func userLabel(db database.BookMatchRepository, userId int) string {
	user, err := db.GetAccountById(userId)
	if err != nil {
		return fallbackUserLabel
	}
	return user.Username
}

func ToUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Username:     u.Username,
		EmailAddress: u.EmailAddress,
	}
}

func ToBook(b database.Book) types.Book {
	return types.Book{
		Id:        b.Id,
		OwnerId:   b.OwnerId,
		Title:     b.Title,
		Author:    b.Author,
		Genre:     b.Genre,
		CreatedAt: b.CreatedAt,
	}
}

func ToMessage(m database.Message) types.Message {
	return types.Message{
		Id:      m.Id,
		RoomId:  m.RoomId,
		Content: m.Content,
		Sender: types.User{
			Id:       m.Sender.Id,
			Username: m.Sender.Username,
		},
		Timestamp: m.CreatedAt,
	}
}

func ToNotification(n database.Notification) types.Notification {
	return types.Notification{
		Id:        n.Id,
		UserId:    n.UserId,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		RelatedId: n.RelatedId,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func ToChatRoom(room *database.Room) types.ChatRoom {
	cr := types.ChatRoom{
		Id:           room.Id,
		ExternalId:   room.ExternalId,
		Participants: make([]types.User, 0, len(room.Participants)),
		MatchedBooks: make([]types.Book, 0, len(room.MatchedBooks)),
		Messages:     make([]types.Message, 0, len(room.Messages)),
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}

	for _, p := range room.Participants {
		cr.Participants = append(cr.Participants, ToUser(p))
	}
	for _, b := range room.MatchedBooks {
		cr.MatchedBooks = append(cr.MatchedBooks, ToBook(b))
	}
	for _, m := range room.Messages {
		cr.Messages = append(cr.Messages, ToMessage(m))
	}
	if n := len(cr.Messages); n > 0 {
		last := cr.Messages[n-1]
		cr.LastMessage = &last
	}

	return cr
}
