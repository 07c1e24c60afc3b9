package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Book struct {
	Id        int       `json:"id"`
	OwnerId   int       `json:"owner_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Match is one entry of a user's match list: another user plus the
// books both of them own.
type Match struct {
	UserId      int    `json:"user_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	CommonBooks []Book `json:"common_books"`
	MatchCount  int    `json:"match_count"`
}

type ChatRoom struct {
	Id           int       `json:"id"`
	ExternalId   string    `json:"external_id"`
	Participants []User    `json:"participants"`
	MatchedBooks []Book    `json:"matched_books"`
	Messages     []Message `json:"messages"`
	LastMessage  *Message  `json:"last_message,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	RoomId    int       `json:"room_id"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	NotificationNewMatch   = "new_match"
	NotificationChatOpened = "chat_opened"
	NotificationNewMessage = "new_message"
)

type Notification struct {
	Id        int       `json:"id"`
	UserId    int       `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	RelatedId string    `json:"related_id,omitempty"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
