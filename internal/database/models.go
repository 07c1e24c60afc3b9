package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Book struct {
	Id        int
	OwnerId   int
	Title     string
	Author    string
	Genre     string
	CreatedAt time.Time
	// Owner is populated by queries that join the owning user.
	Owner User
}

type Room struct {
	Id           int
	ExternalId   string
	PairKey      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []User
	MatchedBooks []Book
	Messages     []Message
}

type Message struct {
	Id        int
	RoomId    int
	SenderId  int
	Content   string
	CreatedAt time.Time
	Sender    User
}

type Notification struct {
	Id        int
	UserId    int
	Type      string
	Title     string
	Content   string
	RelatedId string
	Link      string
	IsRead    bool
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreateBookParams struct {
	OwnerId int
	Title   string
	Author  string
	Genre   string
}

type CreateRoomParams struct {
	ExternalId     string
	PairKey        string
	ParticipantIds [2]int
	// MatchedBookIds are the requester's copies of the common books,
	// snapshotted at creation time.
	MatchedBookIds []int
}

type CreateMessageParams struct {
	RoomId   int
	SenderId int
	Content  string
}

type CreateNotificationParams struct {
	UserId    int
	Type      string
	Title     string
	Content   string
	RelatedId string
	Link      string
}
