package database

type BookMatchRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	CreateBook(params CreateBookParams) (Book, error)
	GetBookById(bookId int) (Book, error)
	GetBooksByOwner(ownerId int) ([]Book, error)
	DeleteBook(bookId, ownerId int) error
	// GetBookOwners returns the other users owning a book equal to
	// (title, author) under the canonical case-insensitive rule, one
	// entry per owned copy with Owner populated.
	GetBookOwners(title, author string, excludeUserId int) ([]Book, error)
	// GetCommonBooks returns userId's copies of books which targetId
	// also owns, compared case-insensitively on (title, author).
	GetCommonBooks(userId, targetId int) ([]Book, error)

	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomById(roomId int) (Room, error)
	GetRoomByPairKey(pairKey string) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	GetRoomDetail(roomId int) (*Room, error)
	ListRoomsForUser(userId int) ([]Room, error)
	IsParticipant(roomId, userId int) bool
	GetOtherParticipants(roomId, excludeUserId int) ([]User, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessagesForRoom(roomId int) ([]Message, error)

	CreateNotification(params CreateNotificationParams) (Notification, error)
	ListNotifications(userId, limit int) ([]Notification, error)
	CountUnreadNotifications(userId int) (int, error)
	MarkNotificationRead(notificationId, userId int) error
	MarkAllNotificationsRead(userId int) error
	DeleteNotification(notificationId, userId int) error
	DeleteReadNotifications(userId int) error
}
