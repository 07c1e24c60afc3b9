package database

import (
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBookMatchRepository is an in-process BookMatchRepository used
// in tests. It mirrors the postgres semantics that matter to callers:
// the case-insensitive duplicate guard on books, the unique pair key
// on rooms and the display ordering of messages and notifications.
type MemoryBookMatchRepository struct {
	mu sync.Mutex

	nextId        int
	users         map[int]User
	books         map[int]Book
	rooms         map[int]Room
	participants  map[int][]int // room id -> user ids
	matchedBooks  map[int][]int // room id -> book ids
	messages      []Message
	notifications []Notification
}

func NewMemoryBookMatchRepository() *MemoryBookMatchRepository {
	return &MemoryBookMatchRepository{
		nextId:       1,
		users:        make(map[int]User),
		books:        make(map[int]Book),
		rooms:        make(map[int]Room),
		participants: make(map[int][]int),
		matchedBooks: make(map[int][]int),
	}
}

func (m *MemoryBookMatchRepository) id() int {
	id := m.nextId
	m.nextId++
	return id
}

func sameBook(title, author, otherTitle, otherAuthor string) bool {
	return strings.EqualFold(title, otherTitle) && strings.EqualFold(author, otherAuthor)
}

func (m *MemoryBookMatchRepository) Ping() error { return nil }

func (m *MemoryBookMatchRepository) CreateAccount(params CreateAccountParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == params.Username || u.EmailAddress == params.EmailAddress {
			return User{}, ErrDuplicateAccount
		}
	}

	now := time.Now().UTC()
	u := User{
		Id:           m.id(),
		Username:     params.Username,
		EmailAddress: params.EmailAddress,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.Id] = u

	return u, nil
}

func (m *MemoryBookMatchRepository) GetAccountById(accountId int) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[accountId]
	if !ok {
		return User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *MemoryBookMatchRepository) GetAccountByEmail(email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.EmailAddress == email {
			return u, nil
		}
	}
	return User{}, sql.ErrNoRows
}

func (m *MemoryBookMatchRepository) CreateBook(params CreateBookParams) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.books {
		if b.OwnerId == params.OwnerId && sameBook(b.Title, b.Author, params.Title, params.Author) {
			return Book{}, ErrDuplicateBook
		}
	}

	b := Book{
		Id:        m.id(),
		OwnerId:   params.OwnerId,
		Title:     params.Title,
		Author:    params.Author,
		Genre:     params.Genre,
		CreatedAt: time.Now().UTC(),
	}
	m.books[b.Id] = b

	return b, nil
}

func (m *MemoryBookMatchRepository) GetBookById(bookId int) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookId]
	if !ok {
		return Book{}, sql.ErrNoRows
	}
	return b, nil
}

func (m *MemoryBookMatchRepository) GetBooksByOwner(ownerId int) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make([]Book, 0)
	for _, b := range m.books {
		if b.OwnerId == ownerId {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].Id > books[j].Id
		}
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})

	return books, nil
}

func (m *MemoryBookMatchRepository) DeleteBook(bookId, ownerId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[bookId]
	if !ok || b.OwnerId != ownerId {
		return sql.ErrNoRows
	}
	delete(m.books, bookId)

	return nil
}

func (m *MemoryBookMatchRepository) GetBookOwners(title, author string, excludeUserId int) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make([]Book, 0)
	for _, b := range m.books {
		if b.OwnerId == excludeUserId || !sameBook(b.Title, b.Author, title, author) {
			continue
		}

		b.Owner = m.users[b.OwnerId]
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Id < books[j].Id })

	return books, nil
}

func (m *MemoryBookMatchRepository) GetCommonBooks(userId, targetId int) ([]Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	books := make([]Book, 0)
	for _, b := range m.books {
		if b.OwnerId != userId {
			continue
		}
		for _, t := range m.books {
			if t.OwnerId == targetId && sameBook(b.Title, b.Author, t.Title, t.Author) {
				books = append(books, b)
				break
			}
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Id < books[j].Id })

	return books, nil
}

func (m *MemoryBookMatchRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.PairKey == params.PairKey {
			return Room{}, ErrRoomExists
		}
	}

	now := time.Now().UTC()
	room := Room{
		Id:         m.id(),
		ExternalId: params.ExternalId,
		PairKey:    params.PairKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.rooms[room.Id] = room
	m.participants[room.Id] = params.ParticipantIds[:]
	m.matchedBooks[room.Id] = params.MatchedBookIds

	return room, nil
}

func (m *MemoryBookMatchRepository) GetRoomById(roomId int) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return Room{}, sql.ErrNoRows
	}
	return room, nil
}

func (m *MemoryBookMatchRepository) GetRoomByPairKey(pairKey string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		if room.PairKey == pairKey {
			return room, nil
		}
	}
	return Room{}, sql.ErrNoRows
}

func (m *MemoryBookMatchRepository) GetRoomByExternalId(externalId string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		if room.ExternalId == externalId {
			return room, nil
		}
	}
	return Room{}, sql.ErrNoRows
}

func (m *MemoryBookMatchRepository) GetRoomDetail(roomId int) (*Room, error) {
	m.mu.Lock()
	room, ok := m.rooms[roomId]
	if !ok {
		m.mu.Unlock()
		return nil, sql.ErrNoRows
	}

	room.Participants = make([]User, 0, 2)
	for _, userId := range m.participants[roomId] {
		room.Participants = append(room.Participants, m.users[userId])
	}

	room.MatchedBooks = make([]Book, 0)
	for _, bookId := range m.matchedBooks[roomId] {
		if b, ok := m.books[bookId]; ok {
			room.MatchedBooks = append(room.MatchedBooks, b)
		}
	}
	m.mu.Unlock()

	messages, err := m.GetMessagesForRoom(roomId)
	if err != nil {
		return nil, err
	}
	room.Messages = messages

	return &room, nil
}

func (m *MemoryBookMatchRepository) ListRoomsForUser(userId int) ([]Room, error) {
	m.mu.Lock()
	roomIds := make([]int, 0)
	for roomId, userIds := range m.participants {
		for _, id := range userIds {
			if id == userId {
				roomIds = append(roomIds, roomId)
				break
			}
		}
	}
	m.mu.Unlock()

	rooms := make([]Room, 0, len(roomIds))
	for _, roomId := range roomIds {
		detail, err := m.GetRoomDetail(roomId)
		if err != nil {
			return nil, err
		}
		if n := len(detail.Messages); n > 0 {
			detail.Messages = detail.Messages[n-1:]
		}
		rooms = append(rooms, *detail)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt) })

	return rooms, nil
}

func (m *MemoryBookMatchRepository) IsParticipant(roomId, userId int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.participants[roomId] {
		if id == userId {
			return true
		}
	}
	return false
}

func (m *MemoryBookMatchRepository) GetOtherParticipants(roomId, excludeUserId int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]User, 0, 1)
	for _, id := range m.participants[roomId] {
		if id != excludeUserId {
			users = append(users, m.users[id])
		}
	}
	return users, nil
}

func (m *MemoryBookMatchRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[params.RoomId]
	if !ok {
		return Message{}, sql.ErrNoRows
	}

	msg := Message{
		Id:        m.id(),
		RoomId:    params.RoomId,
		SenderId:  params.SenderId,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
		Sender:    m.users[params.SenderId],
	}
	m.messages = append(m.messages, msg)

	room.UpdatedAt = msg.CreatedAt
	m.rooms[params.RoomId] = room

	return msg, nil
}

func (m *MemoryBookMatchRepository) GetMessagesForRoom(roomId int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]Message, 0)
	for _, msg := range m.messages {
		if msg.RoomId == roomId {
			msg.Sender = m.users[msg.SenderId]
			messages = append(messages, msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].Id < messages[j].Id
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

func (m *MemoryBookMatchRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := Notification{
		Id:        m.id(),
		UserId:    params.UserId,
		Type:      params.Type,
		Title:     params.Title,
		Content:   params.Content,
		RelatedId: params.RelatedId,
		Link:      params.Link,
		CreatedAt: time.Now().UTC(),
	}
	m.notifications = append(m.notifications, n)

	return n, nil
}

func (m *MemoryBookMatchRepository) ListNotifications(userId, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	notifications := make([]Notification, 0)
	for _, n := range m.notifications {
		if n.UserId == userId {
			notifications = append(notifications, n)
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].Id > notifications[j].Id
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}

	return notifications, nil
}

func (m *MemoryBookMatchRepository) CountUnreadNotifications(userId int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.notifications {
		if n.UserId == userId && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryBookMatchRepository) MarkNotificationRead(notificationId, userId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.notifications {
		if n.Id == notificationId && n.UserId == userId {
			m.notifications[i].IsRead = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *MemoryBookMatchRepository) MarkAllNotificationsRead(userId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.notifications {
		if n.UserId == userId {
			m.notifications[i].IsRead = true
		}
	}
	return nil
}

func (m *MemoryBookMatchRepository) DeleteNotification(notificationId, userId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, n := range m.notifications {
		if n.Id == notificationId && n.UserId == userId {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *MemoryBookMatchRepository) DeleteReadNotifications(userId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.notifications[:0]
	for _, n := range m.notifications {
		if n.UserId == userId && n.IsRead {
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept

	return nil
}
