package database

import (
	"github.com/stretchr/testify/mock"
)

type MockBookMatchRepository struct {
	mock.Mock
}

func (m *MockBookMatchRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockBookMatchRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockBookMatchRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockBookMatchRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockBookMatchRepository) CreateBook(params CreateBookParams) (Book, error) {
	args := m.Called(params)
	return args.Get(0).(Book), args.Error(1)
}
func (m *MockBookMatchRepository) GetBookById(bookId int) (Book, error) {
	args := m.Called(bookId)
	return args.Get(0).(Book), args.Error(1)
}
func (m *MockBookMatchRepository) GetBooksByOwner(ownerId int) ([]Book, error) {
	args := m.Called(ownerId)
	return args.Get(0).([]Book), args.Error(1)
}
func (m *MockBookMatchRepository) DeleteBook(bookId, ownerId int) error {
	args := m.Called(bookId, ownerId)
	return args.Error(0)
}
func (m *MockBookMatchRepository) GetBookOwners(title, author string, excludeUserId int) ([]Book, error) {
	args := m.Called(title, author, excludeUserId)
	return args.Get(0).([]Book), args.Error(1)
}
func (m *MockBookMatchRepository) GetCommonBooks(userId, targetId int) ([]Book, error) {
	args := m.Called(userId, targetId)
	return args.Get(0).([]Book), args.Error(1)
}
func (m *MockBookMatchRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBookMatchRepository) GetRoomById(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBookMatchRepository) GetRoomByPairKey(pairKey string) (Room, error) {
	args := m.Called(pairKey)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBookMatchRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockBookMatchRepository) GetRoomDetail(roomId int) (*Room, error) {
	args := m.Called(roomId)
	if room, ok := args.Get(0).(*Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockBookMatchRepository) ListRoomsForUser(userId int) ([]Room, error) {
	args := m.Called(userId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockBookMatchRepository) IsParticipant(roomId, userId int) bool {
	args := m.Called(roomId, userId)
	return args.Bool(0)
}
func (m *MockBookMatchRepository) GetOtherParticipants(roomId, excludeUserId int) ([]User, error) {
	args := m.Called(roomId, excludeUserId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockBookMatchRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockBookMatchRepository) GetMessagesForRoom(roomId int) ([]Message, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockBookMatchRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	args := m.Called(params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockBookMatchRepository) ListNotifications(userId, limit int) ([]Notification, error) {
	args := m.Called(userId, limit)
	return args.Get(0).([]Notification), args.Error(1)
}
func (m *MockBookMatchRepository) CountUnreadNotifications(userId int) (int, error) {
	args := m.Called(userId)
	return args.Int(0), args.Error(1)
}
func (m *MockBookMatchRepository) MarkNotificationRead(notificationId, userId int) error {
	args := m.Called(notificationId, userId)
	return args.Error(0)
}
func (m *MockBookMatchRepository) MarkAllNotificationsRead(userId int) error {
	args := m.Called(userId)
	return args.Error(0)
}
func (m *MockBookMatchRepository) DeleteNotification(notificationId, userId int) error {
	args := m.Called(notificationId, userId)
	return args.Error(0)
}
func (m *MockBookMatchRepository) DeleteReadNotifications(userId int) error {
	args := m.Called(userId)
	return args.Error(0)
}
