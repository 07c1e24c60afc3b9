package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

func (db *PgBookMatchRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return User{}, ErrDuplicateAccount
	}

	return u, err
}

func (db *PgBookMatchRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, created_at, updated_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgBookMatchRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgBookMatchRepository) CreateBook(params CreateBookParams) (Book, error) {
	// The partial unique index on (owner_id, lower(title), lower(author))
	// makes the duplicate check atomic; a conflicting insert returns no row.
	res := db.conn.QueryRow(
		"INSERT INTO books (owner_id, title, author, genre, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) "+
			"ON CONFLICT (owner_id, lower(title), lower(author)) DO NOTHING "+
			"RETURNING id, owner_id, title, author, genre, created_at",
		params.OwnerId,
		params.Title,
		params.Author,
		params.Genre,
		time.Now().UTC(),
	)

	var b Book
	err := res.Scan(
		&b.Id,
		&b.OwnerId,
		&b.Title,
		&b.Author,
		&b.Genre,
		&b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return Book{}, ErrDuplicateBook
	}

	return b, err
}

func (db *PgBookMatchRepository) GetBookById(bookId int) (Book, error) {
	row := db.conn.QueryRow(
		"SELECT id, owner_id, title, author, genre, created_at FROM books "+
			"WHERE id = $1 LIMIT 1",
		bookId,
	)

	var b Book
	err := row.Scan(
		&b.Id,
		&b.OwnerId,
		&b.Title,
		&b.Author,
		&b.Genre,
		&b.CreatedAt,
	)

	return b, err
}

func (db *PgBookMatchRepository) GetBooksByOwner(ownerId int) ([]Book, error) {
	rows, err := db.conn.Query(
		"SELECT id, owner_id, title, author, genre, created_at FROM books "+
			"WHERE owner_id = $1 ORDER BY created_at DESC",
		ownerId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books = make([]Book, 0)
	for rows.Next() {
		var b Book
		if err = rows.Scan(&b.Id, &b.OwnerId, &b.Title, &b.Author, &b.Genre, &b.CreatedAt); err != nil {
			break
		}

		books = append(books, b)
	}

	return books, err
}

func (db *PgBookMatchRepository) DeleteBook(bookId, ownerId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM books WHERE id = $1 AND owner_id = $2",
		bookId,
		ownerId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgBookMatchRepository) GetBookOwners(title, author string, excludeUserId int) ([]Book, error) {
	rows, err := db.conn.Query(
		"SELECT b.id, b.owner_id, b.title, b.author, b.created_at, u.id, u.username, u.email "+
			"FROM books b JOIN users u ON b.owner_id = u.id "+
			"WHERE lower(b.title) = lower($1) AND lower(b.author) = lower($2) AND b.owner_id <> $3",
		title,
		author,
		excludeUserId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books = make([]Book, 0)
	for rows.Next() {
		var b Book
		if err = rows.Scan(&b.Id, &b.OwnerId, &b.Title, &b.Author, &b.CreatedAt,
			&b.Owner.Id, &b.Owner.Username, &b.Owner.EmailAddress); err != nil {
			break
		}

		books = append(books, b)
	}

	return books, err
}

func (db *PgBookMatchRepository) GetCommonBooks(userId, targetId int) ([]Book, error) {
	rows, err := db.conn.Query(
		"SELECT b.id, b.owner_id, b.title, b.author, b.created_at FROM books b "+
			"WHERE b.owner_id = $1 AND EXISTS ("+
			"SELECT 1 FROM books t WHERE t.owner_id = $2 "+
			"AND lower(t.title) = lower(b.title) AND lower(t.author) = lower(b.author))",
		userId,
		targetId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books = make([]Book, 0)
	for rows.Next() {
		var b Book
		if err = rows.Scan(&b.Id, &b.OwnerId, &b.Title, &b.Author, &b.CreatedAt); err != nil {
			break
		}

		books = append(books, b)
	}

	return books, err
}

func (db *PgBookMatchRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// The unique pair_key turns check-then-insert into an atomic
	// conditional insert; a concurrent creation for the same pair
	// yields sql.ErrNoRows here.
	res := tx.QueryRow(
		"INSERT INTO chat_rooms (external_id, pair_key, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $3) "+
			"ON CONFLICT (pair_key) DO NOTHING "+
			"RETURNING id, external_id, pair_key, created_at, updated_at",
		params.ExternalId,
		params.PairKey,
		time.Now().UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.ExternalId,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		err = ErrRoomExists
		return Room{}, err
	}
	if err != nil {
		return Room{}, err
	}

	for _, userId := range params.ParticipantIds {
		if _, err = tx.Exec(
			"INSERT INTO chat_room_participants (chat_room_id, user_id, created_at) VALUES ($1, $2, $3)",
			room.Id,
			userId,
			time.Now().UTC(),
		); err != nil {
			return Room{}, err
		}
	}

	for _, bookId := range params.MatchedBookIds {
		if _, err = tx.Exec(
			"INSERT INTO chat_room_matched_books (chat_room_id, book_id, created_at) VALUES ($1, $2, $3)",
			room.Id,
			bookId,
			time.Now().UTC(),
		); err != nil {
			return Room{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgBookMatchRepository) GetRoomById(roomId int) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, pair_key, created_at, updated_at FROM chat_rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgBookMatchRepository) GetRoomByPairKey(pairKey string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, pair_key, created_at, updated_at FROM chat_rooms "+
			"WHERE pair_key = $1 LIMIT 1",
		pairKey,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgBookMatchRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, pair_key, created_at, updated_at FROM chat_rooms "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgBookMatchRepository) GetRoomDetail(roomId int) (*Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, pair_key, created_at, updated_at FROM chat_rooms "+
			"WHERE id = $1 LIMIT 1",
		roomId,
	)

	var room Room
	if err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.PairKey,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}

	participants, err := db.roomParticipants(roomId)
	if err != nil {
		return nil, fmt.Errorf("room participants: %w", err)
	}
	room.Participants = participants

	matchedBooks, err := db.roomMatchedBooks(roomId)
	if err != nil {
		return nil, fmt.Errorf("room matched books: %w", err)
	}
	room.MatchedBooks = matchedBooks

	messages, err := db.GetMessagesForRoom(roomId)
	if err != nil {
		return nil, fmt.Errorf("room messages: %w", err)
	}
	room.Messages = messages

	return &room, nil
}

func (db *PgBookMatchRepository) roomParticipants(roomId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT u.id, u.username, u.email FROM chat_room_participants p "+
			"JOIN users u ON p.user_id = u.id WHERE p.chat_room_id = $1 ORDER BY p.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.EmailAddress); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgBookMatchRepository) roomMatchedBooks(roomId int) ([]Book, error) {
	rows, err := db.conn.Query(
		"SELECT b.id, b.owner_id, b.title, b.author, b.created_at FROM chat_room_matched_books mb "+
			"JOIN books b ON mb.book_id = b.id WHERE mb.chat_room_id = $1 ORDER BY mb.id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books = make([]Book, 0)
	for rows.Next() {
		var b Book
		if err = rows.Scan(&b.Id, &b.OwnerId, &b.Title, &b.Author, &b.CreatedAt); err != nil {
			break
		}

		books = append(books, b)
	}

	return books, err
}

func (db *PgBookMatchRepository) ListRoomsForUser(userId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.external_id, r.pair_key, r.created_at, r.updated_at FROM chat_rooms r "+
			"JOIN chat_room_participants p ON p.chat_room_id = r.id "+
			"WHERE p.user_id = $1 ORDER BY r.updated_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms = make([]Room, 0)
	for rows.Next() {
		var r Room
		if err = rows.Scan(&r.Id, &r.ExternalId, &r.PairKey, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}

		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		participants, err := db.roomParticipants(rooms[i].Id)
		if err != nil {
			return nil, err
		}
		rooms[i].Participants = participants

		matchedBooks, err := db.roomMatchedBooks(rooms[i].Id)
		if err != nil {
			return nil, err
		}
		rooms[i].MatchedBooks = matchedBooks

		lastMessage, err := db.lastMessageForRoom(rooms[i].Id)
		if err != nil {
			return nil, err
		}
		if lastMessage != nil {
			rooms[i].Messages = []Message{*lastMessage}
		}
	}

	return rooms, nil
}

func (db *PgBookMatchRepository) lastMessageForRoom(roomId int) (*Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.chat_room_id, m.sender_id, m.content, m.created_at, u.id, u.username "+
			"FROM messages m JOIN users u ON m.sender_id = u.id "+
			"WHERE m.chat_room_id = $1 ORDER BY m.created_at DESC, m.id DESC LIMIT 1",
		roomId,
	)

	var msg Message
	err := row.Scan(&msg.Id, &msg.RoomId, &msg.SenderId, &msg.Content, &msg.CreatedAt,
		&msg.Sender.Id, &msg.Sender.Username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func (db *PgBookMatchRepository) IsParticipant(roomId, userId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM chat_room_participants WHERE chat_room_id = $1 AND user_id = $2 LIMIT 1",
		roomId,
		userId,
	)

	var id int
	err := res.Scan(&id)

	return err == nil
}

func (db *PgBookMatchRepository) GetOtherParticipants(roomId, excludeUserId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT u.id, u.username, u.email FROM chat_room_participants p "+
			"JOIN users u ON p.user_id = u.id "+
			"WHERE p.chat_room_id = $1 AND p.user_id <> $2",
		roomId,
		excludeUserId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users = make([]User, 0)
	for rows.Next() {
		var u User
		if err = rows.Scan(&u.Id, &u.Username, &u.EmailAddress); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

func (db *PgBookMatchRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO messages (chat_room_id, sender_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, chat_room_id, sender_id, content, created_at",
		params.RoomId,
		params.SenderId,
		params.Content,
		time.Now().UTC(),
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if _, err = tx.Exec(
		"UPDATE chat_rooms SET updated_at = $1 WHERE id = $2",
		msg.CreatedAt,
		msg.RoomId,
	); err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgBookMatchRepository) GetMessagesForRoom(roomId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.chat_room_id, m.sender_id, m.content, m.created_at, u.id, u.username "+
			"FROM messages m JOIN users u ON m.sender_id = u.id "+
			"WHERE m.chat_room_id = $1 ORDER BY m.created_at ASC, m.id ASC",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.SenderId, &msg.Content, &msg.CreatedAt,
			&msg.Sender.Id, &msg.Sender.Username); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}

func (db *PgBookMatchRepository) CreateNotification(params CreateNotificationParams) (Notification, error) {
	res := db.conn.QueryRow(
		"INSERT INTO notifications (user_id, type, title, content, related_id, link, is_read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, false, $7) "+
			"RETURNING id, user_id, type, title, content, related_id, link, is_read, created_at",
		params.UserId,
		params.Type,
		params.Title,
		params.Content,
		params.RelatedId,
		params.Link,
		time.Now().UTC(),
	)

	var n Notification
	err := res.Scan(
		&n.Id,
		&n.UserId,
		&n.Type,
		&n.Title,
		&n.Content,
		&n.RelatedId,
		&n.Link,
		&n.IsRead,
		&n.CreatedAt,
	)

	return n, err
}

func (db *PgBookMatchRepository) ListNotifications(userId, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT id, user_id, type, title, content, related_id, link, is_read, created_at "+
			"FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2",
		userId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications = make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err = rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Title, &n.Content,
			&n.RelatedId, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			break
		}

		notifications = append(notifications, n)
	}

	return notifications, err
}

func (db *PgBookMatchRepository) CountUnreadNotifications(userId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false",
		userId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgBookMatchRepository) MarkNotificationRead(notificationId, userId int) error {
	res, err := db.conn.Exec(
		"UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2",
		notificationId,
		userId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgBookMatchRepository) MarkAllNotificationsRead(userId int) error {
	_, err := db.conn.Exec(
		"UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false",
		userId,
	)

	return err
}

func (db *PgBookMatchRepository) DeleteNotification(notificationId, userId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM notifications WHERE id = $1 AND user_id = $2",
		notificationId,
		userId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgBookMatchRepository) DeleteReadNotifications(userId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM notifications WHERE user_id = $1 AND is_read = true",
		userId,
	)

	return err
}
