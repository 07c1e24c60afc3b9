package database

import (
	"database/sql"
	"errors"
)

var (
	// ErrDuplicateAccount is returned when the username or email is
	// already registered.
	ErrDuplicateAccount = errors.New("username or email already taken")
	// ErrDuplicateBook is returned when a user already owns a book with
	// the same title and author.
	ErrDuplicateBook = errors.New("book already exists for user")
	// ErrRoomExists is returned when a room for the participant pair was
	// created concurrently; callers should re-fetch by pair key.
	ErrRoomExists = errors.New("room already exists for pair")
)

type PgBookMatchRepository struct {
	conn *sql.DB
}

func NewPgBookMatchRepository(dsn string) (*PgBookMatchRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgBookMatchRepository{conn: db}, nil
}

func (db *PgBookMatchRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgBookMatchRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
