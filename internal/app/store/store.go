/*
Package store is the durable persistence layer for users, rooms, and messages.

It wraps a pgx connection pool with typed queries. Messages are append-only:
rows are created once and never mutated; delivery events reference the
canonical persisted record.
*/
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a referenced row does not exist.
// Callers translate it into their own not-found error shape.
var ErrNotFound = errors.New("store: not found")

// Store executes all database queries for the application.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store on top of an initialized connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Room is a persistent chat room. Rooms are never deleted.
// A private room's history is readable only by its creator.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is a persisted chat message. Exactly one of RoomID/ReceiverID is
// set: a room broadcast or a direct message between two participants.
type Message struct {
	ID         uuid.UUID  `json:"id"`
	Content    string     `json:"content"`
	FileURL    *string    `json:"fileUrl"`
	SenderID   uuid.UUID  `json:"senderId"`
	SenderName string     `json:"senderName"`
	RoomID     *uuid.UUID `json:"roomId"`
	ReceiverID *uuid.UUID `json:"receiverId"`
	CreatedAt  time.Time  `json:"createdAt"`
}
