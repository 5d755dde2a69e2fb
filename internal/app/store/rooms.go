package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRoom inserts a new room and returns the persisted row.
func (s *Store) CreateRoom(ctx context.Context, name string, isPrivate bool, createdBy uuid.UUID) (Room, error) {
	const query = `
		INSERT INTO rooms (name, is_private, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, name, is_private, created_by, created_at`

	var room Room
	err := s.pool.QueryRow(ctx, query, name, isPrivate, createdBy).
		Scan(&room.ID, &room.Name, &room.IsPrivate, &room.CreatedBy, &room.CreatedAt)
	if err != nil {
		return Room{}, fmt.Errorf("create room: %w", err)
	}

	return room, nil
}

// GetRoomByID fetches a room by primary key.
func (s *Store) GetRoomByID(ctx context.Context, id uuid.UUID) (Room, error) {
	const query = `
		SELECT id, name, is_private, created_by, created_at
		FROM rooms
		WHERE id = $1`

	var room Room
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&room.ID, &room.Name, &room.IsPrivate, &room.CreatedBy, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, fmt.Errorf("get room by id: %w", err)
	}

	return room, nil
}

// RoomExists reports whether a room with the given id exists.
func (s *Store) RoomExists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("room exists: %w", err)
	}

	return exists, nil
}

// ListRoomsVisibleTo returns all public rooms plus the caller's own private
// rooms, newest first.
func (s *Store) ListRoomsVisibleTo(ctx context.Context, callerID uuid.UUID) ([]Room, error) {
	const query = `
		SELECT id, name, is_private, created_by, created_at
		FROM rooms
		WHERE is_private = FALSE OR created_by = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, callerID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.IsPrivate, &room.CreatedBy, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room rows: %w", err)
	}

	return rooms, nil
}
