package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPageSize is the history page size when the caller does not specify one.
	DefaultPageSize = 20

	// MaxPageSize caps the history page size.
	MaxPageSize = 50
)

// CreateMessageParams carries the validated inputs for a message insert.
// Exactly one of RoomID/ReceiverID must be set; the database check
// constraint enforces it as a last line of defense.
type CreateMessageParams struct {
	Content    string
	FileURL    *string
	SenderID   uuid.UUID
	RoomID     *uuid.UUID
	ReceiverID *uuid.UUID
}

// CreateMessage appends a message row and returns the canonical persisted
// record, including the sender's resolved display name.
func (s *Store) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	const query = `
		WITH inserted AS (
			INSERT INTO messages (content, file_url, sender_id, room_id, receiver_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, content, file_url, sender_id, room_id, receiver_id, created_at
		)
		SELECT i.id, i.content, i.file_url, i.sender_id, u.name, i.room_id, i.receiver_id, i.created_at
		FROM inserted i
		JOIN users u ON u.id = i.sender_id`

	var m Message
	err := s.pool.QueryRow(ctx, query,
		params.Content, params.FileURL, params.SenderID, params.RoomID, params.ReceiverID).
		Scan(&m.ID, &m.Content, &m.FileURL, &m.SenderID, &m.SenderName, &m.RoomID, &m.ReceiverID, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return m, nil
}

// ListMessagesParams selects one conversation: exactly one of RoomID and
// ReceiverID must be set. For direct messages, CallerID names the other
// participant of the pair. Before/BeforeID form a composite cursor: rows
// strictly older than (Before, BeforeID) under (created_at, id) ordering.
// A nil BeforeID behaves as the maximum id, so a timestamp-only cursor is
// inclusive of the boundary timestamp and never skips tied rows.
type ListMessagesParams struct {
	RoomID     *uuid.UUID
	ReceiverID *uuid.UUID
	CallerID   uuid.UUID
	Before     *time.Time
	BeforeID   *uuid.UUID
	Limit      int
}

// MessagePage is one page of history in ascending creation order.
// NextBefore/NextBeforeID are the composite cursor for the next (older)
// page, nil when exhausted.
type MessagePage struct {
	Messages     []Message  `json:"messages"`
	NextBefore   *time.Time `json:"nextBefore"`
	NextBeforeID *uuid.UUID `json:"nextBeforeId"`
}

// ListMessages reads one page of conversation history using descending keyset
// pagination: limit+1 rows are fetched newest-first to detect continuation,
// the extra row is dropped, and the page is reversed to ascending order for
// display. The scheme is stable under concurrent inserts (no offset drift).
func (s *Store) ListMessages(ctx context.Context, params ListMessagesParams) (MessagePage, error) {
	limit := ClampLimit(params.Limit)

	// Timestamp-only cursors compare against the maximum id so rows tied on
	// the boundary timestamp are still scanned.
	beforeID := uuid.Max
	if params.BeforeID != nil {
		beforeID = *params.BeforeID
	}

	var (
		query string
		args  []any
	)

	switch {
	case params.RoomID != nil:
		query = `
			SELECT m.id, m.content, m.file_url, m.sender_id, u.name, m.room_id, m.receiver_id, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.room_id = $1 AND ($2::timestamptz IS NULL OR (m.created_at, m.id) < ($2, $3::uuid))
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $4`
		args = []any{*params.RoomID, params.Before, beforeID, limit + 1}

	case params.ReceiverID != nil:
		query = `
			SELECT m.id, m.content, m.file_url, m.sender_id, u.name, m.room_id, m.receiver_id, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE ((m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1))
			  AND ($3::timestamptz IS NULL OR (m.created_at, m.id) < ($3, $4::uuid))
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT $5`
		args = []any{params.CallerID, *params.ReceiverID, params.Before, beforeID, limit + 1}

	default:
		return MessagePage{}, fmt.Errorf("list messages: no conversation target")
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return MessagePage{}, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	descending := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Content, &m.FileURL, &m.SenderID, &m.SenderName, &m.RoomID, &m.ReceiverID, &m.CreatedAt); err != nil {
			return MessagePage{}, fmt.Errorf("scan message row: %w", err)
		}
		descending = append(descending, m)
	}

	if err := rows.Err(); err != nil {
		return MessagePage{}, fmt.Errorf("iterate message rows: %w", err)
	}

	return ShapePage(descending, limit), nil
}

// ClampLimit normalizes a requested page size into the 1..MaxPageSize range,
// substituting DefaultPageSize for zero or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// ShapePage turns up to limit+1 descending rows into an ascending page.
// When the extra row is present, more history exists and NextBefore and
// NextBeforeID name the oldest row returned.
func ShapePage(descending []Message, limit int) MessagePage {
	hasMore := len(descending) > limit
	if hasMore {
		descending = descending[:limit]
	}

	ascending := make([]Message, len(descending))
	for i, m := range descending {
		ascending[len(descending)-1-i] = m
	}

	page := MessagePage{Messages: ascending}
	if hasMore && len(ascending) > 0 {
		oldest := ascending[0]
		page.NextBefore = &oldest.CreatedAt
		page.NextBeforeID = &oldest.ID
	}

	return page
}
