/*
Package chat contains the real-time messaging core: connection sessions,
presence bookkeeping, group routing, and message dispatch.

This file defines the Dispatcher, which validates and persists inbound send
requests, turns them into delivery events, and hands the canonical persisted
record back to the originating session for acknowledgment. Persistence is
authoritative; fan-out is best-effort and never rolled back.
*/
package chat

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parley/internal/app/store"
	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/logx"
)

// MessageStore is the slice of the persistence layer the Dispatcher needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, params store.CreateMessageParams) (store.Message, error)
	RoomExists(ctx context.Context, id uuid.UUID) (bool, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Broadcaster is the slice of the routing fabric the Dispatcher needs.
type Broadcaster interface {
	Broadcast(group string, event string, data any) error
	BroadcastToUsers(userIDs []string, event string, data any) error
}

// AttachmentStore is the slice of object storage the Dispatcher needs: a
// presigned upload whose message never persisted is orphaned and gets
// deleted. May be nil, in which case orphans are left in place.
type AttachmentStore interface {
	Delete(ctx context.Context, key string) error
}

// Dispatcher validates, persists, and fans out inbound send requests.
type Dispatcher struct {
	store       MessageStore
	fabric      Broadcaster
	attachments AttachmentStore
	logger      zerolog.Logger
}

// NewDispatcher constructs a Dispatcher on top of a message store, a routing
// fabric, and the attachment backend used for orphan cleanup.
func NewDispatcher(messageStore MessageStore, fabric Broadcaster, attachments AttachmentStore) *Dispatcher {
	dispatcherLogger := logx.Logger().With().Str("component", "Dispatcher").Logger()

	return &Dispatcher{
		store:       messageStore,
		fabric:      fabric,
		attachments: attachments,
		logger:      dispatcherLogger,
	}
}

// SendRoomMessage persists a room message and broadcasts the resulting
// new_message event to the room's delivery group. The room must exist; any
// authenticated principal may post to any known room id (private-room
// authorization applies only to history reads). The canonical persisted
// record is returned for the caller's acknowledgment.
func (d *Dispatcher) SendRoomMessage(ctx context.Context, principal *jwt.Principal, roomID, content, fileURL string) (store.Message, *errs.CustomError) {
	senderID, customErr := parsePrincipalID(principal)
	if customErr != nil {
		return store.Message{}, customErr
	}

	roomUUID, err := uuid.Parse(roomID)
	if err != nil {
		return store.Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	cleanContent, fileRef, customErr := prepareContent(content, fileURL)
	if customErr != nil {
		return store.Message{}, customErr
	}

	exists, err := d.store.RoomExists(ctx, roomUUID)
	if err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Room lookup failed.")
		return store.Message{}, errs.NewError(errs.ErrStoreUnavailable)
	}
	if !exists {
		return store.Message{}, errs.NewError(errs.ErrRoomNotFound)
	}

	message, err := d.store.CreateMessage(ctx, store.CreateMessageParams{
		Content:  cleanContent,
		FileURL:  fileRef,
		SenderID: senderID,
		RoomID:   &roomUUID,
	})
	if err != nil {
		d.logger.Error().Err(err).Str("room_id", roomID).Msg("Failed to persist room message.")
		d.cleanupOrphanedAttachment(ctx, fileRef)
		return store.Message{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	if err := d.fabric.Broadcast(RoomGroup(roomID), EventNewMessage, message); err != nil {
		// Persistence is authoritative; a failed fan-out does not fail the send.
		d.logger.Error().Err(err).Str("message_id", message.ID.String()).Msg("Room fan-out failed.")
	}

	return message, nil
}

// SendDirectMessage persists a direct message and broadcasts the resulting
// new_message event to both participants' mailbox groups, so all of the
// sender's own open sessions see the echo as well.
func (d *Dispatcher) SendDirectMessage(ctx context.Context, principal *jwt.Principal, receiverID, content, fileURL string) (store.Message, *errs.CustomError) {
	senderID, customErr := parsePrincipalID(principal)
	if customErr != nil {
		return store.Message{}, customErr
	}

	receiverUUID, err := uuid.Parse(receiverID)
	if err != nil {
		return store.Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	cleanContent, fileRef, customErr := prepareContent(content, fileURL)
	if customErr != nil {
		return store.Message{}, customErr
	}

	exists, err := d.store.UserExists(ctx, receiverUUID)
	if err != nil {
		d.logger.Error().Err(err).Str("receiver_id", receiverID).Msg("Receiver lookup failed.")
		return store.Message{}, errs.NewError(errs.ErrStoreUnavailable)
	}
	if !exists {
		return store.Message{}, errs.NewError(errs.ErrReceiverNotFound)
	}

	message, err := d.store.CreateMessage(ctx, store.CreateMessageParams{
		Content:    cleanContent,
		FileURL:    fileRef,
		SenderID:   senderID,
		ReceiverID: &receiverUUID,
	})
	if err != nil {
		d.logger.Error().Err(err).Str("receiver_id", receiverID).Msg("Failed to persist direct message.")
		d.cleanupOrphanedAttachment(ctx, fileRef)
		return store.Message{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	recipients := []string{principal.ID}
	if receiverID != principal.ID {
		recipients = append(recipients, receiverID)
	}

	if err := d.fabric.BroadcastToUsers(recipients, EventNewMessage, message); err != nil {
		d.logger.Error().Err(err).Str("message_id", message.ID.String()).Msg("Direct message fan-out failed.")
	}

	return message, nil
}

// cleanupOrphanedAttachment deletes an uploaded object whose message failed
// to persist. Best-effort: a failed delete is logged and otherwise ignored.
func (d *Dispatcher) cleanupOrphanedAttachment(ctx context.Context, fileRef *string) {
	if d.attachments == nil || fileRef == nil {
		return
	}

	if err := d.attachments.Delete(ctx, *fileRef); err != nil {
		d.logger.Error().Err(err).Str("file_key", *fileRef).Msg("Failed to delete orphaned attachment.")
	}
}

// prepareContent sanitizes the content and validates the content/file pair.
// Empty sanitized content with a file attached is replaced by the fixed
// placeholder so no persisted row ends up with neither text nor attachment.
func prepareContent(content, fileURL string) (string, *string, *errs.CustomError) {
	clean := SanitizeContent(content)

	if utf8.RuneCountInString(clean) > MaxContentChars {
		return "", nil, errs.NewError(errs.ErrMessageTooLong)
	}

	var fileRef *string
	if fileURL != "" {
		if !ValidFileRef(fileURL) {
			return "", nil, errs.NewError(errs.ErrFileRefInvalid)
		}
		fileRef = &fileURL
	}

	if clean == "" {
		if fileRef == nil {
			return "", nil, errs.NewError(errs.ErrMessageEmpty)
		}
		clean = FilePlaceholderContent
	}

	return clean, fileRef, nil
}

func parsePrincipalID(principal *jwt.Principal) (uuid.UUID, *errs.CustomError) {
	if principal == nil {
		return uuid.Nil, errs.NewError(errs.ErrUnauthorized)
	}

	id, err := uuid.Parse(principal.ID)
	if err != nil {
		return uuid.Nil, errs.NewError(errs.ErrUnauthorized)
	}

	return id, nil
}
