/*
Package handler provides the HTTP handler for conversation history reads.

History uses descending keyset pagination: the `before` query parameter is an
RFC 3339 timestamp cursor with an optional `beforeId` tie-breaker, and the
response's `nextBefore`/`nextBeforeId` fields carry the cursor for the next
(older) page, or null when history is exhausted.
*/
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"parley/internal/app/store"
	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/logx"
	"parley/internal/pkg/resp"
)

// historyStore is the slice of the store the history handler reads from.
type historyStore interface {
	GetRoomByID(ctx context.Context, id uuid.UUID) (store.Room, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListMessages(ctx context.Context, params store.ListMessagesParams) (store.MessagePage, error)
}

// historyQuery is the parsed and validated form of a history read request.
type historyQuery struct {
	roomID     *uuid.UUID
	receiverID *uuid.UUID
	before     *time.Time
	beforeID   *uuid.UUID
	limit      int
}

// parseHistoryQuery validates the query string of a GET /messages request.
// Exactly one of roomId and receiverId must be supplied.
func parseHistoryQuery(values url.Values) (*historyQuery, *errs.CustomError) {
	roomIDStr := values.Get("roomId")
	receiverIDStr := values.Get("receiverId")

	if (roomIDStr == "") == (receiverIDStr == "") {
		return nil, errs.NewError(errs.ErrMessageTargetInvalid)
	}

	q := &historyQuery{}

	if roomIDStr != "" {
		roomID, err := uuid.Parse(roomIDStr)
		if err != nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		q.roomID = &roomID
	}

	if receiverIDStr != "" {
		receiverID, err := uuid.Parse(receiverIDStr)
		if err != nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		q.receiverID = &receiverID
	}

	if beforeStr := values.Get("before"); beforeStr != "" {
		before, err := time.Parse(time.RFC3339Nano, beforeStr)
		if err != nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		q.before = &before
	}

	if beforeIDStr := values.Get("beforeId"); beforeIDStr != "" {
		if q.before == nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		beforeID, err := uuid.Parse(beforeIDStr)
		if err != nil {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		q.beforeID = &beforeID
	}

	if limitStr := values.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return nil, errs.NewError(errs.ErrInvalidParams)
		}
		q.limit = limit
	}

	q.limit = store.ClampLimit(q.limit)

	return q, nil
}

// HandleListMessages reads one page of room or direct-message history.
// Private-room history is restricted to the room's creator.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return listMessages(deps.Store)
}

func listMessages(messages historyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := jwt.GetPrincipalFromContext(r)
		if principal == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		callerID, err := uuid.Parse(principal.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		q, customErr := parseHistoryQuery(r.URL.Query())
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if q.roomID != nil {
			room, err := messages.GetRoomByID(r.Context(), *q.roomID)
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
				return
			}
			if err != nil {
				logx.Error(err, "history: room lookup failed", "room_id", q.roomID.String())
				resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
				return
			}

			if room.IsPrivate && room.CreatedBy != callerID {
				resp.RespondError(w, r, errs.NewError(errs.ErrPrivateRoomForbidden))
				return
			}
		}

		if q.receiverID != nil {
			exists, err := messages.UserExists(r.Context(), *q.receiverID)
			if err != nil {
				logx.Error(err, "history: receiver lookup failed", "receiver_id", q.receiverID.String())
				resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
				return
			}
			if !exists {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}
		}

		page, err := messages.ListMessages(r.Context(), store.ListMessagesParams{
			RoomID:     q.roomID,
			ReceiverID: q.receiverID,
			CallerID:   callerID,
			Before:     q.before,
			BeforeID:   q.beforeID,
			Limit:      q.limit,
		})
		if err != nil {
			logx.Error(err, "history: message listing failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, page)
	}
}
