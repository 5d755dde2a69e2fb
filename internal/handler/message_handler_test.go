package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/app/store"
	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/resp"
)

func TestParseHistoryQueryTargetSelection(t *testing.T) {
	roomID := uuid.New()
	receiverID := uuid.New()

	t.Run("room target", func(t *testing.T) {
		q, customErr := parseHistoryQuery(url.Values{"roomId": {roomID.String()}})
		require.Nil(t, customErr)
		require.NotNil(t, q.roomID)
		assert.Equal(t, roomID, *q.roomID)
		assert.Nil(t, q.receiverID)
	})

	t.Run("receiver target", func(t *testing.T) {
		q, customErr := parseHistoryQuery(url.Values{"receiverId": {receiverID.String()}})
		require.Nil(t, customErr)
		require.NotNil(t, q.receiverID)
		assert.Equal(t, receiverID, *q.receiverID)
		assert.Nil(t, q.roomID)
	})

	t.Run("neither target", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrMessageTargetInvalid, customErr.Code)
	})

	t.Run("both targets", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{
			"roomId":     {roomID.String()},
			"receiverId": {receiverID.String()},
		})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrMessageTargetInvalid, customErr.Code)
	})

	t.Run("malformed ids", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{"roomId": {"nope"}})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)

		_, customErr = parseHistoryQuery(url.Values{"receiverId": {"nope"}})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})
}

func TestParseHistoryQueryCursor(t *testing.T) {
	roomID := uuid.New()

	t.Run("absent cursor", func(t *testing.T) {
		q, customErr := parseHistoryQuery(url.Values{"roomId": {roomID.String()}})
		require.Nil(t, customErr)
		assert.Nil(t, q.before)
	})

	t.Run("nanosecond cursor round-trips", func(t *testing.T) {
		cursor := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
		q, customErr := parseHistoryQuery(url.Values{
			"roomId": {roomID.String()},
			"before": {cursor.Format(time.RFC3339Nano)},
		})
		require.Nil(t, customErr)
		require.NotNil(t, q.before)
		assert.True(t, q.before.Equal(cursor))
	})

	t.Run("malformed cursor", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{
			"roomId": {roomID.String()},
			"before": {"yesterday"},
		})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})

	t.Run("id tie-breaker accepted", func(t *testing.T) {
		cursorID := uuid.New()
		q, customErr := parseHistoryQuery(url.Values{
			"roomId":   {roomID.String()},
			"before":   {"2025-06-01T12:00:00Z"},
			"beforeId": {cursorID.String()},
		})
		require.Nil(t, customErr)
		require.NotNil(t, q.beforeID)
		assert.Equal(t, cursorID, *q.beforeID)
	})

	t.Run("id tie-breaker without timestamp rejected", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{
			"roomId":   {roomID.String()},
			"beforeId": {uuid.New().String()},
		})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})

	t.Run("malformed id tie-breaker", func(t *testing.T) {
		_, customErr := parseHistoryQuery(url.Values{
			"roomId":   {roomID.String()},
			"before":   {"2025-06-01T12:00:00Z"},
			"beforeId": {"nope"},
		})
		require.NotNil(t, customErr)
		assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
	})
}

func TestParseHistoryQueryLimit(t *testing.T) {
	roomID := uuid.New()
	target := url.Values{"roomId": {roomID.String()}}

	t.Run("default when absent", func(t *testing.T) {
		q, customErr := parseHistoryQuery(target)
		require.Nil(t, customErr)
		assert.Equal(t, store.DefaultPageSize, q.limit)
	})

	t.Run("explicit value kept", func(t *testing.T) {
		values := url.Values{"roomId": {roomID.String()}, "limit": {"5"}}
		q, customErr := parseHistoryQuery(values)
		require.Nil(t, customErr)
		assert.Equal(t, 5, q.limit)
	})

	t.Run("clamped to maximum", func(t *testing.T) {
		values := url.Values{"roomId": {roomID.String()}, "limit": {"500"}}
		q, customErr := parseHistoryQuery(values)
		require.Nil(t, customErr)
		assert.Equal(t, store.MaxPageSize, q.limit)
	})

	t.Run("rejects zero, negative, and junk", func(t *testing.T) {
		for _, limit := range []string{"0", "-1", "ten"} {
			values := url.Values{"roomId": {roomID.String()}, "limit": {limit}}
			_, customErr := parseHistoryQuery(values)
			require.NotNil(t, customErr, "limit %q", limit)
			assert.Equal(t, errs.ErrInvalidParams, customErr.Code)
		}
	})
}

// fakeHistoryStore serves room and user lookups from maps and records every
// history read.
type fakeHistoryStore struct {
	rooms map[uuid.UUID]store.Room
	users map[uuid.UUID]bool

	listed []store.ListMessagesParams
	page   store.MessagePage
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{
		rooms: map[uuid.UUID]store.Room{},
		users: map[uuid.UUID]bool{},
	}
}

func (f *fakeHistoryStore) GetRoomByID(_ context.Context, id uuid.UUID) (store.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return store.Room{}, store.ErrNotFound
	}
	return room, nil
}

func (f *fakeHistoryStore) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.users[id], nil
}

func (f *fakeHistoryStore) ListMessages(_ context.Context, params store.ListMessagesParams) (store.MessagePage, error) {
	f.listed = append(f.listed, params)
	return f.page, nil
}

// historyRequest builds a GET /api/messages request authenticated as callerID.
func historyRequest(callerID uuid.UUID, query url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/messages?"+query.Encode(), nil)

	principal := &jwt.Principal{ID: callerID.String(), Name: "Alice", Email: "alice@example.com"}
	ctx := context.WithValue(r.Context(), jwt.ContextPrincipalKey, principal)
	return r.WithContext(ctx)
}

func TestListMessagesPrivateRoomAccess(t *testing.T) {
	creatorID := uuid.New()
	roomID := uuid.New()

	newStore := func() *fakeHistoryStore {
		messages := newFakeHistoryStore()
		messages.rooms[roomID] = store.Room{ID: roomID, Name: "war-room", IsPrivate: true, CreatedBy: creatorID}
		messages.page = store.MessagePage{Messages: []store.Message{{ID: uuid.New(), Content: "hello", RoomID: &roomID}}}
		return messages
	}

	t.Run("creator reads the page", func(t *testing.T) {
		messages := newStore()
		recorder := httptest.NewRecorder()
		listMessages(messages)(recorder, historyRequest(creatorID, url.Values{"roomId": {roomID.String()}}))

		assert.Equal(t, http.StatusOK, recorder.Code)

		var envelope resp.JSONResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, 0, envelope.Code)

		require.Len(t, messages.listed, 1)
		assert.Equal(t, creatorID, messages.listed[0].CallerID)
	})

	t.Run("non-creator is refused before any history read", func(t *testing.T) {
		messages := newStore()
		recorder := httptest.NewRecorder()
		listMessages(messages)(recorder, historyRequest(uuid.New(), url.Values{"roomId": {roomID.String()}}))

		assert.Equal(t, http.StatusForbidden, recorder.Code)

		var envelope resp.JSONResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, errs.ErrPrivateRoomForbidden, envelope.Code)

		assert.Empty(t, messages.listed, "no message rows are touched for a refused caller")
	})

	t.Run("public room open to any caller", func(t *testing.T) {
		messages := newStore()
		room := messages.rooms[roomID]
		room.IsPrivate = false
		messages.rooms[roomID] = room

		recorder := httptest.NewRecorder()
		listMessages(messages)(recorder, historyRequest(uuid.New(), url.Values{"roomId": {roomID.String()}}))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Len(t, messages.listed, 1)
	})
}

func TestListMessagesUnknownTargets(t *testing.T) {
	t.Run("unknown room", func(t *testing.T) {
		messages := newFakeHistoryStore()
		recorder := httptest.NewRecorder()
		listMessages(messages)(recorder, historyRequest(uuid.New(), url.Values{"roomId": {uuid.New().String()}}))

		assert.Equal(t, http.StatusNotFound, recorder.Code)

		var envelope resp.JSONResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, errs.ErrRoomNotFound, envelope.Code)
		assert.Empty(t, messages.listed)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		messages := newFakeHistoryStore()
		recorder := httptest.NewRecorder()
		listMessages(messages)(recorder, historyRequest(uuid.New(), url.Values{"receiverId": {uuid.New().String()}}))

		var envelope resp.JSONResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
		assert.Equal(t, errs.ErrUserNotFound, envelope.Code)
		assert.Empty(t, messages.listed)
	})
}

func TestListMessagesRequiresAuth(t *testing.T) {
	messages := newFakeHistoryStore()
	recorder := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodGet, "/api/messages?roomId="+uuid.New().String(), nil)
	listMessages(messages)(recorder, r)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Empty(t, messages.listed)
}
