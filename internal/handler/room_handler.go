/*
Package handler provides HTTP handler functions for room listing and creation.
*/
package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/logx"
	"parley/internal/pkg/req"
	"parley/internal/pkg/resp"
)

type CreateRoomInput struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
}

// HandleCreateRoom creates a new persistent room owned by the caller.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := jwt.GetPrincipalFromContext(r)
		if principal == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		name := strings.TrimSpace(input.Name)
		nameLen := utf8.RuneCountInString(name)
		if nameLen < 2 || nameLen > 100 {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNameInvalid))
			return
		}

		creatorID, err := uuid.Parse(principal.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		room, err := deps.Store.CreateRoom(r.Context(), name, input.IsPrivate, creatorID)
		if err != nil {
			logx.Error(err, "failed to create room", "name", name)
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"room": room,
		})
	}
}

// HandleListRooms returns all rooms visible to the caller: every public room
// plus the caller's own private rooms.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
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

		rooms, err := deps.Store.ListRoomsVisibleTo(r.Context(), callerID)
		if err != nil {
			logx.Error(err, "failed to list rooms")
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms": rooms,
		})
	}
}
